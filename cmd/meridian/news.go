package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "Collect news for the watchlist and score pending sentiment",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		_, a, log, err := setup(ctx)
		if err != nil {
			return err
		}
		defer log.Sync()
		defer a.Close()

		inserted, scored, err := a.CollectNews(ctx)
		fmt.Printf("inserted %d news items, stored %d sentiment scores\n", inserted, scored)
		return err
	},
}

func init() {
	rootCmd.AddCommand(newsCmd)
}
