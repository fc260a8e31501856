package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/newthinker/meridian/internal/core"
)

var (
	fetchAssetClass string
	fetchBars       int
)

var fetchCmd = &cobra.Command{
	Use:   "fetch SYMBOL",
	Short: "Resolve one instrument and print the chosen series",
	Args:  cobra.ExactArgs(1),
	RunE:  runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchAssetClass, "asset-class", "", "asset class (equity, etf, index, crypto)")
	fetchCmd.Flags().IntVar(&fetchBars, "bars", 5, "number of trailing bars to print")
	rootCmd.AddCommand(fetchCmd)
}

type fetchSummary struct {
	Symbol    string             `json:"symbol"`
	Source    string             `json:"source"`
	FromCache bool               `json:"from_cache"`
	Points    int                `json:"points"`
	Quality   core.QualityReport `json:"quality"`
	Tail      []core.Bar         `json:"tail"`
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	_, a, log, err := setup(ctx)
	if err != nil {
		return err
	}
	defer log.Sync()
	defer a.Close()

	inst := core.ParseInstrument(args[0])
	if fetchAssetClass != "" {
		inst = inst.WithAssetClass(core.AssetClass(fetchAssetClass))
	}

	r, err := a.Fetch(ctx, inst)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", inst.Symbol, err)
	}

	bars := r.Series.Bars
	if fetchBars >= 0 && len(bars) > fetchBars {
		bars = bars[len(bars)-fetchBars:]
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(fetchSummary{
		Symbol:    inst.Symbol,
		Source:    r.Source,
		FromCache: r.FromCache,
		Points:    r.Series.Len(),
		Quality:   r.Quality,
		Tail:      bars,
	})
}
