package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/meridian/internal/metrics"
)

var runOnce bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run analysis cycles over the watchlist",
	Long:  "Run analysis cycles on the configured interval until interrupted, or a single cycle with --once.",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runOnce, "once", false, "run a single analysis cycle and exit")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, a, log, err := setup(ctx)
	if err != nil {
		return err
	}
	defer log.Sync()
	defer a.Close()

	if runOnce {
		report, err := a.RunOnce(ctx)
		if err != nil {
			return fmt.Errorf("analysis cycle: %w", err)
		}
		for _, o := range report.Instruments {
			switch {
			case o.Decision != nil:
				fmt.Printf("%-12s %-5s confidence=%.2f buy=%d sell=%d sources=%v\n",
					o.Symbol, o.Decision.Action, o.Decision.Confidence,
					o.Decision.BuyCount, o.Decision.SellCount, o.Sources)
			case o.Skipped:
				fmt.Printf("%-12s skipped: %s\n", o.Symbol, o.Error)
			default:
				fmt.Printf("%-12s error: %s\n", o.Symbol, o.Error)
			}
		}
		return nil
	}

	if cfg.Metrics.Enabled {
		h := metrics.Handler(a.Metrics(), a.Health().All, log.Named("http"))
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, h, log); err != nil {
				log.Error("metrics server error", zap.Error(err))
			}
		}()
	}

	if err := a.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
