package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"code_tracker/internal/pipeline"
)

var scanGame string

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one discovery pass and exit",
	Long:  `Run the discovery pipeline once for every game, or for a single game with --game. The hourly gate still applies.`,
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanGame, "game", "", "scan only the game with this short name")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var results []pipeline.Result
	if scanGame != "" {
		game, ok := a.registry.BySlug(scanGame)
		if !ok {
			return fmt.Errorf("unknown game %q", scanGame)
		}
		results = append(results, a.pipeline.RunGame(ctx, game))
	} else {
		results = a.pipeline.RunAll(ctx)
	}

	failed := 0
	for _, r := range results {
		fmt.Fprintf(cmd.OutOrStdout(), "%-16s %-10s found=%d\n", r.Game, r.State, r.Found)
		if r.State == pipeline.Failed {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d game(s) failed", failed)
	}
	return nil
}
