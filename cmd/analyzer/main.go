package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/canopy-network/nodedist/app/analyzer"
	"github.com/canopy-network/nodedist/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := &cobra.Command{
		Use:   "analyzer",
		Short: "Node distribution analyzer",
		Long: `Attributes the nodes of a blockchain inventory to hosting providers and places
and writes the distribution reports. Requires configuration through ENV or NODEDIST_CONFIG.`,
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newScheduleCmd())

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	var (
		chain     string
		providers string
		countries string
		output    bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Analyse one blockchain once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app := analyzer.Initialize(ctx)
			defer app.Close()

			_, err := app.Run(ctx, analyzer.RunRequest{
				Chain:     strings.TrimSpace(chain),
				Providers: utils.SplitList(providers),
				Countries: utils.SplitList(countries),
				Output:    output,
			})
			if err != nil {
				app.Logger.Error("Analysis failed", zap.String("chain", chain), zap.Error(err))
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&chain, "blockchain", "", "blockchain to analyse, the name of an inventory in the json dir")
	cmd.Flags().StringVar(&providers, "providers", "", "comma separated provider short codes to track, e.g. AWS,GCP")
	cmd.Flags().StringVar(&countries, "countries", "", "comma separated ISO country codes to track, e.g. US,DE")
	cmd.Flags().BoolVar(&output, "output", false, "print completion summaries for the tracked providers and countries")
	_ = cmd.MarkFlagRequired("blockchain")
	return cmd
}

func newScheduleCmd() *cobra.Command {
	var now bool
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Re-run the analysis of every configured blockchain on CRON_SPEC",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app := analyzer.Initialize(ctx)

			if err := app.SetupScheduler(ctx); err != nil {
				app.Logger.Fatal("Unable to setup scheduler", zap.Error(err))
			}

			// Immediate pass before cron
			if now {
				app.RunScheduled(ctx)
			}

			app.StartCron()
			app.SetupServer()
			app.Start(ctx)
			return nil
		},
	}
	cmd.Flags().BoolVar(&now, "now", false, "run every scheduled chain once before waiting for the first tick")
	return cmd
}
