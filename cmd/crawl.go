package cmd

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kidsparis/activity-crawler/internal/app"
	"github.com/kidsparis/activity-crawler/internal/config"
	"github.com/kidsparis/activity-crawler/internal/orchestrator"
)

var (
	crawlZone     string
	crawlStrategy string
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Run one crawl synchronously and print the result",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Orchestrator.Run(ctx, orchestrator.Options{
			Zone:     crawlZone,
			Strategy: crawlStrategy,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	crawlCmd.Flags().StringVar(&crawlZone, "zone", "", "arrondissement to crawl, e.g. 20e or 75020")
	crawlCmd.Flags().StringVar(&crawlStrategy, "strategy", "", "crawl strategy: locality, intelligent, or advanced")
	_ = crawlCmd.MarkFlagRequired("zone")
	rootCmd.AddCommand(crawlCmd)
}
