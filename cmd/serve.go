package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/KaramelBytes/skyscope/internal/dashboard"
	"github.com/KaramelBytes/skyscope/internal/dataset"
	"github.com/KaramelBytes/skyscope/internal/pipeline"
	"github.com/KaramelBytes/skyscope/internal/server"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API and live WebSocket channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		policy, err := heightPolicy(c)
		if err != nil {
			return err
		}
		log := newLogger(cmd, c)
		if serveAddr != "" {
			c.ServerAddr = serveAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		loader := func(ctx context.Context) (*dataset.Dataset, error) {
			return loadDataset(ctx, c, log)
		}
		srv, err := server.New(ctx, loader, server.Options{
			Addr:           c.ServerAddr,
			HeightPolicy:   policy,
			DensityCellDeg: c.DensityCellDeg,
			Defaults: dashboard.Request{
				Criteria: pipeline.Criteria{MaxFloors: c.DefaultMaxFloors, MinYear: c.DefaultMinYear},
				MapView:  dashboard.MapMode(c.DefaultMapView),
				BarColor: c.BarColor,
			},
			RateLimitRPS:   c.RateLimitRPS,
			RateLimitBurst: c.RateLimitBurst,
			CacheEntries:   c.CacheEntries,
		}, log)
		if err != nil {
			return err
		}
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server_addr)")
}
