package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/skyscope/internal/config"
	"github.com/KaramelBytes/skyscope/internal/dataset"
	"github.com/KaramelBytes/skyscope/internal/logging"
	"github.com/KaramelBytes/skyscope/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	debug   bool
	// Dataset flags (override config if set)
	flagDataset      string
	flagHeightPolicy string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "skyscope",
	Short: "Skyscope: explore the world's tallest buildings",
	Long: `Skyscope loads a skyscraper dataset (CSV, TSV, XLSX, S3 object or SQL table),
filters it by city, floor count and completion year, and derives the views of an
interactive dashboard: a table, a map, a per-city proportion chart and average heights.`,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.skyscope/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&flagDataset, "dataset", "", "dataset source: file path, s3://bucket/key, postgres:// or mysql:// URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagHeightPolicy, "height-policy", "", "malformed height handling: abort or skip (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal here; commands that need config report it
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		cfg = nil
		return
	}
	cfg = c

	f := rootCmd.PersistentFlags()
	if f.Changed("dataset") && flagDataset != "" {
		cfg.Dataset = flagDataset
	}
	if f.Changed("height-policy") && flagHeightPolicy != "" {
		cfg.HeightPolicy = flagHeightPolicy
	}
	if debug {
		cfg.LogLevel = "debug"
	}
}

func requireConfig() (*cfgpkg.Global, error) {
	if cfg == nil {
		return nil, fmt.Errorf("no configuration loaded (check --config)")
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, c *cfgpkg.Global) *logging.Logger {
	return logging.New(cmd.ErrOrStderr(), c.LogLevel, c.LogFormat)
}

func loadOptions(c *cfgpkg.Global) dataset.LoadOptions {
	opt := dataset.LoadOptions{
		SQLTable: c.SQLTable,
		S3: dataset.S3Options{
			Endpoint:  c.S3Endpoint,
			AccessKey: c.S3AccessKey,
			SecretKey: c.S3SecretKey,
			Region:    c.S3Region,
			UseSSL:    c.S3UseSSL,
		},
	}
	// xlsx_sheet accepts a sheet name or a 1-based index
	if n, err := strconv.Atoi(strings.TrimSpace(c.XLSXSheet)); err == nil {
		opt.SheetIndex = n
	} else {
		opt.Sheet = c.XLSXSheet
	}
	return opt
}

// loadDataset loads the configured dataset and logs its size.
func loadDataset(ctx context.Context, c *cfgpkg.Global, log *logging.Logger) (*dataset.Dataset, error) {
	ds, err := dataset.Load(ctx, c.Dataset, loadOptions(c))
	if err != nil {
		return nil, err
	}
	log.WithSource(ds.Name).Debug("dataset loaded", "rows", ds.Len())
	return ds, nil
}

func heightPolicy(c *cfgpkg.Global) (pipeline.HeightPolicy, error) {
	return pipeline.ParseHeightPolicy(c.HeightPolicy)
}
