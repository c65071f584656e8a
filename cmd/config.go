package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/skyscope/internal/config"
	"github.com/KaramelBytes/skyscope/internal/dashboard"
	"github.com/KaramelBytes/skyscope/internal/pipeline"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set Skyscope configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintf(out, "dataset: %s\n", cfg.Dataset)
		fmt.Fprintf(out, "height_policy: %s\n", cfg.HeightPolicy)
		if cfg.XLSXSheet != "" {
			fmt.Fprintf(out, "xlsx_sheet: %s\n", cfg.XLSXSheet)
		}
		fmt.Fprintf(out, "sql_table: %s\n", cfg.SQLTable)
		fmt.Fprintf(out, "default_max_floors: %d\n", cfg.DefaultMaxFloors)
		fmt.Fprintf(out, "default_min_year: %d\n", cfg.DefaultMinYear)
		fmt.Fprintf(out, "default_map_view: %s\n", cfg.DefaultMapView)
		fmt.Fprintf(out, "bar_color: %s\n", cfg.BarColor)
		fmt.Fprintf(out, "density_cell_deg: %.3f\n", cfg.DensityCellDeg)
		if cfg.S3Endpoint != "" {
			fmt.Fprintf(out, "s3_endpoint: %s\n", cfg.S3Endpoint)
		}
		if cfg.S3AccessKey != "" {
			fmt.Fprintf(out, "s3_access_key: %s\n", mask(cfg.S3AccessKey))
		}
		if cfg.S3SecretKey != "" {
			fmt.Fprintf(out, "s3_secret_key: %s\n", mask(cfg.S3SecretKey))
		}
		if cfg.S3Region != "" {
			fmt.Fprintf(out, "s3_region: %s\n", cfg.S3Region)
		}
		fmt.Fprintf(out, "s3_use_ssl: %t\n", cfg.S3UseSSL)
		fmt.Fprintf(out, "server_addr: %s\n", cfg.ServerAddr)
		fmt.Fprintf(out, "rate_limit_rps: %.3f\n", cfg.RateLimitRPS)
		fmt.Fprintf(out, "rate_limit_burst: %d\n", cfg.RateLimitBurst)
		fmt.Fprintf(out, "cache_entries: %d\n", cfg.CacheEntries)
		fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", cfg.LogFormat)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		// edit the file as stored, without env values or flag overrides
		stored, err := cfgpkg.LoadFile(cfgFile)
		if err != nil {
			return err
		}
		if err := setConfigValue(stored, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(stored, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	switch key {
	case "dataset":
		c.Dataset = val
	case "height_policy":
		p, err := pipeline.ParseHeightPolicy(val)
		if err != nil {
			return err
		}
		c.HeightPolicy = string(p)
	case "xlsx_sheet":
		c.XLSXSheet = val
	case "sql_table":
		c.SQLTable = val
	case "default_max_floors":
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid int for default_max_floors: %w", err)
		}
		c.DefaultMaxFloors = i
	case "default_min_year":
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid int for default_min_year: %w", err)
		}
		c.DefaultMinYear = i
	case "default_map_view":
		req := dashboard.Request{MapView: dashboard.MapMode(val)}
		if err := req.Validate(); err != nil {
			return err
		}
		c.DefaultMapView = string(req.MapView)
	case "bar_color":
		req := dashboard.Request{BarColor: val}
		if err := req.Validate(); err != nil {
			return err
		}
		c.BarColor = req.BarColor
	case "density_cell_deg":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("invalid positive float for density_cell_deg: %v", val)
		}
		c.DensityCellDeg = f
	case "s3_endpoint":
		c.S3Endpoint = val
	case "s3_access_key":
		c.S3AccessKey = val
	case "s3_secret_key":
		c.S3SecretKey = val
	case "s3_region":
		c.S3Region = val
	case "s3_use_ssl":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for s3_use_ssl: %w", err)
		}
		c.S3UseSSL = b
	case "server_addr":
		c.ServerAddr = val
	case "rate_limit_rps":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("invalid float for rate_limit_rps: %v", val)
		}
		c.RateLimitRPS = f
	case "rate_limit_burst":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for rate_limit_burst: %v", val)
		}
		c.RateLimitBurst = i
	case "cache_entries":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for cache_entries: %v", val)
		}
		c.CacheEntries = i
	case "log_level":
		switch strings.ToLower(val) {
		case "debug", "info", "warn", "error":
			c.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level: %s (use debug, info, warn or error)", val)
		}
	case "log_format":
		switch strings.ToLower(val) {
		case "text", "json":
			c.LogFormat = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_format: %s (use text or json)", val)
		}
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
