package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Dataset source: a CSV/TSV/XLSX path, s3://bucket/key, postgres:// or mysql:// URL.
	Dataset      string `mapstructure:"dataset" yaml:"dataset"`
	HeightPolicy string `mapstructure:"height_policy" yaml:"height_policy"`
	XLSXSheet    string `mapstructure:"xlsx_sheet" yaml:"xlsx_sheet"`
	SQLTable     string `mapstructure:"sql_table" yaml:"sql_table"`

	// Dashboard defaults (mirror the interactive slider/radio defaults)
	DefaultMaxFloors int     `mapstructure:"default_max_floors" yaml:"default_max_floors"`
	DefaultMinYear   int     `mapstructure:"default_min_year" yaml:"default_min_year"`
	DefaultMapView   string  `mapstructure:"default_map_view" yaml:"default_map_view"`
	BarColor         string  `mapstructure:"bar_color" yaml:"bar_color"`
	DensityCellDeg   float64 `mapstructure:"density_cell_deg" yaml:"density_cell_deg"`

	// S3-compatible storage
	S3Endpoint  string `mapstructure:"s3_endpoint" yaml:"s3_endpoint"`
	S3AccessKey string `mapstructure:"s3_access_key" yaml:"s3_access_key"`
	S3SecretKey string `mapstructure:"s3_secret_key" yaml:"s3_secret_key"`
	S3Region    string `mapstructure:"s3_region" yaml:"s3_region"`
	S3UseSSL    bool   `mapstructure:"s3_use_ssl" yaml:"s3_use_ssl"`

	// Server
	ServerAddr     string  `mapstructure:"server_addr" yaml:"server_addr"`
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps" yaml:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst" yaml:"rate_limit_burst"`
	CacheEntries   int     `mapstructure:"cache_entries" yaml:"cache_entries"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// DefaultPath returns ~/.skyscope/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".skyscope", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.skyscope/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env (SKYSCOPE_*, including values from ./.env) > config file > defaults.
// Command-line flags are applied on top by the caller.
func Load(cfgFile string) (*Global, error) {
	// .env is optional; existing environment variables win over it
	_ = godotenv.Load()
	return load(cfgFile, true)
}

// LoadFile loads only defaults and the config file, ignoring the environment.
// It is the base that `config set` edits and saves back.
func LoadFile(cfgFile string) (*Global, error) {
	return load(cfgFile, false)
}

func load(cfgFile string, withEnv bool) (*Global, error) {
	v := viper.New()
	if withEnv {
		v.SetEnvPrefix("SKYSCOPE")
		v.AutomaticEnv()
	}

	v.SetDefault("dataset", "Skyscrapers2021.csv")
	v.SetDefault("height_policy", "abort")
	v.SetDefault("xlsx_sheet", "")
	v.SetDefault("sql_table", "skyscrapers")
	v.SetDefault("default_max_floors", 50)
	v.SetDefault("default_min_year", 1950)
	v.SetDefault("default_map_view", "locations")
	v.SetDefault("bar_color", "red")
	v.SetDefault("density_cell_deg", 1.0)
	v.SetDefault("s3_endpoint", "")
	v.SetDefault("s3_access_key", "")
	v.SetDefault("s3_secret_key", "")
	v.SetDefault("s3_region", "")
	v.SetDefault("s3_use_ssl", true)
	v.SetDefault("server_addr", ":8080")
	v.SetDefault("rate_limit_rps", 20.0)
	v.SetDefault("rate_limit_burst", 40)
	v.SetDefault("cache_entries", 128)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, ".skyscope"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// a missing file is fine; a present but broken one is not
	if err := v.ReadInConfig(); err != nil && cfgFile != "" {
		if _, statErr := os.Stat(cfgFile); statErr == nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}
