// Package config loads pipeline configuration from config files,
// environment variables, and .env files.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/sfdaycarelist/directory/pkg/constants"
	"github.com/sfdaycarelist/directory/pkg/errors"
)

// Config holds the full pipeline configuration.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Output  string

	// Config file
	ConfigFile string

	// Store configuration. Empty DatabaseURL selects the in-memory store.
	DatabaseURL string

	// Per-source configuration
	Licensing LicensingConfig
	Places    PlacesConfig
	Reviews   ReviewsConfig
	Manual    ManualConfig

	// Merge limits
	MaxReviewsPerSource int
	MaxPhotosPerSource  int

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LicensingConfig configures the licensing registry collector.
type LicensingConfig struct {
	BaseURL string
	// AppToken is the registry's optional application token. Anonymous
	// requests work but are throttled more aggressively.
	AppToken string
	PageSize int
	Delay    time.Duration
}

// Validate checks the licensing source configuration.
func (c LicensingConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.NewConfigError("licensing", "base URL is required", nil)
	}
	return nil
}

// PlacesConfig configures the places API collector.
type PlacesConfig struct {
	BaseURL     string
	APIKey      string
	Delay       time.Duration
	SettleDelay time.Duration
}

// Validate checks the places source configuration.
func (c PlacesConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.NewConfigError("places", "base URL is required", nil)
	}
	if c.APIKey == "" {
		return errors.NewConfigError("places", "API key is required", errors.ErrAPIKeyRequired)
	}
	return nil
}

// ReviewsConfig configures the review platform collector.
type ReviewsConfig struct {
	BaseURL string
	APIKey  string
	Delay   time.Duration
}

// Validate checks the reviews source configuration.
func (c ReviewsConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.NewConfigError("reviews", "base URL is required", nil)
	}
	if c.APIKey == "" {
		return errors.NewConfigError("reviews", "API key is required", errors.ErrAPIKeyRequired)
	}
	return nil
}

// ManualConfig configures the curated-data collector.
type ManualConfig struct {
	// SeedFile is an optional YAML file of curated records ingested in
	// addition to curated records already in the store.
	SeedFile string
}

// Validate checks the manual source configuration. A missing seed file
// is fine; manual data can also come from the store.
func (c ManualConfig) Validate() error {
	if c.SeedFile == "" {
		return nil
	}
	if _, err := os.Stat(c.SeedFile); err != nil {
		return errors.NewConfigError("manual", fmt.Sprintf("seed file %s not readable", c.SeedFile), err)
	}
	return nil
}

// Load reads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables
// 3. .env files
// 4. Config file (~/.daycarectl.yaml or --config)
// 5. Defaults
func Load() (*Config, error) {
	loadEnvFiles()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	bindAPIKeys()

	configFile := viper.GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.AddConfigPath(".")
			viper.SetConfigType("yaml")
			viper.SetConfigName(".daycarectl")
		}
	}

	// Missing config file is fine; env and defaults still apply.
	_ = viper.ReadInConfig()

	cfg := &Config{
		Verbose: viper.GetBool("verbose"),
		Quiet:   viper.GetBool("quiet"),
		NoColor: viper.GetBool("no-color"),
		Output:  viper.GetString("output"),

		ConfigFile: viper.ConfigFileUsed(),

		DatabaseURL: viper.GetString("database_url"),

		Licensing: LicensingConfig{
			BaseURL:  viper.GetString("licensing.base_url"),
			AppToken: firstNonEmpty(viper.GetString("licensing.app_token"), viper.GetString("LICENSING_APP_TOKEN")),
			PageSize: viper.GetInt("licensing.page_size"),
			Delay:    viper.GetDuration("licensing.delay"),
		},
		Places: PlacesConfig{
			BaseURL:     viper.GetString("places.base_url"),
			APIKey:      firstNonEmpty(viper.GetString("places.api_key"), viper.GetString("PLACES_API_KEY")),
			Delay:       viper.GetDuration("places.delay"),
			SettleDelay: viper.GetDuration("places.settle_delay"),
		},
		Reviews: ReviewsConfig{
			BaseURL: viper.GetString("reviews.base_url"),
			APIKey:  firstNonEmpty(viper.GetString("reviews.api_key"), viper.GetString("REVIEWS_API_KEY")),
			Delay:   viper.GetDuration("reviews.delay"),
		},
		Manual: ManualConfig{
			SeedFile: viper.GetString("manual.seed_file"),
		},

		MaxReviewsPerSource: viper.GetInt("max_reviews_per_source"),
		MaxPhotosPerSource:  viper.GetInt("max_photos_per_source"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Licensing.PageSize == 0 {
		cfg.Licensing.PageSize = constants.DefaultPageSize
	}
	if cfg.Licensing.Delay == 0 {
		cfg.Licensing.Delay = constants.LicensingRequestDelay
	}
	if cfg.Places.Delay == 0 {
		cfg.Places.Delay = constants.PlacesRequestDelay
	}
	if cfg.Places.SettleDelay == 0 {
		cfg.Places.SettleDelay = constants.PlacesTokenSettleDelay
	}
	if cfg.Reviews.Delay == 0 {
		cfg.Reviews.Delay = constants.ReviewsRequestDelay
	}
	if cfg.MaxReviewsPerSource == 0 {
		cfg.MaxReviewsPerSource = constants.DefaultMaxReviewsPerSource
	}
	if cfg.MaxPhotosPerSource == 0 {
		cfg.MaxPhotosPerSource = constants.DefaultMaxPhotosPerSource
	}
}

// UpdateFromFlags updates config values from parsed command flags,
// which take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, output string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if output != "" {
		c.Output = output
	}
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}

// bindAPIKeys explicitly binds the API key environment variables so
// they are visible through viper even when only set in .env files.
func bindAPIKeys() {
	for _, key := range []string{"LICENSING_APP_TOKEN", "PLACES_API_KEY", "REVIEWS_API_KEY", "DATABASE_URL"} {
		if err := viper.BindEnv(key); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind environment variable %s: %v\n", key, err)
		}
	}
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
