package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ExchangerConfig describes one upstream exchanger to fetch rates from.
type ExchangerConfig struct {
	ID      string `mapstructure:"id"`
	Name    string `mapstructure:"name"`
	URL     string `mapstructure:"url"`
	Enabled *bool  `mapstructure:"enabled"`
}

// IsEnabled reports whether the exchanger should be fetched. An omitted
// enabled key counts as enabled.
func (e ExchangerConfig) IsEnabled() bool {
	return e.Enabled == nil || *e.Enabled
}

// DefaultsConfig holds fallback values applied when upstream records are
// missing or unparseable numeric fields.
type DefaultsConfig struct {
	Amount    string `mapstructure:"amount"`
	MinAmount string `mapstructure:"min_amount"`
	MaxAmount string `mapstructure:"max_amount"`
	Param     string `mapstructure:"param"`
}

// Config holds all configuration for the rate feed service.
type Config struct {
	// Upstream source
	BaseURL           string  `mapstructure:"base_url"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`

	// Exchangers to fetch, in feed order
	Exchangers []ExchangerConfig `mapstructure:"exchangers"`

	// Cycle settings
	UpdateInterval time.Duration `mapstructure:"update_interval"`
	FetchTimeout   time.Duration `mapstructure:"fetch_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
	RetryMaxDelay  time.Duration `mapstructure:"retry_max_delay"`

	// Ratio of skipped to total records above which an exchanger's cycle
	// counts as failed. 1.0 disables the threshold.
	MaxSkipRatio float64 `mapstructure:"max_skip_ratio"`

	// Output
	OutputPath string `mapstructure:"output_path"`

	// Feed server
	ServerEnabled      bool          `mapstructure:"server_enabled"`
	ServerAddr         string        `mapstructure:"server_addr"`
	FreshnessThreshold time.Duration `mapstructure:"freshness_threshold"`

	// Logging
	LogLevel string `mapstructure:"log_level"`

	Defaults DefaultsConfig `mapstructure:"defaults"`
}

// Load reads configuration from an optional config file and environment
// variables. Environment variables take precedence over file values.
//
// Expected environment variables (all optional):
//   - RATEFEED_BASE_URL
//   - RATEFEED_EXCHANGERS (comma-separated ids, e.g. "exc1,exc2")
//   - RATEFEED_UPDATE_INTERVAL, RATEFEED_FETCH_TIMEOUT
//   - RATEFEED_MAX_RETRIES, RATEFEED_RETRY_BASE_DELAY, RATEFEED_RETRY_MAX_DELAY
//   - RATEFEED_OUTPUT_PATH
//   - RATEFEED_SERVER_ENABLED, RATEFEED_SERVER_ADDR
//   - RATEFEED_LOG_LEVEL
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("ratefeed")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("base_url", "https://exnode.ru")
	v.SetDefault("requests_per_second", 5.0)
	v.SetDefault("update_interval", "30s")
	v.SetDefault("fetch_timeout", "30s")
	v.SetDefault("max_retries", 3)
	v.SetDefault("retry_base_delay", "1s")
	v.SetDefault("retry_max_delay", "30s")
	v.SetDefault("max_skip_ratio", 1.0)
	v.SetDefault("output_path", "rates.xml")
	v.SetDefault("server_enabled", true)
	v.SetDefault("server_addr", ":8080")
	v.SetDefault("freshness_threshold", "2m")
	v.SetDefault("log_level", "info")
	v.SetDefault("defaults.amount", "0")
	v.SetDefault("defaults.min_amount", "0")
	v.SetDefault("defaults.max_amount", "999999999")
	v.SetDefault("defaults.param", "0")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.ratefeed")

		// Read config file (ignore if not found)
		_ = v.ReadInConfig()
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// The exchanger list may also arrive as a comma-separated env string
	if len(config.Exchangers) == 0 {
		if raw := v.GetString("exchangers"); raw != "" {
			for _, id := range strings.Split(raw, ",") {
				id = strings.TrimSpace(id)
				if id == "" {
					continue
				}
				config.Exchangers = append(config.Exchangers, ExchangerConfig{
					ID:   id,
					Name: id,
				})
			}
		}
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	var problems []string
	if len(c.Exchangers) == 0 {
		problems = append(problems, "no exchangers configured")
	}
	for i, e := range c.Exchangers {
		if e.ID == "" {
			problems = append(problems, fmt.Sprintf("exchanger %d has no id", i))
		}
	}
	if c.UpdateInterval <= 0 {
		problems = append(problems, "update_interval must be positive")
	}
	if c.FetchTimeout <= 0 {
		problems = append(problems, "fetch_timeout must be positive")
	}
	if c.MaxRetries < 0 {
		problems = append(problems, "max_retries must not be negative")
	}
	if c.MaxSkipRatio < 0 || c.MaxSkipRatio > 1 {
		problems = append(problems, "max_skip_ratio must be within [0, 1]")
	}
	if c.OutputPath == "" {
		problems = append(problems, "output_path must not be empty")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// EnabledExchangers returns the configured exchangers that are enabled,
// preserving configuration order.
func (c *Config) EnabledExchangers() []ExchangerConfig {
	enabled := make([]ExchangerConfig, 0, len(c.Exchangers))
	for _, e := range c.Exchangers {
		if e.IsEnabled() {
			enabled = append(enabled, e)
		}
	}
	return enabled
}
