package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Supported AI providers.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Profile    ProfileConfig    `yaml:"profile" mapstructure:"profile"`
	AI         AIConfig         `yaml:"ai" mapstructure:"ai"`
	Gemini     GeminiConfig     `yaml:"gemini" mapstructure:"gemini"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run history database.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// FetchConfig configures form page downloads.
type FetchConfig struct {
	UserAgent     string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries    int     `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerSec    float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	CacheTTLHours int     `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// ProfileConfig locates the user profile text.
type ProfileConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// AIConfig configures the answer generator fallback.
type AIConfig struct {
	Provider                string  `yaml:"provider" mapstructure:"provider"`
	Concurrency             int     `yaml:"concurrency" mapstructure:"concurrency"`
	TimeoutSecs             int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec              float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	MaxRetries              int     `yaml:"max_retries" mapstructure:"max_retries"`
	BackoffMs               int     `yaml:"backoff_ms" mapstructure:"backoff_ms"`
	CircuitFailureThreshold int     `yaml:"circuit_failure_threshold" mapstructure:"circuit_failure_threshold"`
	CircuitResetSecs        int     `yaml:"circuit_reset_secs" mapstructure:"circuit_reset_secs"`
}

// GeminiConfig holds Gemini API settings.
type GeminiConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Model   string `yaml:"model" mapstructure:"model"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// MonitoringConfig configures run health alerts.
type MonitoringConfig struct {
	WebhookURL              string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold    float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	UnresolvedRateThreshold float64 `yaml:"unresolved_rate_threshold" mapstructure:"unresolved_rate_threshold"`
	CostThresholdUSD        float64 `yaml:"cost_threshold_usd" mapstructure:"cost_threshold_usd"`
	CheckIntervalSecs       int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours     int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FORMFILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "formfill.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.rate_per_sec", 2.0)
	v.SetDefault("fetch.cache_ttl_hours", 24)
	v.SetDefault("profile.path", "userdata.txt")
	v.SetDefault("ai.provider", ProviderGemini)
	v.SetDefault("ai.concurrency", 4)
	v.SetDefault("ai.timeout_secs", 30)
	v.SetDefault("ai.rate_per_sec", 5.0)
	v.SetDefault("ai.max_retries", 3)
	v.SetDefault("ai.backoff_ms", 500)
	v.SetDefault("ai.circuit_failure_threshold", 5)
	v.SetDefault("ai.circuit_reset_secs", 30)
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 256)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.unresolved_rate_threshold", 0.5)
	v.SetDefault("monitoring.cost_threshold_usd", 5.0)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)

	// Keys are bound explicitly so AutomaticEnv sees them without a file.
	_ = v.BindEnv("gemini.key")
	_ = v.BindEnv("anthropic.key")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if cfg.Gemini.Key == "" {
		cfg.Gemini.Key = os.Getenv("GOOGLE_API_KEY")
	}
	if cfg.Anthropic.Key == "" {
		cfg.Anthropic.Key = os.Getenv("ANTHROPIC_API_KEY")
	}

	return &cfg, nil
}

// Validate checks the fields required by a command mode: "fill",
// "inspect" or "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "fill", "serve":
		errs = append(errs, c.validateAI()...)
		if c.Profile.Path == "" {
			errs = append(errs, "profile.path is required")
		}
		if mode == "serve" && c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "inspect":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	case "", "none":
	default:
		errs = append(errs, "store.driver must be sqlite, postgres or none")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateAI() []string {
	var errs []string
	switch c.AI.Provider {
	case ProviderGemini:
		if c.Gemini.Key == "" {
			errs = append(errs, "gemini.key (or GOOGLE_API_KEY) is required")
		}
	case ProviderAnthropic:
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
	default:
		errs = append(errs, "ai.provider must be gemini or anthropic")
	}
	if c.AI.Concurrency < 1 || c.AI.Concurrency > 32 {
		errs = append(errs, "ai.concurrency must be between 1 and 32")
	}
	if c.AI.TimeoutSecs <= 0 {
		errs = append(errs, "ai.timeout_secs must be > 0")
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
