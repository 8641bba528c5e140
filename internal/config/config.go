package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	SerpAPI SerpAPIConfig `yaml:"serpapi" mapstructure:"serpapi"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Search  SearchConfig  `yaml:"search" mapstructure:"search"`
	Demo    DemoConfig    `yaml:"demo" mapstructure:"demo"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// SerpAPIConfig holds search-provider credentials and endpoint settings.
type SerpAPIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// StoreConfig configures the database backend. DatabaseURL is a file path
// for the sqlite driver or a connection URL (credentials/token included)
// for the postgres driver.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// SearchConfig holds lead-qualification thresholds and default targets.
type SearchConfig struct {
	MinRating     float64  `yaml:"min_rating" mapstructure:"min_rating"`
	MinReviews    int      `yaml:"min_reviews" mapstructure:"min_reviews"`
	SocialDomains []string `yaml:"social_domains" mapstructure:"social_domains"`
	Locations     []string `yaml:"locations" mapstructure:"locations"`
	Categories    []string `yaml:"categories" mapstructure:"categories"`
	PhoneRegion   string   `yaml:"phone_region" mapstructure:"phone_region"`
}

// DemoConfig configures demo website generation.
type DemoConfig struct {
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
	RulesFile string `yaml:"rules_file" mapstructure:"rules_file"`
	TopN      int    `yaml:"top_n" mapstructure:"top_n"`
}

// ServerConfig configures the dashboard server.
type ServerConfig struct {
	Port         int `yaml:"port" mapstructure:"port"`
	StreamBuffer int `yaml:"stream_buffer" mapstructure:"stream_buffer"`
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
	v.SetEnvPrefix("LEADFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. The key default makes the env binding visible to Unmarshal.
	v.SetDefault("serpapi.key", "")
	v.SetDefault("serpapi.base_url", "https://serpapi.com")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leads.db")
	v.SetDefault("search.min_rating", 4.0)
	v.SetDefault("search.min_reviews", 20)
	v.SetDefault("search.social_domains", []string{
		"facebook.com", "instagram.com", "twitter.com",
		"linkedin.com", "tiktok.com", "youtube.com",
	})
	v.SetDefault("search.locations", []string{
		"Manchester UK", "London UK", "Birmingham UK", "Austin TX", "Portland OR",
	})
	v.SetDefault("search.categories", []string{
		"restaurants", "tech repair", "barber", "plumbing", "auto repair",
	})
	v.SetDefault("search.phone_region", "GB")
	v.SetDefault("demo.output_dir", "generated_demos")
	v.SetDefault("demo.top_n", 5)
	v.SetDefault("server.port", 8001)
	v.SetDefault("server.stream_buffer", 256)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

	return &cfg, nil
}

// Validate checks that required credentials are present. Called before any
// work starts; a failure here is fatal.
func (c *Config) Validate() error {
	if c.SerpAPI.Key == "" {
		return eris.New("config: serpapi key is required (LEADFORGE_SERPAPI_KEY)")
	}
	return nil
}

// Thresholds returns the validator thresholds derived from search config.
func (c *Config) Thresholds() Thresholds {
	return Thresholds{
		MinRating:     c.Search.MinRating,
		MinReviews:    c.Search.MinReviews,
		SocialDomains: c.Search.SocialDomains,
	}
}

// Thresholds is the subset of configuration consumed by the lead validator.
// Passed by value so multiple configurations can coexist in tests.
type Thresholds struct {
	MinRating     float64
	MinReviews    int
	SocialDomains []string
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
