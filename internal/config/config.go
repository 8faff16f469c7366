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
	API      APIConfig      `yaml:"api" mapstructure:"api"`
	Auth     AuthConfig     `yaml:"auth" mapstructure:"auth"`
	Location LocationConfig `yaml:"location" mapstructure:"location"`
	Map      MapConfig      `yaml:"map" mapstructure:"map"`
	Sector   SectorConfig   `yaml:"sector" mapstructure:"sector"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// APIConfig configures the enrichment backend client.
type APIConfig struct {
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CacheTTLSecs  int    `yaml:"cache_ttl_secs" mapstructure:"cache_ttl_secs"`
	RateLimitSecs int    `yaml:"rate_limit_secs" mapstructure:"rate_limit_secs"`
}

// AuthConfig configures the identity provider client.
type AuthConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
}

// LocationConfig configures the location provider chain. A static position
// pinned here takes effect on hosts without a usable location service.
type LocationConfig struct {
	StaticLat float64 `yaml:"static_lat" mapstructure:"static_lat"`
	StaticLon float64 `yaml:"static_lon" mapstructure:"static_lon"`
	UseIP     bool    `yaml:"use_ip" mapstructure:"use_ip"`
	IPBaseURL string  `yaml:"ip_base_url" mapstructure:"ip_base_url"`
}

// MapConfig configures map rendering.
type MapConfig struct {
	Zoom int `yaml:"zoom" mapstructure:"zoom"`
}

// SectorConfig configures the sector catalog.
type SectorConfig struct {
	CatalogPath string `yaml:"catalog_path" mapstructure:"catalog_path"`
}

// ServerConfig configures the session viewer server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("WASTEMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("api.base_url", "http://localhost:5000")
	v.SetDefault("api.timeout_secs", 30)
	v.SetDefault("api.cache_ttl_secs", 300)
	v.SetDefault("api.rate_limit_secs", 1)
	v.SetDefault("auth.base_url", "https://identitytoolkit.googleapis.com")
	v.SetDefault("location.use_ip", true)
	v.SetDefault("location.ip_base_url", "http://ip-api.com/json")
	v.SetDefault("map.zoom", 12)
	v.SetDefault("server.port", 8080)
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

// Validate checks the fields a given mode actually needs. "run" requires the
// auth credentials; "serve" additionally requires a usable port.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "run":
		if c.Auth.APIKey == "" {
			problems = append(problems, "auth.api_key is required")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "sectors":
		// Catalog-only commands have no required fields.
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.API.BaseURL == "" {
		problems = append(problems, "api.base_url is required")
	}
	if c.API.TimeoutSecs <= 0 {
		problems = append(problems, "api.timeout_secs must be > 0")
	}
	if c.Map.Zoom < 1 || c.Map.Zoom > 21 {
		problems = append(problems, "map.zoom must be between 1 and 21")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
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
