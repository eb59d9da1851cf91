// Package config loads launcher auth settings from config.yaml, .env and
// CRYOVEX_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "CRYOVEX"

// Store drivers.
const (
	StoreDriverFile   = "file"
	StoreDriverBolt   = "bolt"
	StoreDriverRedis  = "redis"
	StoreDriverMemory = "memory"
)

var (
	ErrMissingClientID    = errors.New("CLIENT_ID is required")
	ErrUnknownStoreDriver = errors.New("unknown store driver")
)

// Config holds every setting of the cryoauth tool.
type Config struct {
	ClientID    string        `mapstructure:"CLIENT_ID"`
	RedirectURI string        `mapstructure:"REDIRECT_URI"`
	Scopes      []string      `mapstructure:"SCOPES"`
	HTTPTimeout time.Duration `mapstructure:"HTTP_TIMEOUT"`
	UserAgent   string        `mapstructure:"USER_AGENT"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogPretty bool   `mapstructure:"LOG_PRETTY"`

	StoreDriver   string `mapstructure:"STORE_DRIVER"`
	StorePath     string `mapstructure:"STORE_PATH"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	RedisPrefix   string `mapstructure:"REDIS_PREFIX"`

	TracingEnabled  bool   `mapstructure:"TRACING_ENABLED"`
	OtelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// Endpoint overrides, empty means production.
	MicrosoftTokenURL   string `mapstructure:"MICROSOFT_TOKEN_URL"`
	XboxLiveAuthURL     string `mapstructure:"XBOX_LIVE_AUTH_URL"`
	XstsAuthURL         string `mapstructure:"XSTS_AUTH_URL"`
	MinecraftAuthURL    string `mapstructure:"MINECRAFT_AUTH_URL"`
	MinecraftProfileURL string `mapstructure:"MINECRAFT_PROFILE_URL"`
}

type loadOptions struct {
	configFile string
	envFiles   []string
}

// LoadOption configures LoadConfig.
type LoadOption func(*loadOptions)

// WithConfigFile reads path instead of searching for config.yaml.
func WithConfigFile(path string) LoadOption {
	return func(o *loadOptions) { o.configFile = path }
}

// WithEnvFiles loads the given dotenv files instead of ./.env.
func WithEnvFiles(paths ...string) LoadOption {
	return func(o *loadOptions) { o.envFiles = paths }
}

// LoadConfig reads configuration from file, environment variables and defaults.
// Environment variables win over the file.
func LoadConfig(opts ...LoadOption) (*Config, error) {
	o := loadOptions{envFiles: []string{".env"}}
	for _, opt := range opts {
		opt(&o)
	}
	if err := loadEnvFiles(o.envFiles); err != nil {
		return nil, err
	}

	v := viper.New()
	if o.configFile != "" {
		v.SetConfigFile(o.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.cryovex")
		v.AddConfigPath("/etc/cryovex/")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Every key needs a default so AutomaticEnv values reach Unmarshal.
	v.SetDefault("CLIENT_ID", "")
	v.SetDefault("REDIRECT_URI", "http://localhost:8080/auth/callback")
	v.SetDefault("SCOPES", []string{"XboxLive.signin", "offline_access"})
	v.SetDefault("HTTP_TIMEOUT", "30s")
	v.SetDefault("USER_AGENT", "CryovexLauncher/1.0.0")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("STORE_DRIVER", StoreDriverFile)
	v.SetDefault("STORE_PATH", "")
	v.SetDefault("REDIS_ADDR", "127.0.0.1:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_PREFIX", "cryovex:auth:")
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "cryoauth")
	v.SetDefault("MICROSOFT_TOKEN_URL", "")
	v.SetDefault("XBOX_LIVE_AUTH_URL", "")
	v.SetDefault("XSTS_AUTH_URL", "")
	v.SetDefault("MINECRAFT_AUTH_URL", "")
	v.SetDefault("MINECRAFT_PROFILE_URL", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	if cfg.StorePath == "" {
		cfg.StorePath = DefaultStorePath(cfg.StoreDriver)
	}
	return &cfg, nil
}

func loadEnvFiles(paths []string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %s: %w", p, err)
		}
	}
	return nil
}

// DefaultStorePath is where the file and bolt drivers keep credentials when
// STORE_PATH is unset.
func DefaultStorePath(driver string) string {
	dir := ".cryovex"
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, ".cryovex")
	}
	switch driver {
	case StoreDriverBolt:
		return filepath.Join(dir, "auth.db")
	case StoreDriverFile:
		return filepath.Join(dir, "auth.json")
	default:
		return ""
	}
}

// Validate checks the settings needed to contact the providers.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ClientID) == "" {
		return ErrMissingClientID
	}
	switch c.StoreDriver {
	case StoreDriverFile, StoreDriverBolt, StoreDriverRedis, StoreDriverMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStoreDriver, c.StoreDriver)
	}
	return nil
}
