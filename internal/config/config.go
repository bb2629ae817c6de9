package config

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ServerAddr      string        `mapstructure:"server_addr"`
	DatabaseDSN     string        `mapstructure:"database_dsn"`
	SigningSecret   string        `mapstructure:"signing_secret"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	IdleRoomTimeout time.Duration `mapstructure:"idle_room_timeout"`

	// SigningKey is the decoded SigningSecret.
	SigningKey []byte `mapstructure:"-"`
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(base64Secret)
}

// Load reads watchparty.yaml (if present) and WATCHPARTY_* environment
// variables. Callers validate the result with Validate before use.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("watchparty")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("watchparty")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server_addr", "localhost:8000")
	v.SetDefault("database_dsn", "")
	v.SetDefault("signing_secret", "")
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("idle_room_timeout", 2*time.Minute)

	if err := v.ReadInConfig(); err != nil {
		// a missing config file is fine, env and defaults still apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks required fields and decodes the signing secret.
func (c *Config) Validate() error {
	if c.ServerAddr == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	if c.DatabaseDSN == "" {
		return fmt.Errorf("database DSN cannot be empty")
	}
	if c.SigningSecret == "" {
		return fmt.Errorf("signing secret cannot be empty")
	}

	signingKey, err := decodeSigningSecret(c.SigningSecret)
	if err != nil {
		return fmt.Errorf("decode signing secret: %w", err)
	}
	c.SigningKey = signingKey

	if c.IdleRoomTimeout <= 0 {
		return fmt.Errorf("idle room timeout must be positive")
	}

	return nil
}
