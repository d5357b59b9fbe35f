// Package config loads application configuration from a yaml file with
// environment variable overrides (e.g. TRIPLEDGER_SERVER_PORT=9000).
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type SecurityConfig struct {
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

// FxConfig configures currency normalization. HomeCurrency is the single
// currency net balances are expressed in; AppID authenticates against
// openexchangerates.org.
type FxConfig struct {
	HomeCurrency   string `mapstructure:"home_currency"`
	AppID          string `mapstructure:"app_id"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Security SecurityConfig `mapstructure:"security"`
	Fx       FxConfig       `mapstructure:"fx"`
	Log      LogConfig      `mapstructure:"log"`
}

// Load reads configuration from the given file path. An empty path falls
// back to config.yaml in the working directory; a missing file is fine,
// defaults and environment variables still apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.address", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.path", "./data/tripledger.db")
	v.SetDefault("jwt.expire_hours", 24)
	v.SetDefault("security.bcrypt_cost", 0)
	v.SetDefault("fx.home_currency", "RUB")
	v.SetDefault("fx.timeout_seconds", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("TRIPLEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt.secret must be set (TRIPLEDGER_JWT_SECRET)")
	}
	return &c, nil
}
