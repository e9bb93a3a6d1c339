package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	LogLevel string
	// StateFile is the JSON snapshot used when PGDSN is empty.
	StateFile string
	PGDSN     string
	// Journal receives requested transfers as JSON lines.
	Journal string
	// MarketFile holds static prices and decimals. Used when RPCURL is empty.
	MarketFile    string
	RPCURL        string
	Administrator string
	Listen        string
	MaxRetries    int
	RetryBackoff  time.Duration
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SPICE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	v.SetDefault("state-file", "./data/state.json")
	v.SetDefault("journal", "./data/transfers.jsonl")
	v.SetDefault("market-file", "./data/market.yaml")
	v.SetDefault("listen", ":8080")
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		LogLevel:      v.GetString("log-level"),
		StateFile:     v.GetString("state-file"),
		PGDSN:         v.GetString("pg-dsn"),
		Journal:       v.GetString("journal"),
		MarketFile:    v.GetString("market-file"),
		RPCURL:        v.GetString("rpc"),
		Administrator: strings.TrimSpace(v.GetString("administrator")),
		Listen:        v.GetString("listen"),
		MaxRetries:    v.GetInt("max-retries"),
		RetryBackoff:  v.GetDuration("retry-backoff"),
	}

	return cfg, nil
}
