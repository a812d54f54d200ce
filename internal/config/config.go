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
	ListenAddr       string
	LedgerURL        string
	FeeAlpha         float64
	FeeMinBps        int64
	FeeCapBps        int64
	FeeAccount       string
	CacheSize        int
	CacheTTL         time.Duration
	NativeComparison bool
	BaselineAccount  string
	ExternalBridges  bool
	DestinationChain string
	AuditOut         string
	PGDSN            string
	LogLevel         string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ROUTER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen", "0.0.0.0:5000")
	v.SetDefault("ledger-url", "wss://s1.ripple.com")
	v.SetDefault("fee-alpha", 0.5)
	v.SetDefault("fee-min-bps", int64(1))
	v.SetDefault("fee-cap-bps", int64(5))
	v.SetDefault("cache-size", 100)
	v.SetDefault("cache-ttl", 5*time.Second)
	v.SetDefault("native-comparison", false)
	v.SetDefault("external-bridges", false)
	v.SetDefault("destination-chain", "ethereum")
	v.SetDefault("log-level", "info")

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
		ListenAddr:       v.GetString("listen"),
		LedgerURL:        v.GetString("ledger-url"),
		FeeAlpha:         v.GetFloat64("fee-alpha"),
		FeeMinBps:        v.GetInt64("fee-min-bps"),
		FeeCapBps:        v.GetInt64("fee-cap-bps"),
		FeeAccount:       v.GetString("fee-account"),
		CacheSize:        v.GetInt("cache-size"),
		CacheTTL:         v.GetDuration("cache-ttl"),
		NativeComparison: v.GetBool("native-comparison"),
		BaselineAccount:  v.GetString("baseline-account"),
		ExternalBridges:  v.GetBool("external-bridges"),
		DestinationChain: v.GetString("destination-chain"),
		AuditOut:         v.GetString("audit-out"),
		PGDSN:            v.GetString("pg-dsn"),
		LogLevel:         v.GetString("log-level"),
	}

	if cfg.FeeMinBps > cfg.FeeCapBps {
		return Config{}, fmt.Errorf("fee-min-bps %d must not exceed fee-cap-bps %d", cfg.FeeMinBps, cfg.FeeCapBps)
	}

	return cfg, nil
}
