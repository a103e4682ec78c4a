// Package config loads drift's configuration from a YAML file and
// DRIFT_-prefixed environment variables, with sane defaults for a fresh
// install.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the resolved runtime configuration.
type Config struct {
	// DataDir holds the local database, session file, and logs.
	DataDir string
	// RemoteDSN is the Postgres connection string of the cloud store.
	// Empty means no cloud backend is configured.
	RemoteDSN string
	// RealtimeURL is the websocket endpoint of the change feed.
	RealtimeURL string
	// TokenPath is where the session token is persisted.
	TokenPath string
	// LogFile receives the rotating structured log.
	LogFile string
	// WatchDir, when set, is polled by the daemon for dropped backup
	// documents to import.
	WatchDir string
}

// Load reads configuration. cfgFile, when non-empty, names an explicit
// config file that must exist; otherwise config.yaml inside the data
// directory is read if present.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DRIFT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("data-dir", defaultDataDir())
	v.SetDefault("remote-dsn", "")
	v.SetDefault("realtime-url", "")
	v.SetDefault("token-path", "")
	v.SetDefault("log-file", "")
	v.SetDefault("watch-dir", "")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(v.GetString("data-dir"))
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	cfg := &Config{
		DataDir:     v.GetString("data-dir"),
		RemoteDSN:   v.GetString("remote-dsn"),
		RealtimeURL: v.GetString("realtime-url"),
		TokenPath:   v.GetString("token-path"),
		LogFile:     v.GetString("log-file"),
		WatchDir:    v.GetString("watch-dir"),
	}

	if cfg.TokenPath == "" {
		cfg.TokenPath = filepath.Join(cfg.DataDir, "session.jwt")
	}
	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(cfg.DataDir, "drift.log")
	}

	return cfg, nil
}

// StorePath returns the location of the local database file.
func (c *Config) StorePath() string {
	return filepath.Join(c.DataDir, "drift.db")
}

func defaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ".drift"
	}
	return filepath.Join(base, "drift")
}
