package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is resolved from, in order of priority, command line flags,
// METRICQL_* environment variables, the optional config file and defaults.
type Config struct {
	Listen    string
	DataDir   string
	InMemory  bool
	LogLevel  string
	LogFormat string
}

const envPrefix = "METRICQL"

func defaults(v *viper.Viper) {
	v.SetDefault("listen", ":8080")
	v.SetDefault("data-dir", "metricql-data")
	v.SetDefault("in-memory", false)
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "logfmt")
}

func newViper(flags *pflag.FlagSet, configFile string) (*viper.Viper, error) {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, err
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config file %s: %w", configFile, err)
		}
	}
	return v, nil
}

func loadConfig(v *viper.Viper) *Config {
	return &Config{
		Listen:    v.GetString("listen"),
		DataDir:   v.GetString("data-dir"),
		InMemory:  v.GetBool("in-memory"),
		LogLevel:  v.GetString("log-level"),
		LogFormat: v.GetString("log-format"),
	}
}

func newLogger(w io.Writer, cfg *Config) (log.Logger, error) {
	var logger log.Logger
	switch cfg.LogFormat {
	case "logfmt", "":
		logger = log.NewLogfmtLogger(log.NewSyncWriter(w))
	case "json":
		logger = log.NewJSONLogger(log.NewSyncWriter(w))
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.LogFormat)
	}

	lvl, err := level.Parse(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger = level.NewFilter(logger, level.Allow(lvl))
	return log.With(logger, "ts", log.DefaultTimestampUTC), nil
}

func stderrLogger(cfg *Config) log.Logger {
	logger, err := newLogger(os.Stderr, cfg)
	if err != nil {
		oops("config", err)
	}
	return logger
}
