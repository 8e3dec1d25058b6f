package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-kit/log/level"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	assert := assert.New(t)

	v, err := newViper(nil, "")
	require.NoError(t, err)
	assert.Equal(
		&Config{
			Listen:    ":8080",
			DataDir:   "metricql-data",
			LogLevel:  "info",
			LogFormat: "logfmt",
		},
		loadConfig(v),
	)
}

func TestConfigPriority(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	file := filepath.Join(dir, "metricql.yaml")
	require.NoError(t, os.WriteFile(file, []byte("listen: \":9000\"\nlog-level: warn\ndata-dir: /from/file\n"), 0o600))

	t.Setenv("METRICQL_DATA_DIR", "/from/env")
	t.Setenv("METRICQL_IN_MEMORY", "true")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "info", "")
	require.NoError(t, flags.Parse([]string{"--log-level=debug"}))

	v, err := newViper(flags, file)
	require.NoError(t, err)
	cfg := loadConfig(v)

	assert.Equal(":9000", cfg.Listen)
	assert.Equal("/from/env", cfg.DataDir)
	assert.True(cfg.InMemory)
	assert.Equal("debug", cfg.LogLevel)

	_, err = newViper(nil, filepath.Join(dir, "missing.yaml"))
	assert.Error(err)
}

func TestLogger(t *testing.T) {
	assert := assert.New(t)

	buf := &bytes.Buffer{}
	logger, err := newLogger(buf, &Config{LogLevel: "warn", LogFormat: "logfmt"})
	require.NoError(t, err)

	level.Info(logger).Log("msg", "hidden")
	level.Warn(logger).Log("msg", "shown")
	assert.NotContains(buf.String(), "hidden")
	assert.Contains(buf.String(), "msg=shown")

	_, err = newLogger(buf, &Config{LogLevel: "info", LogFormat: "xml"})
	assert.Error(err)
	_, err = newLogger(buf, &Config{LogLevel: "loud", LogFormat: "json"})
	assert.Error(err)
}

func TestPrintExplain(t *testing.T) {
	assert := assert.New(t)

	buf := &bytes.Buffer{}
	assert.NoError(printExplain(buf, "##> Draw\nChart: bar\n", true))
	assert.Equal("##> Draw\nChart: bar\n", buf.String())
}
