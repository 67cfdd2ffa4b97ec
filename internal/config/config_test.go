package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), *cfg)
	assert.Equal(t, ":3030", cfg.Addr())
}

func TestLoad_EnvAndFlags(t *testing.T) {
	t.Setenv("GAMEPLAY_PORT", "4040")
	t.Setenv("GAMEPLAY_THROTTLE", "true")
	t.Setenv("GAMEPLAY_LOG_LEVEL", "debug")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--log-level=warn", "--shutdown-timeout=2s"}))

	cfg, err := Load(fs, "")
	require.NoError(t, err)
	assert.Equal(t, 4040, cfg.Port, "env beats flag defaults")
	assert.True(t, cfg.Throttle)
	assert.Equal(t, "warn", cfg.LogLevel, "explicit flags beat env")
	assert.Equal(t, 2*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("GAMEPLAY_IDENTITY=username\n"), 0o600))
	t.Setenv("GAMEPLAY_IDENTITY", "")
	os.Unsetenv("GAMEPLAY_IDENTITY")

	cfg, err := Load(nil, path)
	require.NoError(t, err)
	assert.Equal(t, "username", cfg.Identity)

	_, err = Load(nil, filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("GAMEPLAY_PORT", "70000")
	_, err := Load(nil, "")
	assert.Error(t, err)
}
