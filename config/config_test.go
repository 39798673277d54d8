package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/funnel/db"
)

func TestLoadFromDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadFrom(filepath.Join(dir, "missing.json"), filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFromFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"backend":"sqlite","role":"vendedor","log_level":"debug"}`), 0600))
	t.Setenv("FUNNEL_LOG_FORMAT", "JSON")
	t.Setenv("FUNNEL_DATA_PATH", filepath.Join(dir, "data.db"))

	cfg, err := LoadFrom(path, "")
	require.NoError(t, err)
	assert.Equal(t, db.KindSQLite, cfg.Backend)
	assert.Equal(t, "sales", cfg.Role)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, filepath.Join(dir, "data.db"), cfg.ResolvedDataPath())
}

func TestLoadFromDotenv(t *testing.T) {
	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("FUNNEL_BACKEND=badger\nFUNNEL_HTTP_ADDR=:9999\n"), 0600))
	t.Cleanup(func() {
		_ = os.Unsetenv("FUNNEL_BACKEND")
		_ = os.Unsetenv("FUNNEL_HTTP_ADDR")
	})

	cfg, err := LoadFrom(filepath.Join(dir, "none.json"), dotenv)
	require.NoError(t, err)
	assert.Equal(t, db.KindBadger, cfg.Backend)
	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, "badger", filepath.Base(cfg.ResolvedDataPath()))
}

func TestLoadFromRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"backend": `{"backend":"mongo"}`,
		"role":    `{"role":"intern"}`,
		"level":   `{"log_level":"loud"}`,
		"format":  `{"log_format":"xml"}`,
		"json":    `{not json`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".json")
			require.NoError(t, os.WriteFile(path, []byte(body), 0600))
			_, err := LoadFrom(path, "")
			assert.Error(t, err)
		})
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := DefaultConfig()
	cfg.Backend = db.KindSQLite
	cfg.Role = "marketing"
	require.NoError(t, cfg.SaveTo(path))

	loaded, err := LoadFrom(path, "")
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.LogFormat = "json"
	logger, err := cfg.NewLogger(&buf)
	require.NoError(t, err)
	logger.Info("hello", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	cfg.LogFormat = "text"
	cfg.LogLevel = "warn"
	logger, err = cfg.NewLogger(&buf)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
}
