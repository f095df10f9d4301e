package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/integrator/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "integrator.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 200, cfg.Image.MaxWidth)
	assert.Equal(t, 200, cfg.Image.MaxHeight)
	assert.InDelta(t, 0.9, cfg.Image.Quality, 1e-9)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /var/lib/integrator/cache.db
cache:
  ttl: 30s
  capacity: 1000
image:
  max_width: 320
  quality: 0.75
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/integrator/cache.db", cfg.Database.Path)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, uint64(1000), cfg.Cache.Capacity)
	assert.Equal(t, 320, cfg.Image.MaxWidth)
	assert.Equal(t, 200, cfg.Image.MaxHeight, "unset keys keep defaults")
	assert.InDelta(t, 0.75, cfg.Image.Quality, 1e-9)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "database:\n  path: from-file.db\n")
	t.Setenv("INTEGRATOR_DATABASE_PATH", "from-env.db")
	t.Setenv("INTEGRATOR_CACHE_TTL", "2m")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", cfg.Database.Path)
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL)
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate_RejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty database path", func(c *Config) { c.Database.Path = "" }},
		{"negative ttl", func(c *Config) { c.Cache.TTL = -time.Second }},
		{"zero width", func(c *Config) { c.Image.MaxWidth = 0 }},
		{"huge height", func(c *Config) { c.Image.MaxHeight = 10000 }},
		{"zero quality", func(c *Config) { c.Image.Quality = 0 }},
		{"quality above one", func(c *Config) { c.Image.Quality = 1.5 }},
		{"unknown log level", func(c *Config) { c.Log.Level = "chatty" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, model.IsValidation(err), "got %v", err)
		})
	}
}

func TestValidate_AcceptsBoundaries(t *testing.T) {
	cfg := Default()
	cfg.Image.Quality = 1
	cfg.Image.MaxWidth = 4096
	cfg.Cache.TTL = 0
	assert.NoError(t, cfg.Validate())
}

func TestYAML_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Log.File = "/tmp/integrator.json"

	out, err := cfg.YAML()
	require.NoError(t, err)
	assert.Contains(t, string(out), "ttl: 5m0s")

	var back map[string]map[string]any
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, "integrator.db", back["database"]["path"])
	assert.Equal(t, "/tmp/integrator.json", back["log"]["file"])
}

func TestArtifactOptions(t *testing.T) {
	cfg := Default()
	cfg.Cache.Capacity = 10
	cfg.Image.MaxWidth = 64

	opts := cfg.ArtifactOptions()
	assert.Equal(t, cfg.Cache.TTL, opts.TTL)
	assert.Equal(t, uint64(10), opts.Capacity)
	assert.Equal(t, 64, opts.Image.MaxWidth)
	assert.NotNil(t, opts.Now)
}

func TestSlogLevel_FallsBackToInfo(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "nonsense"
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())

	cfg.Log.Level = "warn"
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
}
