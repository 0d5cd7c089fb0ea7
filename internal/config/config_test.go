package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvConfig, "")
	t.Setenv(EnvSeed, "")
	t.Setenv(EnvWorkers, "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.Generator.Size)
	assert.Equal(t, 0.5, cfg.Generator.MinHeight)
	assert.Equal(t, 19.5, cfg.Generator.MaxHeight)
	assert.Equal(t, 15.0, cfg.Generator.GrassLevel)
	assert.Greater(t, cfg.Generator.Workers, 0, "Число воркеров по умолчанию: GOMAXPROCS")
	assert.Equal(t, cfg.Vegetation, cfg.Generator.Vegetation)
}

func TestLoadOverridesOnlyGivenFields(t *testing.T) {
	t.Setenv(EnvSeed, "")
	path := filepath.Join(t.TempDir(), "terragen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
generator:
  size: 64
  seed: "1234"
vegetation:
  min_count: 1
  max_count: 5
  source: badger
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 64, cfg.Generator.Size)
	assert.Equal(t, 19.5, cfg.Generator.MaxHeight, "Не указанные поля берутся из значений по умолчанию")
	assert.Equal(t, int64(1234), cfg.Generator.SeedValue())
	assert.Equal(t, 5, cfg.Generator.Vegetation.MaxCount)
	assert.Equal(t, SourceBadger, cfg.Vegetation.Source)
	assert.NotEmpty(t, cfg.Vegetation.Templates)
}

func TestLoadFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.yaml")
	require.NoError(t, os.WriteFile(path, []byte("generator:\n  size: 16\n"), 0644))

	t.Setenv(EnvConfig, path)
	t.Setenv(EnvSeed, "forest")
	t.Setenv(EnvWorkers, "3")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Generator.Size)
	assert.Equal(t, 3, cfg.Generator.Workers)
	assert.Equal(t, int64(xxhash.Sum64String("forest")), cfg.Generator.SeedValue())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("generator: [1, 2"), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"size":      func(c *Config) { c.Generator.Size = 0 },
		"bounds":    func(c *Config) { c.Generator.MinHeight = 20.5 },
		"half":      func(c *Config) { c.Generator.MaxHeight = 19 },
		"roughness": func(c *Config) { c.Generator.Roughness = 0 },
		"counts":    func(c *Config) { c.Vegetation.MinCount = 200 },
		"templates": func(c *Config) { c.Vegetation.Templates = nil },
		"source":    func(c *Config) { c.Vegetation.Source = "s3" },
		"catalog":   func(c *Config) { c.Catalog.Path = "" },
		"workers":   func(c *Config) { c.Generator.Workers = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestSeedValueEmptyIsTimeBased(t *testing.T) {
	g := GeneratorConfig{}
	assert.NotZero(t, g.SeedValue())
}

func TestLoadTracingSection(t *testing.T) {
	t.Setenv(EnvSeed, "")
	path := filepath.Join(t.TempDir(), "tracing.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tracing:
  enabled: true
  endpoint: collector:4318
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "collector:4318", cfg.Tracing.Endpoint)
	assert.Equal(t, "terragen", cfg.Tracing.ServiceName, "Имя сервиса по умолчанию")
	assert.False(t, Default().Tracing.Enabled)
}

func TestValidatePlacement(t *testing.T) {
	v := VegetationConfig{MinCount: 3, MaxCount: 1, Templates: []string{"tree.txt"}}
	assert.Error(t, v.ValidatePlacement())

	v = VegetationConfig{MinCount: 1, MaxCount: 3, Templates: []string{"tree.txt"}}
	assert.NoError(t, v.ValidatePlacement(), "Источник шаблонов не проверяется")
	assert.Error(t, v.Validate())
}
