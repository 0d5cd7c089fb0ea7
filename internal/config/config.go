package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"
)

// Переменные окружения
const (
	EnvConfig  = "TERRAGEN_CONFIG"
	EnvSeed    = "TERRAGEN_SEED"
	EnvWorkers = "TERRAGEN_WORKERS"
)

// Источники шаблонов растительности
const (
	SourceDir    = "dir"
	SourceBadger = "badger"
	SourceRedis  = "redis"
)

// Config корневая структура конфигурации генератора.
// Каждая секция может отсутствовать в файле: поля берутся из Default().
type Config struct {
	Generator  GeneratorConfig  `yaml:"generator"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Vegetation VegetationConfig `yaml:"vegetation"`
	Output     OutputConfig     `yaml:"output"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Tracing    TracingConfig    `yaml:"tracing"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// GeneratorConfig описывает форму рельефа
type GeneratorConfig struct {
	Size            int     `yaml:"size"`
	MinHeight       float64 `yaml:"min_height"`
	MaxHeight       float64 `yaml:"max_height"`
	Roughness       float64 `yaml:"roughness"`
	GrassLevel      float64 `yaml:"grass_level"`
	DetailScale     float64 `yaml:"detail_scale"`
	DetailAmplitude float64 `yaml:"detail_amplitude"`
	Octaves         int     `yaml:"octaves"`
	Persistence     float64 `yaml:"persistence"`
	NoiseBackend    string  `yaml:"noise_backend"`
	Seed            string  `yaml:"seed"`
	Workers         int     `yaml:"workers"`

	// Vegetation копируется из Config.Vegetation при загрузке, чтобы генератору
	// хватало одной структуры
	Vegetation VegetationConfig `yaml:"-"`
}

type CatalogConfig struct {
	Path string `yaml:"path"`
}

// VegetationConfig описывает правила размещения и источник шаблонов
type VegetationConfig struct {
	MinCount     int      `yaml:"min_count"`
	MaxCount     int      `yaml:"max_count"`
	Templates    []string `yaml:"templates"`
	FragmentType string   `yaml:"fragment_type"`
	Source       string   `yaml:"source"`
	Dir          string   `yaml:"dir"`
	BadgerPath   string   `yaml:"badger_path"`
	RedisURL     string   `yaml:"redis_url"`
	RedisPrefix  string   `yaml:"redis_prefix"`
}

type OutputConfig struct {
	Path     string `yaml:"path"`
	Compress bool   `yaml:"compress"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// TracingConfig включает экспорт спанов в OTLP коллектор
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// Default возвращает конфигурацию, совпадающую с исходным генератором карты
func Default() *Config {
	cfg := &Config{
		Generator: GeneratorConfig{
			Size:            200,
			MinHeight:       0.5,
			MaxHeight:       19.5,
			Roughness:       0.7,
			GrassLevel:      15,
			DetailScale:     0.03,
			DetailAmplitude: 4,
			Octaves:         1,
			Persistence:     0.5,
			NoiseBackend:    "gradient",
		},
		Catalog: CatalogConfig{Path: "assets/blocks.json"},
		Vegetation: VegetationConfig{
			MinCount:     20,
			MaxCount:     100,
			Templates:    []string{"tree.txt", "tree_1.txt", "tree_2.txt", "tree_3.txt"},
			FragmentType: "tree",
			Source:       SourceDir,
			Dir:          "assets/templates",
			BadgerPath:   "data/templates",
			RedisURL:     "redis://localhost:6379/0",
			RedisPrefix:  "terragen:template:",
		},
		Output:  OutputConfig{Path: "mapa_final.txt"},
		Tracing: TracingConfig{Endpoint: "localhost:4318", Insecure: true, ServiceName: "terragen"},
		Logging: LoggingConfig{Level: "info"},
	}
	cfg.Generator.Vegetation = cfg.Vegetation
	return cfg
}

// Load читает YAML файл конфигурации поверх Default().
// Если path == "", берётся ENV TERRAGEN_CONFIG; без обоих возвращаются значения по умолчанию.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.Generator.Seed = getStringWithEnvFallback(cfg.Generator.Seed, EnvSeed)
	cfg.Generator.Workers = getIntWithEnvFallback(cfg.Generator.Workers, EnvWorkers, runtime.GOMAXPROCS(0))
	cfg.Generator.Vegetation = cfg.Vegetation

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет согласованность параметров
func (c *Config) Validate() error {
	if err := c.Generator.Validate(); err != nil {
		return err
	}
	if err := c.Vegetation.Validate(); err != nil {
		return err
	}
	if c.Catalog.Path == "" {
		return errors.New("catalog.path is required")
	}
	return nil
}

// Validate проверяет параметры рельефа
func (g *GeneratorConfig) Validate() error {
	if g.Size < 1 {
		return fmt.Errorf("generator.size must be >= 1, got %d", g.Size)
	}
	if g.MinHeight >= g.MaxHeight {
		return fmt.Errorf("generator.min_height (%g) must be below max_height (%g)", g.MinHeight, g.MaxHeight)
	}
	if !isHalfInteger(g.MinHeight) || !isHalfInteger(g.MaxHeight) {
		return fmt.Errorf("height bounds must be voxel centers (k + 0.5), got [%g, %g]", g.MinHeight, g.MaxHeight)
	}
	if g.Roughness <= 0 {
		return fmt.Errorf("generator.roughness must be positive, got %g", g.Roughness)
	}
	if g.Workers < 0 {
		return fmt.Errorf("generator.workers must not be negative, got %d", g.Workers)
	}
	return nil
}

// Validate проверяет параметры растительности
func (v *VegetationConfig) Validate() error {
	if err := v.ValidatePlacement(); err != nil {
		return err
	}
	switch v.Source {
	case SourceDir, SourceBadger, SourceRedis:
	default:
		return fmt.Errorf("unknown vegetation.source %q", v.Source)
	}
	return nil
}

// ValidatePlacement проверяет только правила размещения, без источника шаблонов
func (v *VegetationConfig) ValidatePlacement() error {
	if v.MinCount < 0 || v.MinCount > v.MaxCount {
		return fmt.Errorf("vegetation count range [%d, %d] is invalid", v.MinCount, v.MaxCount)
	}
	if len(v.Templates) == 0 {
		return errors.New("vegetation.templates must not be empty")
	}
	return nil
}

// SeedValue возвращает сид генератора.
// Пустая строка даёт сид от текущего времени, число берётся как есть, иначе xxhash строки.
func (g *GeneratorConfig) SeedValue() int64 {
	seed := strings.TrimSpace(g.Seed)
	if seed == "" {
		return time.Now().UnixNano()
	}
	if n, err := strconv.ParseInt(seed, 10, 64); err == nil {
		return n
	}
	return int64(xxhash.Sum64String(seed))
}

// getStringWithEnvFallback возвращает значение с приоритетом: config -> env
func getStringWithEnvFallback(configValue, envVar string) string {
	if configValue != "" {
		return configValue
	}
	return os.Getenv(envVar)
}

// getIntWithEnvFallback возвращает значение с приоритетом: config -> env -> default
func getIntWithEnvFallback(configValue int, envVar string, defaultValue int) int {
	// Если значение задано в конфиге и больше 0, используем его
	if configValue > 0 {
		return configValue
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if n, err := strconv.Atoi(envVal); err == nil && n > 0 {
			return n
		}
	}

	return defaultValue
}

func isHalfInteger(v float64) bool {
	return v >= 0 && v-math.Floor(v) == 0.5
}
