package material

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Имена материалов, которые обязательно должны быть в каталоге
const (
	Stone = "stone"
	Dirt  = "dirt"
	Grass = "grass"
)

// Required перечисляет ключи, без которых генерация невозможна
var Required = []string{Stone, Dirt, Grass}

// ErrCatalogNotLoaded возвращается, если каталог не был загружен до генерации
var ErrCatalogNotLoaded = errors.New("material catalog not loaded")

// ConfigurationError: фатальная ошибка конфигурации каталога материалов
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
	}
	return "configuration error: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Material описывает внешний вид материала
type Material struct {
	Color       string `json:"color" yaml:"color"`
	Transparent bool   `json:"transparent" yaml:"transparent"`
}

// Catalog: неизменяемое отображение имени материала в его внешний вид
type Catalog struct {
	materials map[string]Material
}

// NewCatalog создаёт каталог из готовой карты (карта копируется)
func NewCatalog(materials map[string]Material) *Catalog {
	copied := make(map[string]Material, len(materials))
	for name, m := range materials {
		copied[name] = m
	}
	return &Catalog{materials: copied}
}

// LoadCatalog читает каталог из JSON файла (blocks.json) или YAML (.yaml/.yml)
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Reason: "не удалось прочитать каталог " + path, Err: err}
	}

	var materials map[string]Material
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &materials)
	default:
		err = json.Unmarshal(data, &materials)
	}
	if err != nil {
		return nil, &ConfigurationError{Reason: "ошибка разбора каталога " + path, Err: err}
	}

	return NewCatalog(materials), nil
}

// Lookup возвращает материал по имени; отсутствие ключа: ошибка конфигурации
func (c *Catalog) Lookup(name string) (Material, error) {
	if c == nil {
		return Material{}, &ConfigurationError{Reason: "lookup " + name, Err: ErrCatalogNotLoaded}
	}
	m, ok := c.materials[name]
	if !ok {
		return Material{}, &ConfigurationError{Reason: fmt.Sprintf("материал %q отсутствует в каталоге", name)}
	}
	return m, nil
}

// Validate проверяет наличие обязательных материалов
func (c *Catalog) Validate(required ...string) error {
	if c == nil {
		return &ConfigurationError{Reason: "каталог материалов", Err: ErrCatalogNotLoaded}
	}
	var missing []string
	for _, name := range required {
		if _, ok := c.materials[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &ConfigurationError{Reason: "отсутствуют материалы: " + strings.Join(missing, ", ")}
	}
	return nil
}

// Names возвращает отсортированный список материалов
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.materials))
	for name := range c.materials {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
