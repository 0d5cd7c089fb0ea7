package vegetation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/annel0/terragen/internal/logging"
	"github.com/annel0/terragen/internal/metrics"
	"github.com/annel0/terragen/internal/vec"
	"github.com/annel0/terragen/internal/voxel"
)

// Значения по умолчанию для размещения растительности
const (
	DefaultMinCount = 20
	DefaultMaxCount = 100
)

// DefaultTemplates: набор шаблонов деревьев по умолчанию
var DefaultTemplates = []string{"tree.txt", "tree_1.txt", "tree_2.txt", "tree_3.txt"}

// Surface отдаёт итоговые высоты колонок карты
type Surface interface {
	Origin() int
	Size() int
	Height(x, z int) float64
}

// Placement: одно запланированное размещение шаблона.
// Column.X хранит мировой X, Column.Y мировой Z; Y задаёт высоту основания (на воксель выше поверхности).
type Placement struct {
	Column   vec.Vec2
	Y        float64
	Template string
}

// Plan: эфемерный список размещений
type Plan []Placement

// PlacerConfig задаёт правила отбора колонок
type PlacerConfig struct {
	GrassLevel float64
	MinCount   int
	MaxCount   int
	Templates  []string
}

// Placer планирует и материализует растительность поверх готового рельефа
type Placer struct {
	cfg     PlacerConfig
	cache   *Cache
	rng     *rand.Rand
	logger  *logging.Logger
	metrics *metrics.Collector
}

// PlacerOption настраивает Placer
type PlacerOption func(*Placer)

// WithLogger задаёт логгер для диагностики
func WithLogger(logger *logging.Logger) PlacerOption {
	return func(p *Placer) { p.logger = logger }
}

// WithMetrics задаёт сборщик метрик
func WithMetrics(c *metrics.Collector) PlacerOption {
	return func(p *Placer) { p.metrics = c }
}

// NewPlacer создаёт планировщик; rng используется только последовательно внутри Plan
func NewPlacer(cfg PlacerConfig, cache *Cache, rng *rand.Rand, opts ...PlacerOption) (*Placer, error) {
	if cfg.MinCount < 0 || cfg.MaxCount < cfg.MinCount {
		return nil, fmt.Errorf("invalid vegetation count range [%d, %d]", cfg.MinCount, cfg.MaxCount)
	}
	if len(cfg.Templates) == 0 {
		return nil, errors.New("no vegetation templates configured")
	}

	p := &Placer{
		cfg:    cfg,
		cache:  cache,
		rng:    rng,
		logger: logging.GetVegetationLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Candidates возвращает колонки с поверхностью не выше уровня травы, в порядке обхода
func (p *Placer) Candidates(surface Surface) []Placement {
	origin, size := surface.Origin(), surface.Size()
	candidates := make([]Placement, 0, size*size)
	for x := origin; x < origin+size; x++ {
		for z := origin; z < origin+size; z++ {
			h := surface.Height(x, z)
			if h <= p.cfg.GrassLevel {
				candidates = append(candidates, Placement{Column: vec.Vec2{X: x, Y: z}, Y: h + 1})
			}
		}
	}
	return candidates
}

// Plan выбирает колонки для растительности и прогревает кеш шаблонов
func (p *Placer) Plan(ctx context.Context, surface Surface) (Plan, error) {
	candidates := p.Candidates(surface)

	// Fisher–Yates по всему списку, чтобы не было смещения к порядку обхода
	for i := len(candidates) - 1; i > 0; i-- {
		j := p.rng.Intn(i + 1)
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}

	target := p.cfg.MinCount + p.rng.Intn(p.cfg.MaxCount-p.cfg.MinCount+1)
	if target > len(candidates) {
		target = len(candidates)
	}

	plan := make(Plan, 0, target)
	reported := make(map[string]bool)
	for i := 0; i < target; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		placement := candidates[i]
		placement.Template = p.cfg.Templates[p.rng.Intn(len(p.cfg.Templates))]

		if _, err := p.cache.Get(ctx, placement.Template); err != nil {
			var loadErr *ResourceLoadError
			if errors.As(err, &loadErr) && !reported[placement.Template] {
				reported[placement.Template] = true
				p.logger.Warn("Шаблон %s недоступен: %v", placement.Template, loadErr.Err)
				p.metrics.TemplateLoadFailed()
			}
		}

		plan = append(plan, placement)
	}

	p.logger.Debug("Запланировано %d размещений из %d кандидатов", len(plan), len(candidates))
	return plan, nil
}

// Materialize превращает план в воксели. Размещения с недоступным шаблоном пропускаются.
func (p *Placer) Materialize(ctx context.Context, plan Plan) []voxel.Voxel {
	var voxels []voxel.Voxel
	for _, placement := range plan {
		tpl, err := p.cache.Get(ctx, placement.Template)
		if err != nil {
			p.logger.Warn("Пропуск размещения %s в колонке %s: %v", placement.Template, placement.Column, err)
			p.metrics.PlacementSkipped()
			continue
		}

		for _, f := range tpl.Fragments {
			voxels = append(voxels, voxel.Voxel{
				X:           int(math.Floor(float64(placement.Column.X) + f.X)),
				Y:           placement.Y + f.Y - 0.5,
				Z:           int(math.Floor(float64(placement.Column.Y) + f.Z)),
				Type:        f.Type,
				Color:       f.Color,
				Transparent: false,
			})
		}
		p.metrics.PlacementMaterialized()
	}
	return voxels
}
