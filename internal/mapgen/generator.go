package mapgen

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/annel0/terragen/internal/config"
	"github.com/annel0/terragen/internal/logging"
	"github.com/annel0/terragen/internal/material"
	"github.com/annel0/terragen/internal/metrics"
	"github.com/annel0/terragen/internal/noise"
	"github.com/annel0/terragen/internal/observability"
	"github.com/annel0/terragen/internal/terrain"
	"github.com/annel0/terragen/internal/vegetation"
	"github.com/annel0/terragen/internal/voxel"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Generator собирает карту: рельеф по колонкам, затем растительность.
// Сетка высот и таблица градиентов строятся один раз на экземпляр.
type Generator struct {
	cfg     config.GeneratorConfig
	seed    int64
	rng     *rand.Rand
	catalog *material.Catalog
	source  vegetation.Source
	logger  *logging.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
	workers int

	heightField *terrain.HeightField
	field       noise.Field
	templates   *vegetation.Cache

	mu      sync.Mutex
	surface *terrain.SurfaceMap
}

// Option настраивает Generator
type Option func(*Generator)

// WithRand задаёт источник случайности вместо сида из конфигурации
func WithRand(rng *rand.Rand) Option {
	return func(g *Generator) { g.rng = rng }
}

// WithCatalog задаёт каталог материалов
func WithCatalog(c *material.Catalog) Option {
	return func(g *Generator) { g.catalog = c }
}

// WithTemplateSource задаёт источник шаблонов растительности
func WithTemplateSource(s vegetation.Source) Option {
	return func(g *Generator) { g.source = s }
}

// WithLogger задаёт логгер генератора и планировщика растительности
func WithLogger(l *logging.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// WithMetrics задаёт сборщик метрик
func WithMetrics(c *metrics.Collector) Option {
	return func(g *Generator) { g.metrics = c }
}

// WithTracerProvider задаёт провайдер спанов вместо глобального
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(g *Generator) { g.tracer = tp.Tracer(observability.TracerName) }
}

// WithWorkers ограничивает число параллельно строящихся строк колонок
func WithWorkers(n int) Option {
	return func(g *Generator) { g.workers = n }
}

// New создаёт генератор. Каталог проверяется только в Generate.
// Незаданные правила растительности берутся по умолчанию.
func New(cfg config.GeneratorConfig, opts ...Option) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Vegetation.Templates) == 0 {
		cfg.Vegetation.Templates = vegetation.DefaultTemplates
	}
	if cfg.Vegetation.MinCount == 0 && cfg.Vegetation.MaxCount == 0 {
		cfg.Vegetation.MinCount = vegetation.DefaultMinCount
		cfg.Vegetation.MaxCount = vegetation.DefaultMaxCount
	}
	if err := cfg.Vegetation.ValidatePlacement(); err != nil {
		return nil, err
	}

	g := &Generator{cfg: cfg, workers: cfg.Workers}
	for _, opt := range opts {
		opt(g)
	}

	if g.rng == nil {
		g.seed = cfg.SeedValue()
		g.rng = rand.New(rand.NewSource(g.seed))
	}
	if g.workers <= 0 {
		g.workers = runtime.GOMAXPROCS(0)
	}
	if g.logger == nil {
		g.logger = logging.GetMapgenLogger()
	}
	if g.tracer == nil {
		g.tracer = otel.Tracer(observability.TracerName)
	}

	field, err := noise.New(cfg.NoiseBackend, g.rng)
	if err != nil {
		return nil, err
	}
	g.field = field

	g.heightField = terrain.NewHeightField(terrain.HeightParams{
		MinHeight: cfg.MinHeight,
		MaxHeight: cfg.MaxHeight,
		Roughness: cfg.Roughness,
	}, g.rng)

	fragmentType := cfg.Vegetation.FragmentType
	if fragmentType == "" {
		fragmentType = vegetation.DefaultFragmentType
	}
	g.templates = vegetation.NewCache(g.source, fragmentType)

	return g, nil
}

// Generate строит карту и возвращает воксели рельефа, за которыми следуют воксели растительности.
// Ошибка конфигурации каталога прерывает генерацию без частичного результата.
func (g *Generator) Generate(ctx context.Context) ([]voxel.Voxel, error) {
	start := time.Now()
	runID := uuid.NewString()

	ctx, span := g.tracer.Start(ctx, "mapgen.Generate", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.Int("map.size", g.cfg.Size),
		attribute.String("noise.backend", g.backendName()),
		attribute.Int("workers", g.workers),
	))
	defer span.End()

	g.logger.Info("[%s] 🌍 Генерация карты %dx%d (backend %s, воркеров %d)",
		runID, g.cfg.Size, g.cfg.Size, g.backendName(), g.workers)

	voxels, err := g.generate(ctx, runID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.metrics.GenerationFailed()
		g.logger.Error("[%s] Генерация прервана: %v", runID, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("voxels.total", len(voxels)))

	g.metrics.GenerationDone(time.Since(start))
	counts := voxel.CountByType(voxels)
	g.logger.Info("[%s] ✅ Карта готова: %s вокселей за %s (камень %s, земля %s, трава %s)",
		runID, humanize.Comma(int64(len(voxels))), time.Since(start).Round(time.Millisecond),
		humanize.Comma(int64(counts[material.Stone])), humanize.Comma(int64(counts[material.Dirt])),
		humanize.Comma(int64(counts[material.Grass])))
	return voxels, nil
}

func (g *Generator) generate(ctx context.Context, runID string) ([]voxel.Voxel, error) {
	// Validate работает и для nil-каталога
	_, span := g.tracer.Start(ctx, "mapgen.CatalogCheck")
	err := g.catalog.Validate(material.Required...)
	endSpan(span, err)
	if err != nil {
		return nil, err
	}

	_, span = g.tracer.Start(ctx, "mapgen.Elevation", trace.WithAttributes(
		attribute.Int("grid.padded_size", terrain.PaddedSize(g.cfg.Size)),
	))
	grid, err := g.heightField.Build(g.cfg.Size)
	endSpan(span, err)
	if err != nil {
		return nil, fmt.Errorf("build elevation grid: %w", err)
	}

	terrainCtx, span := g.tracer.Start(ctx, "mapgen.Terrain")
	terrainVoxels, surface, err := g.buildTerrain(terrainCtx, grid)
	if err == nil {
		span.SetAttributes(attribute.Int("voxels.terrain", len(terrainVoxels)))
	}
	endSpan(span, err)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.surface = surface
	g.mu.Unlock()

	g.logger.Info("[%s] Рельеф: %s вокселей, максимальная высота %.1f",
		runID, humanize.Comma(int64(len(terrainVoxels))), surface.MaxHeight())
	g.metrics.VoxelsEmitted(metrics.KindTerrain, len(terrainVoxels))

	plantVoxels, err := g.plantVegetation(ctx, runID, surface)
	if err != nil {
		return nil, err
	}
	g.metrics.VoxelsEmitted(metrics.KindVegetation, len(plantVoxels))

	return append(terrainVoxels, plantVoxels...), nil
}

// buildTerrain строит колонки параллельно по строкам x.
// Каждая строка пишет только свой слот, поэтому порядок результата не зависит от планировщика.
func (g *Generator) buildTerrain(ctx context.Context, grid *terrain.ElevationGrid) ([]voxel.Voxel, *terrain.SurfaceMap, error) {
	size := grid.Size()
	origin := grid.Origin()

	builder := terrain.NewColumnBuilder(grid, g.field, g.catalog, terrain.ColumnParams{
		MinHeight:       g.cfg.MinHeight,
		MaxHeight:       g.cfg.MaxHeight,
		GrassLevel:      g.cfg.GrassLevel,
		DetailScale:     g.cfg.DetailScale,
		DetailAmplitude: g.cfg.DetailAmplitude,
		Octaves:         g.cfg.Octaves,
		Persistence:     g.cfg.Persistence,
	})
	surface := terrain.NewSurfaceMap(origin, size)
	rows := make([][]voxel.Voxel, size)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)

	for i := 0; i < size; i++ {
		if egCtx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}

			x := origin + i
			var row []voxel.Voxel
			for z := origin; z < origin+size; z++ {
				column, h, err := builder.Column(x, z)
				if err != nil {
					return err
				}
				surface.Set(x, z, h)
				row = append(row, column...)
			}
			rows[i] = row
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	// errgroup не видит отмену, если все задачи успели завершиться до неё
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	total := 0
	for _, row := range rows {
		total += len(row)
	}
	voxels := make([]voxel.Voxel, 0, total)
	for _, row := range rows {
		voxels = append(voxels, row...)
	}
	return voxels, surface, nil
}

func (g *Generator) plantVegetation(ctx context.Context, runID string, surface *terrain.SurfaceMap) ([]voxel.Voxel, error) {
	vcfg := g.cfg.Vegetation

	placer, err := vegetation.NewPlacer(vegetation.PlacerConfig{
		GrassLevel: g.cfg.GrassLevel,
		MinCount:   vcfg.MinCount,
		MaxCount:   vcfg.MaxCount,
		Templates:  vcfg.Templates,
	}, g.templates, g.rng, vegetation.WithLogger(g.logger), vegetation.WithMetrics(g.metrics))
	if err != nil {
		return nil, err
	}

	planCtx, span := g.tracer.Start(ctx, "vegetation.Plan")
	plan, err := placer.Plan(planCtx, surface)
	if err == nil {
		span.SetAttributes(attribute.Int("placements", len(plan)))
	}
	endSpan(span, err)
	if err != nil {
		return nil, err
	}

	materializeCtx, span := g.tracer.Start(ctx, "vegetation.Materialize")
	voxels := placer.Materialize(materializeCtx, plan)
	span.SetAttributes(attribute.Int("voxels.vegetation", len(voxels)))
	span.End()

	g.logger.Info("[%s] 🌲 Растительность: %d размещений, %s вокселей",
		runID, len(plan), humanize.Comma(int64(len(voxels))))
	return voxels, nil
}

// Surface возвращает итоговые высоты колонок последней генерации (nil до первой)
func (g *Generator) Surface() *terrain.SurfaceMap {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.surface
}

// Elevation возвращает построенную сетку высот (nil до первой генерации)
func (g *Generator) Elevation() *terrain.ElevationGrid {
	return g.heightField.Grid()
}

// Seed возвращает сид, выведенный из конфигурации (0, если rng задан через WithRand)
func (g *Generator) Seed() int64 {
	return g.seed
}

func (g *Generator) backendName() string {
	if g.cfg.NoiseBackend == "" {
		return noise.BackendGradient
	}
	return g.cfg.NoiseBackend
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
