package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/terragen/internal/cache"
	"github.com/annel0/terragen/internal/config"
	"github.com/annel0/terragen/internal/export"
	"github.com/annel0/terragen/internal/logging"
	"github.com/annel0/terragen/internal/mapgen"
	"github.com/annel0/terragen/internal/material"
	"github.com/annel0/terragen/internal/metrics"
	"github.com/annel0/terragen/internal/observability"
	"github.com/annel0/terragen/internal/storage"
	"github.com/annel0/terragen/internal/vegetation"
	"github.com/annel0/terragen/internal/voxel"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	var (
		configPath  = flag.String("config", "", "YAML config path (or TERRAGEN_CONFIG)")
		seed        = flag.String("seed", "", "Seed: number or any string (empty = time based)")
		size        = flag.Int("size", 0, "Map footprint in columns (overrides config)")
		out         = flag.String("out", "", "Output file, '-' for stdout (overrides config)")
		compress    = flag.Bool("compress", false, "Compress output with zstd")
		metricsAddr = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address and wait for a signal")
		traceAddr   = flag.String("trace-endpoint", "", "Export spans to this OTLP/HTTP collector (host:port)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	applyFlags(cfg, *seed, *size, *out, *compress, *metricsAddr)
	if *traceAddr != "" {
		cfg.Tracing.Enabled = true
		cfg.Tracing.Endpoint = *traceAddr
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Некорректная конфигурация: %v", err)
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	logging.Configure(cfg.Logging.Dir, level)
	if err := logging.InitDefaultLogger("terragen"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := func(context.Context) error { return nil }
	if cfg.Tracing.Enabled {
		shutdownTracing, err = observability.InitTelemetry(ctx, observability.Options{
			ServiceName: cfg.Tracing.ServiceName,
			Endpoint:    cfg.Tracing.Endpoint,
			Insecure:    cfg.Tracing.Insecure,
		})
		if err != nil {
			log.Fatalf("❌ Ошибка инициализации OpenTelemetry: %v", err)
		}
	}

	err = run(ctx, cfg)
	if shutdownErr := shutdownTracing(context.Background()); shutdownErr != nil {
		logging.Warn("Не удалось выгрузить спаны: %v", shutdownErr)
	}
	if err != nil {
		logging.Error("❌ %v", err)
		logging.CloseDefaultLogger()
		os.Exit(1)
	}
}

func applyFlags(cfg *config.Config, seed string, size int, out string, compress bool, metricsAddr string) {
	if seed != "" {
		cfg.Generator.Seed = seed
	}
	if size > 0 {
		cfg.Generator.Size = size
	}
	if out != "" {
		cfg.Output.Path = out
	}
	if compress {
		cfg.Output.Compress = true
	}
	if metricsAddr != "" {
		cfg.Metrics.Addr = metricsAddr
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logging.Info("🌍 Запуск генератора карты %dx%d", cfg.Generator.Size, cfg.Generator.Size)

	catalog, err := material.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("каталог материалов: %w", err)
	}
	logging.Debug("Загружено материалов: %d", len(catalog.Names()))

	source, closeSource, err := openTemplateSource(cfg.Vegetation)
	if err != nil {
		return fmt.Errorf("источник шаблонов: %w", err)
	}
	defer closeSource()

	var collector *metrics.Collector
	if cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		collector = metrics.NewCollector(reg)
		server := metrics.StartHTTP(cfg.Metrics.Addr, reg)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Shutdown(shutdownCtx)
		}()
	}

	gen, err := mapgen.New(cfg.Generator,
		mapgen.WithCatalog(catalog),
		mapgen.WithTemplateSource(source),
		mapgen.WithMetrics(collector),
	)
	if err != nil {
		return err
	}
	if s := gen.Seed(); s != 0 {
		logging.Info("🎲 Сид генерации: %d", s)
	}

	voxels, err := gen.Generate(ctx)
	if err != nil {
		return err
	}

	if err := writeOutput(cfg.Output, voxels); err != nil {
		return err
	}

	if cfg.Metrics.Addr != "" {
		logging.Info("📡 Метрики доступны, ожидание сигнала завершения...")
		<-ctx.Done()
	}
	logging.Info("👋 Готово")
	return nil
}

// openTemplateSource выбирает источник шаблонов растительности по конфигурации
func openTemplateSource(vcfg config.VegetationConfig) (vegetation.Source, func(), error) {
	noop := func() {}

	switch vcfg.Source {
	case config.SourceBadger:
		store, err := storage.NewTemplateStore(vcfg.BadgerPath)
		if err != nil {
			return nil, noop, err
		}
		logging.Info("🌲 Шаблоны из BadgerDB: %s", vcfg.BadgerPath)
		return store, func() { store.Close() }, nil

	case config.SourceRedis:
		// BadgerDB служит холодным хранилищем, если он доступен
		var cold cache.ColdStorage
		closeCold := noop
		if vcfg.BadgerPath != "" {
			if store, err := storage.NewTemplateStore(vcfg.BadgerPath); err == nil {
				cold = store
				closeCold = func() { store.Close() }
			} else {
				logging.Warn("BadgerDB недоступен, Redis без холодного хранилища: %v", err)
			}
		}

		redisTemplates, err := cache.NewRedisTemplates(&cache.CacheConfig{
			RedisURL: vcfg.RedisURL,
			Prefix:   vcfg.RedisPrefix,
		}, cold)
		if err != nil {
			closeCold()
			return nil, noop, err
		}
		logging.Info("🌲 Шаблоны из Redis: %s", vcfg.RedisURL)
		return redisTemplates, func() {
			m := redisTemplates.GetMetrics()
			logging.Debug("Redis шаблоны: запросов %d, попаданий %.0f%%", m.TotalRequests, m.HitRatio*100)
			redisTemplates.Close()
			closeCold()
		}, nil

	default:
		logging.Info("🌲 Шаблоны из директории: %s", vcfg.Dir)
		return vegetation.NewDirSource(vcfg.Dir), noop, nil
	}
}

func writeOutput(ocfg config.OutputConfig, voxels []voxel.Voxel) error {
	if ocfg.Path != "-" {
		if err := export.WriteFile(ocfg.Path, voxels, ocfg.Compress); err != nil {
			return err
		}
		logging.Info("💾 Карта сохранена в %s (zstd: %v)", ocfg.Path, ocfg.Compress)
		return nil
	}
	return export.WriteText(os.Stdout, voxels, ocfg.Compress)
}
