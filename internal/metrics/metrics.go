package metrics

import (
	"net/http"
	"time"

	"github.com/annel0/terragen/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Виды вокселей для метки kind
const (
	KindTerrain    = "terrain"
	KindVegetation = "vegetation"
)

// Collector инкапсулирует Prometheus-метрики генератора.
// Все методы безопасны для nil-получателя: без метрик генератор работает так же.
type Collector struct {
	generations     prometheus.Counter
	failures        prometheus.Counter
	voxels          *prometheus.CounterVec
	placements      prometheus.Counter
	skipped         prometheus.Counter
	templateFailure prometheus.Counter
	duration        prometheus.Histogram
}

// NewCollector создаёт метрики и регистрирует их в reg (nil: глобальный регистр)
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		generations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "terragen",
			Name:      "generations_total",
			Help:      "Число завершённых генераций карты.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "terragen",
			Name:      "generation_failures_total",
			Help:      "Генерации, прерванные ошибкой конфигурации или отменой.",
		}),
		voxels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "terragen",
			Name:      "voxels_emitted_total",
			Help:      "Сгенерированные воксели по видам (terrain, vegetation).",
		}, []string{"kind"}),
		placements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "terragen",
			Name:      "vegetation_placements_total",
			Help:      "Материализованные экземпляры растительности.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "terragen",
			Name:      "vegetation_placements_skipped_total",
			Help:      "Размещения, пропущенные из-за недоступного шаблона.",
		}),
		templateFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "terragen",
			Name:      "template_load_failures_total",
			Help:      "Неудачные загрузки шаблонов растительности.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "terragen",
			Name:      "generation_duration_seconds",
			Help:      "Длительность генерации карты.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}

	reg.MustRegister(c.generations, c.failures, c.voxels, c.placements, c.skipped, c.templateFailure, c.duration)
	return c
}

// GenerationDone фиксирует успешную генерацию и её длительность
func (c *Collector) GenerationDone(elapsed time.Duration) {
	if c == nil {
		return
	}
	c.generations.Inc()
	c.duration.Observe(elapsed.Seconds())
}

// GenerationFailed фиксирует прерванную генерацию
func (c *Collector) GenerationFailed() {
	if c == nil {
		return
	}
	c.failures.Inc()
}

// VoxelsEmitted добавляет n вокселей вида kind
func (c *Collector) VoxelsEmitted(kind string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.voxels.WithLabelValues(kind).Add(float64(n))
}

// PlacementMaterialized фиксирует установленный экземпляр растительности
func (c *Collector) PlacementMaterialized() {
	if c == nil {
		return
	}
	c.placements.Inc()
}

// PlacementSkipped фиксирует пропущенное размещение
func (c *Collector) PlacementSkipped() {
	if c == nil {
		return
	}
	c.skipped.Inc()
}

// TemplateLoadFailed фиксирует неудачную загрузку шаблона
func (c *Collector) TemplateLoadFailed() {
	if c == nil {
		return
	}
	c.templateFailure.Inc()
}

// StartHTTP запускает HTTP-эндпоинт Prometheus на указанном адресе (например, ":2112").
// Метод неблокирующий: HTTP-сервер стартует в отдельной горутине.
func StartHTTP(addr string, gatherer prometheus.Gatherer) *http.Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		logging.Info("📈 Prometheus /metrics доступен по адресу %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("Ошибка Prometheus HTTP сервера: %v", err)
		}
	}()
	return server
}
