package cache

import (
	"context"
	"errors"
	"time"
)

// ColdStorage: постоянное хранилище, из которого RedisTemplates дочитывает промахи.
// Ему соответствует storage.TemplateStore.
type ColdStorage interface {
	// Load загружает данные из постоянного хранилища.
	Load(ctx context.Context, key string) ([]byte, error)
}

// CacheMetrics содержит метрики производительности кеша.
type CacheMetrics struct {
	TotalRequests int64   `json:"total_requests"`
	CacheHits     int64   `json:"cache_hits"`
	CacheMisses   int64   `json:"cache_misses"`
	ColdLoads     int64   `json:"cold_loads"`
	HitRatio      float64 `json:"hit_ratio"`

	// Последнее обновление
	LastUpdate time.Time `json:"last_update"`
}

// CacheConfig содержит конфигурацию для кеша шаблонов.
type CacheConfig struct {
	// RedisURL в формате redis://[:password@]host:port/db
	RedisURL string `yaml:"redis_url"`

	// Prefix добавляется к имени шаблона при построении ключа
	Prefix string `yaml:"prefix"`

	// TTL записей, дочитанных из Cold Storage; 0: без истечения
	DefaultTTL time.Duration `yaml:"default_ttl"`

	PoolTimeout time.Duration `yaml:"pool_timeout"`
}

// Ошибки кеша
var (
	ErrCacheMiss    = NewCacheError("cache miss")
	ErrCacheTimeout = NewCacheError("cache timeout")
	ErrInvalidKey   = NewCacheError("invalid key")
)

// CacheError представляет ошибку кеша.
type CacheError struct {
	Message string
}

func (e *CacheError) Error() string {
	return e.Message
}

func NewCacheError(message string) *CacheError {
	return &CacheError{Message: message}
}

// IsCacheMiss проверяет, является ли ошибка промахом кеша.
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}
