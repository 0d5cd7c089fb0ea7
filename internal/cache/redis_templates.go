package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/annel0/terragen/internal/logging"
	"github.com/go-redis/redis/v8"
)

// DefaultPrefix: префикс ключей шаблонов по умолчанию
const DefaultPrefix = "terragen:template:"

// RedisTemplates отдаёт шаблоны растительности из Redis.
// При промахе дочитывает шаблон из Cold Storage (Read-Through) и кладёт его в Redis.
type RedisTemplates struct {
	client      *redis.Client
	config      *CacheConfig
	coldStorage ColdStorage
	logger      *logging.Logger

	requests  int64
	hits      int64
	misses    int64
	coldLoads int64
}

// NewRedisTemplates подключается к Redis и проверяет соединение.
// coldStorage может быть nil: тогда промах возвращает ErrCacheMiss.
func NewRedisTemplates(config *CacheConfig, coldStorage ColdStorage) (*RedisTemplates, error) {
	if config.Prefix == "" {
		config.Prefix = DefaultPrefix
	}
	if config.PoolTimeout == 0 {
		config.PoolTimeout = 30 * time.Second
	}

	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url %q: %w", config.RedisURL, err)
	}
	opts.PoolTimeout = config.PoolTimeout
	opts.ReadTimeout = 5 * time.Second
	opts.WriteTimeout = 5 * time.Second

	rdb := redis.NewClient(opts)

	// Проверяем соединение
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.Info("Redis templates initialized: %s (prefix %s)", opts.Addr, config.Prefix)
	return &RedisTemplates{
		client:      rdb,
		config:      config,
		coldStorage: coldStorage,
		logger:      logging.GetStorageLogger(),
	}, nil
}

// Load возвращает содержимое шаблона name
func (r *RedisTemplates) Load(ctx context.Context, name string) ([]byte, error) {
	key, err := r.key(name)
	if err != nil {
		return nil, err
	}

	atomic.AddInt64(&r.requests, 1)

	val, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		atomic.AddInt64(&r.hits, 1)
		return val, nil
	}
	if err != redis.Nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("redis get %s: %w", key, ErrCacheTimeout)
		}
		return nil, fmt.Errorf("redis get error: %w", err)
	}

	atomic.AddInt64(&r.misses, 1)
	if r.coldStorage == nil {
		return nil, fmt.Errorf("template %s: %w", name, ErrCacheMiss)
	}

	// Read-Through: загружаем из Cold Storage и прогреваем Redis
	val, err = r.coldStorage.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	atomic.AddInt64(&r.coldLoads, 1)

	if err := r.client.Set(ctx, key, val, r.config.DefaultTTL).Err(); err != nil {
		r.logger.Warn("Не удалось прогреть Redis шаблоном %s: %v", name, err)
	}
	return val, nil
}

// Publish записывает шаблон в Redis без истечения
func (r *RedisTemplates) Publish(ctx context.Context, name string, data []byte) error {
	key, err := r.key(name)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

// PublishAll записывает набор шаблонов одним pipeline
func (r *RedisTemplates) PublishAll(ctx context.Context, templates map[string][]byte) error {
	if len(templates) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for name, data := range templates {
		key, err := r.key(name)
		if err != nil {
			return err
		}
		pipe.Set(ctx, key, data, 0)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis batch set error: %w", err)
	}
	return nil
}

// Delete удаляет шаблон из Redis
func (r *RedisTemplates) Delete(ctx context.Context, name string) error {
	key, err := r.key(name)
	if err != nil {
		return err
	}
	return r.client.Del(ctx, key).Err()
}

// GetMetrics возвращает снимок счётчиков обращений
func (r *RedisTemplates) GetMetrics() *CacheMetrics {
	m := &CacheMetrics{
		TotalRequests: atomic.LoadInt64(&r.requests),
		CacheHits:     atomic.LoadInt64(&r.hits),
		CacheMisses:   atomic.LoadInt64(&r.misses),
		ColdLoads:     atomic.LoadInt64(&r.coldLoads),
		LastUpdate:    time.Now(),
	}
	if m.TotalRequests > 0 {
		m.HitRatio = float64(m.CacheHits) / float64(m.TotalRequests)
	}
	return m
}

// Close закрывает соединение с Redis
func (r *RedisTemplates) Close() error {
	return r.client.Close()
}

func (r *RedisTemplates) key(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, " \n\r") {
		return "", fmt.Errorf("template name %q: %w", name, ErrInvalidKey)
	}
	return r.config.Prefix + name, nil
}
