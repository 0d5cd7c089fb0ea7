package vegetation

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"
)

type cacheEntry struct {
	template *Template
	err      error
}

// Cache: read-through кеш шаблонов по имени.
// Каждое имя загружается не более одного раза; неудачная загрузка тоже запоминается.
type Cache struct {
	source       Source
	fragmentType string

	group   singleflight.Group
	mu      sync.RWMutex
	entries map[string]cacheEntry
	loads   int
}

// NewCache создаёт кеш поверх источника шаблонов
func NewCache(source Source, fragmentType string) *Cache {
	return &Cache{
		source:       source,
		fragmentType: fragmentType,
		entries:      make(map[string]cacheEntry),
	}
}

// Get возвращает шаблон, загружая его при первом обращении.
// Ошибка загрузки возвращается как *ResourceLoadError.
func (c *Cache) Get(ctx context.Context, name string) (*Template, error) {
	if entry, ok := c.lookup(name); ok {
		return entry.template, entry.err
	}

	v, _, _ := c.group.Do(name, func() (interface{}, error) {
		if entry, ok := c.lookup(name); ok {
			return entry, nil
		}

		entry := c.load(ctx, name)

		// Отмену контекста не запоминаем: это не свойство шаблона
		if errors.Is(entry.err, context.Canceled) || errors.Is(entry.err, context.DeadlineExceeded) {
			return entry, nil
		}

		c.mu.Lock()
		c.entries[name] = entry
		c.mu.Unlock()
		return entry, nil
	})

	entry := v.(cacheEntry)
	return entry.template, entry.err
}

// Loads возвращает число обращений к источнику
func (c *Cache) Loads() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loads
}

func (c *Cache) lookup(name string) (cacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[name]
	return entry, ok
}

func (c *Cache) load(ctx context.Context, name string) cacheEntry {
	c.mu.Lock()
	c.loads++
	c.mu.Unlock()

	if c.source == nil {
		return cacheEntry{err: &ResourceLoadError{Template: name, Err: errors.New("template source not configured")}}
	}

	data, err := c.source.Load(ctx, name)
	if err != nil {
		return cacheEntry{err: &ResourceLoadError{Template: name, Err: err}}
	}

	tpl, err := ParseTemplate(name, data, c.fragmentType)
	if err != nil {
		return cacheEntry{err: &ResourceLoadError{Template: name, Err: err}}
	}
	return cacheEntry{template: tpl}
}
