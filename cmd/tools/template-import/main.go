package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/annel0/terragen/internal/cache"
	"github.com/annel0/terragen/internal/storage"
	"github.com/annel0/terragen/internal/vegetation"
	"github.com/dustin/go-humanize"
)

const (
	defaultStorePath = "data/templates"
	defaultRedisURL  = "redis://localhost:6379/0"
)

func main() {
	var (
		storePath = flag.String("store", defaultStorePath, "BadgerDB template store path")
		command   = flag.String("cmd", "list", "Command: import, list, check, publish")
		dir       = flag.String("dir", "assets/templates", "Directory with *.txt templates (import)")
		redisURL  = flag.String("redis", defaultRedisURL, "Redis URL (publish)")
		prefix    = flag.String("prefix", cache.DefaultPrefix, "Redis key prefix (publish)")
	)
	flag.Parse()

	store, err := storage.NewTemplateStore(*storePath)
	if err != nil {
		log.Fatalf("❌ Failed to open template store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	switch *command {
	case "import":
		n, err := store.ImportDir(*dir)
		if err != nil {
			log.Fatalf("❌ Import failed: %v", err)
		}
		fmt.Printf("✅ Imported %d templates from %s\n", n, *dir)

	case "list":
		if err := listTemplates(ctx, store); err != nil {
			log.Fatalf("❌ List failed: %v", err)
		}

	case "check":
		if err := checkTemplates(ctx, store); err != nil {
			log.Fatalf("❌ Check failed: %v", err)
		}

	case "publish":
		if err := publishTemplates(ctx, store, *redisURL, *prefix); err != nil {
			log.Fatalf("❌ Publish failed: %v", err)
		}

	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: import, list, check, publish")
		os.Exit(1)
	}
}

// listTemplates выводит имена и размеры шаблонов
func listTemplates(ctx context.Context, store *storage.TemplateStore) error {
	names, err := store.Names()
	if err != nil {
		return err
	}

	fmt.Printf("📦 %d templates in store\n", len(names))
	for _, name := range names {
		data, err := store.Load(ctx, name)
		if err != nil {
			return err
		}
		fmt.Printf("  %-20s %s\n", name, humanize.Bytes(uint64(len(data))))
	}
	return nil
}

// checkTemplates разбирает каждый шаблон и сообщает о битых
func checkTemplates(ctx context.Context, store *storage.TemplateStore) error {
	names, err := store.Names()
	if err != nil {
		return err
	}

	broken := 0
	for _, name := range names {
		data, err := store.Load(ctx, name)
		if err != nil {
			return err
		}
		tpl, err := vegetation.ParseTemplate(name, data, "")
		if err != nil {
			broken++
			fmt.Printf("  ❌ %s: %v\n", name, err)
			continue
		}
		fmt.Printf("  ✅ %s: %s fragments\n", name, humanize.Comma(int64(len(tpl.Fragments))))
	}

	if broken > 0 {
		return fmt.Errorf("%d of %d templates are broken", broken, len(names))
	}
	return nil
}

// publishTemplates копирует все шаблоны из BadgerDB в Redis
func publishTemplates(ctx context.Context, store *storage.TemplateStore, redisURL, prefix string) error {
	names, err := store.Names()
	if err != nil {
		return err
	}

	templates := make(map[string][]byte, len(names))
	for _, name := range names {
		data, err := store.Load(ctx, name)
		if err != nil {
			return err
		}
		templates[name] = data
	}

	redisTemplates, err := cache.NewRedisTemplates(&cache.CacheConfig{RedisURL: redisURL, Prefix: prefix}, nil)
	if err != nil {
		return err
	}
	defer redisTemplates.Close()

	if err := redisTemplates.PublishAll(ctx, templates); err != nil {
		return err
	}
	fmt.Printf("✅ Published %d templates to %s\n", len(templates), redisURL)
	return nil
}
