package vegetation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const smallTree = `0.5,0.5,0.5,#8B4513
0.5,1.5,0.5,#8B4513

0.5,2.5,0.5,ForestGreen
`

func TestParseTemplate(t *testing.T) {
	tpl, err := ParseTemplate("tree.txt", []byte(smallTree), "")
	require.NoError(t, err)

	assert.Equal(t, "tree.txt", tpl.Name)
	require.Len(t, tpl.Fragments, 3, "Пустые строки пропускаются")
	assert.Equal(t, Fragment{X: 0.5, Y: 2.5, Z: 0.5, Color: "ForestGreen", Type: DefaultFragmentType}, tpl.Fragments[2])
}

func TestParseTemplateCustomType(t *testing.T) {
	tpl, err := ParseTemplate("bush.txt", []byte("0,0,0,#00ff00"), "bush")
	require.NoError(t, err)
	assert.Equal(t, "bush", tpl.Fragments[0].Type)
}

func TestParseTemplateErrors(t *testing.T) {
	_, err := ParseTemplate("empty.txt", []byte("\n  \n"), "")
	assert.True(t, errors.Is(err, ErrEmptyTemplate))

	_, err = ParseTemplate("short.txt", []byte("1,2,#fff"), "")
	assert.Error(t, err)

	_, err = ParseTemplate("nan.txt", []byte("a,2,3,#fff"), "")
	assert.Error(t, err)

	_, err = ParseTemplate("nocolor.txt", []byte("1,2,3, "), "")
	assert.Error(t, err)
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tree.txt"), []byte(smallTree), 0644))

	src := NewDirSource(dir)
	data, err := src.Load(context.Background(), "tree.txt")
	require.NoError(t, err)
	assert.Equal(t, smallTree, string(data))

	_, err = src.Load(context.Background(), "missing.txt")
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = src.Load(context.Background(), "../tree.txt")
	assert.Error(t, err, "Пути за пределами директории запрещены")
}

// countingSource считает обращения к каждому имени
type countingSource struct {
	inner Source
	mu    sync.Mutex
	calls map[string]int
	total int64
}

func newCountingSource(inner Source) *countingSource {
	return &countingSource{inner: inner, calls: make(map[string]int)}
}

func (s *countingSource) Load(ctx context.Context, name string) ([]byte, error) {
	atomic.AddInt64(&s.total, 1)
	s.mu.Lock()
	s.calls[name]++
	s.mu.Unlock()
	return s.inner.Load(ctx, name)
}

func TestCacheLoadsEachNameOnce(t *testing.T) {
	src := newCountingSource(StaticSource{"tree.txt": smallTree})
	cache := NewCache(src, "")

	var wg sync.WaitGroup
	templates := make([]*Template, 32)
	for i := range templates {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tpl, err := cache.Get(context.Background(), "tree.txt")
			assert.NoError(t, err)
			templates[i] = tpl
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, src.calls["tree.txt"], "Шаблон должен загружаться не более одного раза")
	for _, tpl := range templates {
		assert.Same(t, templates[0], tpl, "Все размещения разделяют один загруженный шаблон")
	}
}

func TestCacheMemoizesFailures(t *testing.T) {
	src := newCountingSource(StaticSource{"empty.txt": ""})
	cache := NewCache(src, "")

	for i := 0; i < 3; i++ {
		_, err := cache.Get(context.Background(), "empty.txt")
		var loadErr *ResourceLoadError
		require.True(t, errors.As(err, &loadErr))
		assert.Equal(t, "empty.txt", loadErr.Template)
		assert.True(t, errors.Is(err, ErrEmptyTemplate))

		_, err = cache.Get(context.Background(), "missing.txt")
		assert.True(t, errors.Is(err, os.ErrNotExist))
	}

	assert.Equal(t, int64(2), atomic.LoadInt64(&src.total), "Неудачные загрузки не повторяются")
	assert.Equal(t, 2, cache.Loads())
}

func TestCacheDoesNotMemoizeCancellation(t *testing.T) {
	cache := NewCache(StaticSource{"tree.txt": smallTree}, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := cache.Get(ctx, "tree.txt")
	require.Error(t, err)

	tpl, err := cache.Get(context.Background(), "tree.txt")
	require.NoError(t, err)
	assert.Len(t, tpl.Fragments, 3)
}

func TestCacheWithoutSource(t *testing.T) {
	_, err := NewCache(nil, "").Get(context.Background(), "tree.txt")
	var loadErr *ResourceLoadError
	assert.True(t, errors.As(err, &loadErr))
}

func TestBundledTemplates(t *testing.T) {
	src := NewDirSource(filepath.Join("..", "..", "assets", "templates"))
	cache := NewCache(src, "")
	for _, name := range DefaultTemplates {
		tpl, err := cache.Get(context.Background(), name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, tpl.Fragments, name)
	}
}
