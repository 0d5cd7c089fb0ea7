package vegetation

import (
	"bytes"
	"context"
	"math/rand"
	"testing"

	"github.com/annel0/terragen/internal/logging"
	"github.com/annel0/terragen/internal/metrics"
	"github.com/annel0/terragen/internal/vec"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gridSurface: поверхность с высотами, заданными функцией
type gridSurface struct {
	origin, size int
	height       func(x, z int) float64
}

func (s gridSurface) Origin() int             { return s.origin }
func (s gridSurface) Size() int               { return s.size }
func (s gridSurface) Height(x, z int) float64 { return s.height(x, z) }

// stripedSurface: чётные x покрыты травой (5.5), нечётные скалами (17.5)
func stripedSurface(size int) gridSurface {
	return gridSurface{origin: -size / 2, size: size, height: func(x, z int) float64 {
		if x%2 == 0 {
			return 5.5
		}
		return 17.5
	}}
}

func newTestPlacer(t *testing.T, seed int64, src Source, opts ...PlacerOption) *Placer {
	t.Helper()
	opts = append([]PlacerOption{WithLogger(logging.Discard())}, opts...)
	p, err := NewPlacer(PlacerConfig{
		GrassLevel: 15,
		MinCount:   DefaultMinCount,
		MaxCount:   DefaultMaxCount,
		Templates:  []string{"tree.txt", "bush.txt"},
	}, NewCache(src, ""), rand.New(rand.NewSource(seed)), opts...)
	require.NoError(t, err)
	return p
}

func treeSource() StaticSource {
	return StaticSource{"tree.txt": smallTree, "bush.txt": "0.5,0.5,0.5,#00AA00\n1.5,0.5,0.5,#00AA00\n"}
}

func TestNewPlacerValidation(t *testing.T) {
	cache := NewCache(treeSource(), "")
	rng := rand.New(rand.NewSource(1))

	_, err := NewPlacer(PlacerConfig{MinCount: 10, MaxCount: 5, Templates: DefaultTemplates}, cache, rng)
	assert.Error(t, err)

	_, err = NewPlacer(PlacerConfig{MinCount: 1, MaxCount: 5}, cache, rng)
	assert.Error(t, err)
}

func TestPlanOnlyGrassColumns(t *testing.T) {
	surface := stripedSurface(40)
	for seed := int64(0); seed < 10; seed++ {
		plan, err := newTestPlacer(t, seed, treeSource()).Plan(context.Background(), surface)
		require.NoError(t, err)

		candidates := 20 * 40
		assert.GreaterOrEqual(t, len(plan), min(DefaultMinCount, candidates))
		assert.LessOrEqual(t, len(plan), min(DefaultMaxCount, candidates))

		seen := make(map[vec.Vec2]bool)
		for _, p := range plan {
			h := surface.Height(p.Column.X, p.Column.Y)
			assert.LessOrEqual(t, h, 15.0, "Растительность только на траве")
			assert.Equal(t, h+1, p.Y, "Основание на воксель выше поверхности")
			assert.False(t, seen[p.Column], "Колонка %s выбрана дважды", p.Column)
			seen[p.Column] = true
			assert.Contains(t, []string{"tree.txt", "bush.txt"}, p.Template)
		}
	}
}

func TestPlanFewCandidates(t *testing.T) {
	// Только три колонки ниже уровня травы
	surface := gridSurface{origin: 0, size: 10, height: func(x, z int) float64 {
		if x == 0 && z < 3 {
			return 2.5
		}
		return 18.5
	}}

	plan, err := newTestPlacer(t, 3, treeSource()).Plan(context.Background(), surface)
	require.NoError(t, err)
	assert.Len(t, plan, 3, "Размещений не больше, чем кандидатов")
}

func TestPlanNoCandidates(t *testing.T) {
	surface := gridSurface{origin: 0, size: 5, height: func(x, z int) float64 { return 19.5 }}
	plan, err := newTestPlacer(t, 3, treeSource()).Plan(context.Background(), surface)
	require.NoError(t, err)
	assert.Empty(t, plan)
}

func TestPlanShuffleAvoidsScanOrderBias(t *testing.T) {
	surface := gridSurface{origin: 0, size: 50, height: func(x, z int) float64 { return 3.5 }}
	plan, err := newTestPlacer(t, 8, treeSource()).Plan(context.Background(), surface)
	require.NoError(t, err)
	require.NotEmpty(t, plan)

	// Без перемешивания все размещения оказались бы в первых строках обхода
	maxX := 0
	for _, p := range plan {
		if p.Column.X > maxX {
			maxX = p.Column.X
		}
	}
	assert.Greater(t, maxX, 10)
}

func TestPlanDeterministicForSeed(t *testing.T) {
	surface := stripedSurface(30)
	a, err := newTestPlacer(t, 42, treeSource()).Plan(context.Background(), surface)
	require.NoError(t, err)
	b, err := newTestPlacer(t, 42, treeSource()).Plan(context.Background(), surface)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMaterializePositions(t *testing.T) {
	p := newTestPlacer(t, 1, treeSource())
	plan := Plan{{Column: vec.Vec2{X: 3, Y: -4}, Y: 6.5, Template: "tree.txt"}}

	voxels := p.Materialize(context.Background(), plan)
	require.Len(t, voxels, 3)

	assert.Equal(t, 3, voxels[0].X)
	assert.Equal(t, -4, voxels[0].Z)
	assert.Equal(t, 6.5, voxels[0].Y, "Первый фрагмент стоит прямо над поверхностью 5.5")
	assert.Equal(t, 8.5, voxels[2].Y)
	assert.Equal(t, "ForestGreen", voxels[2].Color)
	assert.Equal(t, DefaultFragmentType, voxels[2].Type)
	for _, v := range voxels {
		assert.False(t, v.Transparent)
	}
}

func TestMaterializeTwiceIsIdentical(t *testing.T) {
	src := newCountingSource(treeSource())
	p := newTestPlacer(t, 9, src)

	plan, err := p.Plan(context.Background(), stripedSurface(32))
	require.NoError(t, err)

	first := p.Materialize(context.Background(), plan)
	second := p.Materialize(context.Background(), plan)
	assert.Equal(t, first, second)
	assert.LessOrEqual(t, len(src.calls), 2, "Шаблоны загружаются по одному разу на имя")
	for name, calls := range src.calls {
		assert.Equal(t, 1, calls, name)
	}
}

func TestMaterializeSkipsFailedTemplate(t *testing.T) {
	var buf bytes.Buffer
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	src := StaticSource{"tree.txt": ""} // пустой шаблон не загружается
	p, err := NewPlacer(PlacerConfig{
		GrassLevel: 15,
		MinCount:   DefaultMinCount,
		MaxCount:   DefaultMaxCount,
		Templates:  []string{"tree.txt"},
	}, NewCache(src, ""), rand.New(rand.NewSource(4)),
		WithLogger(logging.NewWriterLogger("vegetation", &buf, logging.WARN)),
		WithMetrics(collector))
	require.NoError(t, err)

	plan, err := p.Plan(context.Background(), stripedSurface(20))
	require.NoError(t, err)
	require.NotEmpty(t, plan)

	voxels := p.Materialize(context.Background(), plan)
	assert.Empty(t, voxels, "Все размещения с недоступным шаблоном пропускаются")
	assert.Contains(t, buf.String(), "tree.txt")
	assert.Contains(t, buf.String(), "[WARN]")
}
