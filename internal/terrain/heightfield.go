package terrain

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/annel0/terragen/internal/logging"
)

// DefaultRoughness: начальный коэффициент возмущения diamond-square
const DefaultRoughness = 0.7

// ErrSizeMismatch возвращается, если Build вызван повторно с другим размером
var ErrSizeMismatch = errors.New("elevation grid already built with a different size")

// HeightParams задаёт диапазон высот и шероховатость
type HeightParams struct {
	MinHeight float64
	MaxHeight float64
	Roughness float64
}

// HeightField строит сетку высот алгоритмом diamond-square.
// Сетка строится один раз и кешируется на всё время жизни экземпляра.
type HeightField struct {
	params HeightParams
	rng    *rand.Rand
	logger *logging.Logger

	once sync.Once
	grid *ElevationGrid
}

// HeightOption настраивает HeightField
type HeightOption func(*HeightField)

// WithLogger задаёт логгер построения сетки
func WithLogger(l *logging.Logger) HeightOption {
	return func(h *HeightField) { h.logger = l }
}

// NewHeightField создаёт генератор сетки высот; rng используется только внутри Build
func NewHeightField(params HeightParams, rng *rand.Rand, opts ...HeightOption) *HeightField {
	if params.Roughness <= 0 {
		params.Roughness = DefaultRoughness
	}
	h := &HeightField{params: params, rng: rng}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logging.GetTerrainLogger()
	}
	return h
}

// Build строит сетку size×size или возвращает ранее построенную.
// Некорректный размер не занимает сетку: следующий вызов с верным размером её построит.
func (h *HeightField) Build(size int) (*ElevationGrid, error) {
	if size < 1 {
		return nil, fmt.Errorf("invalid elevation grid size %d", size)
	}

	h.once.Do(func() {
		h.logger.Debug("Diamond-square: сетка %d, рабочая сторона %d", size, PaddedSize(size))
		h.grid = h.diamondSquare(size)
	})

	if h.grid.Size() != size {
		return h.grid, fmt.Errorf("%w: have %d, requested %d", ErrSizeMismatch, h.grid.Size(), size)
	}
	return h.grid, nil
}

// Grid возвращает построенную сетку или nil, если Build ещё не вызывался
func (h *HeightField) Grid() *ElevationGrid {
	return h.grid
}

// PaddedSize возвращает ближайший размер вида 2^n + 1, не меньший size
func PaddedSize(size int) int {
	if size <= 2 {
		return 2
	}
	n := 1
	for n < size-1 {
		n <<= 1
	}
	return n + 1
}

func (h *HeightField) perturb(r float64) float64 {
	return (h.rng.Float64()*2 - 1) * r * (h.params.MaxHeight - h.params.MinHeight)
}

func (h *HeightField) randomHeight() float64 {
	return h.params.MinHeight + h.rng.Float64()*(h.params.MaxHeight-h.params.MinHeight)
}

func (h *HeightField) diamondSquare(size int) *ElevationGrid {
	cells := h.fill(PaddedSize(size))

	grid := &ElevationGrid{
		size:      size,
		minHeight: h.params.MinHeight,
		maxHeight: h.params.MaxHeight,
		values:    make([]float64, size*size),
	}
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			v, ok := cells.get(i, j)
			if !ok {
				v = h.params.MinHeight
			}
			grid.values[i*size+j] = clampFloat(v, h.params.MinHeight, h.params.MaxHeight)
		}
	}
	return grid
}

// fill заполняет рабочую сетку стороны actual = 2^n + 1
func (h *HeightField) fill(actual int) *scratch {
	cells := newScratch(actual)

	last := actual - 1
	cells.set(0, 0, h.randomHeight())
	cells.set(0, last, h.randomHeight())
	cells.set(last, 0, h.randomHeight())
	cells.set(last, last, h.randomHeight())

	r := h.params.Roughness
	for step := last; step > 1; step /= 2 {
		half := step / 2

		// Diamond: центр каждого квадрата получает среднее четырёх углов
		for y := half; y < actual; y += step {
			for x := half; x < actual; x += step {
				sum, count := 0.0, 0
				for _, d := range [4][2]int{{-half, -half}, {-half, half}, {half, -half}, {half, half}} {
					if v, ok := cells.get(y+d[0], x+d[1]); ok {
						sum += v
						count++
					}
				}
				if count > 0 {
					cells.set(y, x, sum/float64(count)+h.perturb(r))
				}
			}
		}

		// Square: каждая середина ребра ровно один раз; на границе соседей меньше четырёх
		for y := 0; y < actual; y += half {
			for x := (y + half) % step; x < actual; x += step {
				sum, count := 0.0, 0
				for _, d := range [4][2]int{{-half, 0}, {half, 0}, {0, -half}, {0, half}} {
					if v, ok := cells.get(y+d[0], x+d[1]); ok {
						sum += v
						count++
					}
				}
				if count > 0 {
					cells.set(y, x, sum/float64(count)+h.perturb(r))
				}
			}
		}

		r *= 0.5
	}
	return cells
}

// scratch: плотная рабочая сетка; NaN означает «ячейка ещё не записана»
type scratch struct {
	size   int
	values []float64
}

func newScratch(size int) *scratch {
	values := make([]float64, size*size)
	for i := range values {
		values[i] = math.NaN()
	}
	return &scratch{size: size, values: values}
}

func (s *scratch) get(i, j int) (float64, bool) {
	if i < 0 || j < 0 || i >= s.size || j >= s.size {
		return 0, false
	}
	v := s.values[i*s.size+j]
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func (s *scratch) set(i, j int, v float64) {
	s.values[i*s.size+j] = v
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
