package terrain

import "math"

// ElevationGrid: квадратная сетка высот, по одной на целую колонку в [-size/2, size/2).
// После построения не изменяется.
type ElevationGrid struct {
	size      int
	minHeight float64
	maxHeight float64
	values    []float64
}

// NewElevationGrid создаёт сетку из готовых значений (значения ограничиваются диапазоном)
func NewElevationGrid(size int, minHeight, maxHeight float64, values []float64) *ElevationGrid {
	grid := &ElevationGrid{
		size:      size,
		minHeight: minHeight,
		maxHeight: maxHeight,
		values:    make([]float64, size*size),
	}
	for i := range grid.values {
		v := minHeight
		if i < len(values) {
			v = values[i]
		}
		grid.values[i] = clampFloat(v, minHeight, maxHeight)
	}
	return grid
}

// Size возвращает сторону сетки
func (g *ElevationGrid) Size() int {
	return g.size
}

// MinHeight возвращает нижнюю границу высот
func (g *ElevationGrid) MinHeight() float64 { return g.minHeight }

// MaxHeight возвращает верхнюю границу высот
func (g *ElevationGrid) MaxHeight() float64 { return g.maxHeight }

// At возвращает высоту по индексу; индексы за пределами сетки прижимаются к краю
func (g *ElevationGrid) At(i, j int) float64 {
	i = clampInt(i, 0, g.size-1)
	j = clampInt(j, 0, g.size-1)
	return g.values[i*g.size+j]
}

// HeightAt возвращает высоту для мировых координат колонки
func (g *ElevationGrid) HeightAt(x, z float64) float64 {
	half := float64(g.size / 2)
	return g.At(int(math.Floor(x+half)), int(math.Floor(z+half)))
}

// Values возвращает копию значений в порядке строк
func (g *ElevationGrid) Values() []float64 {
	out := make([]float64, len(g.values))
	copy(out, g.values)
	return out
}

// Origin возвращает минимальную мировую координату колонки
func (g *ElevationGrid) Origin() int {
	return -(g.size / 2)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
