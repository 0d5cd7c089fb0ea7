package terrain

// SurfaceMap хранит итоговые высоты колонок после прохода по рельефу.
// Каждая строка записывается только своим воркером, поэтому блокировки не нужны.
type SurfaceMap struct {
	origin  int
	size    int
	heights []float64
}

// NewSurfaceMap создаёт карту поверхности для квадрата колонок [origin, origin+size)
func NewSurfaceMap(origin, size int) *SurfaceMap {
	return &SurfaceMap{origin: origin, size: size, heights: make([]float64, size*size)}
}

// Origin возвращает минимальную мировую координату колонки
func (s *SurfaceMap) Origin() int { return s.origin }

// Size возвращает сторону карты
func (s *SurfaceMap) Size() int { return s.size }

// Set записывает высоту колонки (x, z)
func (s *SurfaceMap) Set(x, z int, h float64) {
	s.heights[s.index(x, z)] = h
}

// Height возвращает высоту колонки; координаты вне карты прижимаются к краю
func (s *SurfaceMap) Height(x, z int) float64 {
	return s.heights[s.index(x, z)]
}

// MaxHeight возвращает максимальную высоту поверхности
func (s *SurfaceMap) MaxHeight() float64 {
	maxHeight := 0.0
	for _, h := range s.heights {
		if h > maxHeight {
			maxHeight = h
		}
	}
	return maxHeight
}

func (s *SurfaceMap) index(x, z int) int {
	i := clampInt(x-s.origin, 0, s.size-1)
	j := clampInt(z-s.origin, 0, s.size-1)
	return i*s.size + j
}
