package noise

import (
	"github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"
)

// PerlinField: шум на основе go-perlin
type PerlinField struct {
	noise *perlin.Perlin
	seed  int64
}

// NewPerlinField создаёт генератор шума Перлина с указанным сидом
func NewPerlinField(seed int64) *PerlinField {
	alpha := 2.0  // Сглаживание шума
	beta := 2.0   // Частота шума
	n := int32(3) // Количество октав
	return &PerlinField{
		noise: perlin.NewPerlin(alpha, beta, n, seed),
		seed:  seed,
	}
}

// Evaluate возвращает значение шума, ограниченное диапазоном [-1, 1]
func (p *PerlinField) Evaluate(x, y float64) float64 {
	return clamp(p.noise.Noise2D(x, y))
}

// Seed возвращает сид генератора
func (p *PerlinField) Seed() int64 {
	return p.seed
}

// SimplexField: шум OpenSimplex
type SimplexField struct {
	noise opensimplex.Noise
}

// NewSimplexField создаёт генератор OpenSimplex
func NewSimplexField(seed int64) *SimplexField {
	return &SimplexField{noise: opensimplex.New(seed)}
}

// Evaluate возвращает значение шума, ограниченное диапазоном [-1, 1]
func (s *SimplexField) Evaluate(x, y float64) float64 {
	return clamp(s.noise.Eval2(x, y))
}
