package noise

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

// TableSize: количество градиентов в таблице
const TableSize = 256

// Поддерживаемые реализации шума
const (
	BackendGradient = "gradient"
	BackendPerlin   = "perlin"
	BackendSimplex  = "simplex"
)

// Field: когерентный 2D шум со значениями в [-1, 1]
type Field interface {
	Evaluate(x, y float64) float64
}

// GradientField: шум Перлина над таблицей случайных единичных градиентов.
// Таблица заполняется один раз при создании и дальше только читается.
type GradientField struct {
	gradients [TableSize]mgl64.Vec2
}

// NewGradientField создаёт поле шума; направления градиентов берутся из rng
func NewGradientField(rng *rand.Rand) *GradientField {
	f := &GradientField{}
	for i := range f.gradients {
		angle := rng.Float64() * math.Pi * 2
		f.gradients[i] = mgl64.Vec2{math.Cos(angle), math.Sin(angle)}
	}
	return f
}

// Gradient возвращает градиент по индексу (индекс берётся по модулю размера таблицы)
func (f *GradientField) Gradient(i int) mgl64.Vec2 {
	return f.gradients[i&(TableSize-1)]
}

// Evaluate вычисляет значение шума в точке (x, y)
func (f *GradientField) Evaluate(x, y float64) float64 {
	x0 := math.Floor(x)
	y0 := math.Floor(y)

	xi := int(x0) & (TableSize - 1)
	yi := int(y0) & (TableSize - 1)

	// Координаты внутри ячейки
	xf := x - x0
	yf := y - y0

	g00 := f.gradients[(xi+yi)%TableSize]
	g10 := f.gradients[(xi+1+yi)%TableSize]
	g01 := f.gradients[(xi+yi+1)%TableSize]
	g11 := f.gradients[(xi+1+yi+1)%TableSize]

	n00 := g00.Dot(mgl64.Vec2{xf, yf})
	n10 := g10.Dot(mgl64.Vec2{xf - 1, yf})
	n01 := g01.Dot(mgl64.Vec2{xf, yf - 1})
	n11 := g11.Dot(mgl64.Vec2{xf - 1, yf - 1})

	u := Fade(xf)
	v := Fade(yf)

	return clamp(Lerp(Lerp(n00, n10, u), Lerp(n01, n11, u), v))
}

// Fade: кривая сглаживания 6t^5 - 15t^4 + 10t^3
func Fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

// Lerp: линейная интерполяция
func Lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

// Octaves складывает octaves выборок с удвоением частоты и затуханием амплитуды,
// нормируя на сумму амплитуд.
func Octaves(f Field, x, y float64, octaves int, persistence float64) float64 {
	if octaves < 1 {
		octaves = 1
	}

	total := 0.0
	frequency := 1.0
	amplitude := 1.0
	maxValue := 0.0

	for i := 0; i < octaves; i++ {
		total += f.Evaluate(x*frequency, y*frequency) * amplitude
		maxValue += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	if maxValue == 0 {
		return 0
	}
	return total / maxValue
}

// New создаёт поле шума выбранной реализации. Сид библиотечных реализаций берётся из rng,
// поэтому один и тот же rng даёт одинаковый шум для любого backend.
func New(backend string, rng *rand.Rand) (Field, error) {
	switch backend {
	case "", BackendGradient:
		return NewGradientField(rng), nil
	case BackendPerlin:
		return NewPerlinField(rng.Int63()), nil
	case BackendSimplex:
		return NewSimplexField(rng.Int63()), nil
	default:
		return nil, fmt.Errorf("unknown noise backend %q", backend)
	}
}

func clamp(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
