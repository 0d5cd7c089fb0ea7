package terrain

import (
	"math"

	"github.com/annel0/terragen/internal/material"
	"github.com/annel0/terragen/internal/noise"
	"github.com/annel0/terragen/internal/voxel"
)

// Значения по умолчанию для детализации колонок
const (
	DefaultGrassLevel      = 15.0
	DefaultDetailScale     = 0.03
	DefaultDetailAmplitude = 4.0
	DirtDepth              = 3.0
)

// ColumnParams задаёт композицию высоты колонки и пороги материалов
type ColumnParams struct {
	MinHeight       float64
	MaxHeight       float64
	GrassLevel      float64 // Выше: каменная поверхность
	DetailScale     float64 // Масштаб координат для шума
	DetailAmplitude float64 // Амплитуда шумовой добавки
	Octaves         int
	Persistence     float64
}

// ColumnBuilder превращает высоту колонки в вертикальный стек вокселей
type ColumnBuilder struct {
	grid    *ElevationGrid
	field   noise.Field
	catalog *material.Catalog
	params  ColumnParams
}

// NewColumnBuilder создаёт построитель колонок; все зависимости только читаются
func NewColumnBuilder(grid *ElevationGrid, field noise.Field, catalog *material.Catalog, params ColumnParams) *ColumnBuilder {
	return &ColumnBuilder{grid: grid, field: field, catalog: catalog, params: params}
}

// Height возвращает итоговую высоту колонки (центр верхнего вокселя, k + 0.5)
func (b *ColumnBuilder) Height(x, z int) float64 {
	fx, fz := float64(x), float64(z)
	detail := noise.Octaves(b.field, fx*b.params.DetailScale, fz*b.params.DetailScale, b.params.Octaves, b.params.Persistence)

	height := b.grid.HeightAt(fx, fz) + detail*b.params.DetailAmplitude
	height = math.Floor(height) + 0.5

	return clampFloat(height, b.params.MinHeight, b.params.MaxHeight)
}

// Column возвращает воксели колонки от y = 0.5 до итоговой высоты включительно
func (b *ColumnBuilder) Column(x, z int) ([]voxel.Voxel, float64, error) {
	h := b.Height(x, z)
	top := int(math.Floor(h))

	voxels := make([]voxel.Voxel, 0, top+1)
	for k := 0; k <= top; k++ {
		y := float64(k) + 0.5
		kind := Classify(y, h, b.params.GrassLevel)

		m, err := b.catalog.Lookup(kind)
		if err != nil {
			return nil, h, err
		}

		voxels = append(voxels, voxel.Voxel{
			X:           x,
			Y:           y,
			Z:           z,
			Type:        kind,
			Color:       m.Color,
			Transparent: m.Transparent,
		})
	}
	return voxels, h, nil
}

// Classify определяет материал уровня y в колонке высоты h
func Classify(y, h, grassLevel float64) string {
	switch {
	case y == h:
		if h > grassLevel {
			return material.Stone
		}
		return material.Grass
	case y > h-DirtDepth:
		return material.Dirt
	default:
		return material.Stone
	}
}
