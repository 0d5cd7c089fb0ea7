package voxel

import "math"

// Voxel представляет единицу результата генерации: позиция колонки X/Z, уровень Y (центр k+0.5),
// тип материала, цвет и флаг прозрачности.
type Voxel struct {
	X           int     `json:"x"`
	Y           float64 `json:"y"`
	Z           int     `json:"z"`
	Type        string  `json:"type"`
	Color       string  `json:"color"`
	Transparent bool    `json:"transparent"`
}

// Level возвращает целый индекс уровня k для Y = k + 0.5
func (v Voxel) Level() int {
	return int(math.Floor(v.Y))
}

// IsCentered проверяет соглашение о центрах вокселей (Y = k + 0.5, k >= 0)
func IsCentered(y float64) bool {
	return y >= 0.5 && y-math.Floor(y) == 0.5
}

// CountByType подсчитывает воксели по типу материала
func CountByType(voxels []Voxel) map[string]int {
	counts := make(map[string]int)
	for _, v := range voxels {
		counts[v.Type]++
	}
	return counts
}
