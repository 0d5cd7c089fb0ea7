package vec

import "fmt"

// Vec2 представляет целочисленные координаты колонки на карте (X, Z мира хранятся как X, Y)
type Vec2 struct {
	X, Y int
}

// String возвращает координаты в виде "x:y", как в ключах хранилища
func (v Vec2) String() string {
	return fmt.Sprintf("%d:%d", v.X, v.Y)
}
