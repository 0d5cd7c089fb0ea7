package vegetation

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultFragmentType: тип вокселей растительности, если шаблон его не задаёт
const DefaultFragmentType = "tree"

// ErrEmptyTemplate возвращается для шаблона без единой записи
var ErrEmptyTemplate = errors.New("empty template")

// Fragment: один воксель шаблона в локальных координатах
type Fragment struct {
	X     float64
	Y     float64
	Z     float64
	Color string
	Type  string
}

// Template: именованный неизменяемый набор фрагментов
type Template struct {
	Name      string
	Fragments []Fragment
}

// ResourceLoadError: шаблон не удалось загрузить; размещение пропускается
type ResourceLoadError struct {
	Template string
	Err      error
}

func (e *ResourceLoadError) Error() string {
	return fmt.Sprintf("template %s: %v", e.Template, e.Err)
}

func (e *ResourceLoadError) Unwrap() error {
	return e.Err
}

// ParseTemplate разбирает строки вида "x,y,z,color"; пустые строки пропускаются
func ParseTemplate(name string, data []byte, fragmentType string) (*Template, error) {
	if fragmentType == "" {
		fragmentType = DefaultFragmentType
	}

	tpl := &Template{Name: name}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		parts := strings.Split(text, ",")
		if len(parts) != 4 {
			return nil, fmt.Errorf("%s:%d: ожидалось 4 поля, получено %d", name, line, len(parts))
		}

		var coords [3]float64
		for i := 0; i < 3; i++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", name, line, err)
			}
			coords[i] = v
		}

		color := strings.TrimSpace(parts[3])
		if color == "" {
			return nil, fmt.Errorf("%s:%d: пустой цвет", name, line)
		}

		tpl.Fragments = append(tpl.Fragments, Fragment{
			X:     coords[0],
			Y:     coords[1],
			Z:     coords[2],
			Color: color,
			Type:  fragmentType,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	if len(tpl.Fragments) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyTemplate)
	}
	return tpl, nil
}
