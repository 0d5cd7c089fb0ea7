package vegetation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Source отдаёт содержимое шаблона по имени
type Source interface {
	Load(ctx context.Context, name string) ([]byte, error)
}

// DirSource читает шаблоны из файлов директории
type DirSource struct {
	Dir string
}

// NewDirSource создаёт источник шаблонов в директории dir
func NewDirSource(dir string) *DirSource {
	return &DirSource{Dir: dir}
}

// Load читает файл шаблона; имена с путями за пределами директории отклоняются
func (s *DirSource) Load(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, fmt.Errorf("недопустимое имя шаблона %q", name)
	}
	return os.ReadFile(filepath.Join(s.Dir, name))
}

// StaticSource: источник шаблонов в памяти
type StaticSource map[string]string

// Load возвращает содержимое шаблона или os.ErrNotExist
func (s StaticSource) Load(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, ok := s[name]
	if !ok {
		return nil, fmt.Errorf("template %s: %w", name, os.ErrNotExist)
	}
	return []byte(content), nil
}
