package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/annel0/terragen/internal/logging"
	"github.com/dgraph-io/badger/v3"
)

const templatePrefix = "template:"

// ErrStoreClosed возвращается при обращении к закрытому хранилищу
var ErrStoreClosed = errors.New("хранилище не готово")

// TemplateStore хранит шаблоны растительности в BadgerDB.
// Значение хранит исходный текст шаблона (строки x,y,z,color) под ключом template:<name>.
type TemplateStore struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool
	logger  *logging.Logger
}

// NewTemplateStore открывает (или создаёт) хранилище шаблонов в dataPath
func NewTemplateStore(dataPath string) (*TemplateStore, error) {
	opts := badger.DefaultOptions(dataPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	return &TemplateStore{
		db:      db,
		dbPath:  dataPath,
		isReady: true,
		logger:  logging.GetStorageLogger(),
	}, nil
}

// Close закрывает хранилище
func (ts *TemplateStore) Close() error {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()

	if !ts.isReady {
		return nil
	}

	ts.isReady = false
	return ts.db.Close()
}

// Put сохраняет шаблон под именем name, перезаписывая прежний
func (ts *TemplateStore) Put(name string, data []byte) error {
	ts.mutex.RLock()
	defer ts.mutex.RUnlock()

	if !ts.isReady {
		return ErrStoreClosed
	}
	if name == "" {
		return errors.New("пустое имя шаблона")
	}

	err := ts.db.Update(func(txn *badger.Txn) error {
		return txn.Set(templateKey(name), data)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения шаблона %s в BadgerDB: %w", name, err)
	}
	return nil
}

// Load загружает шаблон по имени. Отсутствующий шаблон: ошибка, совместимая с os.ErrNotExist.
func (ts *TemplateStore) Load(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ts.mutex.RLock()
	defer ts.mutex.RUnlock()

	if !ts.isReady {
		return nil, ErrStoreClosed
	}

	var data []byte
	err := ts.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(templateKey(name))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})

	if err == badger.ErrKeyNotFound {
		return nil, fmt.Errorf("шаблон %s: %w", name, os.ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения шаблона %s из BadgerDB: %w", name, err)
	}
	return data, nil
}

// Names возвращает имена всех сохранённых шаблонов в алфавитном порядке
func (ts *TemplateStore) Names() ([]string, error) {
	ts.mutex.RLock()
	defer ts.mutex.RUnlock()

	if !ts.isReady {
		return nil, ErrStoreClosed
	}

	var names []string
	err := ts.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(templatePrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			names = append(names, strings.TrimPrefix(key, templatePrefix))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка перечисления шаблонов: %w", err)
	}

	sort.Strings(names)
	return names, nil
}

// ImportDir сохраняет все файлы *.txt из dir под их базовыми именами.
// Возвращает число импортированных шаблонов.
func (ts *TemplateStore) ImportDir(dir string) (int, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return 0, err
	}

	imported := 0
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return imported, fmt.Errorf("ошибка чтения %s: %w", path, err)
		}
		if err := ts.Put(filepath.Base(path), data); err != nil {
			return imported, err
		}
		imported++
		ts.logger.Debug("Импортирован шаблон %s (%d байт)", filepath.Base(path), len(data))
	}

	ts.logger.Info("Импортировано шаблонов: %d из %s", imported, dir)
	return imported, nil
}

func templateKey(name string) []byte {
	return []byte(templatePrefix + name)
}
