package logging

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// LoggerManager управляет логгерами отдельных компонентов генератора
type LoggerManager struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = &LoggerManager{
			loggers: make(map[string]*Logger),
		}
	})
	return globalManager
}

// GetLogger возвращает логгер компонента; первый запрос создаёт его под записью
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.RLock()
	logger := lm.loggers[component]
	lm.mu.RUnlock()
	if logger != nil {
		return logger, nil
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()
	if logger = lm.loggers[component]; logger == nil {
		created, err := NewLogger(component)
		if err != nil {
			return nil, fmt.Errorf("logger %s: %w", component, err)
		}
		lm.loggers[component] = created
		logger = created
	}
	return logger, nil
}

// MustGetLogger возвращает логгер или консольный fallback при ошибке
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	logger, err := lm.GetLogger(component)
	if err != nil {
		return &Logger{
			component:       component,
			consoleLogger:   defaultLogger.consoleLogger,
			minConsoleLevel: INFO,
			minFileLevel:    ERROR,
		}
	}
	return logger
}

// CloseAll закрывает файлы всех логгеров и очищает реестр.
// Ошибки закрытия объединяются, ни один файл не пропускается.
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	loggers := lm.loggers
	lm.loggers = make(map[string]*Logger)
	lm.mu.Unlock()

	var errs []error
	for _, component := range sortedKeys(loggers) {
		if err := loggers[component].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close logger %s: %w", component, err))
		}
	}
	return errors.Join(errs...)
}

// ListComponents возвращает отсортированный список зарегистрированных компонентов
func (lm *LoggerManager) ListComponents() []string {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return sortedKeys(lm.loggers)
}

func sortedKeys(loggers map[string]*Logger) []string {
	keys := make([]string, 0, len(loggers))
	for k := range loggers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetLogLevel устанавливает уровень логирования для компонента
func (lm *LoggerManager) SetLogLevel(component string, consoleLevel, fileLevel LogLevel) error {
	lm.mu.RLock()
	logger, exists := lm.loggers[component]
	lm.mu.RUnlock()

	if !exists {
		return fmt.Errorf("logger for component %s not found", component)
	}

	logger.mu.Lock()
	logger.minConsoleLevel = consoleLevel
	logger.minFileLevel = fileLevel
	logger.mu.Unlock()
	return nil
}

// Удобные функции для получения логгеров
func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().MustGetLogger(component)
}

func GetTerrainLogger() *Logger {
	return GetComponentLogger("terrain")
}

func GetVegetationLogger() *Logger {
	return GetComponentLogger("vegetation")
}

func GetMapgenLogger() *Logger {
	return GetComponentLogger("mapgen")
}

func GetStorageLogger() *Logger {
	return GetComponentLogger("storage")
}
