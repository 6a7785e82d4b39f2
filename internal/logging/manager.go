package logging

import (
	"fmt"
	"os"
	"sort"
	"sync"
)

// Компоненты симуляции с отдельными файлами логов
const (
	ComponentGame    = "game"
	ComponentWorld   = "world"
	ComponentAI      = "ai"
	ComponentServer  = "server"
	ComponentStorage = "storage"
)

// LoggerManager хранит файловые логгеры компонентов и их уровни
type LoggerManager struct {
	mu        sync.Mutex
	loggers   map[string]*Logger
	overrides map[string]LogLevel
}

var (
	managerOnce sync.Once
	manager     *LoggerManager
)

// GetLoggerManager возвращает общий менеджер процесса
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		manager = &LoggerManager{
			loggers:   make(map[string]*Logger),
			overrides: make(map[string]LogLevel),
		}
	})
	return manager
}

// GetLogger отдаёт логгер компонента; первый вызов открывает его файл
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if l, ok := lm.loggers[component]; ok {
		return l, nil
	}
	l, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("logger %s: %w", component, err)
	}
	if level, ok := lm.overrides[component]; ok {
		l.minConsoleLevel = level
	}
	lm.loggers[component] = l
	return l, nil
}

// MustGetLogger не падает: без файла пишет только в stdout
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	l, err := lm.GetLogger(component)
	if err == nil {
		return l
	}
	level := INFO
	lm.mu.Lock()
	if o, ok := lm.overrides[component]; ok {
		level = o
	}
	lm.mu.Unlock()

	fallback := NewWriterLogger(component, os.Stdout, level)
	fallback.Warn("⚠️ файловый логгер недоступен: %v", err)
	return fallback
}

// SetLevels задаёт консольные уровни по компонентам.
// Уже открытые логгеры меняются сразу, новые получат уровень при создании.
func (lm *LoggerManager) SetLevels(levels map[string]LogLevel) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	for component, level := range levels {
		lm.overrides[component] = level
		if l, ok := lm.loggers[component]; ok {
			l.minConsoleLevel = level
		}
	}
}

// ListComponents возвращает открытые компоненты по алфавиту
func (lm *LoggerManager) ListComponents() []string {
	lm.mu.Lock()
	names := make([]string, 0, len(lm.loggers))
	for name := range lm.loggers {
		names = append(names, name)
	}
	lm.mu.Unlock()
	sort.Strings(names)
	return names
}

// CloseAll закрывает файлы всех компонентов; уровни сохраняются
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	loggers := lm.loggers
	lm.loggers = make(map[string]*Logger)
	lm.mu.Unlock()

	var firstErr error
	for name, l := range loggers {
		if err := l.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close logger %s: %w", name, err)
		}
	}
	return firstErr
}

func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().MustGetLogger(component)
}

func GetGameLogger() *Logger    { return GetComponentLogger(ComponentGame) }
func GetWorldLogger() *Logger   { return GetComponentLogger(ComponentWorld) }
func GetAILogger() *Logger      { return GetComponentLogger(ComponentAI) }
func GetServerLogger() *Logger  { return GetComponentLogger(ComponentServer) }
func GetStorageLogger() *Logger { return GetComponentLogger(ComponentStorage) }
