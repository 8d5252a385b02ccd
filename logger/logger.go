package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// LogLevel представляет уровень логирования
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// String возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel парсит строку в LogLevel
func ParseLogLevel(level string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO // по умолчанию INFO
	}
}

// IsValidLevel проверяет, что строка является известным уровнем логирования
func IsValidLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// Logger представляет логгер с уровнями.
// Дочерние логгеры (Named) разделяют уровень и вывод с родителем.
type Logger struct {
	core      *core
	component string
}

// core - общее состояние для логгера и всех его дочерних логгеров
type core struct {
	mu     sync.RWMutex
	level  LogLevel
	logger *log.Logger
}

// New создает новый логгер с указанным уровнем
func New(level LogLevel) *Logger {
	return NewWithWriter(level, os.Stdout)
}

// NewWithWriter создает логгер, пишущий в w
func NewWithWriter(level LogLevel, w io.Writer) *Logger {
	return &Logger{
		core: &core{
			level:  level,
			logger: log.New(w, "", log.LstdFlags),
		},
	}
}

// Named возвращает дочерний логгер, добавляющий имя компонента к каждому сообщению
func (l *Logger) Named(component string) *Logger {
	name := component
	if l.component != "" {
		name = l.component + "." + component
	}
	return &Logger{core: l.core, component: name}
}

// SetLevel устанавливает уровень логирования
func (l *Logger) SetLevel(level LogLevel) {
	l.core.mu.Lock()
	l.core.level = level
	l.core.mu.Unlock()
}

// GetLevel возвращает текущий уровень логирования
func (l *Logger) GetLevel() LogLevel {
	l.core.mu.RLock()
	defer l.core.mu.RUnlock()
	return l.core.level
}

// SetOutput перенаправляет вывод логгера
func (l *Logger) SetOutput(w io.Writer) {
	l.core.mu.Lock()
	l.core.logger.SetOutput(w)
	l.core.mu.Unlock()
}

// logf выводит сообщение с указанным уровнем
func (l *Logger) logf(level LogLevel, format string, args ...interface{}) {
	l.core.mu.RLock()
	defer l.core.mu.RUnlock()
	if level < l.core.level {
		return
	}
	prefix := fmt.Sprintf("[%s] ", level.String())
	if l.component != "" {
		prefix += "[" + l.component + "] "
	}
	l.core.logger.Printf(prefix+format, args...)
}

// Debug выводит отладочное сообщение
func (l *Logger) Debug(format string, args ...interface{}) {
	l.logf(DEBUG, format, args...)
}

// Info выводит информационное сообщение
func (l *Logger) Info(format string, args ...interface{}) {
	l.logf(INFO, format, args...)
}

// Warn выводит предупреждение
func (l *Logger) Warn(format string, args ...interface{}) {
	l.logf(WARN, format, args...)
}

// Error выводит сообщение об ошибке
func (l *Logger) Error(format string, args ...interface{}) {
	l.logf(ERROR, format, args...)
}

// Глобальный логгер
var globalLogger = New(INFO)

// Global возвращает глобальный логгер
func Global() *Logger {
	return globalLogger
}

// Named возвращает дочерний логгер глобального логгера
func Named(component string) *Logger {
	return globalLogger.Named(component)
}

// SetGlobalLevel устанавливает уровень для глобального логгера
func SetGlobalLevel(level LogLevel) {
	globalLogger.SetLevel(level)
}

// GetGlobalLevel возвращает уровень глобального логгера
func GetGlobalLevel() LogLevel {
	return globalLogger.GetLevel()
}

// SetGlobalOutput перенаправляет вывод глобального логгера
func SetGlobalOutput(w io.Writer) {
	globalLogger.SetOutput(w)
}

// Глобальные функции для удобства
func Debug(format string, args ...interface{}) {
	globalLogger.Debug(format, args...)
}

func Info(format string, args ...interface{}) {
	globalLogger.Info(format, args...)
}

func Warn(format string, args ...interface{}) {
	globalLogger.Warn(format, args...)
}

func Error(format string, args ...interface{}) {
	globalLogger.Error(format, args...)
}
