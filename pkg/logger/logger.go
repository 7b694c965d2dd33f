// Package logger provides leveled logging for the server and client
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fatih/color"
)

// LogLevel represents logging severity
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

var levelColors = map[LogLevel]*color.Color{
	DEBUG: color.New(color.FgWhite),
	INFO:  color.New(color.FgGreen),
	WARN:  color.New(color.FgYellow),
	ERROR: color.New(color.FgRed, color.Bold),
}

// Logger is a named leveled logger writing to stdout and optionally a file
type Logger struct {
	name string
	file *os.File
	mu   sync.Mutex
}

var (
	globalLevel   = INFO
	globalLevelMu sync.RWMutex

	// Server is the logger used by server-side code
	Server = &Logger{name: "SERVER"}
	// Client is the logger used by client-side code
	Client = &Logger{name: "CLIENT"}
)

// SetGlobalLogLevel sets the minimum level emitted by all loggers
func SetGlobalLogLevel(level LogLevel) {
	globalLevelMu.Lock()
	globalLevel = level
	globalLevelMu.Unlock()
}

// InitializeFileLogging points both loggers at date-stamped files in dir
func InitializeFileLogging(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	date := time.Now().Format("2006-01-02")
	if err := Server.SetFile(filepath.Join(dir, fmt.Sprintf("server_%s.log", date))); err != nil {
		return err
	}
	return Client.SetFile(filepath.Join(dir, fmt.Sprintf("client_%s.log", date)))
}

// SetFile sets the file the logger writes to in addition to stdout
func (l *Logger) SetFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	l.mu.Lock()
	if l.file != nil {
		l.file.Close()
	}
	l.file = f
	l.mu.Unlock()
	return nil
}

// Close releases the log file if one is set
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
}

// Debug logs at DEBUG level
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(DEBUG, format, args...)
}

// Info logs at INFO level
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(INFO, format, args...)
}

// Warn logs at WARN level
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(WARN, format, args...)
}

// Error logs at ERROR level
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(ERROR, format, args...)
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	globalLevelMu.RLock()
	min := globalLevel
	globalLevelMu.RUnlock()
	if level < min {
		return
	}

	timestamp := time.Now().Format("15:04:05")
	message := fmt.Sprintf(format, args...)

	l.mu.Lock()
	defer l.mu.Unlock()

	tag := levelColors[level].Sprintf("[%s]", levelNames[level])
	fmt.Printf("[%s] %s [%s] %s\n", timestamp, tag, l.name, message)

	if l.file != nil {
		fmt.Fprintf(l.file, "[%s] [%s] [%s] %s\n", timestamp, levelNames[level], l.name, message)
	}
}
