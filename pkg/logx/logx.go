// Package logx provides leveled, component-tagged logging for the session core.
package logx

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

// Logger writes timestamped, component-tagged log lines to stderr.
type Logger struct {
	component string
	logger    *log.Logger
}

// Level identifies the severity of a log line.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var (
	debugEnabled bool
	debugMu      sync.RWMutex
)

func init() { //nolint:gochecknoinits // env var initialization
	if v := os.Getenv("DEBUG"); v == "1" || strings.EqualFold(v, "true") {
		debugEnabled = true
	}
}

// SetDebug toggles debug logging globally.
func SetDebug(enabled bool) {
	debugMu.Lock()
	defer debugMu.Unlock()
	debugEnabled = enabled
}

// IsDebugEnabled reports whether debug logging is on.
func IsDebugEnabled() bool {
	debugMu.RLock()
	defer debugMu.RUnlock()
	return debugEnabled
}

// NewLogger returns a logger tagged with the given component name.
func NewLogger(component string) *Logger {
	return &Logger{
		component: component,
		logger:    log.New(os.Stderr, "", log.LstdFlags|log.LUTC), // stderr keeps stdout free for CLI output
	}
}

func (l *Logger) log(level Level, format string, args ...any) {
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("[%s] %s: %s", l.component, level, message)
}

func (l *Logger) Debug(format string, args ...any) {
	if !IsDebugEnabled() {
		return
	}
	l.log(LevelDebug, format, args...)
}

func (l *Logger) Info(format string, args ...any) {
	l.log(LevelInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.log(LevelWarn, format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.log(LevelError, format, args...)
}

// Component returns the component tag this logger was created with.
func (l *Logger) Component() string {
	return l.component
}

var defaultLogger = NewLogger("system")

func Debugf(format string, args ...any) { defaultLogger.Debug(format, args...) }
func Infof(format string, args ...any)  { defaultLogger.Info(format, args...) }
func Warnf(format string, args ...any)  { defaultLogger.Warn(format, args...) }

// Errorf logs and returns the formatted error.
// Use this when you need both logging and error returning:
//
//	err := logx.Errorf("setup failed: %w", err)
func Errorf(format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	defaultLogger.Error("%s", err.Error())
	return err
}

// Wrap logs msg + ": " + err.Error() and returns fmt.Errorf("%s: %w", msg, err).
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	wrapped := fmt.Errorf("%s: %w", msg, err)
	defaultLogger.Error("%s", wrapped.Error())
	return wrapped
}
