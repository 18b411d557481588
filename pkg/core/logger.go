// Package core holds the process-wide plumbing shared by the artifact
// packages: the logger contract and its stock implementations.
package core

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Logger is the interface for logging in the SDK.
// Implement this interface to route messages into another logger (e.g., logrus, zap).
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// LogLevel represents the logging level.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelSilent
)

var levelNames = [...]string{
	LogLevelDebug:  "debug",
	LogLevelInfo:   "info",
	LogLevelWarn:   "warn",
	LogLevelError:  "error",
	LogLevelSilent: "silent",
}

// String returns the lowercase name of the level.
func (l LogLevel) String() string {
	if l < LogLevelDebug || l > LogLevelSilent {
		return levelNames[LogLevelSilent]
	}
	return levelNames[l]
}

// ParseLogLevel maps a level name from configuration to a LogLevel.
// Unknown names fall back to info.
func ParseLogLevel(s string) LogLevel {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "warning":
		return LogLevelWarn
	case "off", "none":
		return LogLevelSilent
	}
	for lvl, n := range levelNames {
		if n == name {
			return LogLevel(lvl)
		}
	}
	return LogLevelInfo
}

// DefaultLogger writes "[prefix] [LEVEL] message" lines through a
// standard library logger. It is safe for concurrent use.
type DefaultLogger struct {
	mu     sync.RWMutex
	level  LogLevel
	prefix string
	out    *log.Logger
}

// NewDefaultLogger creates a logger writing to stderr.
func NewDefaultLogger(prefix string, level LogLevel) *DefaultLogger {
	return &DefaultLogger{
		level:  level,
		prefix: prefix,
		out:    log.New(os.Stderr, "", log.LstdFlags),
	}
}

// SetOutput sets the output writer.
func (l *DefaultLogger) SetOutput(w io.Writer) {
	l.out.SetOutput(w)
}

// SetLevel sets the log level.
func (l *DefaultLogger) SetLevel(level LogLevel) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

// Enabled reports whether messages at level are written.
func (l *DefaultLogger) Enabled(level LogLevel) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return level < LogLevelSilent && level >= l.level
}

func (l *DefaultLogger) Debug(format string, args ...interface{}) {
	l.logf(LogLevelDebug, format, args)
}

func (l *DefaultLogger) Info(format string, args ...interface{}) {
	l.logf(LogLevelInfo, format, args)
}

func (l *DefaultLogger) Warn(format string, args ...interface{}) {
	l.logf(LogLevelWarn, format, args)
}

func (l *DefaultLogger) Error(format string, args ...interface{}) {
	l.logf(LogLevelError, format, args)
}

func (l *DefaultLogger) logf(level LogLevel, format string, args []interface{}) {
	if !l.Enabled(level) {
		return
	}
	var b strings.Builder
	if l.prefix != "" {
		b.WriteString("[" + l.prefix + "] ")
	}
	b.WriteString("[" + strings.ToUpper(level.String()) + "] ")
	fmt.Fprintf(&b, format, args...)
	l.out.Print(b.String())
}

// NopLogger is a no-op logger that discards all messages.
type NopLogger struct{}

func (l *NopLogger) Debug(format string, args ...interface{}) {}
func (l *NopLogger) Info(format string, args ...interface{})  {}
func (l *NopLogger) Warn(format string, args ...interface{})  {}
func (l *NopLogger) Error(format string, args ...interface{}) {}

// PrintfLogger prints every message as one line, without a level tag or
// timestamp. Embedders use it to forward SDK messages into their own
// output stream.
type PrintfLogger struct {
	prefix string
	out    io.Writer
}

// NewPrintfLogger creates a printf logger writing to w, or stdout when w
// is nil.
func NewPrintfLogger(prefix string, w io.Writer) *PrintfLogger {
	if w == nil {
		w = os.Stdout
	}
	return &PrintfLogger{prefix: prefix, out: w}
}

func (l *PrintfLogger) Debug(format string, args ...interface{}) { l.print(format, args) }
func (l *PrintfLogger) Info(format string, args ...interface{})  { l.print(format, args) }
func (l *PrintfLogger) Warn(format string, args ...interface{})  { l.print(format, args) }
func (l *PrintfLogger) Error(format string, args ...interface{}) { l.print(format, args) }

func (l *PrintfLogger) print(format string, args []interface{}) {
	line := fmt.Sprintf(format, args...)
	if l.prefix != "" {
		line = l.prefix + ": " + line
	}
	fmt.Fprintln(l.out, line)
}

var (
	defaultLogger   Logger = &NopLogger{}
	defaultLoggerMu sync.RWMutex
)

// SetDefaultLogger sets the global default logger. Passing nil restores the no-op logger.
func SetDefaultLogger(logger Logger) {
	if logger == nil {
		logger = &NopLogger{}
	}
	defaultLoggerMu.Lock()
	defaultLogger = logger
	defaultLoggerMu.Unlock()
}

// GetDefaultLogger returns the global default logger.
func GetDefaultLogger() Logger {
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}

// LoggerFromVerbose returns a debug-level DefaultLogger when verbose is set,
// otherwise a NopLogger.
func LoggerFromVerbose(prefix string, verbose bool) Logger {
	if verbose {
		return NewDefaultLogger(prefix, LogLevelDebug)
	}
	return &NopLogger{}
}

// LoggerForLevel returns a DefaultLogger at level, or a NopLogger when the
// level is silent.
func LoggerForLevel(prefix string, level LogLevel) Logger {
	if level >= LogLevelSilent {
		return &NopLogger{}
	}
	return NewDefaultLogger(prefix, level)
}

var (
	_ Logger = (*DefaultLogger)(nil)
	_ Logger = (*NopLogger)(nil)
	_ Logger = (*PrintfLogger)(nil)
)
