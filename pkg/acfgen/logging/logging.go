// Package logging provides component loggers for acfgen with a rotating file
// sink and an optional console sink on stderr.
//
// Basic usage:
//
//	cfg := logging.Config{
//	    Level:        "info",
//	    Path:         logging.DefaultLogPath(),
//	    ConsoleLevel: "info",
//	}
//	if err := logging.Init(cfg); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Close()
//
//	logger := logging.Get("steamcmd")
//	logger.Info("priming app info cache", "apps", 2)
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Level represents a logging level.
type Level int

// Log levels from least to most severe.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

func (l Level) toCharmLevel() log.Level {
	switch l {
	case LevelDebug:
		return log.DebugLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// ErrInvalidLevel is returned when an invalid log level string is provided.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses a string into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
	}
}

// Config configures the logging system.
type Config struct {
	// Level is the default file log level (debug, info, warn, error).
	Level string

	// Path is the log file path. Empty uses DefaultLogPath().
	Path string

	// Rotation configures log file rotation.
	Rotation RotationConfig

	// Components maps component names to their log levels.
	Components map[string]string

	// ConsoleLevel enables console output at the given level.
	// Empty disables console output.
	ConsoleLevel string

	// Console overrides the console destination. Nil means os.Stderr.
	Console io.Writer
}

// Logger wraps charmbracelet/log with component identification.
type Logger struct {
	file      *log.Logger
	console   *log.Logger
	component string
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.log(LevelDebug, msg, args...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, args ...interface{}) {
	l.log(LevelInfo, msg, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.log(LevelWarn, msg, args...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...interface{}) {
	l.log(LevelError, msg, args...)
}

// With returns a new logger with additional context.
func (l *Logger) With(args ...interface{}) *Logger {
	cur := l.current()
	child := &Logger{
		file:      cur.file.With(args...),
		component: l.component,
	}
	if cur.console != nil {
		child.console = cur.console.With(args...)
	}
	return child
}

func (l *Logger) log(level Level, msg string, args ...interface{}) {
	cur := l.current()
	logTo(cur.file, level, msg, args...)
	if cur.console != nil {
		logTo(cur.console, level, msg, args...)
	}
}

// current returns the logger built by the latest Init for this component.
// Package-level loggers are created before Init runs, so they resolve their
// sinks on every call.
func (l *Logger) current() *Logger {
	if l.file != nil {
		return l
	}
	globalState.mu.RLock()
	defer globalState.mu.RUnlock()
	if sink, ok := globalState.sinks[l.component]; ok {
		return sink
	}
	return discardLogger(l.component)
}

func logTo(logger *log.Logger, level Level, msg string, args ...interface{}) {
	switch level {
	case LevelDebug:
		logger.Debug(msg, args...)
	case LevelInfo:
		logger.Info(msg, args...)
	case LevelWarn:
		logger.Warn(msg, args...)
	case LevelError:
		logger.Error(msg, args...)
	}
}

type state struct {
	mu          sync.RWMutex
	initialized bool
	writer      *RotatingWriter
	level       Level
	components  map[string]Level
	sinks       map[string]*Logger
	handles     map[string]*Logger

	consoleEnabled bool
	consoleLevel   Level
	console        io.Writer
}

var globalState = &state{
	components: make(map[string]Level),
	sinks:      make(map[string]*Logger),
	handles:    make(map[string]*Logger),
}

// Init initializes the logging system with the given configuration.
// Before Init is called, all loggers are silent.
func Init(cfg Config) error {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if globalState.initialized && globalState.writer != nil {
		if err := globalState.writer.Close(); err != nil {
			return fmt.Errorf("closing existing writer: %w", err)
		}
		globalState.writer = nil
	}
	globalState.initialized = false
	globalState.components = make(map[string]Level)
	globalState.sinks = make(map[string]*Logger)

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}

	components := make(map[string]Level, len(cfg.Components))
	for comp, lvl := range cfg.Components {
		parsed, err := ParseLevel(lvl)
		if err != nil {
			return fmt.Errorf("parsing level for component %s: %w", comp, err)
		}
		components[comp] = parsed
	}

	consoleEnabled := false
	var consoleLevel Level
	if cfg.ConsoleLevel != "" {
		consoleLevel, err = ParseLevel(cfg.ConsoleLevel)
		if err != nil {
			return fmt.Errorf("parsing console level: %w", err)
		}
		consoleEnabled = true
	}

	path := cfg.Path
	if path == "" {
		path = DefaultLogPath()
	}
	writer, err := NewRotatingWriter(path, cfg.Rotation)
	if err != nil {
		return fmt.Errorf("creating log writer: %w", err)
	}

	globalState.writer = writer
	globalState.level = level
	globalState.components = components
	globalState.consoleEnabled = consoleEnabled
	globalState.consoleLevel = consoleLevel
	globalState.console = cfg.Console
	if globalState.console == nil {
		globalState.console = os.Stderr
	}
	globalState.initialized = true

	for component := range globalState.handles {
		globalState.sinks[component] = createLogger(component)
	}
	return nil
}

// Get returns the logger for component. The same handle is returned for
// repeated calls, and it follows later Init and Close calls.
func Get(component string) *Logger {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if handle, ok := globalState.handles[component]; ok {
		return handle
	}
	handle := &Logger{component: component}
	globalState.handles[component] = handle
	if globalState.initialized {
		globalState.sinks[component] = createLogger(component)
	}
	return handle
}

// createLogger builds the sinks for component.
// Must be called with globalState.mu held.
func createLogger(component string) *Logger {
	level := globalState.level
	if compLevel, ok := globalState.components[component]; ok {
		level = compLevel
	}

	logger := &Logger{
		file: log.NewWithOptions(globalState.writer, log.Options{
			Level:           level.toCharmLevel(),
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          component,
		}),
		component: component,
	}

	if globalState.consoleEnabled {
		logger.console = log.NewWithOptions(globalState.console, log.Options{
			Level:           globalState.consoleLevel.toCharmLevel(),
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
			Prefix:          component,
		})
	}
	return logger
}

func discardLogger(component string) *Logger {
	return &Logger{
		file:      log.NewWithOptions(io.Discard, log.Options{Prefix: component}),
		component: component,
	}
}

// Close flushes and closes the log file. Loggers become silent afterwards.
func Close() error {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if !globalState.initialized {
		return nil
	}

	globalState.initialized = false
	globalState.sinks = make(map[string]*Logger)
	globalState.components = make(map[string]Level)

	if globalState.writer != nil {
		err := globalState.writer.Close()
		globalState.writer = nil
		if err != nil {
			return fmt.Errorf("closing log writer: %w", err)
		}
	}
	return nil
}

// DefaultLogPath returns $XDG_STATE_HOME/acfgen/acfgen.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "acfgen", "acfgen.log")
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Level:        "info",
		Path:         DefaultLogPath(),
		Rotation:     DefaultRotationConfig(),
		ConsoleLevel: "info",
	}
}
