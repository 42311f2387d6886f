// Package logger provides the process-wide structured logger used by every engine package.
package logger

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var (
	once      sync.Once
	singleton *log.Logger
)

func get() *log.Logger {
	once.Do(func() {
		singleton = log.NewWithOptions(os.Stderr, log.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          "oxy",
			Level:           log.InfoLevel,
		})
	})
	return singleton
}

// Logger returns the shared logger instance.
//
// Returns:
//   - *log.Logger: the process logger
func Logger() *log.Logger {
	return get()
}

// With returns a child logger that prepends the given key/value pairs to every entry.
//
// Parameters:
//   - keyvals: alternating keys and values
//
// Returns:
//   - *log.Logger: the child logger
func With(keyvals ...any) *log.Logger {
	return get().With(keyvals...)
}

// SetLevel parses and applies a level name ("debug", "info", "warn", "error", "fatal").
//
// Parameters:
//   - level: the level name
//
// Returns:
//   - error: an error if the level name is not recognized
func SetLevel(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	get().SetLevel(lvl)
	return nil
}

// SetOutput redirects the shared logger.
//
// Parameters:
//   - w: the new destination
func SetOutput(w io.Writer) {
	get().SetOutput(w)
}

func Debug(msg string, keyvals ...any) { get().Helper(); get().Debug(msg, keyvals...) }
func Info(msg string, keyvals ...any)  { get().Helper(); get().Info(msg, keyvals...) }
func Warn(msg string, keyvals ...any)  { get().Helper(); get().Warn(msg, keyvals...) }
func Error(msg string, keyvals ...any) { get().Helper(); get().Error(msg, keyvals...) }
