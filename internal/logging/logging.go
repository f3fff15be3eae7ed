// ABOUTME: Logger construction for the player
// ABOUTME: Maps level names and routes output to the log file and stdout
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// ErrUnknownLevel is returned for level names other than none, error, warn, info and debug
var ErrUnknownLevel = errors.New("unexpected log level")

// Options configures New
type Options struct {
	// Level is one of "none", "error", "warn", "info", "debug"
	Level string

	// File is appended to when set
	File string

	// Console also writes to stdout; disabled while the TUI owns the terminal
	Console bool
}

// New builds a logger. The returned closer releases the log file and is never nil.
func New(opts Options) (*log.Logger, io.Closer, error) {
	if opts.Level == "none" {
		return log.New(io.Discard), io.NopCloser(nil), nil
	}
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	var writers []io.Writer
	var closer io.Closer = io.NopCloser(nil)
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
		if err != nil {
			return nil, nil, fmt.Errorf("error opening log file: %w", err)
		}
		writers = append(writers, f)
		closer = f
	}
	if opts.Console || len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	logger := log.NewWithOptions(io.MultiWriter(writers...), log.Options{
		Level:           level,
		ReportTimestamp: true,
	})
	return logger, closer, nil
}

// ParseLevel maps a level name to a log level
func ParseLevel(name string) (log.Level, error) {
	switch name {
	case "error":
		return log.ErrorLevel, nil
	case "warn":
		return log.WarnLevel, nil
	case "", "info":
		return log.InfoLevel, nil
	case "debug":
		return log.DebugLevel, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownLevel, name)
	}
}
