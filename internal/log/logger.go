// Package log provides the structured logger used across cfquery.
// Level, prefix, and destination come from environment variables so
// the CLI surface stays free of logging flags.
package log

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// LoggerCloser wraps a logger together with its output's Close method,
// for file-backed logging.
type LoggerCloser struct {
	*log.Logger
	closer io.Closer
}

// Close closes the underlying writer if it is closeable.
func (lc *LoggerCloser) Close() error {
	if lc.closer != nil {
		return lc.closer.Close()
	}
	return nil
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(w io.Writer) *LoggerCloser {
	lg := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})

	switch os.Getenv("CFQUERY_LOG_LEVEL") {
	case "debug":
		lg.SetLevel(log.DebugLevel)
	case "warn":
		lg.SetLevel(log.WarnLevel)
	case "error":
		lg.SetLevel(log.ErrorLevel)
	default:
		lg.SetLevel(log.InfoLevel)
	}

	prefix := os.Getenv("CFQUERY_LOG_PREFIX")
	if prefix == "" {
		prefix = "cfquery "
	}

	var closer io.Closer
	if c, ok := w.(io.Closer); ok {
		closer = c
	}

	return &LoggerCloser{
		Logger: lg.WithPrefix(prefix),
		closer: closer,
	}
}

// New creates a logger from environment variables:
// CFQUERY_LOG_LEVEL: debug, info, warn, error (default: info)
// CFQUERY_LOG_PREFIX: message prefix (default: "cfquery ")
// CFQUERY_LOG_TO_FILE: when "1", log to a timestamped file instead of stderr
func New() *LoggerCloser {
	output := io.Writer(os.Stderr)

	if os.Getenv("CFQUERY_LOG_TO_FILE") == "1" {
		timestamp := time.Now().Format("20060102-150405")
		logFile := fmt.Sprintf("cfquery-%s-debug.log", timestamp)

		f, err := os.OpenFile(logFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err == nil {
			output = f
		}
		// On failure, stay on stderr.
	}

	return NewWithWriter(output)
}

// IsDebug reports whether debug logging is enabled.
func IsDebug() bool {
	return os.Getenv("CFQUERY_LOG_LEVEL") == "debug"
}
