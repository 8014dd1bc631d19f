package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Init initializes a stdout logger at the level named by the
// SALIENCE_DECAY_LOG_LEVEL environment variable.
func Init() (zerolog.Logger, error) {
	return InitWithOptions("", false, false)
}

// InitStderr initializes a stderr-only logger. The MCP server uses this:
// stdout carries the wire protocol and must stay clean.
func InitStderr() (zerolog.Logger, error) {
	return InitWithOptions("", false, true)
}

// InitWithOptions initializes the logger with the specified options.
// If logFile is empty, logs go to stdout (or stderr when stderrOnly).
// If pretty is true, uses ConsoleWriter for human-readable output (only
// valid when logFile is empty).
// Log level can be configured via the SALIENCE_DECAY_LOG_LEVEL environment
// variable (trace, debug, info, warn, error).
func InitWithOptions(logFile string, pretty, stderrOnly bool) (zerolog.Logger, error) {
	level := parseLogLevel(os.Getenv("SALIENCE_DECAY_LOG_LEVEL"))

	var output io.Writer
	switch {
	case logFile != "":
		//nolint:gosec // G304: User-specified log file path is intentional
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return zerolog.Logger{}, fmt.Errorf("failed to open log file %s: %w", logFile, err)
		}
		output = file
	case stderrOnly:
		output = os.Stderr
		if pretty {
			output = zerolog.ConsoleWriter{Out: os.Stderr}
		}
	case pretty:
		output = zerolog.ConsoleWriter{Out: os.Stdout}
	default:
		output = os.Stdout
	}

	log := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	log.Info().Str("level", level.String()).Msg("Logger initialized")
	return log, nil
}

func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
