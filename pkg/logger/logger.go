package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

var (
	// Log is the global logger instance
	Log zerolog.Logger
)

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano

	// Default to console output with color
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "2006-01-02 15:04:05",
	}

	Log = zerolog.New(output).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Caller().
		Logger()
}

// Setup configures the global logger from the logging config. When path is
// non-empty, events are written to both the console and the file.
func Setup(levelStr, path string) {
	SetLevel(levelStr)

	if path == "" {
		return
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		Log.Warn().Err(err).Str("path", path).Msg("cannot create log directory, console only")
		return
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		Log.Warn().Err(err).Str("path", path).Msg("cannot open log file, console only")
		return
	}

	console := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "2006-01-02 15:04:05",
	}
	Log = zerolog.New(io.MultiWriter(console, file)).
		Level(Log.GetLevel()).
		With().
		Timestamp().
		Caller().
		Logger()
}

// Debug starts a debug-level event on the global logger.
func Debug() *zerolog.Event { return Log.Debug() }

// Info starts an info-level event on the global logger.
func Info() *zerolog.Event { return Log.Info() }

// Warn starts a warn-level event on the global logger.
func Warn() *zerolog.Event { return Log.Warn() }

// Error starts an error-level event on the global logger.
func Error() *zerolog.Event { return Log.Error() }

// Fatal starts a fatal-level event on the global logger.
func Fatal() *zerolog.Event { return Log.Fatal() }

// SetLevel sets the log level
func SetLevel(levelStr string) {
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		Log.Warn().Str("level", levelStr).Msg("invalid log level, defaulting to info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	Log = Log.Level(level)
}
