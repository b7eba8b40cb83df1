package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Log is the global logger instance
	Log = zerolog.Nop()

	// fileWriter is the optional rotating file output
	fileWriter *lumberjack.Logger
)

// Options controls how Init builds the logger.
type Options struct {
	Debug bool
	// JSON writes one JSON object per line to stdout in the shape Cloud Logging
	// parses (severity, message, time). Otherwise a console writer on stderr is used.
	JSON bool
	// File, if set, additionally writes JSON logs to a rotating file.
	File string
}

// Init initializes the global logger.
func Init(opts Options) {
	level := zerolog.InfoLevel
	if opts.Debug {
		level = zerolog.DebugLevel
	}

	var output io.Writer
	if opts.JSON {
		zerolog.LevelFieldName = "severity"
		zerolog.MessageFieldName = "message"
		zerolog.TimeFieldFormat = time.RFC3339Nano
		output = os.Stdout
	} else {
		output = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}
	}

	if opts.File != "" {
		fileWriter = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    50, // MB
			MaxAge:     7,  // days
			MaxBackups: 3,
			LocalTime:  true,
		}
		output = io.MultiWriter(output, fileWriter)
	}

	Log = New(output, level)
}

// New builds a timestamped logger writing to w. Tests use it with a buffer.
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// Close closes the file writer if it exists.
func Close() error {
	if fileWriter != nil {
		err := fileWriter.Close()
		fileWriter = nil
		return err
	}
	return nil
}

// Debug logs a debug message
func Debug() *zerolog.Event {
	return Log.Debug()
}

// Info logs an info message
func Info() *zerolog.Event {
	return Log.Info()
}

// Warn logs a warning message
func Warn() *zerolog.Event {
	return Log.Warn()
}

// Error logs an error message
func Error() *zerolog.Event {
	return Log.Error()
}

// Fatal logs a fatal message and exits
func Fatal() *zerolog.Event {
	return Log.Fatal()
}
