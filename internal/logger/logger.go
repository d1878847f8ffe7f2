package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// Global logger instance
	Logger = zerolog.Nop()
)

// Options configures the global logger.
type Options struct {
	Level   string
	NoColor bool
	// FilePath, when set, mirrors every line to this file in JSON.
	FilePath string
	// Out overrides the console destination (stdout by default).
	Out io.Writer
}

// Initialize sets up the global logger with appropriate configuration
func Initialize(logLevel string) {
	if err := Setup(Options{Level: logLevel}); err != nil {
		log.Error().Err(err).Msg("Failed to initialize logger")
	}
}

// Setup configures the global logger from opts.
func Setup(opts Options) error {
	zerolog.TimeFieldFormat = time.RFC3339

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	var output io.Writer = zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    opts.NoColor,
	}

	if opts.FilePath != "" {
		file, err := FileWriter(opts.FilePath)
		if err != nil {
			return err
		}
		output = zerolog.MultiLevelWriter(output, file)
	}

	Logger = zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Logger()

	zerolog.SetGlobalLevel(ParseLevel(opts.Level))

	// Replace standard log with zerolog
	log.Logger = Logger
	return nil
}

// ParseLevel maps a LOG_LEVEL value onto a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get returns the global logger instance
func Get() *zerolog.Logger {
	return &Logger
}

// GetForComponent returns a logger with a component field for better filtering
func GetForComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// FileWriter returns a writer to a log file for optional use alongside console logging
func FileWriter(path string) (io.Writer, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, err
	}
	return file, nil
}
