// Package logging builds the zerolog loggers used across the tool.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ParseLevel maps a config level name to a zerolog level, defaulting to
// info for anything unknown.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "DISABLED", "OFF":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// New returns a logger writing to w. Console output is human-readable;
// otherwise every line is a JSON object.
func New(w io.Writer, level string, console bool) zerolog.Logger {
	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// Open returns a console logger on stderr, mirrored without colours into
// file when file is not empty. The returned closer releases the file.
func Open(level, file string) (zerolog.Logger, io.Closer, error) {
	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	if file == "" {
		return zerolog.New(console).Level(ParseLevel(level)).With().Timestamp().Logger(), io.NopCloser(nil), nil
	}

	f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	mlw := zerolog.MultiLevelWriter(
		console,
		zerolog.ConsoleWriter{Out: f, TimeFormat: time.RFC3339, NoColor: true},
	)
	return zerolog.New(mlw).Level(ParseLevel(level)).With().Timestamp().Logger(), f, nil
}
