// Package logging builds the process-wide slog logger from configuration,
// optionally teeing output to a size-rotated log file.
package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config describes the desired logging configuration.
type Config struct {
	Level         string
	Format        string
	FilePath      string
	FileMaxSizeMB int
	FileMaxFiles  int
}

// New creates a logger per the config. The returned closer releases the log
// file writer and may be nil when no file sink is configured.
func New(cfg Config) (*slog.Logger, io.Closer) {
	writer, closer := buildWriter(cfg)
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(writer, opts)
	} else {
		handler = slog.NewJSONHandler(writer, opts)
	}
	return slog.New(handler), closer
}

// parseLevel converts a string to slog.Level, defaulting to Info.
func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// buildWriter creates the io.Writer for log output. If a file path is
// configured, it returns a MultiWriter (stdout + lumberjack) and the
// lumberjack logger as the closer.
func buildWriter(cfg Config) (io.Writer, io.Closer) {
	if cfg.FilePath == "" {
		return os.Stdout, nil
	}

	maxSize := cfg.FileMaxSizeMB
	if maxSize <= 0 {
		maxSize = 100
	}
	maxFiles := cfg.FileMaxFiles
	if maxFiles <= 0 {
		maxFiles = 3
	}

	lj := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    maxSize,
		MaxBackups: maxFiles,
		Compress:   false,
	}

	return io.MultiWriter(os.Stdout, lj), lj
}
