package logging

import (
	"log/slog"
	"path/filepath"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"bogus": slog.LevelInfo,
		"":      slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewWithFileSink(t *testing.T) {
	dir := t.TempDir()
	logger, closer := New(Config{
		Level:    "debug",
		Format:   "text",
		FilePath: filepath.Join(dir, "tonearm.log"),
	})
	if logger == nil {
		t.Fatal("expected logger")
	}
	if closer == nil {
		t.Fatal("expected closer for file sink")
	}
	logger.Debug("hello")
	if err := closer.Close(); err != nil {
		t.Fatalf("closing sink: %v", err)
	}
}

func TestNewWithoutFileSink(t *testing.T) {
	logger, closer := New(Config{Level: "info", Format: "json"})
	if logger == nil {
		t.Fatal("expected logger")
	}
	if closer != nil {
		t.Fatal("expected nil closer without file sink")
	}
}
