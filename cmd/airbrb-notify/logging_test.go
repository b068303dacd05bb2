package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nhle/airbrb-notify/internal/model"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}

	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitLoggerWritesToFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "logs", "notifier.log")
	closer, err := initLogger(model.LogConfig{Level: "debug", File: path})
	if err != nil {
		t.Fatalf("initLogger: %v", err)
	}

	slog.Debug("poll finished", "identity", "guest@example.com")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.Contains(out, `"msg":"poll finished"`) {
		t.Errorf("expected debug record in log, got:\n%s", out)
	}
	if !strings.Contains(out, `"identity":"guest@example.com"`) {
		t.Errorf("expected attributes in log, got:\n%s", out)
	}
}
