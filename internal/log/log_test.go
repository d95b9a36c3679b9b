package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitWriterFiltersLevel(t *testing.T) {
	t.Setenv("GO_ENV", "")
	var buf bytes.Buffer
	InitWriter(&buf, "warn")

	Info("hidden")
	Warn("shown", "device", "/dev/video0")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line leaked at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "device=/dev/video0") {
		t.Errorf("warn line missing: %q", out)
	}
}
