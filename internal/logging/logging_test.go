package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{" warn ", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"chatty", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(Options{Level: "info", Console: &buf, NoColor: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closer.Close()

	logger.Debug().Msg("hidden")
	logger.Info().Str("file", "2026-01-19-daily.json").Msg("fetched report")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line should be filtered at info level: %q", out)
	}
	if !strings.Contains(out, "[INFO]") {
		t.Errorf("expected [INFO] label, got %q", out)
	}
	if !strings.Contains(out, "fetched report") || !strings.Contains(out, "2026-01-19-daily.json") {
		t.Errorf("expected message and field, got %q", out)
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "npmx.log")
	var console bytes.Buffer
	logger, closer, err := New(Options{Level: "debug", File: path, MaxSizeMB: 1, Console: &console, NoColor: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Warn().Int("sequence", 7).Msg("draft overwritten")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &line); err != nil {
		t.Fatalf("log file should hold JSON lines: %v (%q)", err, data)
	}
	if line["level"] != "warn" || line["message"] != "draft overwritten" {
		t.Errorf("unexpected log entry: %v", line)
	}
	if line["sequence"] != float64(7) {
		t.Errorf("expected sequence field 7, got %v", line["sequence"])
	}
}
