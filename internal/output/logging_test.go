package output

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestLogOptions_Level(t *testing.T) {
	tests := []struct {
		name string
		opts LogOptions
		want slog.Level
	}{
		{"default", LogOptions{}, slog.LevelWarn},
		{"verbose", LogOptions{Verbose: true}, slog.LevelInfo},
		{"debug", LogOptions{Debug: true}, slog.LevelDebug},
		{"debug beats verbose", LogOptions{Verbose: true, Debug: true}, slog.LevelDebug},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.opts.Level(); got != tc.want {
				t.Errorf("Level() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSetupLogger_DefaultLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger(LogOptions{}, &buf)

	logger.Info("info message")
	if bytes.Contains(buf.Bytes(), []byte("info message")) {
		t.Error("expected Info message to be suppressed at default level")
	}

	logger.Warn("warn message")
	if !bytes.Contains(buf.Bytes(), []byte("warn message")) {
		t.Error("expected Warn message to appear at default level")
	}
}

func TestSetupLogger_QuietOverridesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger(LogOptions{Quiet: true, Debug: true}, &buf)

	logger.Debug("debug message")
	logger.Error("error message")
	if buf.Len() != 0 {
		t.Errorf("expected quiet to suppress everything, got %q", buf.String())
	}
}

func TestSetupLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger(LogOptions{Verbose: true, JSON: true}, &buf)
	logger.Info("checked file", "path", "app/views.py")

	var record map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "checked file" || record["path"] != "app/views.py" {
		t.Errorf("unexpected record %v", record)
	}
}
