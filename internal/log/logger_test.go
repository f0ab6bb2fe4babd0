package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/helixml/trialdex/internal/config"
)

func TestNewLogger_JSONFormat(t *testing.T) {
	cfg := config.NewAppConfigWithOptions(
		config.WithLogLevel("DEBUG"),
		config.WithLogFormat(config.LogFormatJSON),
	)

	logger := NewLogger(cfg)

	if logger == nil {
		t.Fatal("NewLogger should not return nil")
	}
	if logger.Slog() == nil {
		t.Error("Slog() should not return nil")
	}
	if _, ok := logger.Handler().(*slog.JSONHandler); !ok {
		t.Errorf("Handler() = %T, want *slog.JSONHandler", logger.Handler())
	}
}

func TestNewStderrLogger_Pretty(t *testing.T) {
	logger := NewStderrLogger(config.NewAppConfig())

	if _, ok := logger.Handler().(*TerminalHandler); !ok {
		t.Errorf("Handler() = %T, want *TerminalHandler", logger.Handler())
	}
}

func TestLogger_LogLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, config.LogFormatJSON, "DEBUG")

	logger.Slog().Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 log lines, got %d", len(lines))
	}

	for i, line := range lines {
		var data map[string]any
		if err := json.Unmarshal([]byte(line), &data); err != nil {
			t.Errorf("line %d is not valid JSON: %v", i, err)
		}
	}
}

func TestLogger_Component(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, config.LogFormatJSON, "INFO")

	logger.Component("registry").Info("page fetched")

	var data map[string]any
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if data[ComponentKey] != "registry" {
		t.Errorf("component = %v, want registry", data[ComponentKey])
	}
}

func TestLogger_WithContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, config.LogFormatJSON, "INFO")

	ctx := WithRunID(context.Background(), "run-1")
	ctx = WithRequestID(ctx, "req-9")
	logger.InfoContext(ctx, "with context")

	var data map[string]any
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if data["run_id"] != "run-1" {
		t.Errorf("run_id = %v, want run-1", data["run_id"])
	}
	if data["request_id"] != "req-9" {
		t.Errorf("request_id = %v, want req-9", data["request_id"])
	}
}

func TestLogger_WithContext_NoContextValues(t *testing.T) {
	logger := NewLoggerWithWriter(&bytes.Buffer{}, config.LogFormatJSON, "INFO")

	if got := logger.WithContext(context.Background()); got != logger {
		t.Error("WithContext without values should return the same logger")
	}
}

func TestRunID_NotSet(t *testing.T) {
	if id := RunID(context.Background()); id != "" {
		t.Errorf("RunID() = %q, want empty", id)
	}
	if id := RequestID(context.Background()); id != "" {
		t.Errorf("RequestID() = %q, want empty", id)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLogger_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, config.LogFormatJSON, "WARN")

	logger.Info("should not appear")
	logger.Warn("should appear")

	output := buf.String()
	if strings.Contains(output, "should not appear") {
		t.Error("info message should be filtered at WARN level")
	}
	if !strings.Contains(output, "should appear") {
		t.Error("warn message should be logged")
	}
}

func TestConfigure(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	var buf bytes.Buffer
	cfg := config.NewAppConfigWithOptions(config.WithLogFormat(config.LogFormatJSON))
	logger := Configure(cfg, &buf)

	slog.Info("through default")

	if logger.Slog() != slog.Default() {
		t.Error("Configure should install the logger as slog default")
	}
	if !strings.Contains(buf.String(), "through default") {
		t.Error("default logger should write to the configured writer")
	}
}
