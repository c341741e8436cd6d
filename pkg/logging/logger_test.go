package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/niels/repo-status/pkg/config"
)

func decodeEntry(t *testing.T, output string) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(output), &entry); err != nil {
		t.Fatalf("Failed to parse log output as JSON: %v (%q)", err, output)
	}
	return entry
}

func TestLogLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(true, &buf)

	for _, level := range []string{"debug", "info", "warn", "error"} {
		switch level {
		case "debug":
			logger.Debug().Msg(level + " message")
		case "info":
			logger.Info().Msg(level + " message")
		case "warn":
			logger.Warn().Msg(level + " message")
		case "error":
			logger.Error().Msg(level + " message")
		}

		entry := decodeEntry(t, buf.String())
		buf.Reset()

		if entry["level"] != level {
			t.Errorf("Expected level %s, got %v", level, entry["level"])
		}
		if entry["message"] != level+" message" {
			t.Errorf("Expected message '%s message', got %v", level, entry["message"])
		}
	}
}

func TestDebugDisabled(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(false, &buf)

	// Debug messages should not appear
	logger.Debug().Msg("debug message")
	if buf.Len() != 0 {
		t.Errorf("Debug log should not be visible when debug is disabled, got: %s", buf.String())
	}

	// Other levels should still appear
	logger.Info().Msg("info message")
	if !strings.Contains(buf.String(), "info message") {
		t.Errorf("Info log should be visible when debug is disabled, got: %s", buf.String())
	}
}

func TestHelperFunctions(t *testing.T) {
	var buf bytes.Buffer
	previous := GetLogger()
	SetLogger(NewLogger(true, &buf))
	defer SetLogger(previous)

	InfoWith("repository checked", map[string]interface{}{
		"path":  "/srv/src/alpha",
		"ahead": 2,
		"clean": false,
	})

	entry := decodeEntry(t, buf.String())
	buf.Reset()

	if entry["path"] != "/srv/src/alpha" {
		t.Errorf("Expected path field, got %v", entry["path"])
	}
	if ahead, ok := entry["ahead"].(float64); !ok || int(ahead) != 2 {
		t.Errorf("Expected ahead field to be 2, got %v", entry["ahead"])
	}
	if entry["clean"] != false {
		t.Errorf("Expected clean field to be false, got %v", entry["clean"])
	}

	Warn("warn helper message")
	if !strings.Contains(buf.String(), "warn helper message") {
		t.Errorf("Warn helper should log 'warn helper message', got: %s", buf.String())
	}
}

func TestWithRepository(t *testing.T) {
	var buf bytes.Buffer
	previous := GetLogger()
	SetLogger(NewLogger(true, &buf))
	defer SetLogger(previous)

	logger := WithRepository("status", "/srv/src/beta")
	logger.Info().Msg("contextual log message")

	entry := decodeEntry(t, buf.String())
	if entry["component"] != "status" {
		t.Errorf("Expected component 'status', got %v", entry["component"])
	}
	if entry["repository"] != "/srv/src/beta" {
		t.Errorf("Expected repository '/srv/src/beta', got %v", entry["repository"])
	}
}

func TestInitGlobalLoggerToFile(t *testing.T) {
	previous := GetLogger()
	defer SetLogger(previous)

	logPath := filepath.Join(t.TempDir(), "repo-status.log")
	InitGlobalLogger(false, &config.LogConfig{
		LogToFile:   true,
		LogFilePath: logPath,
		MaxSize:     1,
	})

	Info("written to file")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("Expected log file to contain the message, got: %s", data)
	}
}

func TestInitGlobalLoggerDiscards(t *testing.T) {
	previous := GetLogger()
	defer SetLogger(previous)

	InitGlobalLogger(false, nil)
	// Nothing to assert beyond not panicking on a discarded sink
	Info("discarded")
}
