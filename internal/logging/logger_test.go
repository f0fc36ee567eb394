package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewWritesJSONWithProfileFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "deskchat.log")

	logger, err := New(logPath, "shop", Options{Level: zapcore.InfoLevel})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Info("room resolved", zap.String("room_id", "r1"))
	logger.Debug("filtered out")
	_ = logger.Sync()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1: %q", len(lines), data)
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["profile"] != "shop" {
		t.Errorf("profile = %v, want shop", entry["profile"])
	}
	if entry["room_id"] != "r1" {
		t.Errorf("room_id = %v, want r1", entry["room_id"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Error("missing ts field")
	}
}
