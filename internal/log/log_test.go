package log

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.log")

	if err := Init(false, FileOptions{Path: path, MaxSizeMB: 1, MaxBackups: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { log, baseLogger = nil, nil })

	Infof("Found %d samples for %s", 3, "quartz")
	Debugf("suppressed below info level")
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d: %q", len(lines), data)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "Found 3 samples for quartz" {
		t.Errorf("unexpected message %v", entry["msg"])
	}
	if entry["level"] != "info" {
		t.Errorf("unexpected level %v", entry["level"])
	}
}

func TestGetSugaredLoggerFallback(t *testing.T) {
	log, baseLogger = nil, nil
	t.Cleanup(func() { log, baseLogger = nil, nil })

	if GetSugaredLogger() == nil {
		t.Fatal("expected a fallback logger")
	}
	if GetZapLogger() == nil {
		t.Fatal("expected a fallback base logger")
	}
}
