package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger_WritesJSONFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	log, err := NewLogger(dir)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	log.Info("probe_done")
	_ = log.Sync()

	b, err := os.ReadFile(filepath.Join(dir, fileName))
	if err != nil {
		t.Fatalf("log file missing: %v", err)
	}
	if !strings.Contains(string(b), `"msg":"probe_done"`) || !strings.Contains(string(b), `"ts":`) {
		t.Fatalf("unexpected log line: %s", b)
	}
}

func TestNewConsoleLogger_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cli")
	log, err := NewConsoleLogger(dir)
	if err != nil {
		t.Fatalf("NewConsoleLogger: %v", err)
	}
	defer func() { _ = log.Sync() }()
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("log dir missing: %v", err)
	}
	log.Debug("below file level; dropped")
}

func TestNewLogger_BadDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewLogger(filepath.Join(file, "sub")); err == nil {
		t.Fatal("expected error when log dir is under a regular file")
	}
}
