package services

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggerWritesDailyFile(t *testing.T) {
	dir := t.TempDir()
	logger := NewLoggerService(dir)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		logger.Close()
	})

	logger.LogInfo("Caisse ouverte", "poste 1")
	logger.LogRequest("POST", "/api/orders", 422, 0)

	content, err := os.ReadFile(logger.GetTodayLogPath())
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	text := string(content)
	if !strings.Contains(text, "[INFO] Caisse ouverte | poste 1") {
		t.Fatalf("info line missing:\n%s", text)
	}
	if !strings.Contains(text, "[WARNING] POST /api/orders -> 422") {
		t.Fatalf("request line missing:\n%s", text)
	}
}

func TestCleanOldLogs(t *testing.T) {
	dir := t.TempDir()
	logger := NewLoggerService(dir)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		logger.Close()
	})

	old := filepath.Join(dir, "2000-01-01.log")
	other := filepath.Join(dir, "notes.txt")
	for _, path := range []string{old, other} {
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}

	if err := logger.CleanOldLogs(30); err != nil {
		t.Fatalf("clean: %v", err)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("old log should be removed")
	}
	if _, err := os.Stat(other); err != nil {
		t.Fatalf("non-log files must be kept: %v", err)
	}
	if _, err := os.Stat(logger.GetTodayLogPath()); err != nil {
		t.Fatalf("today's log must be kept: %v", err)
	}
}
