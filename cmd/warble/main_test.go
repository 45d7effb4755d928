package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/warblehq/warble/internal/config"
)

func TestRunOnboard_CreatesConfigAndRoster(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("WARBLE_DATA_DIR", "")
	t.Setenv("WARBLE_ROSTER_PATH", "")

	if err := runOnboard(onboardCmd, nil); err != nil {
		t.Fatalf("runOnboard error: %v", err)
	}

	if _, err := os.Stat(config.ConfigPath()); err != nil {
		t.Errorf("config not created: %v", err)
	}
	rosterPath := filepath.Join(tmp, ".warble", "roster.json")
	data, err := os.ReadFile(rosterPath)
	if err != nil {
		t.Fatalf("roster not created: %v", err)
	}
	if !strings.Contains(string(data), "accountRef") {
		t.Errorf("roster template looks wrong:\n%s", data)
	}

	// Second run leaves existing files alone.
	if err := runOnboard(onboardCmd, nil); err != nil {
		t.Fatalf("second runOnboard error: %v", err)
	}
}

func TestRunExecute_RejectsUnknownAction(t *testing.T) {
	err := runExecute(executeCmd, []string{"p1", "boost", "https://x.com/u/status/1"})
	if err == nil || !strings.Contains(err.Error(), "unknown action") {
		t.Errorf("err = %v, want unknown action", err)
	}
}

func TestRunStatus_NoConfigIsNotFatal(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("WARBLE_PROVISIONER_URL", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("WARBLE_GEMINI_API_KEY", "")
	if err := runStatus(statusCmd, nil); err != nil {
		t.Errorf("runStatus should not fail without setup: %v", err)
	}
}
