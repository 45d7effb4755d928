package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}
	if cfg.Reply.Model != DefaultReplyModel {
		t.Errorf("model = %q, want %q", cfg.Reply.Model, DefaultReplyModel)
	}
	if cfg.Engine.HomeURL != DefaultHomeURL {
		t.Errorf("homeUrl = %q, want %q", cfg.Engine.HomeURL, DefaultHomeURL)
	}
	if cfg.Coordinator.CooldownMin != DefaultCooldownMin {
		t.Errorf("cooldownMin = %d, want %d", cfg.Coordinator.CooldownMin, DefaultCooldownMin)
	}
	if cfg.Coordinator.SpacingMin != DefaultSpacingMin {
		t.Errorf("spacingMin = %d, want %d", cfg.Coordinator.SpacingMin, DefaultSpacingMin)
	}
	if cfg.Scanner.IntervalMin != 30 {
		t.Errorf("scan interval = %d, want 30", cfg.Scanner.IntervalMin)
	}
	if cfg.Storage.DataDir == "" {
		t.Error("data dir should not be empty")
	}
	if cfg.Storage.RosterPath == "" {
		t.Error("roster path should not be empty")
	}
}

func TestLoadConfig_NoFile(t *testing.T) {
	// Override config dir to a temp location
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	// Clear any env overrides
	t.Setenv("WARBLE_GEMINI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Reply.Model != DefaultReplyModel {
		t.Errorf("expected default model %q, got %q", DefaultReplyModel, cfg.Reply.Model)
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("WARBLE_GEMINI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("WARBLE_PROVISIONER_URL", "")

	cfgDir := filepath.Join(tmpDir, ".warble")
	os.MkdirAll(cfgDir, 0755)

	testCfg := map[string]any{
		"reply": map[string]any{
			"apiKey": "gm-test-key",
			"model":  "gemini-2.5-pro",
		},
		"provisioner": map[string]any{
			"baseUrl": "https://pool.internal:9443",
		},
		"coordinator": map[string]any{
			"cooldownMin": 90,
		},
	}
	data, _ := json.MarshalIndent(testCfg, "", "  ")
	os.WriteFile(filepath.Join(cfgDir, "config.json"), data, 0644)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Reply.Model != "gemini-2.5-pro" {
		t.Errorf("model = %q, want gemini-2.5-pro", cfg.Reply.Model)
	}
	if cfg.Reply.APIKey != "gm-test-key" {
		t.Errorf("apiKey = %q, want gm-test-key", cfg.Reply.APIKey)
	}
	if cfg.Provisioner.BaseURL != "https://pool.internal:9443" {
		t.Errorf("provisioner baseUrl = %q", cfg.Provisioner.BaseURL)
	}
	if cfg.Coordinator.CooldownMin != 90 {
		t.Errorf("cooldownMin = %d, want 90", cfg.Coordinator.CooldownMin)
	}
	// Sections absent from the file keep their defaults.
	if cfg.Coordinator.SpacingMin != DefaultSpacingMin {
		t.Errorf("spacingMin = %d, want default %d", cfg.Coordinator.SpacingMin, DefaultSpacingMin)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	t.Setenv("WARBLE_GEMINI_API_KEY", "env-key")
	t.Setenv("WARBLE_PROVISIONER_URL", "https://env-pool:8443")
	t.Setenv("WARBLE_TELEGRAM_TOKEN", "tg-token")
	t.Setenv("WARBLE_TELEGRAM_CHAT_ID", "42424242")
	t.Setenv("WARBLE_ROSTER_PATH", "/srv/warble/roster.json")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Reply.APIKey != "env-key" {
		t.Errorf("apiKey = %q, want env-key", cfg.Reply.APIKey)
	}
	if cfg.Provisioner.BaseURL != "https://env-pool:8443" {
		t.Errorf("provisioner baseUrl = %q", cfg.Provisioner.BaseURL)
	}
	if cfg.Telegram.Token != "tg-token" || !cfg.Telegram.Enabled {
		t.Errorf("telegram token = %q, enabled = %v", cfg.Telegram.Token, cfg.Telegram.Enabled)
	}
	if cfg.Telegram.ChatID != 42424242 {
		t.Errorf("chatId = %d, want 42424242", cfg.Telegram.ChatID)
	}
	if cfg.Storage.RosterPath != "/srv/warble/roster.json" {
		t.Errorf("rosterPath = %q", cfg.Storage.RosterPath)
	}
}

func TestLoadConfig_GeminiFallbackKey(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("WARBLE_GEMINI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "plain-gemini-key")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Reply.APIKey != "plain-gemini-key" {
		t.Errorf("apiKey = %q, want GEMINI_API_KEY fallback", cfg.Reply.APIKey)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("WARBLE_GEMINI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	cfg := DefaultConfig()
	cfg.Reply.APIKey = "persisted-key"
	cfg.Scanner.IntervalMin = 45
	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig error: %v", err)
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if loaded.Reply.APIKey != "persisted-key" {
		t.Errorf("apiKey = %q, want persisted-key", loaded.Reply.APIKey)
	}
	if loaded.Scanner.IntervalMin != 45 {
		t.Errorf("scan interval = %d, want 45", loaded.Scanner.IntervalMin)
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.DataDir = "/data/warble"
	if got := cfg.SchedulePath(); got != "/data/warble/schedule.json" {
		t.Errorf("SchedulePath() = %q", got)
	}
	if got := cfg.ScannerStatePath(); got != "/data/warble/scanner.json" {
		t.Errorf("ScannerStatePath() = %q", got)
	}
	if got := cfg.LedgerPath(); got != "/data/warble/ledger.db" {
		t.Errorf("LedgerPath() = %q", got)
	}
}
