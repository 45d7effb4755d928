package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultReplyModel      = "gemini-2.0-flash"
	DefaultHomeURL         = "https://x.com/home"
	DefaultLanguage        = "en"
	DefaultCooldownMin     = 60
	DefaultSpacingMin      = 5
	DefaultExecutorTickSec = 60
	DefaultScanIntervalMin = 30
	DefaultScanResultLimit = 100
)

type Config struct {
	Engine      EngineConfig      `json:"engine"`
	Provisioner ProvisionerConfig `json:"provisioner"`
	Scanner     ScannerConfig     `json:"scanner"`
	Reply       ReplyConfig       `json:"reply"`
	Telegram    TelegramConfig    `json:"telegram"`
	Coordinator CoordinatorConfig `json:"coordinator"`
	Storage     StorageConfig     `json:"storage"`
}

type EngineConfig struct {
	HomeURL  string `json:"homeUrl"`
	Language string `json:"language"`
}

type ProvisionerConfig struct {
	BaseURL string `json:"baseUrl"`
	Token   string `json:"token,omitempty"`
}

type ScannerConfig struct {
	BaseURL     string `json:"baseUrl"`
	Token       string `json:"token,omitempty"`
	IntervalMin int    `json:"intervalMin"`
	ResultLimit int    `json:"resultLimit"`
}

type ReplyConfig struct {
	APIKey string `json:"apiKey,omitempty"`
	Model  string `json:"model"`
}

type TelegramConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token,omitempty"`
	ChatID  int64  `json:"chatId,omitempty"`
}

type CoordinatorConfig struct {
	CooldownMin     int `json:"cooldownMin"`
	SpacingMin      int `json:"spacingMin"`
	ExecutorTickSec int `json:"executorTickSec"`
}

type StorageConfig struct {
	DataDir    string `json:"dataDir"`
	RosterPath string `json:"rosterPath"`
}

func DefaultConfig() *Config {
	dir := ConfigDir()
	return &Config{
		Engine: EngineConfig{
			HomeURL:  DefaultHomeURL,
			Language: DefaultLanguage,
		},
		Scanner: ScannerConfig{
			IntervalMin: DefaultScanIntervalMin,
			ResultLimit: DefaultScanResultLimit,
		},
		Reply: ReplyConfig{
			Model: DefaultReplyModel,
		},
		Coordinator: CoordinatorConfig{
			CooldownMin:     DefaultCooldownMin,
			SpacingMin:      DefaultSpacingMin,
			ExecutorTickSec: DefaultExecutorTickSec,
		},
		Storage: StorageConfig{
			DataDir:    dir,
			RosterPath: filepath.Join(dir, "roster.json"),
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".warble")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if key := os.Getenv("WARBLE_GEMINI_API_KEY"); key != "" {
		cfg.Reply.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" && cfg.Reply.APIKey == "" {
		cfg.Reply.APIKey = key
	}
	if url := os.Getenv("WARBLE_PROVISIONER_URL"); url != "" {
		cfg.Provisioner.BaseURL = url
	}
	if token := os.Getenv("WARBLE_PROVISIONER_TOKEN"); token != "" {
		cfg.Provisioner.Token = token
	}
	if url := os.Getenv("WARBLE_SCANNER_URL"); url != "" {
		cfg.Scanner.BaseURL = url
	}
	if token := os.Getenv("WARBLE_SCANNER_TOKEN"); token != "" {
		cfg.Scanner.Token = token
	}
	if token := os.Getenv("WARBLE_TELEGRAM_TOKEN"); token != "" {
		cfg.Telegram.Token = token
		cfg.Telegram.Enabled = true
	}
	if chat := os.Getenv("WARBLE_TELEGRAM_CHAT_ID"); chat != "" {
		if parsed, err := strconv.ParseInt(chat, 10, 64); err == nil {
			cfg.Telegram.ChatID = parsed
		}
	}
	if dir := os.Getenv("WARBLE_DATA_DIR"); dir != "" {
		cfg.Storage.DataDir = dir
	}
	if path := os.Getenv("WARBLE_ROSTER_PATH"); path != "" {
		cfg.Storage.RosterPath = path
	}
	if model := os.Getenv("WARBLE_REPLY_MODEL"); model != "" {
		cfg.Reply.Model = model
	}

	if cfg.Engine.HomeURL == "" {
		cfg.Engine.HomeURL = DefaultHomeURL
	}
	if cfg.Engine.Language == "" {
		cfg.Engine.Language = DefaultLanguage
	}
	if cfg.Coordinator.CooldownMin <= 0 {
		cfg.Coordinator.CooldownMin = DefaultCooldownMin
	}
	if cfg.Coordinator.SpacingMin <= 0 {
		cfg.Coordinator.SpacingMin = DefaultSpacingMin
	}
	if cfg.Coordinator.ExecutorTickSec <= 0 {
		cfg.Coordinator.ExecutorTickSec = DefaultExecutorTickSec
	}
	if cfg.Scanner.IntervalMin <= 0 {
		cfg.Scanner.IntervalMin = DefaultScanIntervalMin
	}
	if cfg.Scanner.ResultLimit <= 0 {
		cfg.Scanner.ResultLimit = DefaultScanResultLimit
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = ConfigDir()
	}
	if cfg.Storage.RosterPath == "" {
		cfg.Storage.RosterPath = filepath.Join(cfg.Storage.DataDir, "roster.json")
	}

	return cfg, nil
}

func SaveConfig(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(ConfigPath(), data, 0644)
}

// SchedulePath is where the current 24-hour schedule is persisted.
func (c *Config) SchedulePath() string {
	return filepath.Join(c.Storage.DataDir, "schedule.json")
}

// ScannerStatePath holds keywords, alerts, and scan stats.
func (c *Config) ScannerStatePath() string {
	return filepath.Join(c.Storage.DataDir, "scanner.json")
}

// LedgerPath is the engagement history database.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Storage.DataDir, "ledger.db")
}
