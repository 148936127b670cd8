package config

import (
	"os"
	"path/filepath"
	"testing"

	"zapisnik/internal/models"
)

func TestLoadConfig(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
telegram:
  bot_token: "test_token"
database:
  path: "test.db"
bot:
  slot_times: ["10:00", "11:00"]
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Telegram.BotToken != "test_token" {
		t.Errorf("expected bot_token test_token, got %s", cfg.Telegram.BotToken)
	}

	if len(cfg.Bot.SlotTimes) != 2 || cfg.Bot.SlotTimes[0] != "10:00" {
		t.Errorf("expected 2 slot times starting with 10:00, got %v", cfg.Bot.SlotTimes)
	}
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("TEST_BOT_TOKEN", "token_from_env")

	yamlContent := `
telegram:
  bot_token: "${TEST_BOT_TOKEN}"
database:
  path: "test.db"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Telegram.BotToken != "token_from_env" {
		t.Errorf("expected bot_token from env, got %s", cfg.Telegram.BotToken)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				Telegram: TelegramConfig{BotToken: "token"},
				Database: DatabaseConfig{Path: "path"},
			},
			wantErr: false,
		},
		{
			name: "missing token",
			cfg: Config{
				Telegram: TelegramConfig{BotToken: ""},
				Database: DatabaseConfig{Path: "path"},
			},
			wantErr: true,
		},
		{
			name: "placeholder token",
			cfg: Config{
				Telegram: TelegramConfig{BotToken: "YOUR_BOT_TOKEN_HERE"},
				Database: DatabaseConfig{Path: "path"},
			},
			wantErr: true,
		},
		{
			name: "missing database path",
			cfg: Config{
				Telegram: TelegramConfig{BotToken: "token"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	expectedReminder := "09:00"
	if cfg.Bot.ReminderTime != expectedReminder {
		t.Errorf("expected default reminder time %s, got %s", expectedReminder, cfg.Bot.ReminderTime)
	}
	if cfg.Bot.MaxBookingDays != models.DefaultMaxBookingDays {
		t.Errorf("expected default max booking days %d, got %d", models.DefaultMaxBookingDays, cfg.Bot.MaxBookingDays)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("expected default API port 8080, got %d", cfg.API.Port)
	}
	if cfg.Bot.RateLimitMessages != models.RateLimitMessages {
		t.Errorf("expected default rate limit messages %d, got %d", models.RateLimitMessages, cfg.Bot.RateLimitMessages)
	}
}

func TestValidateProviders(t *testing.T) {
	tests := []struct {
		name      string
		providers []models.Provider
		wantErr   bool
	}{
		{
			name: "Valid providers",
			providers: []models.Provider{
				{Code: "Therapist", Label: "👨‍⚕️ Терапевт"},
				{Code: "Dentist", Label: "🦷 Стоматолог"},
			},
			wantErr: false,
		},
		{
			name: "Duplicate code",
			providers: []models.Provider{
				{Code: "Therapist", Label: "Терапевт"},
				{Code: "Therapist", Label: "Терапевт 2"},
			},
			wantErr: true,
		},
		{
			name: "Empty code",
			providers: []models.Provider{
				{Code: "", Label: "Терапевт"},
			},
			wantErr: true,
		},
		{
			name:      "Empty list",
			providers: nil,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProviders(tt.providers)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateProviders() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
