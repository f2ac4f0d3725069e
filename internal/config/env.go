package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Env holds process-level settings that come from the environment (or
// a .env file) rather than the user config file: paths, ports and the
// optional integrations.
type Env struct {
	ConfigPath string // CONFIG_PATH, "" = default location
	LockPath   string // LOCK_PATH, "" = next to the config file

	ControlPort int // CONTROL_PORT for the local control server

	// Optional quote archive (postgres). Empty DSN disables it.
	ArchiveDSN string // ARCHIVE_DATABASE_URL

	// Optional move alerts.
	WebhookURL       string  // WEBHOOK_URL
	AlertMovePercent float64 // ALERT_MOVE_PERCENT, 0 disables
	AlertName        string  // ALERT_NAME, webhook display name
}

const defaultControlPort = 42616

// LoadEnv reads the process environment, loading .env first.
func LoadEnv() Env {
	_ = godotenv.Load()

	return Env{
		ConfigPath:       envStr("CONFIG_PATH", ""),
		LockPath:         envStr("LOCK_PATH", ""),
		ControlPort:      envInt("CONTROL_PORT", defaultControlPort),
		ArchiveDSN:       envStr("ARCHIVE_DATABASE_URL", ""),
		WebhookURL:       envStr("WEBHOOK_URL", ""),
		AlertMovePercent: envFloat("ALERT_MOVE_PERCENT", 0),
		AlertName:        envStr("ALERT_NAME", "tickerpane"),
	}
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
