package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL   string
	LogLevel      string
	Environment   string
	CivilTimezone string

	HTTPPort                   string
	AdminAPIToken              string // empty disables the X-Admin-Token check
	ManualTriggerRatePerMinute int

	TelegramToken   string // empty disables the admin bot and failure alerts
	AdminTelegramID int64

	RunCooldown          time.Duration
	NotificationTTL      time.Duration
	DailyRunHour         int // civil hour the periodic trigger fires
	WorkerConcurrency    int
	RunMigrationsOnStart bool

	LegacyFixCutover   string // YYYY-MM-DD, empty disables the fix-up
	LegacyFixShiftDays int
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	cfg.CivilTimezone = getEnvString("CIVIL_TIMEZONE", "Asia/Seoul")
	cfg.HTTPPort = getEnvString("HTTP_PORT", "8080")
	cfg.AdminAPIToken = os.Getenv("ADMIN_API_TOKEN")

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken != "" {
		adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID")
		if adminIDStr == "" {
			return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is not set (required when TELEGRAM_TOKEN is set)")
		}
		cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}

	if cfg.ManualTriggerRatePerMinute, err = getEnvInt("MANUAL_TRIGGER_RATE_PER_MINUTE", 6); err != nil {
		return nil, err
	}
	if cfg.RunCooldown, err = getEnvDuration("RUN_COOLDOWN", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.NotificationTTL, err = getEnvDuration("NOTIFICATION_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.DailyRunHour, err = getEnvInt("DAILY_RUN_HOUR", 0); err != nil {
		return nil, err
	}
	if cfg.DailyRunHour < 0 || cfg.DailyRunHour > 23 {
		return nil, fmt.Errorf("invalid DAILY_RUN_HOUR: %d (must be 0-23)", cfg.DailyRunHour)
	}
	if cfg.WorkerConcurrency, err = getEnvInt("WORKER_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	if cfg.WorkerConcurrency < 1 {
		cfg.WorkerConcurrency = 1
	}
	if v := os.Getenv("RUN_MIGRATIONS_ON_START"); v != "" {
		cfg.RunMigrationsOnStart, err = strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid RUN_MIGRATIONS_ON_START: %w", err)
		}
	}

	cfg.LegacyFixCutover = os.Getenv("LEGACY_FIX_CUTOVER")
	if cfg.LegacyFixCutover != "" {
		if _, err := time.Parse("2006-01-02", cfg.LegacyFixCutover); err != nil {
			return nil, fmt.Errorf("invalid LEGACY_FIX_CUTOVER: %w", err)
		}
	}
	if cfg.LegacyFixShiftDays, err = getEnvInt("LEGACY_FIX_SHIFT_DAYS", 1); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return i, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
