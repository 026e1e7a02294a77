package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string

	// Database
	DatabasePath string

	// Draws
	DefaultClubThreshold int

	// Auth
	StaffEmails        []string
	SessionLifetime    time.Duration
	DiscordKey         string
	DiscordSecret      string
	DiscordCallbackURL string
	GoogleKey          string
	GoogleSecret       string
	GoogleCallbackURL  string

	// Public bracket API
	AllowedOrigins []string
}

// Load reads the environment, after loading a .env file if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	threshold, err := getEnvInt("DEFAULT_CLUB_THRESHOLD", 8)
	if err != nil {
		return nil, err
	}
	if threshold < 1 {
		return nil, fmt.Errorf("DEFAULT_CLUB_THRESHOLD must be positive, got %d", threshold)
	}

	lifetimeHours, err := getEnvInt("SESSION_LIFETIME_HOURS", 24)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		DatabasePath:         getEnv("DATABASE_PATH", "tkd.db?_journal_mode=WAL&_foreign_keys=on"),
		DefaultClubThreshold: threshold,
		StaffEmails:          getEnvList("STAFF_EMAILS", nil),
		SessionLifetime:      time.Duration(lifetimeHours) * time.Hour,
		DiscordKey:           getEnv("DISCORD_KEY", ""),
		DiscordSecret:        getEnv("DISCORD_SECRET", ""),
		DiscordCallbackURL:   getEnv("DISCORD_CALLBACK_URL", ""),
		GoogleKey:            getEnv("GOOGLE_KEY", ""),
		GoogleSecret:         getEnv("GOOGLE_SECRET", ""),
		GoogleCallbackURL:    getEnv("GOOGLE_CALLBACK_URL", ""),
		AllowedOrigins:       getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}

	return cfg, nil
}

// IsStaffEmail reports whether the address belongs to a federation operator.
func (c *Config) IsStaffEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	for _, staff := range c.StaffEmails {
		if strings.EqualFold(staff, email) {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return n, nil
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
