// Package config provides configuration management for the bot.
// It loads environment variables and makes them available throughout the application.
package config

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the bot
type Config struct {
	// Discord
	BotTokens    []string
	OwnerID      string
	LogChannelID string

	// MongoDB
	MongoDBURL string
	DBName     string

	// MQTT
	MQTTHost     string
	MQTTPort     string
	MQTTUser     string
	MQTTPassword string

	// Web Server
	Port        string
	AdminAPIKey string

	// Environment
	Environment string

	// Webhooks
	ErrorWebhook string
	LogsWebhook  string

	// Expiry sweep
	SweepInterval time.Duration
}

var (
	Version   = "Dev-Local"
	BuildTime = "Hoy"
)

const defaultSweepInterval = 6 * time.Hour

// cfg holds the global configuration instance
var (
	cfg     *Config
	cfgOnce sync.Once
)

// resetForTesting resets the configuration for testing purposes.
// This function should only be called from test code.
func resetForTesting() {
	cfg = nil
	cfgOnce = sync.Once{}
}

// loadConfig performs the actual configuration loading
func loadConfig() {
	// Load .env file if it exists (ignoring error if it doesn't)
	_ = godotenv.Load()

	cfg = &Config{
		// Discord
		BotTokens:    splitList(getEnv("DISCORD_BOT_TOKENS", "")),
		OwnerID:      getEnv("OWNER_ID", ""),
		LogChannelID: getEnv("LOG_CHANNEL_ID", ""),

		// MongoDB
		MongoDBURL: getEnv("MONGO_URI", "mongodb://localhost:27017/"),
		DBName:     getEnv("DB_NAME", "DiscordBotDB"),

		// MQTT
		MQTTHost:     getEnv("MQTT_HOST", ""),
		MQTTPort:     getEnv("MQTT_PORT", "1883"),
		MQTTUser:     getEnv("MQTT_USER", ""),
		MQTTPassword: getEnv("MQTT_PASSWORD", ""),

		// Web Server
		Port:        getEnv("PORT", "3000"),
		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),

		// Environment
		Environment: getEnv("ENVIRONMENT", "dev"),

		// Webhooks
		ErrorWebhook: getEnv("ERROR_WEBHOOK", ""),
		LogsWebhook:  getEnv("LOGS_WEBHOOK", ""),

		SweepInterval: getDuration("SWEEP_INTERVAL", defaultSweepInterval),
	}
}

// Load initializes the configuration from environment variables
func Load() (*Config, error) {
	cfgOnce.Do(loadConfig)
	return cfg, nil
}

// Get returns the current configuration
func Get() *Config {
	// Use sync.Once to ensure thread-safe initialization if Load wasn't called
	cfgOnce.Do(loadConfig)
	return cfg
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration parses a Go duration ("6h", "30m") and falls back on anything
// missing, malformed or non-positive.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

// splitList splits a comma separated value, dropping blanks
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsProd returns true if the environment is production
func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}

// MQTTEnabled reports whether a broker was configured
func (c *Config) MQTTEnabled() bool {
	return c.MQTTHost != ""
}
