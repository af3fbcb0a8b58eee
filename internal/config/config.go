package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	CacheBackendMemory = "memory"
	CacheBackendBadger = "badger"
)

// Config is the process configuration, sourced from the environment
type Config struct {
	SmartOLT SmartOLTConfig
	Cache    CacheConfig
	HTTP     HTTPConfig
	Telegram TelegramConfig

	// RefreshInterval of zero disables the background refresher
	RefreshInterval time.Duration `validate:"gte=0"`
	DatabaseDSN     string
	LogLevel        string `validate:"oneof=trace debug info warn error fatal panic disabled"`
	LogJSON         bool
}

type SmartOLTConfig struct {
	BaseURL            string        `validate:"required,url"`
	Token              string        `validate:"required"`
	Timeout            time.Duration `validate:"gt=0"`
	MinCallSpacing     time.Duration `validate:"gte=0"`
	DetailsHourlyLimit int           `validate:"gte=0"`
	GPSHourlyLimit     int           `validate:"gte=0"`
}

type CacheConfig struct {
	Backend      string        `validate:"oneof=memory badger"`
	Details      time.Duration `validate:"gte=0"`
	Status       time.Duration `validate:"gte=0"`
	Location     time.Duration `validate:"gte=0"`
	List         time.Duration `validate:"gte=0"`
	DeviceStatus time.Duration `validate:"gte=0"`
}

type HTTPConfig struct {
	Listen             string `validate:"required"`
	CORSOrigins        []string
	RateLimitPerMinute int `validate:"gte=0"`
}

type TelegramConfig struct {
	BotToken    string
	AlertChatID int64
}

// Enabled reports whether the bot should run
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != ""
}

// Load reads .env when present, then the environment, and validates the result
func Load() (*Config, error) {
	var warnings []string
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		warnings = append(warnings, err.Error())
	}

	config := FromEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if len(warnings) > 0 {
		fmt.Fprintf(os.Stderr, "warning: could not load .env: %s\n", strings.Join(warnings, "; "))
	}
	return config, nil
}

// FromEnv builds the configuration from the environment without validating it
func FromEnv() *Config {
	return &Config{
		SmartOLT: SmartOLTConfig{
			BaseURL:            getEnv("SMARTOLT_BASE_URL", ""),
			Token:              getEnv("SMARTOLT_TOKEN", ""),
			Timeout:            getEnvAsSeconds("SMARTOLT_TIMEOUT_SECONDS", 30),
			MinCallSpacing:     time.Duration(getEnvAsInt("SMARTOLT_MIN_CALL_SPACING_MS", 1000)) * time.Millisecond,
			DetailsHourlyLimit: getEnvAsInt("SMARTOLT_DETAILS_HOURLY_LIMIT", 3),
			GPSHourlyLimit:     getEnvAsInt("SMARTOLT_GPS_HOURLY_LIMIT", 3),
		},
		Cache: CacheConfig{
			Backend:      strings.ToLower(getEnv("CACHE_BACKEND", CacheBackendMemory)),
			Details:      getEnvAsSeconds("CACHE_TTL_DETAILS_SECONDS", 1200),
			Status:       getEnvAsSeconds("CACHE_TTL_STATUS_SECONDS", 60),
			Location:     getEnvAsSeconds("CACHE_TTL_LOCATION_SECONDS", 86400),
			List:         getEnvAsSeconds("CACHE_TTL_LIST_SECONDS", 300),
			DeviceStatus: getEnvAsSeconds("CACHE_TTL_DEVICE_STATUS_SECONDS", 86400),
		},
		HTTP: HTTPConfig{
			Listen:             getEnv("HTTP_LISTEN", ":8080"),
			CORSOrigins:        getEnvAsList("HTTP_CORS_ORIGINS", []string{"*"}),
			RateLimitPerMinute: getEnvAsInt("HTTP_RATE_LIMIT_PER_MINUTE", 120),
		},
		Telegram: TelegramConfig{
			BotToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
			AlertChatID: getEnvAsInt64("TELEGRAM_ALERT_CHAT_ID", 0),
		},
		RefreshInterval: getEnvAsSeconds("REFRESH_INTERVAL_SECONDS", 300),
		DatabaseDSN:     getEnv("ERP_DATABASE_URL", ""),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogJSON:         getEnvAsBool("LOG_JSON", false),
	}
}

// Validate ensures required values are present and every value is in range
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves environment variable as integer with fallback
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsSeconds(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvAsInt(key, defaultSeconds)) * time.Second
}

// getEnvAsList splits a comma separated variable, dropping empty items
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
