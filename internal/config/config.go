package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultDatabasePath = "data/meals.db"
	defaultPhotoPath    = "data/photos"
	defaultFoodCache    = "data/food_cache.json"
	defaultGeminiModel  = "gemini-1.5-flash"
	defaultFoodDBURL    = "https://world.openfoodfacts.org"
)

// Config holds the configuration for the application.
type Config struct {
	DatabasePath string
	LogLevel     string
	GoalsFile    string

	// Photo storage: S3 when PhotoBucket is set, local files otherwise.
	PhotoStoragePath string
	PhotoBucket      string
	AWSRegion        string

	GeminiAPIKey string
	GeminiModel  string
	GroqAPIKey   string

	FoodDBURL     string
	FoodCachePath string

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64
}

// LoadDotEnv loads variables from the given .env files (default ".env")
// without overriding ones already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	geminiAPIKey := os.Getenv("GEMINI_API_KEY")
	if geminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	allowed, err := parseIDs(os.Getenv("TELEGRAM_ALLOWED_USER_IDS"))
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS: %w", err)
	}

	var adminID int64
	if v := os.Getenv("ADMIN_TELEGRAM_ID"); v != "" {
		adminID, err = strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}

	return &Config{
		DatabasePath:           getenv("DATABASE_PATH", defaultDatabasePath),
		LogLevel:               getenv("LOG_LEVEL", "info"),
		GoalsFile:              os.Getenv("GOALS_FILE"),
		PhotoStoragePath:       getenv("PHOTO_STORAGE_PATH", defaultPhotoPath),
		PhotoBucket:            os.Getenv("PHOTO_BUCKET"),
		AWSRegion:              os.Getenv("AWS_REGION"),
		GeminiAPIKey:           geminiAPIKey,
		GeminiModel:            getenv("GEMINI_MODEL", defaultGeminiModel),
		GroqAPIKey:             os.Getenv("GROQ_API_KEY"),
		FoodDBURL:              getenv("FOOD_DB_URL", defaultFoodDBURL),
		FoodCachePath:          getenv("FOOD_CACHE_PATH", defaultFoodCache),
		TelegramBotToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL:     os.Getenv("TELEGRAM_WEBHOOK_URL"),
		TelegramAllowedUserIDs: allowed,
		AdminTelegramID:        adminID,
	}, nil
}

// ValidateBot checks the keys only the Telegram bot needs.
func (c *Config) ValidateBot() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable not set")
	}
	if c.TelegramWebhookURL == "" {
		return fmt.Errorf("TELEGRAM_WEBHOOK_URL environment variable not set")
	}
	if len(c.TelegramAllowedUserIDs) == 0 {
		return fmt.Errorf("TELEGRAM_ALLOWED_USER_IDS environment variable not set")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
