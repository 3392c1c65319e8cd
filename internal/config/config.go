package config

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all environment-provided settings for the API server.
type Config struct {
	Port        string
	DatabaseURL string
	SQLitePath  string

	N8NBaseURL         string
	N8NAdminKey        string
	PromptWebhookURL   string
	TelegramAPIBaseURL string

	EncryptionKey []byte
	TokenSecret   string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present.
func Load() (*Config, error) {
	// Ignore missing .env, real deployments configure the environment directly
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "3000"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		SQLitePath:         getEnv("SQLITE_PATH", "sello.db"),
		N8NBaseURL:         os.Getenv("N8N_BASE_URL"),
		N8NAdminKey:        os.Getenv("N8N_ADMIN_KEY"),
		PromptWebhookURL:   os.Getenv("N8N_PROMPT_GENERATION_WEBHOOK"),
		TelegramAPIBaseURL: getEnv("TELEGRAM_API_BASE_URL", "https://api.telegram.org"),
		TokenSecret:        os.Getenv("TOKEN_SECRET"),
	}

	required := map[string]string{
		"N8N_BASE_URL":  cfg.N8NBaseURL,
		"N8N_ADMIN_KEY": cfg.N8NAdminKey,
		"TOKEN_SECRET":  cfg.TokenSecret,
	}
	for key, value := range required {
		if value == "" {
			return nil, fmt.Errorf("missing required environment variable %s", key)
		}
	}

	keyHex := os.Getenv("ENCRYPTION_KEY")
	if keyHex == "" {
		return nil, fmt.Errorf("missing required environment variable ENCRYPTION_KEY")
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("ENCRYPTION_KEY is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must decode to 32 bytes, got %d", len(key))
	}
	cfg.EncryptionKey = key

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
