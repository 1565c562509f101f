package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/mnee-gate/gatekeeper/pkg/validation"
)

type Config struct {
	Development bool
	// API configuration
	APIPort int
	// Postgres configuration
	PostgresUser     string
	PostgresPassword string
	PostgresHost     string
	PostgresPort     int
	PostgresDB       string
	// Blockchain configuration
	EthereumRPCURL       string
	TokenContractAddress string

	// Telegram configuration
	TelegramBotToken string
	BotUsername      string

	// AppURL is the public base URL of the subscription mini app.
	// Plan buttons link into it with channelId/planId query params.
	AppURL string

	// CronSecret guards the expiry-sweep endpoint. Empty disables the
	// check (permissive default for initial deployment).
	CronSecret string
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Development:          getEnvAsBool("DEVELOPMENT", false),
		PostgresUser:         getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword:     getEnv("POSTGRES_PASSWORD", "password"),
		PostgresHost:         getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:         getEnvAsInt("POSTGRES_PORT", 5432),
		PostgresDB:           getEnv("POSTGRES_DB", "gatekeeper"),
		EthereumRPCURL:       getEnv("ETHEREUM_RPC_URL", "http://localhost:8545"),
		TokenContractAddress: getEnv("TOKEN_CONTRACT_ADDRESS", ""),
		TelegramBotToken:     getEnv("TELEGRAM_BOT_TOKEN", ""),
		BotUsername:          getEnv("BOT_USERNAME", ""),
		AppURL:               getEnv("APP_URL", ""),
		CronSecret:           getEnv("CRON_SECRET", ""),

		APIPort: getEnvAsInt("API_PORT", 6533),
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are properly set
func (c *Config) Validate() error {
	if c.TokenContractAddress == "" {
		return fmt.Errorf("TOKEN_CONTRACT_ADDRESS is required")
	}

	if err := validation.ValidateAddress(c.TokenContractAddress); err != nil {
		return fmt.Errorf("invalid TOKEN_CONTRACT_ADDRESS format: %w", err)
	}

	if c.EthereumRPCURL == "" {
		return fmt.Errorf("ETHEREUM_RPC_URL is required")
	}

	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	if c.PostgresDB == "" {
		return fmt.Errorf("POSTGRES_DB is required")
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}

	return nil
}

// Helper functions to read environment variables
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
