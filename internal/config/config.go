package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

var ErrEmptyEnvironmentVariable = errors.New("empty environment variable")

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	Redis      RedisConfig
	Services   ServicesConfig
	WorkerPool WorkerPoolConfig
	Server     ServerConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Username string
	Password string
	Name     string
}

// RedisConfig holds Redis connection settings (job queue and chat state)
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ServicesConfig holds external service API keys and configuration
type ServicesConfig struct {
	CashfreeClientID     string
	CashfreeClientSecret string
	CashfreePayoutURL    string
	ShiprocketToken      string
	ShiprocketBaseURL    string
	RedeemURLBase        string
	WhatsAppNumbers      []string
	WebAppURI            string
}

// WorkerPoolConfig holds worker pool configuration for job processing
type WorkerPoolConfig struct {
	ProvisioningWorkers int // Number of workers for code provisioning jobs
	ImportWorkers       int // Number of workers for bulk claimant import jobs
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int
}

// Load reads and validates all required environment variables
func Load() (*Config, error) {
	// Load env.local in non-production environments
	if os.Getenv("GO_ENV") != "production" {
		if err := godotenv.Load("env.local"); err != nil {
			return nil, fmt.Errorf("failed to load env.local: %w", err)
		}
	}

	cfg := &Config{}

	// Database configuration
	var err error
	if cfg.Database.Host, err = requireEnv("DB_HOST"); err != nil {
		return nil, err
	}
	if cfg.Database.Username, err = requireEnv("DB_USERNAME"); err != nil {
		return nil, err
	}
	if cfg.Database.Password, err = requireEnv("DB_PASSWORD"); err != nil {
		return nil, err
	}
	if cfg.Database.Name, err = requireEnv("DB_NAME"); err != nil {
		return nil, err
	}

	// Redis configuration
	cfg.Redis.Addr = getEnvWithDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	redisDB := getEnvWithDefault("REDIS_DB", "0")
	cfg.Redis.DB, err = strconv.Atoi(redisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_DB: %w", err)
	}

	// Services configuration
	if cfg.Services.CashfreeClientID, err = requireEnv("CASHFREE_CLIENT_ID"); err != nil {
		return nil, err
	}
	if cfg.Services.CashfreeClientSecret, err = requireEnv("CASHFREE_CLIENT_SECRET"); err != nil {
		return nil, err
	}
	cfg.Services.CashfreePayoutURL = getEnvWithDefault("CASHFREE_PAYOUT_URL", "https://api.cashfree.com")
	if cfg.Services.ShiprocketToken, err = requireEnv("SHIPROCKET_TOKEN"); err != nil {
		return nil, err
	}
	cfg.Services.ShiprocketBaseURL = getEnvWithDefault("SHIPROCKET_BASE_URL", "https://apiv2.shiprocket.in")
	if cfg.Services.RedeemURLBase, err = requireEnv("REDEEM_URL_BASE"); err != nil {
		return nil, err
	}
	if cfg.Services.WebAppURI, err = requireEnv("WEBAPP_URI"); err != nil {
		return nil, err
	}

	// Default WhatsApp numbers for campaigns without a dedicated number
	whatsappNumbers := os.Getenv("DEFAULT_WHATSAPP_NUMBERS")
	for _, number := range strings.Split(whatsappNumbers, ",") {
		if trimmed := strings.TrimSpace(number); trimmed != "" {
			cfg.Services.WhatsAppNumbers = append(cfg.Services.WhatsAppNumbers, trimmed)
		}
	}

	// Worker pool configuration
	provisioningWorkers := getEnvWithDefault("PROVISIONING_WORKERS", "5")
	cfg.WorkerPool.ProvisioningWorkers, err = strconv.Atoi(provisioningWorkers)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PROVISIONING_WORKERS: %w", err)
	}

	importWorkers := getEnvWithDefault("IMPORT_WORKERS", "3")
	cfg.WorkerPool.ImportWorkers, err = strconv.Atoi(importWorkers)
	if err != nil {
		return nil, fmt.Errorf("failed to parse IMPORT_WORKERS: %w", err)
	}

	// Server configuration
	serverPort, err := requireEnv("SERVER_PORT")
	if err != nil {
		return nil, err
	}
	cfg.Server.Port, err = strconv.Atoi(serverPort)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SERVER_PORT: %w", err)
	}

	return cfg, nil
}

// ConnectionString returns a PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s",
		c.Username, c.Password, c.Host, c.Name)
}

// requireEnv retrieves an environment variable or returns an error if empty
func requireEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%s is not set: %w", key, ErrEmptyEnvironmentVariable)
	}
	return value, nil
}

// getEnvWithDefault retrieves an environment variable or returns a default value
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
