package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config holds all environment-driven settings.
type Config struct {
	Port        string
	Environment string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	MongoURI string

	JWTSecret     string
	AdminUsername string
	AdminPassword string

	BrokerBaseURL     string
	BrokerAccessToken string

	TelegramBotToken string
	TelegramChatID   string

	MarketTimezone string

	ScanConcurrency int
	CacheTTL        time.Duration
	AnalysisTimeout time.Duration
	ScanTimeout     time.Duration

	CategoriesFile string
	LocalStorePath string
}

// LoadConfig loads environment variables, reading .env first if present.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		DBHost:     getEnv("DB_HOST", ""),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "stock_scanner"),

		MongoURI: getEnv("MONGODB_URI", ""),

		JWTSecret:     getEnv("JWT_SECRET", ""),
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		BrokerBaseURL:     getEnv("BROKER_BASE_URL", "https://api.fyers.in/data-rest/v2"),
		BrokerAccessToken: getEnv("BROKER_ACCESS_TOKEN", ""),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),

		MarketTimezone: getEnv("MARKET_TIMEZONE", "Asia/Kolkata"),

		ScanConcurrency: getEnvInt("SCAN_CONCURRENCY", 4),
		CacheTTL:        getEnvDuration("CACHE_TTL", 30*time.Minute),
		AnalysisTimeout: getEnvDuration("ANALYSIS_TIMEOUT", 30*time.Second),
		ScanTimeout:     getEnvDuration("SCAN_TIMEOUT", 5*time.Minute),

		CategoriesFile: getEnv("CATEGORIES_FILE", "data/categories.json"),
		LocalStorePath: getEnv("LOCAL_STORE_PATH", "data/scanner.db"),
	}

	return config, nil
}

// InitDB initializes the Postgres connection. Call only when DBHost is
// configured.
func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=require",
		cfg.DBHost,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
		cfg.DBPort,
	)

	logLevel := logger.Info
	if cfg.Environment == "production" {
		logLevel = logger.Error
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	log.Printf("Database connection verified: host=%s dbname=%s", maskHost(cfg.DBHost), cfg.DBName)
	return db, nil
}

// maskHost masks host for logging, preserving domain structure.
func maskHost(host string) string {
	if len(host) <= 3 {
		return "***"
	}
	if len(host) <= 15 {
		return host[:3] + "***"
	}
	return host[:8] + "***" + host[len(host)-10:]
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid %s=%q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Invalid %s=%q, using default %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
