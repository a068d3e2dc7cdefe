package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	DatabasePath string
	LogLevel     string

	// Price feed settings.
	PriceProvider          string // "reference", "static" or "yahoo"
	PriceCacheTTL          time.Duration
	PriceRequestsPerSecond float64
	HTTPClientTimeout      time.Duration
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	Cfg = &AppConfig{
		DatabasePath: getEnv("DATABASE_PATH", "./trackfolio.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		PriceProvider:          getEnv("PRICE_PROVIDER", "reference"),
		PriceCacheTTL:          getEnvAsDuration("PRICE_CACHE_TTL", 15*time.Minute),
		PriceRequestsPerSecond: getEnvAsFloat("PRICE_REQUESTS_PER_SECOND", 4),
		HTTPClientTimeout:      getEnvAsDuration("HTTP_CLIENT_TIMEOUT", 30*time.Second),
	}

	if Cfg.PriceRequestsPerSecond <= 0 {
		log.Printf("WARNING: PRICE_REQUESTS_PER_SECOND must be positive, got %v. Using default 4.", Cfg.PriceRequestsPerSecond)
		Cfg.PriceRequestsPerSecond = 4
	}

	log.Printf("Configuration loaded: LogLevel=%s, DBPath=%s, PriceProvider=%s",
		Cfg.LogLevel, Cfg.DatabasePath, Cfg.PriceProvider)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Float value for %s not set or empty, using default: %v", key, fallback)
		return fallback
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	log.Printf("Invalid float value for %s ('%s'), using default: %v", key, valueStr, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Duration value for %s not set or empty, using default: %s", key, fallback.String())
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
