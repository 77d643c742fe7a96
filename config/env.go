package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Redis    RedisConfig
	DB       DBConfig
	Upstream UpstreamConfig
	Server   ServerConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Name)
}

// UpstreamConfig points at the remote inventory API. When BaseURL is empty the
// server runs everything against the local database instead.
type UpstreamConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

type ServerConfig struct {
	Port        string
	RateLimit   string
	WorkerLimit int
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	upstreamTimeout, _ := strconv.Atoi(getEnv("UPSTREAM_TIMEOUT_SECONDS", "10"))
	workerLimit, _ := strconv.Atoi(getEnv("PROVISION_WORKER_LIMIT", "8"))

	return Config{
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "veltra"),
		},
		Upstream: UpstreamConfig{
			BaseURL:        getEnv("UPSTREAM_BASE_URL", ""),
			TimeoutSeconds: upstreamTimeout,
		},
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", ":8080"),
			RateLimit:   getEnv("RATE_LIMIT", "60-M"),
			WorkerLimit: workerLimit,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
