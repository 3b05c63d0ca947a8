package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	ServerPort string
	JWTSecret  string

	RedisURL              string
	LogLevel              string
	LogJSON               bool
	MigrateOnStart        bool
	ActivityAppendTimeout time.Duration
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Info("No .env file found, using system environment variables")
	}

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5431"),
		DBUser:     getEnv("DB_USER", "kanban_user"),
		DBPassword: getEnv("DB_PASSWORD", "kanban_pass"),
		DBName:     getEnv("DB_NAME", "kanban_db"),
		ServerPort: getEnv("SERVER_PORT", "8080"),
		JWTSecret:  getEnv("JWT_SECRET", "supersecretkey"),

		RedisURL:              getEnv("REDIS_URL", "redis://localhost:6379/0"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogJSON:               getBool("LOG_JSON", true),
		MigrateOnStart:        getBool("MIGRATE_ON_START", true),
		ActivityAppendTimeout: getDuration("ACTIVITY_APPEND_TIMEOUT", 5*time.Second),
	}
}

// DSN is the gorm/pgx connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
	)
}

// MigrateURL is the golang-migrate database URL for the pgx/v5 driver.
func (c *Config) MigrateURL() string {
	return fmt.Sprintf("pgx5://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getBool(key string, defaultVal bool) bool {
	v, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(defaultVal)))
	if err != nil {
		return defaultVal
	}
	return v
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, defaultVal.String()))
	if err != nil || v <= 0 {
		return defaultVal
	}
	return v
}
