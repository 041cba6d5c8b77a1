package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	GinMode string

	StoreDriver string
	MongoURI    string
	DBName      string

	JWTSecret string
	TokenTTL  time.Duration

	RedisURL     string
	BookCacheTTL time.Duration

	AuthRateLimit float64
	AuthRateBurst int

	AdminEmail    string
	AdminPassword string

	LogLevel  string
	LogFormat string
}

// LoadEnv reads a .env file into the process environment if one exists.
func LoadEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: cannot read .env: %v", err)
	}
}

func GetEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := GetEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.New(key + ": " + err.Error())
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := GetEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New(key + ": " + err.Error())
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := GetEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.New(key + ": " + err.Error())
	}
	return f, nil
}

// Load builds the runtime configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Port:          GetEnv("PORT", "8080"),
		GinMode:       GetEnv("GIN_MODE", "release"),
		StoreDriver:   GetEnv("STORE_DRIVER", "mongo"),
		MongoURI:      GetEnv("MONGO_URI", ""),
		DBName:        GetEnv("DB_NAME", "bookstore"),
		JWTSecret:     GetEnv("JWT_SECRET", ""),
		RedisURL:      GetEnv("REDIS_URL", ""),
		AdminEmail:    GetEnv("ADMIN_EMAIL", ""),
		AdminPassword: GetEnv("ADMIN_PASSWORD", ""),
		LogLevel:      GetEnv("LOG_LEVEL", "info"),
		LogFormat:     GetEnv("LOG_FORMAT", "json"),
	}

	var err error
	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.BookCacheTTL, err = getDuration("BOOK_CACHE_TTL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.AuthRateLimit, err = getFloat("AUTH_RATE_LIMIT", 5); err != nil {
		return nil, err
	}
	if cfg.AuthRateBurst, err = getInt("AUTH_RATE_BURST", 10); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET not set in environment variables")
	}
	switch c.StoreDriver {
	case "mongo":
		if c.MongoURI == "" || c.DBName == "" {
			return errors.New("MONGO_URI or DB_NAME not set in environment variables")
		}
	case "memory":
	default:
		return errors.New("STORE_DRIVER must be mongo or memory")
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if c.AuthRateLimit <= 0 || c.AuthRateBurst <= 0 {
		return errors.New("AUTH_RATE_LIMIT and AUTH_RATE_BURST must be positive")
	}
	return nil
}
