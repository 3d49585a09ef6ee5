package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Target   TargetConfig
	Browser  BrowserConfig
	Scraper  ScraperConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// TargetConfig identifies the single site a session is allowed to scrape.
type TargetConfig struct {
	Domain    string
	BaseURL   string
	UserAgent string
}

type BrowserConfig struct {
	Headless       bool
	ViewportWidth  int
	ViewportHeight int
}

type ScraperConfig struct {
	RequestDelay      time.Duration
	NavigationTimeout time.Duration
	ReadyTimeout      time.Duration
	MaxBatchSize      int
	SKUPrefix         string
	SiteSuffix        string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Target: TargetConfig{
			Domain:    getEnvOrDefault("TARGET_DOMAIN", "www.craftkart.in"),
			BaseURL:   getEnvOrDefault("TARGET_BASE_URL", "https://www.craftkart.in"),
			UserAgent: getEnvOrDefault("TARGET_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
		},
		Scraper: ScraperConfig{
			RequestDelay:      getDurationOrDefault("SCRAPER_REQUEST_DELAY", 2000*time.Millisecond),
			NavigationTimeout: getDurationOrDefault("SCRAPER_NAVIGATION_TIMEOUT", 30*time.Second),
			ReadyTimeout:      getDurationOrDefault("SCRAPER_READY_TIMEOUT", 10*time.Second),
			MaxBatchSize:      getIntOrDefault("SCRAPER_MAX_BATCH_SIZE", 10),
			SKUPrefix:         getEnvOrDefault("SCRAPER_SKU_PREFIX", "SCR"),
			SiteSuffix:        getEnvOrDefault("SCRAPER_SITE_SUFFIX", " | CraftKart"),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "catalog_scraper"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", ""),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Target.Domain == "" {
		return fmt.Errorf("TARGET_DOMAIN is required")
	}

	u, err := url.Parse(c.Target.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("TARGET_BASE_URL must be an absolute URL")
	}

	if c.Scraper.MaxBatchSize < 1 {
		return fmt.Errorf("SCRAPER_MAX_BATCH_SIZE must be at least 1")
	}

	if c.Scraper.RequestDelay < 0 {
		return fmt.Errorf("SCRAPER_REQUEST_DELAY cannot be negative")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
