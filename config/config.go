package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Redis         RedisConfig
	Mail          MailConfig
	PasswordReset PasswordResetConfig
	Maintenance   MaintenanceConfig
	RateLimit     RateLimitConfig
	SelfHeal      SelfHealConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
}

type DatabaseConfig struct {
	Driver     string // postgres, sqlite
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SSLMode    string
	SQLitePath string // used when Driver is sqlite (mounted volume)
}

type JWTConfig struct {
	Secret             string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type MailConfig struct {
	Transport      string // log, smtp, service
	SMTPHost       string
	SMTPPort       string
	SMTPUser       string
	SMTPPassword   string
	From           string
	FromName       string
	ServiceURL     string // base URL of the outbound mail service
	ServiceTimeout time.Duration
	ServiceAPIKey  string // shared secret between the API and the mail service
}

type PasswordResetConfig struct {
	FrontendURL     string // base URL for the emailed reset link
	TokenStore      string // database, redis, memory
	CleanupSchedule string // cron spec for expired token purge
}

type MaintenanceConfig struct {
	ExemptPaths []string
}

type RateLimitConfig struct {
	ResetRequestsPerMinute int
	Burst                  int
}

type SelfHealConfig struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	Backoff        time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "admin"),
			Password:   getEnv("DB_PASSWORD", "1234"),
			DBName:     getEnv("DB_NAME", "secondhand"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			SQLitePath: getEnv("DB_PATH", "./data/secondhand.db"),
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", "your-secret-key"),
			AccessTokenExpiry:  parseDuration(getEnv("JWT_ACCESS_TOKEN_EXPIRY", "15m"), 15*time.Minute),
			RefreshTokenExpiry: parseDuration(getEnv("JWT_REFRESH_TOKEN_EXPIRY", "168h"), 168*time.Hour),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		},
		Mail: MailConfig{
			Transport:      getEnv("MAIL_TRANSPORT", "log"),
			SMTPHost:       getEnv("SMTP_HOST", "smtp.gmail.com"),
			SMTPPort:       getEnv("SMTP_PORT", "587"),
			SMTPUser:       getEnv("SMTP_USER", ""),
			SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
			From:           getEnv("MAIL_FROM", "no-reply@secondhand.local"),
			FromName:       getEnv("MAIL_FROM_NAME", "Secondhand Exchange"),
			ServiceURL:     getEnv("MAIL_SERVICE_URL", "http://localhost:3001"),
			ServiceTimeout: parseDuration(getEnv("MAIL_SERVICE_TIMEOUT", "30s"), 30*time.Second),
			ServiceAPIKey:  getEnv("MAIL_SERVICE_API_KEY", ""),
		},
		PasswordReset: PasswordResetConfig{
			FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:3000"),
			TokenStore:      getEnv("RESET_TOKEN_STORE", "database"),
			CleanupSchedule: getEnv("RESET_TOKEN_CLEANUP_SCHEDULE", "@hourly"),
		},
		Maintenance: MaintenanceConfig{
			ExemptPaths: parseSlice(getEnv("MAINTENANCE_EXEMPT_PATHS",
				"/health,/metrics,/api/v1/maintenance/status,/api/v1/maintenance/ws,/api/v1/admin/maintenance")),
		},
		RateLimit: RateLimitConfig{
			ResetRequestsPerMinute: parseInt(getEnv("RESET_RATE_LIMIT_PER_MINUTE", "5"), 5),
			Burst:                  parseInt(getEnv("RESET_RATE_LIMIT_BURST", "3"), 3),
		},
		SelfHeal: SelfHealConfig{
			MaxAttempts:    parseInt(getEnv("SELF_HEAL_MAX_ATTEMPTS", "3"), 3),
			AttemptTimeout: parseDuration(getEnv("SELF_HEAL_ATTEMPT_TIMEOUT", "30s"), 30*time.Second),
			Backoff:        parseDuration(getEnv("SELF_HEAL_BACKOFF", "2s"), 2*time.Second),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	switch c.PasswordReset.TokenStore {
	case "database", "redis", "memory":
	default:
		return fmt.Errorf("unsupported RESET_TOKEN_STORE %q", c.PasswordReset.TokenStore)
	}
	switch c.Mail.Transport {
	case "log", "smtp", "service":
	default:
		return fmt.Errorf("unsupported MAIL_TRANSPORT %q", c.Mail.Transport)
	}
	if c.PasswordReset.FrontendURL == "" {
		return fmt.Errorf("FRONTEND_URL is required to build password reset links")
	}
	if c.SelfHeal.MaxAttempts < 1 {
		return fmt.Errorf("SELF_HEAL_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	if c.Driver == "sqlite" {
		return c.SQLitePath
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return n
}

func parseSlice(s string) []string {
	result := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
