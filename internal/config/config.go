package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/wizone/it-support-api/internal/constants"
)

type Config struct {
	DBDriver      string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBSSLMode     string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	SessionSecret string
	SessionSecure bool
	GinMode       string
	HTTPPort      string
	LogLevel      string
	OpenAIAPIKey  string

	RequestTimeoutSeconds int

	JWTSecret     string
	JWTTTLMinutes int
	BcryptCost    int

	AutoCompleteDelay time.Duration
	SweepInterval     time.Duration
}

// Load reads configuration from the environment, loading a .env file first when present.
func Load() *Config {
	_ = godotenv.Load()

	driver := getEnv("DB_DRIVER", "postgres")
	defaultPort := "5432"
	if driver == "mysql" {
		defaultPort = "3306"
	}

	return &Config{
		DBDriver:      driver,
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", defaultPort),
		DBUser:        getEnv("DB_USER", "wizone"),
		DBPassword:    getEnv("DB_PASSWORD", "wizone"),
		DBName:        getEnv("DB_NAME", "wizone_support"),
		DBSSLMode:     getEnv("DB_SSLMODE", "disable"),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SessionSecret: getEnv("SESSION_SECRET", "default-secret-key-change-me"),
		SessionSecure: getEnvAsBool("SESSION_SECURE", false),
		GinMode:       getEnv("GIN_MODE", "debug"),
		HTTPPort:      getEnv("HTTP_PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),

		RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),

		JWTSecret:     getEnv("JWT_SECRET", "dev-jwt-secret"),
		JWTTTLMinutes: getEnvAsInt("JWT_TTL_MINUTES", 60*24),
		BcryptCost:    getEnvAsInt("BCRYPT_COST", 10),

		AutoCompleteDelay: getEnvAsDuration("AUTO_COMPLETE_DELAY", constants.DefaultAutoCompleteDelay),
		SweepInterval:     getEnvAsDuration("AUTO_COMPLETE_SWEEP_INTERVAL", constants.DefaultSweepInterval),
	}
}

// RedisAddr returns host:port for the Redis server.
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

// HTTPAddr returns the bind address of the API server.
func (c *Config) HTTPAddr() string {
	return ":" + c.HTTPPort
}

// RequestTimeout returns the per-request deadline, zero when disabled.
func (c *Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// IsProduction reports whether gin runs in release mode.
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// DSN builds the driver specific connection string.
func (c *Config) DSN() (string, error) {
	switch c.DBDriver {
	case "postgres":
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode), nil
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName), nil
	default:
		return "", fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return defaultValue
	}
	return parsed
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
