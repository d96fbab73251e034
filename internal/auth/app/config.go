package app

import (
	"os"
	"strconv"
	"time"

	"github.com/aussiebroadwan/studybuddy/pkg/httpx"
	"github.com/aussiebroadwan/studybuddy/pkg/studyai"
	"github.com/joho/godotenv"
)

type Config struct {
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired code sweep interval (default: 15m)

	// Storage
	StoreDriver     string // mongo, sqlite or memory (default: mongo)
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
	DatabaseFile    string // SQLite path when StoreDriver is sqlite
	PepperFile      string // Password hashing pepper (default: ./pepper)

	// Codes and sessions
	OTPTTL         time.Duration
	SessionTTL     time.Duration
	SessionKeyFile string // Optional: Ed25519 PEM; ephemeral key when empty
	SessionIssuer  string

	// Email delivery
	SMTPHost  string
	SMTPPort  int
	EmailUser string
	EmailPass string
	EmailFrom string

	// Generation proxy
	ServerAIKeys []string // AI_SERVER_API_KEY, AI_SERVER_API_KEY_2..5
	AIModel      string

	RateLimits httpx.Limits // RATELIMIT_{STRICT,LENIENT,GENERATE}_*
}

// LoadConfig reads configuration from the environment. A .env file in the
// working directory is loaded first; variables already set take precedence.
func LoadConfig() Config {
	_ = godotenv.Load()

	return Config{
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 15*time.Minute),

		StoreDriver:     getEnvOrDefault("STORE_DRIVER", "mongo"),
		MongoURI:        getEnvOrDefault("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:   getEnvOrDefault("MONGODB_DB", "studybuddy"),
		MongoCollection: getEnvOrDefault("MONGODB_COLLECTION", "users"),
		DatabaseFile:    getEnvOrDefault("DATABASE_FILE", "studybuddy.db"),
		PepperFile:      getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),

		OTPTTL:         getEnvDurationOrDefault("OTP_TTL", 5*time.Minute),
		SessionTTL:     getEnvDurationOrDefault("SESSION_TTL", 24*time.Hour),
		SessionKeyFile: os.Getenv("SESSION_KEY_FILE"),
		SessionIssuer:  getEnvOrDefault("SESSION_ISSUER", "studybuddy"),

		SMTPHost:  getEnvOrDefault("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:  getEnvIntOrDefault("SMTP_PORT", 587),
		EmailUser: os.Getenv("EMAIL_USER"),
		EmailPass: os.Getenv("EMAIL_PASS"),
		EmailFrom: os.Getenv("EMAIL_FROM"),

		ServerAIKeys: studyai.CollectKeys(os.Getenv, studyai.ServerKeyVars...),
		AIModel:      getEnvOrDefault("AI_MODEL", studyai.DefaultModel),

		RateLimits: httpx.LimitsFromEnv(os.Getenv),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
