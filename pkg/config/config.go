package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Auth modes
const (
	AuthModeFirebase = "firebase"
	AuthModeJWT      = "jwt"
)

type Config struct {
	Port                    string
	Env                     string
	LogFilePath             string
	FirebaseCredentialsPath string
	PostgresConnStr         string
	MongoURI                string
	MongoDatabase           string
	RedisURL                string

	NATSURL     string
	NATSStream  string
	NATSDurable string

	AuthMode  string
	JWTSecret string

	PushDryRun          bool
	PushMaxTokens       int
	GroupRepushThrottle time.Duration
	SweepGrace          time.Duration
	SweepLease          time.Duration
	SweepSchedule       string
	SweepBatch          int
	SweepWatch          bool
	DiagnosticWindow    time.Duration
	DefaultIconURL      string

	// DotEnvLoaded is false when no .env file was read. Load runs before the logger exists.
	DotEnvLoaded bool
}

// Load reads .env (when present) and then the process environment
func Load() *Config {
	dotEnvErr := godotenv.Load()

	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		LogFilePath:             getEnv("LOG_FILE_PATH", "logs/app.log"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		PostgresConnStr:         getEnv("POSTGRES_CONN_STR", ""),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "campus_pulse"),
		RedisURL:                getEnv("REDIS_URL", ""),

		NATSURL:     getEnv("NATS_URL", ""),
		NATSStream:  getEnv("NATS_STREAM", "SOCIAL"),
		NATSDurable: getEnv("NATS_DURABLE", "notification-fanout"),

		AuthMode:  getEnv("AUTH_MODE", AuthModeFirebase),
		JWTSecret: getEnv("JWT_SECRET", ""),

		PushDryRun:          getEnvAsBool("PUSH_DRY_RUN", false),
		PushMaxTokens:       getEnvAsInt("PUSH_MAX_TOKENS", 500),
		GroupRepushThrottle: getEnvAsDuration("GROUP_REPUSH_THROTTLE", 10*time.Minute),
		SweepGrace:          getEnvAsDuration("SWEEP_GRACE", 30*time.Second),
		SweepLease:          getEnvAsDuration("SWEEP_LEASE", 2*time.Minute),
		SweepSchedule:       getEnv("SWEEP_SCHEDULE", "*/15 * * * * *"),
		SweepBatch:          getEnvAsInt("SWEEP_BATCH", 100),
		SweepWatch:          getEnvAsBool("SWEEP_WATCH", true),
		DiagnosticWindow:    getEnvAsDuration("DIAGNOSTIC_WINDOW", 60*time.Second),
		DefaultIconURL:      getEnv("DEFAULT_ICON_URL", ""),

		DotEnvLoaded: dotEnvErr == nil,
	}
}

// IsProduction reports whether ENV is production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
