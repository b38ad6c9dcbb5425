package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// generateInstanceID creates a unique instance ID using hostname and PID
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "tabsense"
	}
	return fmt.Sprintf("%s-%d", hostname, os.Getpid())
}

type Config struct {
	Port        string
	Environment string

	// Database
	DatabaseURL string
	RedisURL    string

	// JWT
	JWTSecret string

	// Instance
	InstanceID string
	NodeID     int64

	// Detection tuning. These feed the service constructors; nothing in
	// core reads them as globals.
	HoarderScoreThreshold  float64
	RoutineScoreThreshold  float64
	DefaultLookbackDays    float64
	RoutineLookbackDays    int
	SessionMinTabs         int
	SessionWindowMinutes   int
	SessionMinDurationMins int

	// Whitelist cache
	WhitelistCacheTTL time.Duration

	// Routine refresh scheduler
	SchedulerEnabled  bool
	RefreshInterval   time.Duration
	RefreshLockTTL    time.Duration
	RefreshActiveDays int

	// CORS
	AllowedOrigins []string
}

func Load() (*Config, error) {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", ""),

		// Instance
		InstanceID: getEnv("INSTANCE_ID", generateInstanceID()),
		NodeID:     int64(getEnvInt("NODE_ID", 1)),

		// Detection tuning
		HoarderScoreThreshold:  getEnvFloat("HOARDER_SCORE_THRESHOLD", 60),
		RoutineScoreThreshold:  getEnvFloat("ROUTINE_SCORE_THRESHOLD", 70),
		DefaultLookbackDays:    getEnvFloat("DEFAULT_LOOKBACK_DAYS", 7),
		RoutineLookbackDays:    getEnvInt("ROUTINE_LOOKBACK_DAYS", 30),
		SessionMinTabs:         getEnvInt("SESSION_MIN_TABS", 3),
		SessionWindowMinutes:   getEnvInt("SESSION_WINDOW_MIN", 15),
		SessionMinDurationMins: getEnvInt("SESSION_MIN_DURATION_MIN", 10),

		// Whitelist cache
		WhitelistCacheTTL: time.Duration(getEnvInt("WHITELIST_CACHE_TTL_SEC", 300)) * time.Second,

		// Scheduler
		SchedulerEnabled:  getEnvBool("SCHEDULER_ENABLED", true),
		RefreshInterval:   time.Duration(getEnvInt("REFRESH_INTERVAL_MIN", 360)) * time.Minute,
		RefreshLockTTL:    time.Duration(getEnvInt("REFRESH_LOCK_TTL_MIN", 30)) * time.Minute,
		RefreshActiveDays: getEnvInt("REFRESH_ACTIVE_DAYS", 7),

		// CORS
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
