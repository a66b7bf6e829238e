package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName          string
	AppVersion       string
	Environment      string
	HTTPAddr         string
	AuthCookieSecure bool
	// TrustedProxies lists proxy addresses or CIDRs allowed to set forwarding
	// headers. Empty means the peer address is the client address.
	TrustedProxies []string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBAutoMigrate     bool

	RateLimit RateLimitConfig

	PlansConfigPath string

	UsageLogBuffer        int
	UsageLogRetentionDays int

	CSRFAllowLocalhost bool
	ResolveTargets     bool
}

// RateLimitConfig selects and configures the counter store backing the rate limiter.
type RateLimitConfig struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

const (
	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")
	authCookieSecure := environment == "production"
	if !authCookieSecure {
		authCookieSecure = getenvBool("AUTH_COOKIE_SECURE", false)
	}

	cfg := Config{
		AppName:          getenv("APP_SERVICE", "gatekeeper"),
		AppVersion:       getenv("APP_VERSION", "0.1.0"),
		Environment:      environment,
		HTTPAddr:         getenv("HTTP_ADDR", ":8080"),
		TrustedProxies:   getenvList("TRUSTED_PROXIES"),
		AuthCookieSecure: authCookieSecure,
		OTLPEndpoint:     getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "gatekeeper"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 10),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 50),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME_SECONDS", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME_SECONDS", 300),
		DBAutoMigrate:     getenvBool("DATABASE_AUTO_MIGRATE", true),

		RateLimit: RateLimitConfig{
			Backend:       normalizeBackend(getenv("RATE_LIMIT_BACKEND", RateLimitBackendMemory)),
			RedisAddr:     strings.TrimSpace(getenv("RATE_LIMIT_REDIS_ADDR", "localhost:6379")),
			RedisPassword: getenv("RATE_LIMIT_REDIS_PASSWORD", ""),
			RedisDB:       getenvInt("RATE_LIMIT_REDIS_DB", 0),
		},

		PlansConfigPath: strings.TrimSpace(getenv("PLANS_CONFIG_PATH", "")),
		UsageLogBuffer:  getenvInt("USAGE_LOG_BUFFER", 1024),

		UsageLogRetentionDays: getenvInt("USAGE_LOG_RETENTION_DAYS", 90),

		CSRFAllowLocalhost: getenvBool("CSRF_ALLOW_LOCALHOST", environment == "development"),
		ResolveTargets:     getenvBool("TARGET_RESOLVE_DNS", false),
	}

	return cfg
}

// IsDevelopment reports whether the service runs in a development environment.
func (c Config) IsDevelopment() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "development")
}

func normalizeBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case RateLimitBackendRedis:
		return RateLimitBackendRedis
	default:
		return RateLimitBackendMemory
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
