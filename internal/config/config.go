package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port int

	// ledger
	Network      string
	RPCURL       string
	PackageID    string
	WalletBridge string

	// session
	JWTSecret            string
	SessionTTL           time.Duration
	SessionRedisAddr     string
	SessionRedisPassword string
	SessionRedisDB       int

	// activity log
	TxLogBackend string
	DBURL        string

	// confirmation poller
	PollMaxAttempts int
	PollDelay       time.Duration

	OTelEnabled      bool
	OTelEndpoint     string
	CORSOrigins      []string
	RateLimitPerMin  int
	MaxBodyBytes     int64
	ShutdownDeadline time.Duration
}

func Load() Config {
	// a missing .env is fine, real deployments inject the environment directly
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "dev")

	return Config{
		Env:  env,
		Port: getEnvInt("PORT", 8080),

		Network:      getEnv("SUI_NETWORK", "testnet"),
		RPCURL:       getEnv("SUI_RPC_URL", ""),
		PackageID:    getEnv("SUI_PACKAGE_ID", "0x463328bf694bcfc078d3317ef0116ee6a30254ba43aa4eb7ba5f14b6d01a9925"),
		WalletBridge: getEnv("WALLET_BRIDGE_URL", "http://127.0.0.1:9100"),

		JWTSecret:            jwtSecret(env),
		SessionTTL:           time.Duration(getEnvInt("SESSION_TTL_MINUTES", 60)) * time.Minute,
		SessionRedisAddr:     getEnv("SESSION_REDIS_ADDR", ""),
		SessionRedisPassword: getEnv("SESSION_REDIS_PASSWORD", ""),
		SessionRedisDB:       getEnvInt("SESSION_REDIS_DB", 0),

		TxLogBackend: getEnv("TXLOG_BACKEND", "memory"),
		DBURL:        buildDBURL(),

		PollMaxAttempts: getEnvInt("POLL_MAX_ATTEMPTS", 5),
		PollDelay:       time.Duration(getEnvInt("POLL_DELAY_MS", 1000)) * time.Millisecond,

		OTelEnabled:      getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		CORSOrigins:      getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		MaxBodyBytes:     int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),
		ShutdownDeadline: 10 * time.Second,
	}
}

// ErrMissingJWTSecret stops a non-dev start that would sign sessions with
// the well-known dev key.
var ErrMissingJWTSecret = errors.New("config: JWT_SECRET is required outside dev")

const devJWTSecret = "dev-secret-change-me"

func jwtSecret(env string) string {
	if v := os.Getenv("JWT_SECRET"); v != "" {
		return v
	}
	if env == "dev" {
		return devJWTSecret
	}
	return ""
}

// Validate reports settings the server must not start without.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	return nil
}

func buildDBURL() string {
	if v := os.Getenv("DB_URL"); v != "" {
		return v
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "suiticket")
	pass := getEnv("DB_PASSWORD", "suiticket")
	name := getEnv("DB_NAME", "suiticket")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %s=%q is not an int, using %d\n", key, v, fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return b
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
