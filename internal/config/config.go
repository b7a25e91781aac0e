package config

import (
	"fmt"
	"log"
	"os"
	"time"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env              string
	HTTPPort         string
	RedisAddr        string
	DatabaseURL      string
	RotationInterval time.Duration
	SessionBackend   string
	QueueBackend     string
	RateLimitPerMin  int
	ProfessorKey     string
	JWTIssuer        string
	JWTSigningKey    string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
}

// Load returns application config populated from environment variables with sensible defaults.
func Load() App {
	return App{
		Env:              getEnv("APP_ENV", "dev"),
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		RotationInterval: durationEnv("ROTATION_INTERVAL", 60*time.Second),
		SessionBackend:   getEnv("SESSION_BACKEND", "redis"),
		QueueBackend:     getEnv("QUEUE_BACKEND", "redis"),
		RateLimitPerMin:  intEnv("RATE_LIMIT_PER_MIN", 120),
		ProfessorKey:     getEnv("PROFESSOR_KEY", ""),
		JWTIssuer:        getEnv("JWT_ISSUER", "rollcall"),
		JWTSigningKey:    getEnv("JWT_SIGNING_KEY", "dev-signing-secret-change"),
		AccessTTL:        durationEnv("ACCESS_TTL", 15*time.Minute),
		RefreshTTL:       durationEnv("REFRESH_TTL", 24*time.Hour),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using fallback %s", key, err, fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		log.Printf("invalid int for %s, using fallback %d", key, fallback)
	}
	return fallback
}
