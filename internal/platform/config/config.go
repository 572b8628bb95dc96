package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr            string
	PostgresDSN     string
	Redis           RedisConfig
	AdminToken      string
	AdminPassword   string
	AuditBufferSize int
	Seed            bool
}

// RedisConfig holds Redis connection settings. An empty URL disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
//
// An empty ACCESO_POSTGRES_DSN selects the in-memory stores, which is only
// suitable for local development.
func FromEnv() Server {
	addr := os.Getenv("ACCESO_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	return Server{
		Addr:            addr,
		PostgresDSN:     os.Getenv("ACCESO_POSTGRES_DSN"),
		Redis:           redisFromEnv(),
		AdminToken:      os.Getenv("ACCESO_ADMIN_TOKEN"),
		AdminPassword:   os.Getenv("ACCESO_ADMIN_PASSWORD"),
		AuditBufferSize: envInt("ACCESO_AUDIT_BUFFER", 0),
		Seed:            os.Getenv("ACCESO_SEED") == "true",
	}
}

func redisFromEnv() RedisConfig {
	return RedisConfig{
		URL:          os.Getenv("ACCESO_REDIS_URL"),
		PoolSize:     envInt("ACCESO_REDIS_POOL_SIZE", 10),
		MinIdleConns: envInt("ACCESO_REDIS_MIN_IDLE", 2),
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
