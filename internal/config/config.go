package config

import (
	"os"
	"strconv"
	"time"
)

// Row backends for remote datasets.
const (
	BackendHub      = "hub"
	BackendPostgres = "postgres"
)

type Config struct {
	Port          int
	LogLevel      string
	DefaultSource string
	DataDir       string
	Streaming     bool
	RowBackend    string
	HubURL        string
	HubTimeout    time.Duration
	DatabaseURL   string
	RedisURL      string
	CacheTTL      time.Duration
	NatsURL       string
	NatsToken     string
	MultiWOZDir   string
}

func Load() Config {
	return Config{
		Port:          envInt("LENS_PORT", 8760),
		LogLevel:      envStr("LOG_LEVEL", "info"),
		DefaultSource: envStr("LENS_DEFAULT_SOURCE", "jihyoung/MiSC"),
		DataDir:       envStr("LENS_DATA_DIR", "./data/misc"),
		Streaming:     envBool("LENS_STREAMING", false),
		RowBackend:    envStr("ROW_BACKEND", BackendHub),
		HubURL:        envStr("HUB_URL", "https://datasets-server.huggingface.co"),
		HubTimeout:    envDuration("HUB_TIMEOUT", 30*time.Second),
		DatabaseURL:   envStr("DATABASE_URL", ""),
		RedisURL:      envStr("REDIS_URL", ""),
		CacheTTL:      envDuration("CACHE_TTL", 10*time.Minute),
		NatsURL:       envStr("NATS_URL", ""),
		NatsToken:     envStr("NATS_TOKEN", ""),
		MultiWOZDir:   envStr("MULTIWOZ_DIR", "./multiwoz/data/MultiWOZ_2.2"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
