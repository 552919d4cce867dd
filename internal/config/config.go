package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	APIBaseURL  string
	JWTSecret   string
	SnapshotDB  string
	DatabaseURL string // optional Postgres DSN for the mock API; empty = in-memory

	// Poll cadences per consumer type.
	TrackerInterval   time.Duration
	OrderListInterval time.Duration
	DashboardInterval time.Duration
}

func Load() *Config {
	return &Config{
		Port:              getEnv("PORT", "8081"),
		APIBaseURL:        getEnv("API_BASE_URL", "http://localhost:8081"),
		JWTSecret:         getEnv("JWT_SECRET", "dev-secret-change-in-production"),
		SnapshotDB:        getEnv("SNAPSHOT_DB", "storefront.db"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		TrackerInterval:   getEnvSeconds("TRACKER_INTERVAL_SEC", 5),
		OrderListInterval: getEnvSeconds("ORDER_LIST_INTERVAL_SEC", 15),
		DashboardInterval: getEnvSeconds("DASHBOARD_INTERVAL_SEC", 30),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvSeconds(key string, fallback int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return time.Duration(fallback) * time.Second
}
