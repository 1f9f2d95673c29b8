package config

import (
	"os"
	"strings"
)

type Config struct {
	DBHost       string
	DBPort       string
	DBUser       string
	DBPassword   string
	DBName       string
	BroadcastURL string
	JWTSecret    string
	SessionToken string
	// CreatorEmails are promoted to the creator global role on sign-in.
	CreatorEmails []string
}

func Load() *Config {
	return &Config{
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        getEnv("DB_USER", "pysend"),
		DBPassword:    getEnv("DB_PASSWORD", "pysend_dev_password"),
		DBName:        getEnv("DB_NAME", "pysend"),
		BroadcastURL:  getEnv("BROADCAST_URL", ""),
		JWTSecret:     getEnv("JWT_SECRET", "dev-secret-change-me"),
		SessionToken:  getEnv("PYSEND_TOKEN", ""),
		CreatorEmails: splitList(getEnv("CREATOR_EMAILS", "")),
	}
}

func getEnv(key, fallback string) string {
	val, exists := os.LookupEnv(key)

	if exists {
		return val
	}

	return fallback
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
