package db

import (
	"os"
	"strings"
)

// IsPostgresDSN reports whether the DSN targets postgres (URL form or a
// lib/pq key=value list). Anything else is treated as a sqlite file path,
// the default for a single-user installation.
func IsPostgresDSN(dsn string) bool {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return true
	}
	for _, key := range []string{"host=", "user=", "dbname="} {
		if strings.Contains(lower, key) {
			return true
		}
	}
	return false
}

// NormalizeDSN trims quotes and whitespace and, for key=value postgres form,
// supplements a missing sslmode.
func NormalizeDSN(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "\"'")
	if s == "" {
		return s
	}
	if !IsPostgresDSN(s) {
		return s
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return s
	}
	fields := strings.Fields(s)
	cleaned := strings.Join(fields, " ")
	if !strings.Contains(strings.ToLower(cleaned), "sslmode=") {
		cleaned += " sslmode=disable"
	}
	return cleaned
}

// GetNormalizedDSN fetches DATABASE_DSN env var and normalizes it, falling
// back to the local sqlite file.
func GetNormalizedDSN() string {
	dsn := os.Getenv("DATABASE_DSN")
	if strings.TrimSpace(dsn) == "" {
		dsn = "traceflow.db"
	}
	return NormalizeDSN(dsn)
}
