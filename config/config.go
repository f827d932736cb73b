// Package config provides the environment-variable helpers shared by every
// binary. Every setting has a default; nothing is hard-required, so a bare
// scanner run works against the public provider with no .env at all.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// GetEnv returns the value of key, or fallback when unset or empty.
func GetEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

// GetEnvInt parses key as an integer. Unset or empty falls back silently;
// a malformed value falls back with a logged warning.
func GetEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		log.Printf("[config] %s=%q is not an integer, using %d", key, v, fallback)
		return fallback
	}
	return n
}

// GetEnvBool parses key as a boolean. Recognized: 1/0, true/false, yes/no,
// on/off (case-insensitive).
func GetEnvBool(key string, fallback bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "":
		return fallback
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	log.Printf("[config] %s=%q is not a boolean, using %v", key, v, fallback)
	return fallback
}

// GetEnvList splits a comma-separated value into trimmed, non-empty items.
func GetEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// ClampInt bounds n to [lo, hi], logging under label when the value moves.
func ClampInt(label string, n, lo, hi int) int {
	if n < lo {
		log.Printf("[config] %s=%d below minimum, clamped to %d", label, n, lo)
		return lo
	}
	if n > hi {
		log.Printf("[config] %s=%d above maximum, clamped to %d", label, n, hi)
		return hi
	}
	return n
}
