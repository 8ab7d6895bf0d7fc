// Package config loads rustxi's process-wide settings from the
// environment. There is no config file: every knob is a RUSTXI_* variable,
// read once at startup and passed down explicitly from there.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds every environment-derived setting for one rustxi process,
// regardless of which role (visor, cur, try) it ends up running as.
type Config struct {
	// LogLevel is one of debug, info, warn, error. Defaults to info.
	LogLevel string

	// AdminAddr, if non-empty, enables the read-only HTTP introspection
	// server bound to this address. Empty disables it entirely.
	AdminAddr string

	// EventsRedisAddr, if non-empty, enables fire-and-forget round
	// telemetry published to this Redis instance. Empty disables it.
	EventsRedisAddr string

	// EventsRedisDB selects the Redis logical database for telemetry.
	EventsRedisDB int

	// ForceSingleProc, when true, forces GOMAXPROCS(1). Defaults to true;
	// set RUSTXI_GOMAXPROCS=0 to leave GOMAXPROCS at its runtime default,
	// which is only useful for debugging the choreography itself.
	ForceSingleProc bool
}

// Load reads Config from the current process environment.
func Load() Config {
	return Config{
		LogLevel:        envString("RUSTXI_LOG_LEVEL", "info"),
		AdminAddr:       envString("RUSTXI_ADMIN_ADDR", ""),
		EventsRedisAddr: envString("RUSTXI_EVENTS_REDIS_ADDR", ""),
		EventsRedisDB:   envInt("RUSTXI_EVENTS_REDIS_DB", 0),
		ForceSingleProc: envBool("RUSTXI_GOMAXPROCS", true),
	}
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// envBool returns def when key is unset, empty, or unrecognized. Otherwise,
// case-insensitively, "1", "true", "t", "yes" yield true and "0", "false",
// "f", "no" yield false, regardless of def.
func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "0", "false", "f", "no":
		return false
	case "1", "true", "t", "yes":
		return true
	default:
		return def
	}
}
