// Package config resolves stripsbridge settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Prefix is prepended to every variable name read by FromEnv.
const Prefix = "STRIPSBRIDGE"

// Config holds the settings shared by the CLI and the solver.
type Config struct {
	LogDir        string        // per-solve JSONL run logs
	CacheDir      string        // LevelDB plan cache
	NoCache       bool          // skip the plan cache entirely
	LogLevel      slog.Level    // level of the process logger
	SearchTimeout time.Duration // 0 means no limit
}

// Load reads envFile (when it exists) into the process environment without
// overriding variables already set, then resolves the configuration.
//
// Expectations:
//   - a missing envFile is not an error
//   - variables already present in the environment win over the file
//   - any other read failure of envFile is returned
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	return FromEnv()
}

// FromEnv resolves the configuration from environment variables.
//
//	STRIPSBRIDGE_LOG_DIR         → $XDG_CACHE_HOME/stripsbridge/runs → ~/.cache/stripsbridge/runs
//	STRIPSBRIDGE_CACHE_DIR       → $XDG_CACHE_HOME/stripsbridge/plans → ~/.cache/stripsbridge/plans
//	STRIPSBRIDGE_NO_CACHE        (true/false, default false)
//	STRIPSBRIDGE_LOG_LEVEL       → LOG_LEVEL → info
//	STRIPSBRIDGE_SEARCH_TIMEOUT  (Go duration, default none)
//
// Expectations:
//   - Uses STRIPSBRIDGE_* when set and non-empty
//   - Falls back to the shared variable, then to the default
//   - Returns an error naming the variable when a value does not parse
func FromEnv() (*Config, error) {
	get := func(suffix, fallback string) string {
		if v := os.Getenv(Prefix + "_" + suffix); v != "" {
			return v
		}
		if fallback != "" {
			return os.Getenv(fallback)
		}
		return ""
	}

	base := cacheBase()
	cfg := &Config{
		LogDir:   get("LOG_DIR", ""),
		CacheDir: get("CACHE_DIR", ""),
	}
	if cfg.LogDir == "" {
		cfg.LogDir = filepath.Join(base, "runs")
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = filepath.Join(base, "plans")
	}

	if v := get("NO_CACHE", ""); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%s_NO_CACHE: %w", Prefix, err)
		}
		cfg.NoCache = b
	}

	level, err := ParseLevel(get("LOG_LEVEL", "LOG_LEVEL"))
	if err != nil {
		return nil, fmt.Errorf("%s_LOG_LEVEL: %w", Prefix, err)
	}
	cfg.LogLevel = level

	if v := get("SEARCH_TIMEOUT", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%s_SEARCH_TIMEOUT: %w", Prefix, err)
		}
		if d < 0 {
			return nil, fmt.Errorf("%s_SEARCH_TIMEOUT: negative duration %s", Prefix, d)
		}
		cfg.SearchTimeout = d
	}
	return cfg, nil
}

// ParseLevel maps debug|info|warn|error (any case) to a slog level. Empty is info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

func cacheBase() string {
	if x := os.Getenv("XDG_CACHE_HOME"); x != "" {
		return filepath.Join(x, "stripsbridge")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "stripsbridge")
}
