// Package config resolves runtime settings from an optional .env file, the
// process environment, and built-in defaults, in rising precedence. godotenv
// never overwrites variables that are already set, so the process
// environment always beats the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Harshit-Dhanwalkar/NexusView/internal/layout"
)

const (
	// DefaultAddr is where the gateway listens.
	DefaultAddr = ":8750"
	// DefaultTick is the gateway frame interval.
	DefaultTick = 33 * time.Millisecond
	// DefaultDebounce is the watcher's quiet window before a rescan.
	DefaultDebounce = 500 * time.Millisecond
)

// Config carries every tunable the CLI consumes. Always build one through
// Load; the zero value has no useful defaults.
type Config struct {
	Addr       string
	Tick       time.Duration
	ShowHidden bool
	Debounce   time.Duration
	Physics    layout.Params
}

// Load reads the env file, then resolves the NEXUSVIEW_* variables. An
// explicit envFile that cannot be read is an error; the default .env being
// absent is not. Unparseable numerics fall back to their defaults.
func Load(envFile string, logger *zap.Logger) (*Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("env file %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("env file .env: %w", err)
	}

	cfg := &Config{
		Addr:       envString("NEXUSVIEW_ADDR", DefaultAddr),
		Tick:       envMillis(logger, "NEXUSVIEW_TICK_MS", DefaultTick),
		ShowHidden: envBool(logger, "NEXUSVIEW_SHOW_HIDDEN", false),
		Debounce:   envMillis(logger, "NEXUSVIEW_DEBOUNCE_MS", DefaultDebounce),
		Physics:    layout.DefaultParams(),
	}
	cfg.Physics.Damping = envFloat(logger, "NEXUSVIEW_DAMPING", cfg.Physics.Damping)
	cfg.Physics.SpringConstant = envFloat(logger, "NEXUSVIEW_SPRING", cfg.Physics.SpringConstant)
	cfg.Physics.RepulsionConstant = envFloat(logger, "NEXUSVIEW_REPULSION", cfg.Physics.RepulsionConstant)
	cfg.Physics.IdealEdgeLength = envFloat(logger, "NEXUSVIEW_IDEAL_LENGTH", cfg.Physics.IdealEdgeLength)
	cfg.Physics.TimeStep = envFloat(logger, "NEXUSVIEW_TIME_STEP", cfg.Physics.TimeStep)
	cfg.Physics.Friction = envFloat(logger, "NEXUSVIEW_FRICTION", cfg.Physics.Friction)
	return cfg, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envMillis(logger *zap.Logger, key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		logger.Debug("Ignoring unparseable duration",
			zap.String("key", key), zap.String("value", raw))
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

func envBool(logger *zap.Logger, key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		logger.Debug("Ignoring unparseable bool",
			zap.String("key", key), zap.String("value", raw))
		return def
	}
	return v
}

func envFloat(logger *zap.Logger, key string, def float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		logger.Debug("Ignoring unparseable float",
			zap.String("key", key), zap.String("value", raw))
		return def
	}
	return v
}
