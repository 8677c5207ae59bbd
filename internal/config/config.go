// Package config resolves command defaults from the environment and an
// optional .swampmonster.env file in the analysed root.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvFile is read from the analysed root when present.
const EnvFile = ".swampmonster.env"

const (
	envOutput       = "SWAMPMONSTER_OUTPUT"
	envConcurrency  = "SWAMPMONSTER_CONCURRENCY"
	envAggregator   = "SWAMPMONSTER_AGG"
	envHandlerTypes = "SWAMPMONSTER_HANDLER_TYPES"
	envDB           = "SWAMPMONSTER_DB"
	envCacheSize    = "SWAMPMONSTER_CACHE_SIZE"
)

// Config holds defaults for the analyse command. Flags set on the command
// line take precedence.
type Config struct {
	Output       string
	Concurrency  int
	Aggregator   bool
	HandlerTypes []string
	DB           string
	CacheSize    int
}

// Load reads root/.swampmonster.env, then lets process environment
// variables override it. A missing file is not an error.
func Load(root string) (*Config, error) {
	values := map[string]string{}

	path := filepath.Join(root, EnvFile)
	if _, err := os.Stat(path); err == nil {
		fileValues, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		for k, v := range fileValues {
			values[k] = v
		}
	}

	for _, key := range []string{envOutput, envConcurrency, envAggregator, envHandlerTypes, envDB, envCacheSize} {
		if v, ok := os.LookupEnv(key); ok {
			values[key] = v
		}
	}

	return fromValues(values)
}

func fromValues(values map[string]string) (*Config, error) {
	cfg := &Config{
		Output: strings.TrimSpace(values[envOutput]),
		DB:     strings.TrimSpace(values[envDB]),
	}

	var err error
	if cfg.Concurrency, err = intValue(values, envConcurrency); err != nil {
		return nil, err
	}
	if cfg.CacheSize, err = intValue(values, envCacheSize); err != nil {
		return nil, err
	}

	if raw := strings.TrimSpace(values[envAggregator]); raw != "" {
		cfg.Aggregator, err = strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", envAggregator, raw, err)
		}
	}

	for _, part := range strings.Split(values[envHandlerTypes], ",") {
		if part = strings.TrimSpace(part); part != "" {
			cfg.HandlerTypes = append(cfg.HandlerTypes, part)
		}
	}

	return cfg, nil
}

func intValue(values map[string]string, key string) (int, error) {
	raw := strings.TrimSpace(values[key])
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q: expected a non-negative integer", key, raw)
	}
	return n, nil
}
