// Package config loads flashvaultd's runtime settings, adapted from the
// teacher's services/lending Config: environment-variable driven with
// typed defaults, a Sanitized() view for logging, and a Validate() pass.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config captures the runtime settings for flashvaultd.
type Config struct {
	Listen              string
	DataDir             string
	PoolManifestPath    string
	JWTSigningKey       string
	ManagementFeePct    uint64
	EngineHolderAddress string
	OwnerAddress        string
	OTELEndpoint        string
	LogLevel            string
	Environment         string
	MetricsListen       string
}

const (
	envListen           = "FLASHVAULT_LISTEN"
	envDataDir          = "FLASHVAULT_DATA_DIR"
	envPoolManifestPath = "FLASHVAULT_POOL_MANIFEST"
	envJWTSigningKey    = "FLASHVAULT_JWT_SIGNING_KEY"
	envManagementFeePct = "FLASHVAULT_MANAGEMENT_FEE_PCT"
	envEngineHolder     = "FLASHVAULT_ENGINE_HOLDER"
	envOwner            = "FLASHVAULT_OWNER"
	envOTELEndpoint     = "FLASHVAULT_OTEL_ENDPOINT"
	envLogLevel         = "FLASHVAULT_LOG_LEVEL"
	envEnvironment      = "FLASHVAULT_ENV"
	envMetricsListen    = "FLASHVAULT_METRICS_LISTEN"

	defaultListen           = "0.0.0.0:8443"
	defaultDataDir          = "./data"
	defaultPoolManifestPath = "./pools.toml"
	defaultManagementFeePct = 100
	defaultLogLevel         = "info"
	defaultEnvironment      = "development"
	defaultMetricsListen    = "0.0.0.0:9090"
)

// LoadFromEnv constructs a Config from environment variables and defaults.
func LoadFromEnv() Config {
	return Config{
		Listen:              stringFromEnv(envListen, defaultListen),
		DataDir:             stringFromEnv(envDataDir, defaultDataDir),
		PoolManifestPath:    stringFromEnv(envPoolManifestPath, defaultPoolManifestPath),
		JWTSigningKey:       strings.TrimSpace(os.Getenv(envJWTSigningKey)),
		ManagementFeePct:    uint64FromEnv(envManagementFeePct, defaultManagementFeePct),
		EngineHolderAddress: strings.TrimSpace(os.Getenv(envEngineHolder)),
		OwnerAddress:        strings.TrimSpace(os.Getenv(envOwner)),
		OTELEndpoint:        strings.TrimSpace(os.Getenv(envOTELEndpoint)),
		LogLevel:            stringFromEnv(envLogLevel, defaultLogLevel),
		Environment:         stringFromEnv(envEnvironment, defaultEnvironment),
		MetricsListen:       stringFromEnv(envMetricsListen, defaultMetricsListen),
	}
}

// fileOverlay mirrors the subset of Config an operator may also set via a
// YAML file, the way the teacher's services/lending/main.go layers a YAML
// config on top of flag/env defaults. Any field left unset in the file keeps
// the value LoadFromEnv already populated.
type fileOverlay struct {
	Listen           *string `yaml:"listen"`
	DataDir          *string `yaml:"dataDir"`
	PoolManifestPath *string `yaml:"poolManifestPath"`
	ManagementFeePct *uint64 `yaml:"managementFeePct"`
	MetricsListen    *string `yaml:"metricsListen"`
}

// ApplyFile overlays the YAML document at path onto cfg, returning the
// merged configuration. A missing file is not an error: flashvaultd runs
// fine on environment variables alone.
func ApplyFile(cfg Config, path string) (Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	var overlay fileOverlay
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}

	merged := cfg
	if overlay.Listen != nil {
		merged.Listen = *overlay.Listen
	}
	if overlay.DataDir != nil {
		merged.DataDir = *overlay.DataDir
	}
	if overlay.PoolManifestPath != nil {
		merged.PoolManifestPath = *overlay.PoolManifestPath
	}
	if overlay.ManagementFeePct != nil {
		merged.ManagementFeePct = *overlay.ManagementFeePct
	}
	if overlay.MetricsListen != nil {
		merged.MetricsListen = *overlay.MetricsListen
	}
	return merged, nil
}

// Sanitized returns a copy of cfg with secrets masked for logging.
func (cfg Config) Sanitized() Config {
	clone := cfg
	if clone.JWTSigningKey != "" {
		clone.JWTSigningKey = "***"
	}
	return clone
}

// Validate ensures the configuration is internally consistent before the
// engine boots.
func (cfg Config) Validate() error {
	if strings.TrimSpace(cfg.JWTSigningKey) == "" {
		return fmt.Errorf("config: %s is required", envJWTSigningKey)
	}
	if strings.TrimSpace(cfg.EngineHolderAddress) == "" {
		return fmt.Errorf("config: %s is required", envEngineHolder)
	}
	if strings.TrimSpace(cfg.OwnerAddress) == "" {
		return fmt.Errorf("config: %s is required", envOwner)
	}
	if cfg.ManagementFeePct == 0 {
		return fmt.Errorf("config: %s must be positive", envManagementFeePct)
	}
	return nil
}

func stringFromEnv(key, fallback string) string {
	trimmed := strings.TrimSpace(os.Getenv(key))
	if trimmed == "" {
		return fallback
	}
	return trimmed
}

func uint64FromEnv(key string, fallback uint64) uint64 {
	trimmed := strings.TrimSpace(os.Getenv(key))
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
