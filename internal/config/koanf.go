// Rankd - Content Ranking and Moderation Engine
// Copyright 2026 PowerStream
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/powerstream/rankd

// Package config loads and validates Rankd configuration with Koanf v2.
// Precedence: environment variables > YAML config file > built-in defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/rankd/config.yaml",
	"/etc/rankd/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// envPrefix namespaces Rankd environment variables: RANKD_SERVER_PORT,
// RANKD_RANKING_WEIGHT_FRESHNESS, and so on.
const envPrefix = "RANKD_"

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8092,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Signals: SignalsConfig{
			FreshnessHalfLife: 24 * time.Hour,
			NeutralEngagement: 0.5,
			TrendingSize:      100,
			TrendingTTL:       5 * time.Minute,
		},
		Preference: PreferenceConfig{
			ConfidenceHalfCount:    20,
			InterestHalfLife:       168 * time.Hour, // one week of inactivity halves an interest
			MaxInterests:           64,
			DecaySweepInterval:     time.Hour,
			StyleMinEvents:         10,
			StyleCreatorShareRatio: 0.25,
			StyleSocialRatio:       0.35,
			StyleActiveRatio:       0.30,
			PeakHours:              3,
		},
		Index: IndexConfig{
			EmbeddingDim:    64,
			RebuildInterval: 10 * time.Minute,
		},
		Ranking: RankingConfig{
			WeightEngagement:        0.30,
			WeightFreshness:         0.25,
			WeightAffinity:          0.25,
			WeightInterest:          0.20,
			DefaultLimit:            20,
			MaxLimit:                100,
			MaxSimilar:              50,
			RequestTimeout:          2 * time.Second,
			BreakerFailureThreshold: 5,
			BreakerTimeout:          30 * time.Second,
		},
		Moderation: ModerationConfig{
			FlagThreshold:   0.50,
			RejectThreshold: 0.85,
			MaxTextLength:   10000,
		},
		Events: EventsConfig{
			BufferSize:    1024,
			RetryCount:    3,
			RetryInterval: 100 * time.Millisecond,
			CloseTimeout:  30 * time.Second,
		},
		Journal: JournalConfig{
			Enabled:    false, // opt-in: in-memory operation needs no disk
			Path:       "/data/rankd/journal",
			SyncWrites: false,
			GCInterval: 10 * time.Minute,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults from defaultConfig()
//  2. Optional YAML config file
//  3. Environment variables (highest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file. CONFIG_PATH wins over the
// default search paths; returns "" when nothing is found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths lists config paths parsed as comma-separated slices
// when supplied through environment variables.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields. Env vars arrive as strings but the config expects
// slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML or defaults)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// configSections lists the top-level config sections, used to split env
// var names into section and key.
var configSections = []string{
	"server", "logging", "signals", "preference", "index",
	"ranking", "moderation", "events", "journal",
}

// envTransformFunc maps environment variable names to koanf config paths:
//
//	RANKD_SERVER_PORT               -> server.port
//	RANKD_SIGNALS_TRENDING_TTL      -> signals.trending_ttl
//	RANKD_RANKING_WEIGHT_FRESHNESS  -> ranking.weight_freshness
//
// The section name is the first underscore-delimited token; the rest of
// the name is the key within the section.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))

	for _, section := range configSections {
		if rest, ok := strings.CutPrefix(key, section+"_"); ok {
			return section + "." + rest
		}
	}

	// Unknown section: ignore the variable.
	return ""
}
