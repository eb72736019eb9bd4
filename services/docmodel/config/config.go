// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads documentation-pipeline configuration from a YAML
// file with environment-variable overrides. Precedence: defaults < file <
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level pipeline configuration.
//
// Thread Safety: Safe to read concurrently. Not safe to modify after creation.
type Config struct {
	// Analysis contains pipeline execution settings.
	Analysis AnalysisConfig `json:"analysis" yaml:"analysis"`

	// Cache contains doc-record cache settings.
	Cache CacheConfig `json:"cache" yaml:"cache"`

	// Watch contains file-watch settings.
	Watch WatchConfig `json:"watch" yaml:"watch"`

	// Observability contains telemetry settings.
	Observability ObservabilityConfig `json:"observability" yaml:"observability"`
}

// AnalysisConfig contains pipeline execution settings.
type AnalysisConfig struct {
	// BudgetLimit is the per-declaration step budget. <= 0 disables it.
	BudgetLimit int64 `json:"budget_limit" yaml:"budget_limit"`

	// WorkerCount is the parallel analysis worker count. <= 0 means one
	// worker per CPU.
	WorkerCount int `json:"worker_count" yaml:"worker_count"`

	// Parallel selects the parallel runner instead of the sequential one.
	Parallel bool `json:"parallel" yaml:"parallel"`
}

// CacheConfig contains doc-record cache settings.
type CacheConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	MemorySize int    `json:"memory_size" yaml:"memory_size"`
	StorePath  string `json:"store_path" yaml:"store_path"`
}

// WatchConfig contains file-watch settings.
type WatchConfig struct {
	// Debounce is how long to wait after the last file event before
	// re-running analysis.
	Debounce time.Duration `json:"debounce" yaml:"debounce"`
}

// ObservabilityConfig contains telemetry settings.
type ObservabilityConfig struct {
	// MetricsExporter is one of "prometheus", "stdout", "none".
	MetricsExporter string `json:"metrics_exporter" yaml:"metrics_exporter"`

	// TracesExporter is one of "stdout", "none".
	TracesExporter string `json:"traces_exporter" yaml:"traces_exporter"`

	// PrometheusAddr is the listen address for the /metrics endpoint.
	PrometheusAddr string `json:"prometheus_addr" yaml:"prometheus_addr"`

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `json:"log_level" yaml:"log_level"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Analysis: AnalysisConfig{
			BudgetLimit: 200_000,
			WorkerCount: 0,
			Parallel:    true,
		},
		Cache: CacheConfig{
			Enabled:    true,
			MemorySize: 4096,
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
		Observability: ObservabilityConfig{
			MetricsExporter: "none",
			TracesExporter:  "none",
			PrometheusAddr:  ":9464",
			LogLevel:        "info",
		},
	}
}

// Load builds the effective configuration.
//
// Description:
//
//	Starts from defaults, overlays the YAML file at configPath if given,
//	then applies DOCMODEL_* environment overrides, then validates.
func Load(configPath string) (Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := loadFile(configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	loadFromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func loadFromEnv(cfg *Config) {
	if v := os.Getenv("DOCMODEL_BUDGET_LIMIT"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Analysis.BudgetLimit = n
		}
	}
	if v := os.Getenv("DOCMODEL_WORKER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analysis.WorkerCount = n
		}
	}
	if v := os.Getenv("DOCMODEL_PARALLEL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Analysis.Parallel = b
		}
	}
	if v := os.Getenv("DOCMODEL_CACHE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Cache.Enabled = b
		}
	}
	if v := os.Getenv("DOCMODEL_CACHE_STORE_PATH"); v != "" {
		cfg.Cache.StorePath = v
	}
	if v := os.Getenv("DOCMODEL_METRICS_EXPORTER"); v != "" {
		cfg.Observability.MetricsExporter = v
	}
	if v := os.Getenv("DOCMODEL_TRACES_EXPORTER"); v != "" {
		cfg.Observability.TracesExporter = v
	}
	if v := os.Getenv("DOCMODEL_LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
}

// Validate checks the configuration for inconsistent values.
func (c Config) Validate() error {
	if c.Cache.Enabled && c.Cache.MemorySize <= 0 {
		return fmt.Errorf("cache.memory_size must be positive, got %d", c.Cache.MemorySize)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %s", c.Watch.Debounce)
	}
	switch c.Observability.MetricsExporter {
	case "prometheus", "stdout", "none":
	default:
		return fmt.Errorf("observability.metrics_exporter must be prometheus, stdout, or none, got %q", c.Observability.MetricsExporter)
	}
	switch c.Observability.TracesExporter {
	case "stdout", "none":
	default:
		return fmt.Errorf("observability.traces_exporter must be stdout or none, got %q", c.Observability.TracesExporter)
	}
	switch c.Observability.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("observability.log_level must be debug, info, warn, or error, got %q", c.Observability.LogLevel)
	}
	return nil
}
