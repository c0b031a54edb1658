// Copyright (C) 2025 Aegis Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the orchestrator configuration from a YAML file
// with environment variable overrides, and watches the file for changes.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Config is the orchestrator's runtime configuration.
//
// # Description
//
// Values come from the YAML file first, then environment variables
// override individual fields. The tunables (LLM rate limit, verifier
// endpoints) are hot-reloadable; listen addresses, store URIs, and
// credentials are read once at startup.
type Config struct {
	Port          int     `yaml:"port"`
	MongoURI      string  `yaml:"mongo_uri"`
	CacheDir      string  `yaml:"cache_dir"`
	CacheTTLHours int     `yaml:"cache_ttl_hours"`
	LLMRatePerSec float64 `yaml:"llm_rate_per_sec"`

	ImageVerifierURL   string `yaml:"image_verifier_url"`
	VideoVerifierURL   string `yaml:"video_verifier_url"`
	AudioClassifierURL string `yaml:"audio_classifier_url"`

	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// defaults returns the baseline configuration used when a field is absent
// everywhere.
func defaults() Config {
	return Config{
		Port:          8000,
		CacheDir:      "/var/lib/aegis/cache",
		CacheTTLHours: 24,
		LLMRatePerSec: 2.0,
	}
}

// Loader owns the current configuration and its file watcher.
type Loader struct {
	mu       sync.RWMutex
	current  Config
	onReload []func(Config)
	path     string
	logger   *slog.Logger
}

// Load reads the config file at path and applies env overrides. A missing
// file is not an error; the result is defaults plus env.
func Load(path string) (*Loader, error) {
	l := &Loader{
		path:   path,
		logger: slog.Default().With("component", "config"),
	}
	cfg, err := l.read()
	if err != nil {
		return nil, err
	}
	l.current = cfg
	return l, nil
}

// Current returns a copy of the active configuration.
func (l *Loader) Current() Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnReload registers fn to run after every successful reload, with the
// new configuration. Callbacks run on the watcher goroutine and must not
// block.
func (l *Loader) OnReload(fn func(Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onReload = append(l.onReload, fn)
}

// reload re-reads the configuration, swaps it in, and notifies listeners.
// A read failure keeps the previous configuration.
func (l *Loader) reload() error {
	cfg, err := l.read()
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.current = cfg
	listeners := make([]func(Config), len(l.onReload))
	copy(listeners, l.onReload)
	l.mu.Unlock()

	for _, fn := range listeners {
		fn(cfg)
	}
	return nil
}

// Watch reloads the configuration whenever the file changes. Runs until
// the watcher fails; start it in its own goroutine. Reload errors keep
// the previous configuration.
func (l *Loader) Watch() error {
	if l.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(l.path); err != nil {
		return fmt.Errorf("failed to watch config file %s: %w", l.path, err)
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			// Editors often emit several events per save.
			time.Sleep(100 * time.Millisecond)
			if err := l.reload(); err != nil {
				l.logger.Error("Config reload failed, keeping previous", "error", err)
				continue
			}
			l.logger.Info("Configuration reloaded", "path", l.path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("Config watcher error", "error", err)
		}
	}
}

// read loads defaults, then the YAML file, then env overrides.
func (l *Loader) read() (Config, error) {
	cfg := defaults()

	if l.path != "" {
		raw, err := os.ReadFile(l.path)
		switch {
		case os.IsNotExist(err):
			l.logger.Info("Config file not found, using defaults and environment", "path", l.path)
		case err != nil:
			return Config{}, fmt.Errorf("failed to read config file %s: %w", l.path, err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse config file %s: %w", l.path, err)
			}
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv overrides individual fields from the environment.
func applyEnv(cfg *Config) {
	if v := os.Getenv("AEGIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		} else {
			slog.Warn("Invalid AEGIS_PORT, keeping configured value", "value", v)
		}
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		cfg.MongoURI = v
	}
	if v := os.Getenv("AEGIS_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("LLM_REQUESTS_PER_SECOND"); v != "" {
		if rate, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.LLMRatePerSec = rate
		}
	}
	if v := os.Getenv("IMAGE_VERIFIER_URL"); v != "" {
		cfg.ImageVerifierURL = v
	}
	if v := os.Getenv("VIDEO_VERIFIER_URL"); v != "" {
		cfg.VideoVerifierURL = v
	}
	if v := os.Getenv("AUDIO_CLASSIFIER_URL"); v != "" {
		cfg.AudioClassifierURL = v
	}
	if v := os.Getenv("OTLP_ENDPOINT"); v != "" {
		cfg.OTLPEndpoint = v
	}
}

// CacheTTL returns the cache TTL as a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}
