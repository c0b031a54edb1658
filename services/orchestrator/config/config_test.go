// Copyright (C) 2025 Aegis Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	loader, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	cfg := loader.Current()
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, 24, cfg.CacheTTLHours)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL())
}

func TestLoad_YAMLValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"port: 9100\nmongo_uri: mongodb://db:27017\ncache_ttl_hours: 6\n",
	), 0o644))

	loader, err := Load(path)
	require.NoError(t, err)

	cfg := loader.Current()
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "mongodb://db:27017", cfg.MongoURI)
	assert.Equal(t, 6*time.Hour, cfg.CacheTTL())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9100\n"), 0o644))

	t.Setenv("AEGIS_PORT", "9200")
	t.Setenv("IMAGE_VERIFIER_URL", "http://img:8080/verify")

	loader, err := Load(path)
	require.NoError(t, err)

	cfg := loader.Current()
	assert.Equal(t, 9200, cfg.Port)
	assert.Equal(t, "http://img:8080/verify", cfg.ImageVerifierURL)
}

func TestLoad_InvalidPortEnvIgnored(t *testing.T) {
	t.Setenv("AEGIS_PORT", "not-a-number")

	loader, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8000, loader.Current().Port)
}

func TestLoad_MalformedYAMLIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [nonsense\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestReload_SwapsConfigAndNotifiesListeners(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm_rate_per_sec: 2.0\n"), 0o644))

	loader, err := Load(path)
	require.NoError(t, err)

	var notified []Config
	loader.OnReload(func(cfg Config) {
		notified = append(notified, cfg)
	})

	require.NoError(t, os.WriteFile(path, []byte(
		"llm_rate_per_sec: 5.0\nimage_verifier_url: http://img:8080/verify\n",
	), 0o644))
	require.NoError(t, loader.reload())

	assert.Equal(t, 5.0, loader.Current().LLMRatePerSec)
	assert.Equal(t, "http://img:8080/verify", loader.Current().ImageVerifierURL)
	require.Len(t, notified, 1)
	assert.Equal(t, 5.0, notified[0].LLMRatePerSec)
}

func TestReload_FailureKeepsPreviousAndSkipsListeners(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9100\n"), 0o644))

	loader, err := Load(path)
	require.NoError(t, err)

	calls := 0
	loader.OnReload(func(Config) { calls++ })

	require.NoError(t, os.WriteFile(path, []byte("port: [nonsense\n"), 0o644))
	require.Error(t, loader.reload())

	assert.Equal(t, 9100, loader.Current().Port)
	assert.Equal(t, 0, calls)
}
