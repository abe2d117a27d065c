// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFile_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yamlContent := `
environment: production
server:
  bind_addr: 0.0.0.0
  port: 9999
database:
  host: db.internal
  port: 5432
  user: chat
  name: udpchat
ai:
  mode: gpt
  openai_model: gpt-4o-mini
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "0.0.0.0", cfg.Server.BindAddr)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "gpt", cfg.AI.Mode)

	// Defaults fill in anything left unset.
	assert.Equal(t, 60*time.Second, cfg.Server.InactivityThreshold)
	assert.Equal(t, 10*time.Second, cfg.Server.SweepInterval)
	assert.Equal(t, 6, cfg.Server.CleanupEvery)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, ":9090", cfg.Metrics.ListenAddr)
	assert.Equal(t, ":8080", cfg.Health.ListenAddr)
}

func TestLoadFromFile_JSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	jsonContent := `{"environment":"staging","server":{"port":4000}}`
	require.NoError(t, os.WriteFile(path, []byte(jsonContent), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, 4000, cfg.Server.Port)
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile("/does/not/exist.yaml")
	assert.Error(t, err)
}

func TestLoadFromFile_EnvSubstitution(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	t.Setenv("TEST_DB_HOST", "prod-db.internal")

	yamlContent := `
database:
  host: ${TEST_DB_HOST}
  password: ${TEST_DB_PASSWORD:changeme}
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "prod-db.internal", cfg.Database.Host)
	assert.Equal(t, "changeme", cfg.Database.Password)
}

func TestSetDefaults_FillsEmptyConfig(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	require.NotNil(t, cfg.Server)
	assert.Equal(t, "0.0.0.0", cfg.Server.BindAddr)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 65507, cfg.Server.ReadBufferSize)

	require.NotNil(t, cfg.Database)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)

	require.NotNil(t, cfg.KeyStore)
	assert.Equal(t, ".udpchat/keys", cfg.KeyStore.Directory)

	require.NotNil(t, cfg.AI)
	assert.Equal(t, "ollama", cfg.AI.Mode)
	assert.Equal(t, "mistral", cfg.AI.OllamaModel)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.OpenAIModel)
}

func TestSaveToFile_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "out.yaml")
	jsonPath := filepath.Join(dir, "out.json")

	cfg := &Config{Environment: "test"}
	setDefaults(cfg)

	require.NoError(t, SaveToFile(cfg, yamlPath))
	require.NoError(t, SaveToFile(cfg, jsonPath))

	loadedYAML, err := LoadFromFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, cfg.Server.Port, loadedYAML.Server.Port)

	loadedJSON, err := LoadFromFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, cfg.Database.Host, loadedJSON.Database.Host)
}
