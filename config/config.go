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
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the chat server.
type Config struct {
	Environment string          `yaml:"environment" json:"environment"`
	Server      *ServerConfig   `yaml:"server" json:"server"`
	Database    *DatabaseConfig `yaml:"database" json:"database"`
	KeyStore    *KeyStoreConfig `yaml:"keystore" json:"keystore"`
	Logging     *LoggingConfig  `yaml:"logging" json:"logging"`
	Metrics     *MetricsConfig  `yaml:"metrics" json:"metrics"`
	Health      *HealthConfig   `yaml:"health" json:"health"`
	AI          *AIConfig       `yaml:"ai" json:"ai"`
}

// ServerConfig configures the UDP listener and C2/C10 behavior.
type ServerConfig struct {
	BindAddr            string        `yaml:"bind_addr" json:"bind_addr"`
	Port                int           `yaml:"port" json:"port"`
	ReadBufferSize      int           `yaml:"read_buffer_size" json:"read_buffer_size"`
	RecvTimeout         time.Duration `yaml:"recv_timeout" json:"recv_timeout"`
	InactivityThreshold time.Duration `yaml:"inactivity_threshold" json:"inactivity_threshold"`
	SweepInterval       time.Duration `yaml:"sweep_interval" json:"sweep_interval"`
	CleanupEvery        int           `yaml:"cleanup_every" json:"cleanup_every"`
}

// DatabaseConfig configures the PostgreSQL connection (C4).
type DatabaseConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"password"`
	Name     string `yaml:"name" json:"name"`
	SSLMode  string `yaml:"sslmode" json:"sslmode"`
	// DSN, if non-empty, is used verbatim instead of the fields above.
	DSN string `yaml:"dsn" json:"dsn"`
}

// KeyStoreConfig locates the server's RSA handshake keypair on disk.
type KeyStoreConfig struct {
	Directory      string `yaml:"directory" json:"directory"`
	PrivateKeyFile string `yaml:"private_key_file" json:"private_key_file"`
	PublicKeyFile  string `yaml:"public_key_file" json:"public_key_file"`
}

// LoggingConfig configures internal/logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// MetricsConfig configures the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`
}

// HealthConfig configures the health probe HTTP endpoint.
type HealthConfig struct {
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`
}

// AIConfig configures the AI_MESSAGE assistant provider.
type AIConfig struct {
	// Mode selects the backend: "ollama" or "gpt".
	Mode string `yaml:"mode" json:"mode"`

	OllamaHost  string `yaml:"ollama_host" json:"ollama_host"`
	OllamaModel string `yaml:"ollama_model" json:"ollama_model"`

	OpenAIAPIKey string `yaml:"openai_api_key" json:"openai_api_key"`
	OpenAIModel  string `yaml:"openai_model" json:"openai_model"`

	AzureEndpoint   string `yaml:"azure_endpoint" json:"azure_endpoint"`
	AzureDeployment string `yaml:"azure_deployment" json:"azure_deployment"`
}

// LoadFromFile loads configuration from a YAML (or JSON) file, substitutes
// environment placeholders, and fills in defaults for anything left empty.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, JSON as a fallback.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse file (tried YAML and JSON): %w", err)
		}
	}

	SubstituteEnvVarsInConfig(cfg)
	setDefaults(cfg)

	return cfg, nil
}

// SaveToFile writes cfg to path, choosing JSON or YAML by file extension.
func SaveToFile(cfg *Config, path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write file: %w", err)
	}
	return nil
}

// setDefaults fills in the values a production deployment can reasonably
// omit. Precedence is file value, then env substitution, then this.
func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if cfg.Server == nil {
		cfg.Server = &ServerConfig{}
	}
	if cfg.Server.BindAddr == "" {
		cfg.Server.BindAddr = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9999
	}
	if cfg.Server.ReadBufferSize == 0 {
		cfg.Server.ReadBufferSize = 65507
	}
	if cfg.Server.RecvTimeout == 0 {
		cfg.Server.RecvTimeout = 1 * time.Second
	}
	if cfg.Server.InactivityThreshold == 0 {
		cfg.Server.InactivityThreshold = 60 * time.Second
	}
	if cfg.Server.SweepInterval == 0 {
		cfg.Server.SweepInterval = 10 * time.Second
	}
	if cfg.Server.CleanupEvery == 0 {
		cfg.Server.CleanupEvery = 6
	}

	if cfg.Database == nil {
		cfg.Database = &DatabaseConfig{}
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.Name == "" {
		cfg.Database.Name = "udpchat"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}

	if cfg.KeyStore == nil {
		cfg.KeyStore = &KeyStoreConfig{}
	}
	if cfg.KeyStore.Directory == "" {
		cfg.KeyStore.Directory = ".udpchat/keys"
	}
	if cfg.KeyStore.PrivateKeyFile == "" {
		cfg.KeyStore.PrivateKeyFile = "server_private.pem"
	}
	if cfg.KeyStore.PublicKeyFile == "" {
		cfg.KeyStore.PublicKeyFile = "server_public.pem"
	}

	if cfg.Logging == nil {
		cfg.Logging = &LoggingConfig{}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics == nil {
		cfg.Metrics = &MetricsConfig{}
	}
	if cfg.Metrics.ListenAddr == "" {
		cfg.Metrics.ListenAddr = ":9090"
	}

	if cfg.Health == nil {
		cfg.Health = &HealthConfig{}
	}
	if cfg.Health.ListenAddr == "" {
		cfg.Health.ListenAddr = ":8080"
	}

	if cfg.AI == nil {
		cfg.AI = &AIConfig{}
	}
	if cfg.AI.Mode == "" {
		cfg.AI.Mode = "ollama"
	}
	if cfg.AI.OllamaHost == "" {
		cfg.AI.OllamaHost = "http://localhost:11434"
	}
	if cfg.AI.OllamaModel == "" {
		cfg.AI.OllamaModel = "mistral"
	}
	if cfg.AI.OpenAIModel == "" {
		cfg.AI.OpenAIModel = "gpt-4o-mini"
	}
}
