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

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/agonych/udpchat-ai/config"
	"github.com/agonych/udpchat-ai/internal/logger"
	"github.com/agonych/udpchat-ai/repository"
	"github.com/agonych/udpchat-ai/repository/memstore"
	"github.com/agonych/udpchat-ai/repository/postgres"
)

// configFile, set via --config, points LoadFromFile at a YAML/JSON file.
// Everything else falls back to the plain environment variables the prior
// Python entry point read directly (SERVER_IP, SERVER_PORT, ...).
var configFile string

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML or JSON config file (optional)")
}

// loadConfig loads an optional .env file, then either a config file (if
// --config was given) or a Config built straight from the environment,
// matching config.py's os.getenv(...) calls one for one.
func loadConfig() *config.Config {
	_ = godotenv.Load()

	if configFile != "" {
		cfg, err := config.LoadFromFile(configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}

	cfg := &config.Config{
		Environment: config.GetEnvironment(),
		Server: &config.ServerConfig{
			BindAddr:       envOr("SERVER_IP", "127.0.0.1"),
			Port:           envOrInt("SERVER_PORT", 9999),
			ReadBufferSize: envOrInt("BUFFER_SIZE", 8192),
		},
		Database: &config.DatabaseConfig{
			Host:     envOr("DB_HOST", "localhost"),
			Port:     envOrInt("DB_PORT", 5432),
			User:     envOr("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     envOr("DB_NAME", "udpchat"),
			SSLMode:  envOr("DB_SSLMODE", "disable"),
			DSN:      os.Getenv("DATABASE_URL"),
		},
		KeyStore: &config.KeyStoreConfig{
			Directory:      envOr("KEY_DIR", "storage/keys"),
			PrivateKeyFile: envOr("PRIVATE_KEY_FILE", "server_private_key.pem"),
			PublicKeyFile:  envOr("PUBLIC_KEY_FILE", "server_public_key.pem"),
		},
		Logging: &config.LoggingConfig{
			Level: envLogLevel(),
		},
		Metrics: &config.MetricsConfig{
			Enabled:    envOrBool("METRICS_ENABLED", true),
			ListenAddr: envOr("METRICS_ADDR", ":9090"),
		},
		Health: &config.HealthConfig{
			Enabled:    envOrBool("HEALTH_ENABLED", true),
			ListenAddr: envOr("HEALTH_ADDR", ":8080"),
		},
		AI: &config.AIConfig{
			Mode:            strings.ToLower(envOr("AI_MODE", "ollama")),
			OllamaHost:      envOr("OLLAMA_HOST", "http://localhost:11434"),
			OllamaModel:     envOr("OLLAMA_MODEL", "mistral"),
			OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
			OpenAIModel:     envOr("OPENAI_MODEL", "gpt-4o-mini"),
			AzureEndpoint:   os.Getenv("AZURE_OPENAI_ENDPOINT"),
			AzureDeployment: os.Getenv("AZURE_OPENAI_DEPLOYMENT"),
		},
	}

	config.SubstituteEnvVarsInConfig(cfg)
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// envOrBool parses DEBUG-style booleans the way config.py's
// `.lower() in ('true', '1', 't', 'yes', 'y')` does.
func envOrBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	switch strings.ToLower(v) {
	case "true", "1", "t", "yes", "y":
		return true
	case "false", "0", "f", "no", "n":
		return false
	default:
		return fallback
	}
}

func envLogLevel() string {
	if envOrBool("DEBUG", false) {
		return "debug"
	}
	return envOr("LOG_LEVEL", "info")
}

// buildLogger returns a StructuredLogger writing to stdout at the level
// implied by cfg.Logging.Level.
func buildLogger(cfg *config.Config) logger.Logger {
	level := logger.InfoLevel
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		level = logger.DebugLevel
	case "warn":
		level = logger.WarnLevel
	case "error":
		level = logger.ErrorLevel
	}
	return logger.NewLogger(os.Stdout, level)
}

// openStore connects to PostgreSQL using cfg.Database. Setting
// REPOSITORY_DRIVER=memory swaps in the in-process memstore implementation,
// useful for the `test` subcommand and local development without a
// database.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	if strings.ToLower(os.Getenv("REPOSITORY_DRIVER")) == "memory" {
		return memstore.New(), nil
	}

	pgCfg := &postgres.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
		DSN:      cfg.Database.DSN,
	}
	store, err := postgres.NewStore(ctx, pgCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return store, nil
}
