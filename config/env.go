// SAGE - Secure Agent Guarantee Engine
// Copyright (C) 2025 SAGE-X-project
//
// This file is part of SAGE.
//
// SAGE is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SAGE is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with SAGE. If not, see <https://www.gnu.org/licenses/>.

package config

import (
	"os"
	"regexp"
	"strings"
)

// envVarPattern matches ${VAR} or ${VAR:default}
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// SubstituteEnvVars replaces ${VAR} or ${VAR:default} with environment variable values
func SubstituteEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}

		value := os.Getenv(varName)
		if value == "" {
			return defaultValue
		}
		return value
	})
}

// SubstituteEnvVarsInConfig recursively substitutes environment variables in config.
// Only string fields carry placeholders; numeric fields (ports, buffer sizes)
// are set directly in the file or left to setDefaults.
func SubstituteEnvVarsInConfig(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Environment = SubstituteEnvVars(cfg.Environment)

	if cfg.Server != nil {
		cfg.Server.BindAddr = SubstituteEnvVars(cfg.Server.BindAddr)
	}

	if cfg.Database != nil {
		cfg.Database.Host = SubstituteEnvVars(cfg.Database.Host)
		cfg.Database.User = SubstituteEnvVars(cfg.Database.User)
		cfg.Database.Password = SubstituteEnvVars(cfg.Database.Password)
		cfg.Database.Name = SubstituteEnvVars(cfg.Database.Name)
		cfg.Database.SSLMode = SubstituteEnvVars(cfg.Database.SSLMode)
		cfg.Database.DSN = SubstituteEnvVars(cfg.Database.DSN)
	}

	if cfg.KeyStore != nil {
		cfg.KeyStore.Directory = SubstituteEnvVars(cfg.KeyStore.Directory)
		cfg.KeyStore.PrivateKeyFile = SubstituteEnvVars(cfg.KeyStore.PrivateKeyFile)
		cfg.KeyStore.PublicKeyFile = SubstituteEnvVars(cfg.KeyStore.PublicKeyFile)
	}

	if cfg.Logging != nil {
		cfg.Logging.Level = SubstituteEnvVars(cfg.Logging.Level)
		cfg.Logging.Format = SubstituteEnvVars(cfg.Logging.Format)
	}

	if cfg.Metrics != nil {
		cfg.Metrics.ListenAddr = SubstituteEnvVars(cfg.Metrics.ListenAddr)
	}

	if cfg.Health != nil {
		cfg.Health.ListenAddr = SubstituteEnvVars(cfg.Health.ListenAddr)
	}

	if cfg.AI != nil {
		cfg.AI.Mode = SubstituteEnvVars(cfg.AI.Mode)
		cfg.AI.OllamaHost = SubstituteEnvVars(cfg.AI.OllamaHost)
		cfg.AI.OllamaModel = SubstituteEnvVars(cfg.AI.OllamaModel)
		cfg.AI.OpenAIAPIKey = SubstituteEnvVars(cfg.AI.OpenAIAPIKey)
		cfg.AI.OpenAIModel = SubstituteEnvVars(cfg.AI.OpenAIModel)
		cfg.AI.AzureEndpoint = SubstituteEnvVars(cfg.AI.AzureEndpoint)
		cfg.AI.AzureDeployment = SubstituteEnvVars(cfg.AI.AzureDeployment)
	}
}

// GetEnvironment returns the current environment from CHAT_ENV or defaults to development
func GetEnvironment() string {
	env := os.Getenv("CHAT_ENV")
	if env == "" {
		env = os.Getenv("ENVIRONMENT")
	}
	if env == "" {
		env = "development"
	}
	return strings.ToLower(env)
}

// IsProduction returns true if running in production environment
func IsProduction() bool {
	return GetEnvironment() == "production"
}

// IsDevelopment returns true if running in development or local environment
func IsDevelopment() bool {
	env := GetEnvironment()
	return env == "development" || env == "local"
}
