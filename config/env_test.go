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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstituteEnvVars_WithValue(t *testing.T) {
	t.Setenv("CHAT_TEST_VAR", "hello")
	assert.Equal(t, "hello", SubstituteEnvVars("${CHAT_TEST_VAR}"))
}

func TestSubstituteEnvVars_DefaultWhenUnset(t *testing.T) {
	assert.Equal(t, "fallback", SubstituteEnvVars("${CHAT_TEST_UNSET:fallback}"))
}

func TestSubstituteEnvVars_EmptyDefaultWhenUnsetAndNoDefault(t *testing.T) {
	assert.Equal(t, "", SubstituteEnvVars("${CHAT_TEST_UNSET_NO_DEFAULT}"))
}

func TestSubstituteEnvVars_PlainStringUnaffected(t *testing.T) {
	assert.Equal(t, "plain-value", SubstituteEnvVars("plain-value"))
}

func TestSubstituteEnvVars_MultiplePlaceholders(t *testing.T) {
	t.Setenv("CHAT_TEST_HOST", "db.internal")
	t.Setenv("CHAT_TEST_PORT", "5432")
	result := SubstituteEnvVars("${CHAT_TEST_HOST}:${CHAT_TEST_PORT}")
	assert.Equal(t, "db.internal:5432", result)
}

func TestSubstituteEnvVarsInConfig_NilSafe(t *testing.T) {
	assert.NotPanics(t, func() { SubstituteEnvVarsInConfig(nil) })
}

func TestSubstituteEnvVarsInConfig_Database(t *testing.T) {
	t.Setenv("CHAT_TEST_DB_PASS", "s3cr3t")
	cfg := &Config{Database: &DatabaseConfig{Password: "${CHAT_TEST_DB_PASS}"}}
	SubstituteEnvVarsInConfig(cfg)
	assert.Equal(t, "s3cr3t", cfg.Database.Password)
}

func TestGetEnvironment_DefaultsToDevelopment(t *testing.T) {
	t.Setenv("CHAT_ENV", "")
	t.Setenv("ENVIRONMENT", "")
	assert.Equal(t, "development", GetEnvironment())
}

func TestGetEnvironment_ReadsChatEnv(t *testing.T) {
	t.Setenv("CHAT_ENV", "Production")
	assert.Equal(t, "production", GetEnvironment())
}

func TestIsProduction(t *testing.T) {
	t.Setenv("CHAT_ENV", "production")
	assert.True(t, IsProduction())
	assert.False(t, IsDevelopment())
}

func TestIsDevelopment_Local(t *testing.T) {
	t.Setenv("CHAT_ENV", "local")
	assert.True(t, IsDevelopment())
}
