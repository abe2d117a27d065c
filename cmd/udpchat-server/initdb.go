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

	"github.com/spf13/cobra"

	"github.com/agonych/udpchat-ai/internal/logger"
)

var initDBCmd = &cobra.Command{
	Use:   "init_db",
	Short: "Initialize the database schema",
	Long:  `init_db creates the six logical tables (users, sessions, nonces, rooms, members, messages) if they do not already exist, then exits.`,
	Args:  cobra.NoArgs,
	RunE:  runInitDB,
}

func init() {
	rootCmd.AddCommand(initDBCmd)
}

func runInitDB(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	log := buildLogger(cfg)

	ctx := context.Background()
	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", logger.Error(err))
		return err
	}
	defer store.Close()

	log.Info("Initializing database...")
	if err := store.Bootstrap(ctx); err != nil {
		log.Error("failed to bootstrap schema", logger.Error(err))
		return fmt.Errorf("init_db: %w", err)
	}

	log.Info("Database initialized successfully")
	return nil
}
