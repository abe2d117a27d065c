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
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/agonych/udpchat-ai/ai"
	"github.com/agonych/udpchat-ai/config"
	"github.com/agonych/udpchat-ai/crypto/keys"
	"github.com/agonych/udpchat-ai/internal/logger"
	"github.com/agonych/udpchat-ai/internal/metrics"
	"github.com/agonych/udpchat-ai/pkg/health"
	"github.com/agonych/udpchat-ai/server"
	"github.com/agonych/udpchat-ai/session"
)

var startCmd = &cobra.Command{
	Use:   "start [ip] [port]",
	Short: "Start the UDP chat server",
	Long: `Start binds a UDP socket and runs the encrypted chat server until it
receives SIGINT or SIGTERM. The IP and port are optional positional
arguments; when omitted they fall back to SERVER_IP/SERVER_PORT (defaulting
to 127.0.0.1:9999).`,
	Args: cobra.MaximumNArgs(2),
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	if len(args) > 0 {
		cfg.Server.BindAddr = args[0]
	}
	if len(args) > 1 {
		port, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid port %q: %w", args[1], err)
		}
		cfg.Server.Port = port
	}

	log := buildLogger(cfg)
	log.Info("starting server...",
		logger.String("bind_addr", cfg.Server.BindAddr),
		logger.Int("port", cfg.Server.Port),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal("failed to open repository", logger.Error(err))
		return err
	}
	defer store.Close()

	priv, err := keys.LoadOrCreate(
		filepath.Join(cfg.KeyStore.Directory, cfg.KeyStore.PrivateKeyFile),
		filepath.Join(cfg.KeyStore.Directory, cfg.KeyStore.PublicKeyFile),
	)
	if err != nil {
		log.Fatal("failed to load or create server keys", logger.Error(err))
		return err
	}

	aiProvider, err := ai.NewProvider(cfg.AI)
	if err != nil {
		log.Fatal("failed to build AI provider", logger.Error(err))
		return err
	}

	srv, err := server.New(ctx, server.Config{
		BindAddr:       cfg.Server.BindAddr,
		Port:           cfg.Server.Port,
		ReadBufferSize: cfg.Server.ReadBufferSize,
		RecvTimeout:    cfg.Server.RecvTimeout,
		Sessions:       sessionConfigFromServerConfig(cfg.Server),
	}, store, priv, aiProvider, log)
	if err != nil {
		log.Fatal("failed to start server", logger.Error(err))
		return err
	}

	log.Info("UDPChatServer instance created", logger.String("fingerprint", srv.Fingerprint()))

	go srv.Run()

	var healthSrv *health.Server
	if cfg.Health.Enabled {
		healthSrv, err = health.StartHealthServer(healthPort(cfg.Health.ListenAddr), store.Ping, srv.Ping, srv.DomainStats)
		if err != nil {
			log.Warn("failed to start health server", logger.Error(err))
		}
	}

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.StartServer(cfg.Metrics.ListenAddr); err != nil {
				log.Warn("metrics server stopped", logger.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutdown signal received", logger.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if healthSrv != nil {
		_ = healthSrv.Stop(shutdownCtx)
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", logger.Error(err))
		return err
	}

	log.Info("server shut down cleanly")
	return nil
}

func healthPort(listenAddr string) int {
	_, portStr, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return 8080
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 8080
	}
	return port
}

// sessionConfigFromServerConfig adapts the config package's flat server
// settings into session.Config's sweeper knobs, applying session.Config's
// own defaults for anything left zero.
func sessionConfigFromServerConfig(sc *config.ServerConfig) session.Config {
	return session.Config{
		SweepInterval:       sc.SweepInterval,
		InactivityThreshold: sc.InactivityThreshold,
		CleanupEvery:        sc.CleanupEvery,
	}
}
