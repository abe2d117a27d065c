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

// Package server wires up and runs C10 (the UDP receive loop) and C11
// (the broadcast gate) around the handshake, envelope, protocol and
// dispatch packages, the way server.py's UDPChatServer class does for the
// donor.
package server

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/agonych/udpchat-ai/ai"
	"github.com/agonych/udpchat-ai/dispatch"
	"github.com/agonych/udpchat-ai/envelope"
	"github.com/agonych/udpchat-ai/handshake"
	"github.com/agonych/udpchat-ai/internal/logger"
	"github.com/agonych/udpchat-ai/internal/metrics"
	"github.com/agonych/udpchat-ai/pkg/health"
	"github.com/agonych/udpchat-ai/protocol"
	"github.com/agonych/udpchat-ai/repository"
	"github.com/agonych/udpchat-ai/session"
)

// Config configures the UDP listener and the live session table's sweeper.
type Config struct {
	BindAddr       string
	Port           int
	ReadBufferSize int
	RecvTimeout    time.Duration
	Sessions       session.Config
}

func (c Config) withDefaults() Config {
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = 65507
	}
	if c.RecvTimeout == 0 {
		c.RecvTimeout = 1 * time.Second
	}
	if c.Sessions.InactivityThreshold == 0 {
		c.Sessions.InactivityThreshold = 60 * time.Second
	}
	return c
}

// Server is the running chat server: a bound UDP socket plus every
// component the receive loop and packet handlers depend on.
type Server struct {
	cfg  Config
	conn *net.UDPConn

	store      repository.Store
	aiProvider ai.Provider
	log        logger.Logger

	sessions   *session.Manager
	deferred   *DeferredQueue
	codec      *envelope.Codec
	handshake  *handshake.Engine
	registry   *protocol.Registry
	dispatcher *dispatch.Dispatcher

	readBuf []byte

	stop chan struct{}
	done chan struct{}
}

// New binds the UDP socket and wires every component, purging any
// sessions left over from a prior process since no client can still hold
// a key for one (spec §6's startup session purge).
func New(ctx context.Context, cfg Config, store repository.Store, priv *rsa.PrivateKey, aiProvider ai.Provider, log logger.Logger) (*Server, error) {
	cfg = cfg.withDefaults()

	if n, err := store.Sessions().DeleteAll(ctx); err != nil {
		return nil, fmt.Errorf("server: purge stale sessions: %w", err)
	} else if n > 0 {
		log.Info("purged stale sessions from a prior run", logger.Int("count", int(n)))
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP(cfg.BindAddr), Port: cfg.Port})
	if err != nil {
		return nil, fmt.Errorf("server: bind udp socket: %w", err)
	}

	sessions := session.NewManager(cfg.Sessions)
	deferred := NewDeferredQueue()
	codec := envelope.NewCodec(store.Sessions(), store.Nonces(), sessions, deferred)

	hsEngine, err := handshake.NewEngine(priv, sessions, store.Sessions(), log)
	if err != nil {
		sessions.Close()
		conn.Close()
		return nil, err
	}

	s := &Server{
		cfg:        cfg,
		conn:       conn,
		store:      store,
		aiProvider: aiProvider,
		log:        log,
		sessions:   sessions,
		deferred:   deferred,
		codec:      codec,
		handshake:  hsEngine,
		registry:   protocol.NewRegistry(),
		readBuf:    make([]byte, cfg.ReadBufferSize),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	s.dispatcher = dispatch.New(&udpSender{conn: conn, codec: codec, sessions: store.Sessions(), live: sessions}, log)

	return s, nil
}

// LocalAddr reports the bound socket's address, used by the health probe's
// udp_socket check.
func (s *Server) LocalAddr() net.Addr { return s.conn.LocalAddr() }

// Ping is a trivial udp_socket liveness probe: the socket is open for as
// long as the receive loop is running.
func (s *Server) Ping() error {
	if s.conn == nil {
		return fmt.Errorf("server: udp socket not bound")
	}
	return nil
}

// Fingerprint returns the server's published handshake fingerprint.
func (s *Server) Fingerprint() string { return s.handshake.Fingerprint() }

// DomainStats samples the server's own load signals for the health
// probe's system check: the live session table's size (C2) and the
// retry dispatcher's outstanding queue depth (C9).
func (s *Server) DomainStats() health.DomainStats {
	return health.DomainStats{
		ActiveSessions:     s.sessions.Count(),
		DispatchQueueDepth: s.dispatcher.QueueLength(),
	}
}

// Run executes the receive loop until Shutdown is called. It blocks the
// calling goroutine; callers typically run it in its own goroutine.
func (s *Server) Run() {
	defer close(s.done)
	s.log.Info("udp chat server listening", logger.String("addr", s.conn.LocalAddr().String()))

	for {
		select {
		case <-s.stop:
			return
		default:
		}

		s.deferred.Drain(context.Background())
		if s.sessions.MustCleanup() {
			s.cleanupStaleSessions()
		}

		if err := s.conn.SetReadDeadline(time.Now().Add(s.cfg.RecvTimeout)); err != nil {
			s.log.Warn("failed to set read deadline", logger.Error(err))
		}

		n, addr, err := s.conn.ReadFromUDP(s.readBuf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			select {
			case <-s.stop:
				return
			default:
			}
			s.log.Warn("udp read error", logger.Error(err))
			continue
		}

		datagram := append([]byte(nil), s.readBuf[:n]...)
		timer := prometheus.NewTimer(metrics.PacketProcessingDuration)
		metrics.UDPPacketsProcessed.Inc()
		s.handleDatagram(datagram, addr)
		timer.ObserveDuration()
		metrics.ActiveSessions.Set(float64(s.sessions.Count()))
	}
}

// Shutdown stops the receive loop, the retry dispatcher and the session
// sweeper, then closes the socket. It blocks until the loop has exited.
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.stop)

	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.dispatcher.Stop()
	s.sessions.Close()
	return s.conn.Close()
}

func (s *Server) cleanupStaleSessions() {
	cutoff := time.Now().Add(-s.cfg.Sessions.InactivityThreshold)
	n, err := s.store.Sessions().DeleteInactiveBefore(context.Background(), cutoff)
	if err != nil {
		s.log.Warn("session cleanup sweep failed", logger.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("purged inactive sessions from the database", logger.Int("count", int(n)))
	}
}

func (s *Server) handleDatagram(data []byte, addr *net.UDPAddr) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		s.sendError(addr, "Packet processing failure: invalid message format")
		return
	}

	switch head.Type {
	case "SESSION_INIT":
		s.handleSessionInit(data, addr)
	case "SECURE_MSG":
		s.handleSecureMsg(data, addr)
	default:
		s.sendError(addr, fmt.Sprintf("Unknown message type '%s'", head.Type))
	}
}

type sessionInitRequest struct {
	ClientKey string `json:"client_key"`
}

func (s *Server) handleSessionInit(data []byte, addr *net.UDPAddr) {
	var req sessionInitRequest
	if err := json.Unmarshal(data, &req); err != nil || req.ClientKey == "" {
		metrics.HandshakesTotal.WithLabelValues("failure").Inc()
		s.sendError(addr, "Missing client's public key")
		return
	}

	clientKeyDER, err := base64.StdEncoding.DecodeString(req.ClientKey)
	if err != nil {
		metrics.HandshakesTotal.WithLabelValues("failure").Inc()
		s.sendError(addr, "Malformed client public key")
		return
	}

	resp, err := s.handshake.Handle(context.Background(), handshake.Request{ClientKeyDER: clientKeyDER}, addr)
	if err != nil {
		metrics.HandshakesTotal.WithLabelValues("failure").Inc()
		appErr := classify(err)
		s.log.Warn("handshake failed",
			logger.Error(appErr),
			logger.String("error_code", appErr.Code),
			logger.String("peer", addr.String()),
		)
		s.sendError(addr, "Handshake failed")
		return
	}

	metrics.HandshakesTotal.WithLabelValues("success").Inc()
	metrics.ActiveSessions.Set(float64(s.sessions.Count()))
	s.sendPlain(addr, resp)
}

func (s *Server) handleSecureMsg(data []byte, addr *net.UDPAddr) {
	var msg envelope.SecureMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(addr, "Packet processing failure: invalid message format")
		return
	}

	sess, payload, err := s.codec.Open(context.Background(), msg, addr)
	if err != nil {
		if errors.Is(err, envelope.ErrNonceReused) {
			metrics.NonceRejectionsTotal.Inc()
		}
		var terr *envelope.TransportError
		if errors.As(err, &terr) {
			s.sendError(addr, terr.Message)
			return
		}
		appErr := classify(err)
		s.log.Error("secure message transport failure", logger.Error(appErr), logger.String("error_code", appErr.Code))
		s.sendError(addr, "Message decryption failed")
		return
	}

	response := s.dispatchPacket(sess, payload)
	if response == nil {
		return
	}
	if err := s.replyTo(sess, response); err != nil {
		s.log.Error("failed to send response", logger.Error(err), logger.String("session_id", sess.ID))
	}
}

// dispatchPacket runs the packet registry with a panic guard: a bug in one
// handler must not take the whole receive loop down with it.
func (s *Server) dispatchPacket(sess *repository.Session, payload json.RawMessage) (resp protocol.Response) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("packet handler panicked",
				logger.Any("panic", r),
				logger.String("session_id", sess.ID),
			)
			resp = protocol.Response{"type": "ERROR", "data": map[string]interface{}{
				"message": "Packet processing failure",
			}}
		}
	}()

	out, err := s.registry.Dispatch(context.Background(), s, sess, payload)
	if err != nil {
		appErr := classify(err)
		s.log.Error("packet processing failure",
			logger.Error(appErr),
			logger.String("error_code", appErr.Code),
			logger.String("session_id", sess.ID),
		)
		return protocol.Response{"type": "ERROR", "data": map[string]interface{}{
			"message": "Packet processing failure",
		}}
	}
	return out
}

// replyTo sends a handler's direct response through the retry dispatcher
// rather than writing it to the socket inline, so a direct reply gets the
// same delivery guarantee as a broadcast one.
func (s *Server) replyTo(sess *repository.Session, response protocol.Response) error {
	s.sessions.Touch(sess.ID, nil)
	s.dispatcher.Enqueue(context.Background(), sess.ID, map[string]interface{}(response))
	return nil
}

func (s *Server) sendPlain(addr *net.UDPAddr, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("failed to encode plaintext response", logger.Error(err))
		return
	}
	if _, err := s.conn.WriteToUDP(raw, addr); err != nil {
		s.log.Warn("failed to send plaintext response", logger.Error(err), logger.String("peer", addr.String()))
	}
}

func (s *Server) sendError(addr *net.UDPAddr, message string) {
	s.log.Debug("sending error response", logger.String("peer", addr.String()), logger.String("message", message))
	s.sendPlain(addr, map[string]interface{}{"type": "SERVER_ERROR", "message": message})
}
