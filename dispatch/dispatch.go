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

// Package dispatch implements C9: a retry dispatcher that resends an
// outbound payload to a session at a fixed interval until it is
// acknowledged or exhausts its retry budget, compensating for UDP's lack of
// delivery guarantees.
package dispatch

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agonych/udpchat-ai/internal/logger"
	"github.com/agonych/udpchat-ai/internal/metrics"
)

const (
	// DefaultMaxRetries is the number of send attempts before a task is
	// dropped without ever being acknowledged.
	DefaultMaxRetries = 5
	// DefaultRetryInterval is the minimum time between resend attempts.
	DefaultRetryInterval = 2 * time.Second
	// tickInterval is how often the dispatcher loop wakes up to check the
	// queue, independent of the per-task retry interval.
	tickInterval = 1 * time.Second
)

// newMsgID mints the 32 hex-char msg_id spec.md's wire format stamps onto
// every outbound payload (the client's ACK correlation key) — the same
// shape as the session ids handshake mints and the room ids in
// protocol/ids.go, derived from a uuid
// with its dashes stripped rather than a separate random source.
func newMsgID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Sender delivers one payload to a session. Sender implementations resolve
// the session's live address and encryption key at send time rather than
// having the dispatcher cache them, since both can change between enqueue
// and the moment a retry actually fires.
type Sender interface {
	Send(ctx context.Context, sessionID string, payload map[string]interface{}) error
}

type task struct {
	sessionID  string
	msgID      string
	payload    map[string]interface{}
	retryCount int
	lastSent   time.Time
}

// Dispatcher is C9's background retry loop.
type Dispatcher struct {
	sender        Sender
	log           logger.Logger
	maxRetries    int
	retryInterval time.Duration

	mu    sync.Mutex
	queue []*task

	stop chan struct{}
	done chan struct{}
}

// New builds a Dispatcher and starts its background retry loop.
func New(sender Sender, log logger.Logger) *Dispatcher {
	d := &Dispatcher{
		sender:        sender,
		log:           log,
		maxRetries:    DefaultMaxRetries,
		retryInterval: DefaultRetryInterval,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	go d.run()
	return d
}

// Enqueue schedules payload for delivery to sessionID, stamping it with a
// fresh msg_id the client is expected to ACK. Each call gets an
// independent copy of payload so fanning the same logical message out to
// many sessions does not let one recipient's msg_id clobber another's.
func (d *Dispatcher) Enqueue(ctx context.Context, sessionID string, payload map[string]interface{}) string {
	msgID := newMsgID()

	copied := make(map[string]interface{}, len(payload)+1)
	for k, v := range payload {
		copied[k] = v
	}
	copied["msg_id"] = msgID

	d.mu.Lock()
	d.queue = append(d.queue, &task{sessionID: sessionID, msgID: msgID, payload: copied})
	metrics.DispatcherQueueLength.Set(float64(len(d.queue)))
	d.mu.Unlock()

	return msgID
}

// Acknowledge removes the task matching (sessionID, msgID) from the queue,
// if still present.
func (d *Dispatcher) Acknowledge(sessionID, msgID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, t := range d.queue {
		if t.sessionID == sessionID && t.msgID == msgID {
			d.queue = append(d.queue[:i], d.queue[i+1:]...)
			metrics.DispatcherQueueLength.Set(float64(len(d.queue)))
			return
		}
	}
}

// QueueLength reports the number of outstanding unacknowledged tasks.
func (d *Dispatcher) QueueLength() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Stop halts the retry loop and waits for it to exit.
func (d *Dispatcher) Stop() {
	close(d.stop)
	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			d.tick()
		}
	}
}

func (d *Dispatcher) tick() {
	now := time.Now()

	d.mu.Lock()
	due := make([]*task, 0, len(d.queue))
	kept := d.queue[:0]
	for _, t := range d.queue {
		if t.retryCount >= d.maxRetries {
			metrics.RetryDispatcherDropsTotal.Inc()
			d.log.Warn("dropping undelivered task",
				logger.String("session_id", t.sessionID),
				logger.String("msg_id", t.msgID),
			)
			continue
		}
		if now.Sub(t.lastSent) >= d.retryInterval {
			due = append(due, t)
		}
		kept = append(kept, t)
	}
	d.queue = kept
	metrics.DispatcherQueueLength.Set(float64(len(d.queue)))
	d.mu.Unlock()

	ctx := context.Background()
	for _, t := range due {
		if err := d.sender.Send(ctx, t.sessionID, t.payload); err != nil {
			d.log.Debug("retry send failed",
				logger.String("session_id", t.sessionID),
				logger.String("msg_id", t.msgID),
				logger.Error(err),
			)
		}
		t.retryCount++
		t.lastSent = now
	}
}
