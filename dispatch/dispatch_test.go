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

package dispatch

import (
	"context"
	"encoding/hex"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agonych/udpchat-ai/internal/logger"
)

type recordingSender struct {
	mu    sync.Mutex
	sends []string
}

func (s *recordingSender) Send(_ context.Context, sessionID string, _ map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sends = append(s.sends, sessionID)
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sends)
}

func newTestDispatcher(sender Sender) *Dispatcher {
	d := &Dispatcher{
		sender:        sender,
		log:           logger.NewLogger(io.Discard, logger.InfoLevel),
		maxRetries:    DefaultMaxRetries,
		retryInterval: DefaultRetryInterval,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	return d
}

func TestEnqueueStampsIndependentMsgIDs(t *testing.T) {
	d := newTestDispatcher(&recordingSender{})
	payload := map[string]interface{}{"type": "MESSAGE"}

	id1 := d.Enqueue(context.Background(), "sess-1", payload)
	id2 := d.Enqueue(context.Background(), "sess-2", payload)

	require.NotEqual(t, id1, id2)
	assert.Equal(t, 2, d.QueueLength())

	// msg_id is the client's ACK correlation key and must match the
	// 32 hex-char shape spec.md documents for it, not a dashed uuid.
	assert.Len(t, id1, 32)
	_, err := hex.DecodeString(id1)
	assert.NoError(t, err)

	// The original payload map must be untouched by Enqueue's copy.
	_, tainted := payload["msg_id"]
	assert.False(t, tainted)
}

func TestTickSendsDueTasksAndAcknowledgeRemoves(t *testing.T) {
	sender := &recordingSender{}
	d := newTestDispatcher(sender)

	msgID := d.Enqueue(context.Background(), "sess-1", map[string]interface{}{"type": "MESSAGE"})
	d.tick()
	assert.Equal(t, 1, sender.count())
	assert.Equal(t, 1, d.QueueLength())

	d.Acknowledge("sess-1", msgID)
	assert.Equal(t, 0, d.QueueLength())

	d.tick()
	assert.Equal(t, 1, sender.count(), "acknowledged task must not be resent")
}

func TestTickDropsTaskAfterMaxRetries(t *testing.T) {
	sender := &recordingSender{}
	d := newTestDispatcher(sender)
	d.retryInterval = 0 // fire every tick in this test

	d.Enqueue(context.Background(), "sess-1", map[string]interface{}{"type": "MESSAGE"})

	for i := 0; i < DefaultMaxRetries; i++ {
		d.tick()
	}
	assert.Equal(t, DefaultMaxRetries, sender.count())
	assert.Equal(t, 1, d.QueueLength())

	d.tick()
	assert.Equal(t, 0, d.QueueLength(), "task must be dropped once retries are exhausted")
}

func TestStopHaltsBackgroundLoop(t *testing.T) {
	d := New(&recordingSender{}, logger.NewLogger(io.Discard, logger.InfoLevel))
	done := make(chan struct{})
	go func() {
		d.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return in time")
	}
}
