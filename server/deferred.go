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

package server

import (
	"context"
	"sync"
)

// DeferredQueue buffers repository writes minted on the receive loop's
// goroutine (nonce ledger entries, session activity touches) so they run
// on a single drain point each iteration instead of inline on the hot
// path. It implements envelope.Deferred. The donor's equivalent is
// db_queue/process_db_queue, there to work around SQLite's thread-safety
// rules; this queue keeps the same shape because nothing about batching
// deferred writes once per loop cycle is SQLite-specific.
type DeferredQueue struct {
	mu    sync.Mutex
	tasks []func(ctx context.Context)
}

// NewDeferredQueue builds an empty queue.
func NewDeferredQueue() *DeferredQueue {
	return &DeferredQueue{}
}

// Enqueue appends fn to the queue.
func (q *DeferredQueue) Enqueue(fn func(ctx context.Context)) {
	q.mu.Lock()
	q.tasks = append(q.tasks, fn)
	q.mu.Unlock()
}

// Drain runs and clears every queued task, in enqueue order. Safe to call
// with an empty queue.
func (q *DeferredQueue) Drain(ctx context.Context) {
	q.mu.Lock()
	tasks := q.tasks
	q.tasks = nil
	q.mu.Unlock()

	for _, fn := range tasks {
		fn(ctx)
	}
}
