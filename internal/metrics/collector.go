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

// Package metrics exposes Prometheus counters, gauges and histograms for
// every component of the chat server (C1-C11), registered against a single
// package-level Registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "udpchat"

// Registry is the Prometheus registry all metrics in this package attach
// to. A dedicated registry (rather than prometheus.DefaultRegisterer) keeps
// the exposition endpoint free of the Go runtime collectors' default noise
// unless explicitly added.
var Registry = prometheus.NewRegistry()

var (
	// UDPPacketsProcessed counts every inbound datagram the receive loop
	// (C10) accepts, regardless of message type or outcome.
	UDPPacketsProcessed = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "udp_packets_processed_total",
			Help:      "Total number of UDP datagrams processed by the receive loop",
		},
	)

	// PacketProcessingDuration times the full SESSION_INIT/SECURE_MSG
	// handling path, from recvfrom to response send.
	PacketProcessingDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "packet_processing_seconds",
			Help:      "Time to process one inbound UDP packet end to end",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// DatabaseOperationDuration times individual repository calls.
	DatabaseOperationDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "database_operation_seconds",
			Help:      "Time spent executing a single repository operation",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// TimeDatabaseOperation records how long fn took under the given operation
// label, then returns whatever fn returned. Mirrors the donor's
// record_*_time decorator pattern from the Python original.
func TimeDatabaseOperation(operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	DatabaseOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	return err
}
