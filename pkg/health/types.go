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

package health

import (
	"context"
	"time"
)

// Status represents the overall health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult represents the result of a single named health check.
type CheckResult struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
}

// HealthCheck is a single named health check function.
type HealthCheck func(ctx context.Context) error

// HealthStatus is the complete health status of the system, combining
// named component checks (database, udp_socket, ...) with system resource
// stats.
type HealthStatus struct {
	Status    Status                  `json:"status"`
	Timestamp time.Time               `json:"timestamp"`
	Checks    map[string]*CheckResult `json:"checks,omitempty"`
	System    *SystemHealth           `json:"system,omitempty"`
	Errors    []string                `json:"errors,omitempty"`
}

// SystemHealth represents system resource health together with the chat
// server's own load signals (live session count, retry dispatcher queue
// depth).
type SystemHealth struct {
	Status             Status  `json:"status"`
	MemoryUsedMB       uint64  `json:"memory_used_mb"`
	MemoryTotalMB      uint64  `json:"memory_total_mb"`
	MemoryPercent      float64 `json:"memory_percent"`
	DiskUsedGB         uint64  `json:"disk_used_gb"`
	DiskTotalGB        uint64  `json:"disk_total_gb"`
	DiskPercent        float64 `json:"disk_percent"`
	GoRoutines         int     `json:"goroutines"`
	ActiveSessions     int     `json:"active_sessions"`
	DispatchQueueDepth int     `json:"dispatch_queue_depth"`
	Error              string  `json:"error,omitempty"`
}
