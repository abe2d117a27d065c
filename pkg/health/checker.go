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
	"fmt"
	"sync"
	"time"

	"github.com/agonych/udpchat-ai/internal/logger"
)

// cachedResult stores a cached health check result
type cachedResult struct {
	result    *CheckResult
	expiresAt time.Time
}

// HealthChecker manages a registry of named health checks (database,
// udp_socket, ...) and the system resource probe.
type HealthChecker struct {
	checks      map[string]HealthCheck
	timeout     time.Duration
	mu          sync.RWMutex
	logger      logger.Logger
	cacheTTL    time.Duration
	cache       map[string]*cachedResult
	domainStats func() DomainStats
}

// NewHealthChecker creates a health checker with the given per-check
// timeout.
func NewHealthChecker(timeout time.Duration) *HealthChecker {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &HealthChecker{
		checks:      make(map[string]HealthCheck),
		timeout:     timeout,
		logger:      logger.GetDefaultLogger(),
		cacheTTL:    10 * time.Second,
		cache:       make(map[string]*cachedResult),
		domainStats: func() DomainStats { return DomainStats{} },
	}
}

// SetDomainStats installs the callback CheckAllWithSystem samples for the
// chat server's own load signals (live session count, retry dispatcher
// queue depth) alongside runtime resource usage.
func (h *HealthChecker) SetDomainStats(fn func() DomainStats) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if fn != nil {
		h.domainStats = fn
	}
}

// SetLogger sets the logger for the health checker
func (h *HealthChecker) SetLogger(l logger.Logger) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.logger = l
}

// SetCacheTTL sets the cache TTL for health check results
func (h *HealthChecker) SetCacheTTL(ttl time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cacheTTL = ttl
}

// RegisterCheck registers a named health check.
func (h *HealthChecker) RegisterCheck(name string, check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.checks[name] = check
	h.logger.Info("health check registered", logger.String("name", name))
}

// UnregisterCheck removes a health check
func (h *HealthChecker) UnregisterCheck(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.checks, name)
	delete(h.cache, name)
	h.logger.Info("health check unregistered", logger.String("name", name))
}

// Check performs a single named health check, using the cache if the
// result is still fresh.
func (h *HealthChecker) Check(ctx context.Context, name string) (*CheckResult, error) {
	h.mu.RLock()
	check, exists := h.checks[name]
	h.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("health check not found: %s", name)
	}

	if cached := h.getCachedResult(name); cached != nil {
		return cached, nil
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := check(checkCtx)
	duration := time.Since(start)

	result := &CheckResult{
		Name:      name,
		Timestamp: time.Now(),
		Duration:  duration,
	}

	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = err.Error()
		h.logger.Warn("health check failed",
			logger.String("name", name),
			logger.Error(err),
			logger.Duration("duration", duration),
		)
	} else {
		result.Status = StatusHealthy
		h.logger.Debug("health check passed",
			logger.String("name", name),
			logger.Duration("duration", duration),
		)
	}

	h.cacheResult(name, result)
	return result, nil
}

// CheckAll runs every registered check concurrently.
func (h *HealthChecker) CheckAll(ctx context.Context) map[string]*CheckResult {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	h.mu.RUnlock()

	results := make(map[string]*CheckResult)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, name := range names {
		wg.Add(1)
		go func(checkName string) {
			defer wg.Done()

			result, err := h.Check(ctx, checkName)
			if err != nil {
				result = &CheckResult{
					Name:      checkName,
					Status:    StatusUnhealthy,
					Message:   fmt.Sprintf("check failed: %v", err),
					Timestamp: time.Now(),
				}
			}

			mu.Lock()
			results[checkName] = result
			mu.Unlock()
		}(name)
	}

	wg.Wait()
	return results
}

// GetOverallStatus reduces every registered check's result to one Status.
func (h *HealthChecker) GetOverallStatus(ctx context.Context) Status {
	results := h.CheckAll(ctx)
	if len(results) == 0 {
		return StatusHealthy
	}

	unhealthy, degraded := false, false
	for _, result := range results {
		switch result.Status {
		case StatusUnhealthy:
			unhealthy = true
		case StatusDegraded:
			degraded = true
		}
	}

	if unhealthy {
		return StatusUnhealthy
	}
	if degraded {
		return StatusDegraded
	}
	return StatusHealthy
}

func (h *HealthChecker) getCachedResult(name string) *CheckResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	cached, exists := h.cache[name]
	if !exists || time.Now().After(cached.expiresAt) {
		return nil
	}
	return cached.result
}

func (h *HealthChecker) cacheResult(name string, result *CheckResult) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.cache[name] = &cachedResult{
		result:    result,
		expiresAt: time.Now().Add(h.cacheTTL),
	}
}

// ClearCache clears all cached results
func (h *HealthChecker) ClearCache() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.cache = make(map[string]*cachedResult)
	h.logger.Debug("health check cache cleared")
}

// CheckAllWithSystem runs every registered check plus the system resource
// probe and folds them into one HealthStatus, backing the `/health`
// endpoint.
func (h *HealthChecker) CheckAllWithSystem(ctx context.Context) *HealthStatus {
	checks := h.CheckAll(ctx)

	h.mu.RLock()
	domainStats := h.domainStats
	h.mu.RUnlock()
	system := CheckSystem(domainStats())

	status := &HealthStatus{
		Timestamp: time.Now(),
		Checks:    checks,
		System:    system,
		Status:    StatusHealthy,
		Errors:    make([]string, 0),
	}

	for name, result := range checks {
		if result.Status == StatusUnhealthy {
			status.Status = StatusUnhealthy
			status.Errors = append(status.Errors, name+": "+result.Message)
		} else if result.Status == StatusDegraded && status.Status == StatusHealthy {
			status.Status = StatusDegraded
		}
	}

	if system.Status == StatusUnhealthy {
		status.Status = StatusUnhealthy
		if system.Error != "" {
			status.Errors = append(status.Errors, "system: "+system.Error)
		}
	} else if system.Status == StatusDegraded && status.Status == StatusHealthy {
		status.Status = StatusDegraded
	}

	return status
}

// Common health check implementations.

// DatabaseHealthCheck wraps a repository ping function (C4).
func DatabaseHealthCheck(ping func(context.Context) error) HealthCheck {
	return func(ctx context.Context) error {
		if ping == nil {
			return fmt.Errorf("database ping function not configured")
		}
		return ping(ctx)
	}
}

// UDPSocketHealthCheck wraps a liveness probe for the bound UDP listener
// (C10), replacing the donor's blockchain-RPC connectivity check.
func UDPSocketHealthCheck(alive func() error) HealthCheck {
	return func(ctx context.Context) error {
		if alive == nil {
			return fmt.Errorf("udp socket checker not configured")
		}

		done := make(chan error, 1)
		go func() { done <- alive() }()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-done:
			return err
		}
	}
}

// ServiceHealthCheck creates a health check for an external HTTP service,
// used to probe the Ollama/OpenAI AI_MESSAGE backend's reachability.
func ServiceHealthCheck(url string, checker func(context.Context, string) error) HealthCheck {
	return func(ctx context.Context) error {
		if checker == nil {
			return fmt.Errorf("service checker not configured")
		}
		return checker(ctx, url)
	}
}

// NewServerChecker wires up the standard checks for a running chat server:
// repository connectivity, UDP socket liveness, and the domain load
// signals (live session count, retry queue depth) folded into the system
// probe.
func NewServerChecker(timeout time.Duration, ping func(context.Context) error, socketAlive func() error, domainStats func() DomainStats) *HealthChecker {
	checker := NewHealthChecker(timeout)
	checker.RegisterCheck("database", DatabaseHealthCheck(ping))
	checker.RegisterCheck("udp_socket", UDPSocketHealthCheck(socketAlive))
	checker.SetDomainStats(domainStats)
	return checker
}
