// Copyright 2026 Multibase
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package health probes cached tenant connections and reports their state.
// The monitor is advisory only: it never creates connections and never
// removes degraded entries, it marks them so the next connect can heal them.
package health

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"multibase/platform/shared/logger"
	"multibase/platform/tenancy/base"
	"multibase/platform/tenancy/registry"
)

// DefaultInterval is how often the background loop probes every cached
// connection.
const DefaultInterval = 30 * time.Second

const probeTimeout = 5 * time.Second

var (
	tenantHealthy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tenant_connection_healthy",
			Help: "Whether the tenant's cached database connection is healthy (1) or degraded (0)",
		},
		[]string{"tenant_id"},
	)

	probeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tenant_health_probe_duration_seconds",
			Help:    "Latency of tenant database health probes",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tenant_id"},
	)

	activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tenant_connections_active",
			Help: "Number of cached tenant database connections",
		},
	)
)

func init() {
	prometheus.MustRegister(tenantHealthy)
	prometheus.MustRegister(probeDuration)
	prometheus.MustRegister(activeConnections)
}

// Monitor periodically verifies every cached tenant connection.
type Monitor struct {
	registry *registry.Registry
	log      *logger.Logger
	interval time.Duration
}

// NewMonitor creates a monitor over the given registry. A non-positive
// interval falls back to DefaultInterval.
func NewMonitor(reg *registry.Registry, log *logger.Logger, interval time.Duration) *Monitor {
	if log == nil {
		log = logger.New("tenant-health")
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{registry: reg, log: log, interval: interval}
}

// Probe checks one tenant's cached connection. A tenant with no cached
// connection reports unhealthy in the disconnected state; no connection is
// ever created on its behalf.
func (m *Monitor) Probe(ctx context.Context, tenantID string) base.HealthStatus {
	status := base.HealthStatus{
		TenantID:    tenantID,
		LastChecked: time.Now().UTC(),
	}

	entry, ok := m.registry.Get(tenantID)
	if !ok {
		status.ConnectionState = base.StateDisconnected
		status.Error = "no cached connection"
		return status
	}
	status.DatabaseName = entry.DatabaseName

	pingCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	elapsed, err := entry.Conn.Ping(pingCtx)
	status.ResponseTimeMs = float64(elapsed.Microseconds()) / 1000.0
	probeDuration.WithLabelValues(tenantID).Observe(elapsed.Seconds())

	if err != nil {
		status.Healthy = false
		status.ConnectionState = base.StateError
		status.Error = err.Error()
		m.registry.MarkState(tenantID, base.StateError, err.Error())
		tenantHealthy.WithLabelValues(tenantID).Set(0)
		m.log.Warn(tenantID, "", fmt.Sprintf("Health probe failed: %v", err), map[string]interface{}{
			"database": entry.DatabaseName,
		})
		return status
	}

	status.Healthy = true
	status.ConnectionState = base.StateConnected
	m.registry.MarkState(tenantID, base.StateConnected, "")
	tenantHealthy.WithLabelValues(tenantID).Set(1)
	return status
}

// ProbeAll checks every cached connection. One tenant's failure never
// short-circuits the sweep.
func (m *Monitor) ProbeAll(ctx context.Context) map[string]base.HealthStatus {
	ids := m.registry.Tenants()
	results := make(map[string]base.HealthStatus, len(ids))
	for _, id := range ids {
		results[id] = m.Probe(ctx, id)
	}
	activeConnections.Set(float64(len(ids)))
	return results
}

// Run probes all cached connections on the monitor's interval until the
// context is cancelled. Intended to be started as a goroutine at boot.
func (m *Monitor) Run(ctx context.Context) {
	m.log.Info("", "", "Health monitor started", map[string]interface{}{
		"interval": m.interval.String(),
	})

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Info("", "", "Health monitor stopped", nil)
			return
		case <-ticker.C:
			results := m.ProbeAll(ctx)
			degraded := 0
			for _, status := range results {
				if !status.Healthy {
					degraded++
				}
			}
			if degraded > 0 {
				m.log.Warn("", "", "Health sweep found degraded tenants", map[string]interface{}{
					"probed":   len(results),
					"degraded": degraded,
				})
			}
		}
	}
}
