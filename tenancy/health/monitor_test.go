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

package health

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"multibase/platform/tenancy/base"
	"multibase/platform/tenancy/models"
	"multibase/platform/tenancy/registry"
)

type probeConn struct {
	mu      sync.Mutex
	pingErr error
	pings   int
}

func (c *probeConn) Database() *mongo.Database { return nil }

func (c *probeConn) Ping(ctx context.Context) (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pings++
	return 2 * time.Millisecond, c.pingErr
}

func (c *probeConn) Stats(ctx context.Context) (*base.DatabaseStats, error) {
	return &base.DatabaseStats{}, nil
}

func (c *probeConn) DropDatabase(ctx context.Context) error { return nil }
func (c *probeConn) Close(ctx context.Context) error        { return nil }

func (c *probeConn) setPingErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pingErr = err
}

func (c *probeConn) pingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pings
}

// probeHarness wires a registry whose opener hands out probeConns.
type probeHarness struct {
	registry *registry.Registry
	opener   *countingOpener
}

type countingOpener struct {
	mu    sync.Mutex
	opens int
	conns map[string]*probeConn
}

func (o *countingOpener) Open(ctx context.Context, tenantID string) (registry.Conn, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opens++
	conn := &probeConn{}
	o.conns[tenantID] = conn
	return conn, nil
}

func (o *countingOpener) openCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens
}

func newProbeHarness(t *testing.T, tenants ...string) *probeHarness {
	t.Helper()
	opener := &countingOpener{conns: make(map[string]*probeConn)}
	reg := registry.NewRegistry(opener, nil)
	reg.SetModelBinder(func(ctx context.Context, conn registry.Conn, tenantID string) (*models.ModelSet, error) {
		return &models.ModelSet{TenantID: tenantID}, nil
	})
	for _, id := range tenants {
		if _, err := reg.Connect(context.Background(), id); err != nil {
			t.Fatalf("failed to seed %s: %v", id, err)
		}
	}
	return &probeHarness{registry: reg, opener: opener}
}

func TestProbeHealthyConnection(t *testing.T) {
	h := newProbeHarness(t, "acme")
	m := NewMonitor(h.registry, nil, 0)

	status := m.Probe(context.Background(), "acme")
	if !status.Healthy {
		t.Fatalf("expected healthy, got %+v", status)
	}
	if status.ConnectionState != base.StateConnected {
		t.Errorf("expected connected state, got %s", status.ConnectionState)
	}
	if status.DatabaseName != "tenant_acme" {
		t.Errorf("expected tenant_acme, got %s", status.DatabaseName)
	}
	if status.ResponseTimeMs <= 0 {
		t.Error("expected a measured response time")
	}
}

func TestProbeAbsentTenantCreatesNothing(t *testing.T) {
	h := newProbeHarness(t)
	m := NewMonitor(h.registry, nil, 0)

	status := m.Probe(context.Background(), "ghost")
	if status.Healthy {
		t.Error("expected an absent tenant to report unhealthy")
	}
	if status.ConnectionState != base.StateDisconnected {
		t.Errorf("expected disconnected state, got %s", status.ConnectionState)
	}
	if h.opener.openCount() != 0 {
		t.Errorf("expected probing to never open connections, got %d opens", h.opener.openCount())
	}
}

func TestProbeMarksDegradedWithoutRemoval(t *testing.T) {
	h := newProbeHarness(t, "acme")
	h.opener.conns["acme"].setPingErr(errors.New("connection reset"))
	m := NewMonitor(h.registry, nil, 0)

	status := m.Probe(context.Background(), "acme")
	if status.Healthy {
		t.Fatal("expected a failing ping to report unhealthy")
	}
	if status.Error == "" {
		t.Error("expected the probe error to be surfaced")
	}

	entry, ok := h.registry.Get("acme")
	if !ok {
		t.Fatal("expected the degraded entry to stay cached")
	}
	if entry.State() != base.StateError {
		t.Errorf("expected error state, got %s", entry.State())
	}
}

func TestProbeAllIsolatesFailures(t *testing.T) {
	h := newProbeHarness(t, "acme", "globex", "initech")
	h.opener.conns["globex"].setPingErr(errors.New("connection reset"))
	m := NewMonitor(h.registry, nil, 0)

	results := m.ProbeAll(context.Background())
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results["globex"].Healthy {
		t.Error("expected globex to report unhealthy")
	}
	if !results["acme"].Healthy || !results["initech"].Healthy {
		t.Error("expected one failure not to affect the other tenants")
	}
}

func TestRunProbesOnInterval(t *testing.T) {
	h := newProbeHarness(t, "acme")
	m := NewMonitor(h.registry, nil, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for h.opener.conns["acme"].pingCount() < 2 {
		select {
		case <-deadline:
			t.Fatal("expected at least two probe sweeps")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected Run to stop on context cancel")
	}
}

func TestNewMonitorDefaultInterval(t *testing.T) {
	h := newProbeHarness(t)
	m := NewMonitor(h.registry, nil, 0)
	if m.interval != DefaultInterval {
		t.Errorf("expected %s, got %s", DefaultInterval, m.interval)
	}
}
