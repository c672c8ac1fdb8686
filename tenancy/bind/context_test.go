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

package bind

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"multibase/platform/tenancy/base"
	"multibase/platform/tenancy/config"
	"multibase/platform/tenancy/models"
	"multibase/platform/tenancy/registry"
)

type stubConn struct{}

func (stubConn) Database() *mongo.Database { return nil }
func (stubConn) Ping(ctx context.Context) (time.Duration, error) {
	return time.Millisecond, nil
}
func (stubConn) Stats(ctx context.Context) (*base.DatabaseStats, error) {
	return &base.DatabaseStats{}, nil
}
func (stubConn) DropDatabase(ctx context.Context) error { return nil }
func (stubConn) Close(ctx context.Context) error        { return nil }

func newTestBinder(t *testing.T, openErr error) *Binder {
	t.Helper()

	resolver, err := config.NewResolver([]*base.TenantConfig{
		{ID: "luxgen", Slug: "luxgen-portal", Name: "LuxGen"},
		{ID: "acme", Slug: "acme", Name: "Acme"},
	})
	if err != nil {
		t.Fatalf("failed to build resolver: %v", err)
	}

	opener := registry.OpenerFunc(func(ctx context.Context, tenantID string) (registry.Conn, error) {
		if openErr != nil {
			return nil, openErr
		}
		return stubConn{}, nil
	})
	reg := registry.NewRegistry(opener, nil)
	reg.SetModelBinder(func(ctx context.Context, conn registry.Conn, tenantID string) (*models.ModelSet, error) {
		return &models.ModelSet{TenantID: tenantID}, nil
	})

	return NewBinder(resolver, reg)
}

func TestBindByID(t *testing.T) {
	b := newTestBinder(t, nil)

	tc, err := b.Bind(context.Background(), "luxgen")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tc.TenantID != "luxgen" || tc.TenantSlug != "luxgen-portal" {
		t.Errorf("unexpected identity: %s/%s", tc.TenantID, tc.TenantSlug)
	}
	if tc.DatabaseName != "tenant_luxgen" {
		t.Errorf("expected tenant_luxgen, got %s", tc.DatabaseName)
	}
	if tc.Config == nil || tc.Conn == nil || tc.Models == nil {
		t.Error("expected a fully wired context")
	}
	if !tc.Health.Healthy || tc.Health.ConnectionState != base.StateConnected {
		t.Errorf("expected a healthy bound context, got %+v", tc.Health)
	}
}

func TestBindBySlug(t *testing.T) {
	b := newTestBinder(t, nil)

	tc, err := b.Bind(context.Background(), "luxgen-portal")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tc.TenantID != "luxgen" {
		t.Errorf("expected slug to resolve to luxgen, got %s", tc.TenantID)
	}
}

func TestBindUnknownTenant(t *testing.T) {
	b := newTestBinder(t, nil)

	_, err := b.Bind(context.Background(), "ghost")
	var ctxErr *base.TenantContextError
	if !errors.As(err, &ctxErr) {
		t.Fatalf("expected TenantContextError, got %v", err)
	}
	if !base.IsTenantNotFound(err) {
		t.Errorf("expected the not-found cause to be preserved, got %v", err)
	}
}

func TestBindConnectFailureYieldsNoPartialContext(t *testing.T) {
	b := newTestBinder(t, errors.New("server selection timeout"))

	tc, err := b.Bind(context.Background(), "acme")
	if err == nil {
		t.Fatal("expected connect failure to surface")
	}
	if tc != nil {
		t.Error("expected no partial context on failure")
	}
	var ctxErr *base.TenantContextError
	if !errors.As(err, &ctxErr) {
		t.Errorf("expected TenantContextError, got %v", err)
	}
}

// Binding must stay safe while the health monitor marks entry states from
// its own goroutine.
func TestBindConcurrentWithHealthMarking(t *testing.T) {
	b := newTestBinder(t, nil)
	reg := b.Registry()

	if _, err := b.Bind(context.Background(), "luxgen"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			reg.MarkState("luxgen", base.StateError, "ping timed out")
			reg.MarkState("luxgen", base.StateConnected, "")
		}
	}()

	for i := 0; i < 200; i++ {
		tc, err := b.Bind(context.Background(), "luxgen")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tc.Health.ConnectionState == "" {
			t.Fatal("expected a populated health snapshot")
		}
	}
	<-done
}

func TestTenantContextRoundTrip(t *testing.T) {
	tc := &TenantContext{TenantID: "acme"}

	ctx := WithTenant(context.Background(), tc)
	got, ok := FromContext(ctx)
	if !ok || got != tc {
		t.Error("expected the stamped tenant context back")
	}

	if _, ok := FromContext(context.Background()); ok {
		t.Error("expected no tenant context on a bare context")
	}
}
