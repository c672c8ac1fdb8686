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

package chibind

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"multibase/platform/httpbind"
	"multibase/platform/tenancy/base"
	"multibase/platform/tenancy/bind"
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

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()

	resolver, err := config.NewResolver([]*base.TenantConfig{
		{ID: "acme", Slug: "acme", Name: "Acme"},
	})
	require.NoError(t, err)

	reg := registry.NewRegistry(registry.OpenerFunc(
		func(ctx context.Context, tenantID string) (registry.Conn, error) {
			return stubConn{}, nil
		}), nil)
	reg.SetModelBinder(func(ctx context.Context, conn registry.Conn, tenantID string) (*models.ModelSet, error) {
		return &models.ModelSet{TenantID: tenantID}, nil
	})

	router := chi.NewRouter()
	router.Use(Middleware(bind.NewBinder(resolver, reg), &httpbind.Extractor{}))
	router.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
		tc, ok := bind.FromContext(r.Context())
		if !ok {
			http.Error(w, "no tenant", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(tc.DatabaseName))
	})
	return router
}

func TestMiddlewareBindsTenant(t *testing.T) {
	router := newTestRouter(t)

	r := httptest.NewRequest("GET", "/whoami", nil)
	r.Header.Set(httpbind.HeaderTenantID, "acme")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tenant_acme", w.Body.String())
}

func TestMiddlewareMissingTenantKey(t *testing.T) {
	router := newTestRouter(t)

	r := httptest.NewRequest("GET", "/whoami", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMiddlewareUnknownTenant(t *testing.T) {
	router := newTestRouter(t)

	r := httptest.NewRequest("GET", "/whoami", nil)
	r.Header.Set(httpbind.HeaderTenantID, "ghost")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "tenant not found")
}
