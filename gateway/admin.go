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

package gateway

import (
	"net/http"

	"github.com/gorilla/mux"

	"multibase/platform/httpbind"
	"multibase/platform/tenancy/base"
)

// HeaderConfirmTenant must carry the tenant's id on destructive admin
// calls. It guards against a mistyped slug wiping the wrong tenant.
const HeaderConfirmTenant = "X-Confirm-Tenant"

// resolveKey maps the admin path key (id or slug) to the tenant config.
func (s *Server) resolveKey(w http.ResponseWriter, r *http.Request) (*base.TenantConfig, bool) {
	key := mux.Vars(r)["key"]
	cfg, err := s.binder.Resolver().Resolve(key)
	if err != nil {
		httpbind.WriteError(w, http.StatusNotFound, "tenant not found", key)
		return nil, false
	}
	return cfg, true
}

func (s *Server) listTenantsHandler(w http.ResponseWriter, r *http.Request) {
	configs := s.binder.Resolver().All()
	out := make([]map[string]interface{}, 0, len(configs))
	for _, cfg := range configs {
		item := map[string]interface{}{
			"id":       cfg.ID,
			"slug":     cfg.Slug,
			"name":     cfg.Name,
			"database": cfg.DatabaseName(),
			"features": cfg.Features,
		}
		if entry, ok := s.binder.Registry().Get(cfg.ID); ok {
			item["connection_state"] = entry.State()
		} else {
			item["connection_state"] = base.StateDisconnected
		}
		out = append(out, item)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) tenantHealthHandler(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.resolveKey(w, r)
	if !ok {
		return
	}

	status := s.monitor.Probe(r.Context(), cfg.ID)
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func (s *Server) allTenantsHealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.monitor.ProbeAll(r.Context()))
}

func (s *Server) tenantStatsHandler(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.resolveKey(w, r)
	if !ok {
		return
	}

	stats, err := s.binder.Registry().Stats(r.Context(), cfg.ID)
	if err != nil {
		s.log.Error(cfg.ID, "", "Failed to collect tenant stats: "+err.Error(), nil)
		httpbind.WriteError(w, http.StatusServiceUnavailable, "tenant database unavailable", cfg.ID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tenant_id": cfg.ID,
		"database":  cfg.DatabaseName(),
		"stats":     stats,
	})
}

func (s *Server) tenantLimitsHandler(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.resolveKey(w, r)
	if !ok {
		return
	}

	result, err := s.checker.Check(r.Context(), cfg)
	if err != nil {
		s.log.Error(cfg.ID, "", "Failed to check tenant limits: "+err.Error(), nil)
		httpbind.WriteError(w, http.StatusServiceUnavailable, "tenant database unavailable", cfg.ID)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) closeConnectionHandler(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.resolveKey(w, r)
	if !ok {
		return
	}

	if err := s.binder.Registry().Close(r.Context(), cfg.ID); err != nil {
		httpbind.WriteError(w, http.StatusInternalServerError, "failed to close connection", cfg.ID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) dropTenantHandler(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.resolveKey(w, r)
	if !ok {
		return
	}

	// Dropping destroys the tenant's data. The caller must echo the
	// resolved tenant id to prove intent.
	if r.Header.Get(HeaderConfirmTenant) != cfg.ID {
		httpbind.WriteError(w, http.StatusPreconditionFailed,
			"destructive operation requires "+HeaderConfirmTenant+" header with the tenant id", cfg.ID)
		return
	}

	if err := s.binder.Registry().Drop(r.Context(), cfg.ID); err != nil {
		s.log.Error(cfg.ID, "", "Failed to drop tenant database: "+err.Error(), nil)
		httpbind.WriteError(w, http.StatusInternalServerError, "failed to drop tenant database", cfg.ID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) registryMetricsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.binder.Registry().Snapshot())
}
