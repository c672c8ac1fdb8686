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
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"

	"multibase/platform/httpbind"
	"multibase/platform/httpbind/muxbind"
	"multibase/platform/shared/logger"
	"multibase/platform/tenancy/base"
	"multibase/platform/tenancy/bind"
	"multibase/platform/tenancy/health"
	"multibase/platform/tenancy/limits"
	"multibase/platform/tenancy/models"
)

var (
	promRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total requests processed by the gateway",
		},
		[]string{"tenant_id", "status"},
	)
	promRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_milliseconds",
			Help:    "Request duration in milliseconds",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200, 500},
		},
		[]string{"resource"},
	)
)

func init() {
	prometheus.MustRegister(promRequestsTotal)
	prometheus.MustRegister(promRequestDuration)
}

// Server is the multi-tenant record gateway. Every /api route runs behind
// tenant binding; /admin and /health routes are tenant-free.
type Server struct {
	binder    *bind.Binder
	monitor   *health.Monitor
	checker   *limits.Checker
	extractor *httpbind.Extractor
	log       *logger.Logger
}

// NewServer wires the gateway over its collaborators.
func NewServer(binder *bind.Binder, monitor *health.Monitor, checker *limits.Checker, extractor *httpbind.Extractor, log *logger.Logger) *Server {
	if log == nil {
		log = logger.New("gateway")
	}
	return &Server{
		binder:    binder,
		monitor:   monitor,
		checker:   checker,
		extractor: extractor,
		log:       log,
	}
}

// Router builds the gateway's route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.serviceHealthHandler).Methods("GET")
	r.Handle("/prometheus", promhttp.Handler()).Methods("GET")

	admin := r.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/tenants", s.listTenantsHandler).Methods("GET")
	admin.HandleFunc("/tenants/health", s.allTenantsHealthHandler).Methods("GET")
	admin.HandleFunc("/tenants/{key}/health", s.tenantHealthHandler).Methods("GET")
	admin.HandleFunc("/tenants/{key}/stats", s.tenantStatsHandler).Methods("GET")
	admin.HandleFunc("/tenants/{key}/limits", s.tenantLimitsHandler).Methods("GET")
	admin.HandleFunc("/tenants/{key}/connection", s.closeConnectionHandler).Methods("DELETE")
	admin.HandleFunc("/tenants/{key}", s.dropTenantHandler).Methods("DELETE")
	admin.HandleFunc("/registry/metrics", s.registryMetricsHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(muxbind.Middleware(s.binder, s.extractor))
	api.Use(s.accountingMiddleware)
	api.HandleFunc("/{resource}", s.collectionHandler).Methods("GET", "POST")
	api.HandleFunc("/{resource}/{id}", s.recordHandler).Methods("GET", "PUT", "DELETE")

	return r
}

// HeaderRequestID carries the request correlation id. An inbound value is
// honored, otherwise one is minted.
const HeaderRequestID = "X-Request-ID"

// statusRecorder captures the response code so each request is counted
// once, under its real status.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// accountingMiddleware stamps a request id, records per-tenant API calls
// and emits request metrics.
func (s *Server) accountingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)

		tc, _ := bind.FromContext(r.Context())
		tenantID := ""
		if tc != nil {
			tenantID = tc.TenantID
			if s.checker != nil {
				s.checker.RecordCall(r.Context(), tenantID)
			}
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		promRequestsTotal.WithLabelValues(tenantID, strconv.Itoa(rec.status)).Inc()
		promRequestDuration.WithLabelValues(mux.Vars(r)["resource"]).
			Observe(float64(time.Since(start).Milliseconds()))
		s.log.InfoWithDuration(tenantID, requestID, "Request handled",
			float64(time.Since(start).Milliseconds()), map[string]interface{}{
				"method": r.Method,
				"path":   r.URL.Path,
				"status": rec.status,
			})
	})
}

func (s *Server) serviceHealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "multibase-gateway",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) collectionHandler(w http.ResponseWriter, r *http.Request) {
	resource := Resource(mux.Vars(r)["resource"])
	if !KnownResource(resource) {
		httpbind.WriteError(w, http.StatusNotFound, "unknown resource", "")
		return
	}

	tc, ok := bind.FromContext(r.Context())
	if !ok {
		httpbind.WriteError(w, http.StatusInternalServerError, "tenant context missing", "")
		return
	}

	var op Operation
	switch r.Method {
	case http.MethodGet:
		op = Operation{
			Kind:     OpList,
			Resource: resource,
			Limit:    queryInt(r, "limit", 50),
			Skip:     queryInt(r, "skip", 0),
		}
	case http.MethodPost:
		payload, err := readBody(r)
		if err != nil {
			httpbind.WriteError(w, http.StatusBadRequest, "invalid request body", tc.TenantID)
			return
		}
		op = Operation{Kind: OpCreate, Resource: resource, Payload: payload}
	}

	result, err := Dispatch(r.Context(), tc, op)
	if err != nil {
		s.writeDispatchError(w, tc, op, err)
		return
	}

	status := http.StatusOK
	if op.Kind == OpCreate {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

func (s *Server) recordHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	resource := Resource(vars["resource"])
	if !KnownResource(resource) {
		httpbind.WriteError(w, http.StatusNotFound, "unknown resource", "")
		return
	}

	tc, ok := bind.FromContext(r.Context())
	if !ok {
		httpbind.WriteError(w, http.StatusInternalServerError, "tenant context missing", "")
		return
	}

	op := Operation{Resource: resource, ID: vars["id"]}
	switch r.Method {
	case http.MethodGet:
		op.Kind = OpGet
	case http.MethodPut:
		payload, err := readBody(r)
		if err != nil {
			httpbind.WriteError(w, http.StatusBadRequest, "invalid request body", tc.TenantID)
			return
		}
		op.Kind = OpUpdate
		op.Payload = payload
	case http.MethodDelete:
		op.Kind = OpDelete
	}

	result, err := Dispatch(r.Context(), tc, op)
	if err != nil {
		s.writeDispatchError(w, tc, op, err)
		return
	}

	if op.Kind == OpDelete {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// writeDispatchError maps dispatch failures to HTTP statuses. Only model
// validation messages are echoed back; driver errors name collections and
// indexes and never reach the client.
func (s *Server) writeDispatchError(w http.ResponseWriter, tc *bind.TenantContext, op Operation, err error) {
	var unsupported *ErrUnsupportedOperation
	switch {
	case errors.Is(err, models.ErrNotFound):
		httpbind.WriteError(w, http.StatusNotFound, "record not found", tc.TenantID)
	case errors.Is(err, models.ErrInvalidID):
		httpbind.WriteError(w, http.StatusBadRequest, "invalid record id", tc.TenantID)
	case errors.As(err, &unsupported):
		httpbind.WriteError(w, http.StatusMethodNotAllowed, unsupported.Error(), tc.TenantID)
	case errors.Is(err, models.ErrValidation):
		httpbind.WriteError(w, http.StatusBadRequest, err.Error(), tc.TenantID)
	case mongo.IsDuplicateKeyError(err):
		httpbind.WriteError(w, http.StatusConflict, "record already exists", tc.TenantID)
	case base.IsRetryable(err):
		s.log.Error(tc.TenantID, "", "Transient database failure: "+err.Error(), map[string]interface{}{
			"resource": string(op.Resource),
			"kind":     string(op.Kind),
		})
		httpbind.WriteError(w, http.StatusServiceUnavailable, "tenant database unavailable", tc.TenantID)
	default:
		s.log.Error(tc.TenantID, "", "Operation failed: "+err.Error(), map[string]interface{}{
			"resource": string(op.Resource),
			"kind":     string(op.Kind),
		})
		httpbind.WriteError(w, http.StatusInternalServerError, "operation failed", tc.TenantID)
	}
}

func readBody(r *http.Request) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func queryInt(r *http.Request, key string, fallback int64) int64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
