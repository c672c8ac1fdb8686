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

// Package httpbind extracts the tenant routing key from HTTP requests. The
// framework adapters in the subpackages share this one extraction policy so
// a tenant is identified the same way regardless of which router serves the
// request.
package httpbind

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"multibase/platform/tenancy/base"
)

// HeaderTenantID is the explicit tenant routing header. It wins over every
// other extraction source.
const HeaderTenantID = "X-Tenant-ID"

// ErrNoTenantKey is returned when no extraction source yields a tenant key.
var ErrNoTenantKey = errors.New("no tenant key in request")

// Extractor pulls the tenant routing key out of a request. Sources are
// tried in a fixed order: the X-Tenant-ID header, the signed JWT claim,
// then the request host's subdomain.
type Extractor struct {
	// BaseDomain enables subdomain extraction: a request to
	// "acme.example.com" with BaseDomain "example.com" yields "acme".
	// Empty disables the subdomain source.
	BaseDomain string

	// JWTSecret enables the "tenant" claim source on Bearer tokens.
	// Empty disables it; tokens are never required, only consulted.
	JWTSecret []byte
}

// TenantKey extracts the tenant id or slug from the request.
func (e *Extractor) TenantKey(r *http.Request) (string, error) {
	if key := strings.TrimSpace(r.Header.Get(HeaderTenantID)); key != "" {
		return key, nil
	}

	if len(e.JWTSecret) > 0 {
		if key, err := e.fromBearerToken(r); err == nil && key != "" {
			return key, nil
		}
	}

	if e.BaseDomain != "" {
		if key := e.fromSubdomain(r); key != "" {
			return key, nil
		}
	}

	return "", ErrNoTenantKey
}

// fromBearerToken reads the "tenant" claim from a signed HMAC token.
func (e *Extractor) fromBearerToken(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", ErrNoTenantKey
	}
	raw := strings.TrimPrefix(auth, "Bearer ")

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return e.JWTSecret, nil
	})
	if err != nil {
		return "", err
	}

	if tenant, ok := claims["tenant"].(string); ok {
		return tenant, nil
	}
	return "", ErrNoTenantKey
}

// fromSubdomain peels the first host label when the host sits under the
// configured base domain.
func (e *Extractor) fromSubdomain(r *http.Request) string {
	host := r.Host
	if idx := strings.IndexByte(host, ':'); idx >= 0 {
		host = host[:idx]
	}

	suffix := "." + e.BaseDomain
	if !strings.HasSuffix(host, suffix) {
		return ""
	}

	sub := strings.TrimSuffix(host, suffix)
	// Nested subdomains route on the leftmost label's parent being direct.
	if sub == "" || strings.Contains(sub, ".") {
		return ""
	}
	return sub
}

// ErrorBody is the JSON error envelope shared by the framework adapters.
type ErrorBody struct {
	Error    string `json:"error"`
	TenantID string `json:"tenant_id,omitempty"`
}

// WriteError writes the shared JSON error envelope.
func WriteError(w http.ResponseWriter, status int, message, tenantID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorBody{Error: message, TenantID: tenantID})
}

// BindFailureStatus maps a tenant binding failure to an HTTP status and a
// client-safe message. Connection details never leak to the response.
func BindFailureStatus(err error) (int, string) {
	if base.IsTenantNotFound(err) {
		return http.StatusNotFound, "tenant not found"
	}
	return http.StatusServiceUnavailable, "tenant database unavailable"
}
