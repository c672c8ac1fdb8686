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

// Package chibind adapts tenant binding to chi routers.
package chibind

import (
	"net/http"

	"multibase/platform/httpbind"
	"multibase/platform/tenancy/bind"
)

// Middleware binds the request's tenant before the handler runs. The
// returned value plugs straight into chi's Router.Use.
func Middleware(binder *bind.Binder, extractor *httpbind.Extractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, err := extractor.TenantKey(r)
			if err != nil {
				httpbind.WriteError(w, http.StatusBadRequest, "missing tenant identifier", "")
				return
			}

			tc, err := binder.Bind(r.Context(), key)
			if err != nil {
				status, msg := httpbind.BindFailureStatus(err)
				httpbind.WriteError(w, status, msg, key)
				return
			}

			next.ServeHTTP(w, r.WithContext(bind.WithTenant(r.Context(), tc)))
		})
	}
}
