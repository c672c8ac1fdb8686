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

// Package echobind adapts tenant binding to echo routers.
package echobind

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"multibase/platform/httpbind"
	"multibase/platform/tenancy/bind"
)

// Middleware binds the request's tenant before the handler runs. Handlers
// downstream read the tenant context with bind.FromContext on the request
// context, or FromEcho on the echo context.
func Middleware(binder *bind.Binder, extractor *httpbind.Extractor) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()

			key, err := extractor.TenantKey(r)
			if err != nil {
				return c.JSON(http.StatusBadRequest, httpbind.ErrorBody{
					Error: "missing tenant identifier",
				})
			}

			tc, err := binder.Bind(r.Context(), key)
			if err != nil {
				status, msg := httpbind.BindFailureStatus(err)
				return c.JSON(status, httpbind.ErrorBody{Error: msg, TenantID: key})
			}

			c.SetRequest(r.WithContext(bind.WithTenant(r.Context(), tc)))
			return next(c)
		}
	}
}

// FromEcho extracts the bound tenant context from an echo context.
func FromEcho(c echo.Context) (*bind.TenantContext, bool) {
	return bind.FromContext(c.Request().Context())
}
