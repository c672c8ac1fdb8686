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

package base

import (
	"errors"
	"fmt"
)

// ConnectionError is raised when a connection to a tenant's database cannot
// be established. Retryable is true only for transient causes (timeouts,
// connection refused); auth failures are never retryable. The message never
// contains the connection string or credentials.
type ConnectionError struct {
	TenantID  string
	Op        string
	Retryable bool
	Cause     error
}

func (e *ConnectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("tenant %s: %s failed: %v", e.TenantID, e.Op, e.Cause)
	}
	return fmt.Sprintf("tenant %s: %s failed", e.TenantID, e.Op)
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// NewConnectionError creates a ConnectionError for the given tenant and operation.
func NewConnectionError(tenantID, op string, retryable bool, cause error) *ConnectionError {
	return &ConnectionError{TenantID: tenantID, Op: op, Retryable: retryable, Cause: cause}
}

// TenantNotFoundError means no configuration exists for the given slug or id.
// Never retryable.
type TenantNotFoundError struct {
	Key string
}

func (e *TenantNotFoundError) Error() string {
	return fmt.Sprintf("tenant not found: %s", e.Key)
}

// TenantContextError means the request-scoped context could not be assembled.
// It wraps either a TenantNotFoundError or a ConnectionError and is surfaced
// to the HTTP layer as a rejected request.
type TenantContextError struct {
	Slug  string
	Cause error
}

func (e *TenantContextError) Error() string {
	return fmt.Sprintf("tenant context for %q: %v", e.Slug, e.Cause)
}

func (e *TenantContextError) Unwrap() error {
	return e.Cause
}

// OperationFailedError means a registry operation (close, drop, stats) failed
// after a connection was already established.
type OperationFailedError struct {
	TenantID string
	Op       string
	Cause    error
}

func (e *OperationFailedError) Error() string {
	return fmt.Sprintf("tenant %s: %s: %v", e.TenantID, e.Op, e.Cause)
}

func (e *OperationFailedError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether err is a ConnectionError marked retryable.
func IsRetryable(err error) bool {
	var ce *ConnectionError
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return false
}

// IsTenantNotFound reports whether err is (or wraps) a TenantNotFoundError.
func IsTenantNotFound(err error) bool {
	var nf *TenantNotFoundError
	return errors.As(err, &nf)
}
