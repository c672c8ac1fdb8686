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

package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/singleflight"

	"multibase/platform/shared/logger"
	"multibase/platform/tenancy/base"
	"multibase/platform/tenancy/models"
	"multibase/platform/tenancy/store"
)

// Conn is the subset of a tenant store connection the registry manages.
// *store.Connection satisfies it.
type Conn interface {
	Database() *mongo.Database
	Ping(ctx context.Context) (time.Duration, error)
	Stats(ctx context.Context) (*base.DatabaseStats, error)
	DropDatabase(ctx context.Context) error
	Close(ctx context.Context) error
}

// Opener creates a verified connection to one tenant's database.
type Opener interface {
	Open(ctx context.Context, tenantID string) (Conn, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context, tenantID string) (Conn, error)

func (f OpenerFunc) Open(ctx context.Context, tenantID string) (Conn, error) {
	return f(ctx, tenantID)
}

// FactoryOpener adapts a store.Factory to the Opener interface.
func FactoryOpener(f *store.Factory) Opener {
	return OpenerFunc(func(ctx context.Context, tenantID string) (Conn, error) {
		conn, err := f.Open(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		return conn, nil
	})
}

// Entry is one cached tenant connection with its bound model set. The
// health observation fields are written by the monitor goroutine while
// request goroutines read them, so they live behind the entry's own lock.
type Entry struct {
	TenantID     string
	DatabaseName string
	Conn         Conn
	Models       *models.ModelSet
	ConnectedAt  time.Time

	mu              sync.RWMutex
	state           base.ConnState
	lastError       string
	lastHealthCheck time.Time
}

// State returns the entry's lifecycle state as of the last observation.
func (e *Entry) State() base.ConnState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// LastError returns the failure recorded with the last degraded observation.
func (e *Entry) LastError() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastError
}

// LastHealthCheck returns when the entry's state was last observed.
func (e *Entry) LastHealthCheck() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastHealthCheck
}

func (e *Entry) setState(state base.ConnState, lastError string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = state
	e.lastError = lastError
	e.lastHealthCheck = time.Now().UTC()
}

// Metrics are the registry's cumulative lifecycle counters.
type Metrics struct {
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
	Reconnects int64 `json:"reconnects"`
	Closes     int64 `json:"closes"`
	Drops      int64 `json:"drops"`
	Active     int64 `json:"active"`
}

const closeGrace = 10 * time.Second

// Registry caches at most one database connection per tenant. Concurrent
// Connect calls for the same tenant are collapsed through singleflight so
// exactly one connection is ever created per tenant, no matter how many
// requests race on a cold cache.
type Registry struct {
	opener Opener
	log    *logger.Logger

	mu      sync.RWMutex
	entries map[string]*Entry
	group   singleflight.Group

	hits       int64
	misses     int64
	reconnects int64
	closes     int64
	drops      int64

	// bind builds the model set for a fresh connection. Swappable in tests.
	bind func(ctx context.Context, conn Conn, tenantID string) (*models.ModelSet, error)
}

// NewRegistry creates an empty registry backed by the given opener.
func NewRegistry(opener Opener, log *logger.Logger) *Registry {
	if log == nil {
		log = logger.New("tenant-registry")
	}
	return &Registry{
		opener:  opener,
		log:     log,
		entries: make(map[string]*Entry),
		bind:    bindModels,
	}
}

// SetModelBinder overrides how model sets are built for fresh connections.
// Call before the registry is shared between goroutines.
func (r *Registry) SetModelBinder(bind func(ctx context.Context, conn Conn, tenantID string) (*models.ModelSet, error)) {
	r.bind = bind
}

// bindModels builds the tenant's model set and declares its indexes.
func bindModels(ctx context.Context, conn Conn, tenantID string) (*models.ModelSet, error) {
	set := models.NewModelSet(conn.Database(), tenantID)
	if err := set.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure indexes: %w", err)
	}
	return set, nil
}

// Connect returns the tenant's cached connection, creating it if absent.
// A cached entry in a degraded state gets exactly one reconnect attempt;
// if that fails the entry stays cached in the error state and the failure
// is returned.
func (r *Registry) Connect(ctx context.Context, tenantID string) (*Entry, error) {
	if tenantID == "" {
		return nil, base.NewConnectionError(tenantID, "connect", false,
			errors.New("tenant id must not be empty"))
	}

	// Fast path: healthy cached entry.
	r.mu.RLock()
	entry, ok := r.entries[tenantID]
	r.mu.RUnlock()
	healthy := ok && entry.State() == base.StateConnected
	if healthy {
		r.mu.Lock()
		r.hits++
		r.mu.Unlock()
		return entry, nil
	}

	// Slow path: collapse concurrent creators for the same tenant.
	result, err, _ := r.group.Do(tenantID, func() (interface{}, error) {
		// Re-check under the flight: a racing caller may have finished.
		r.mu.RLock()
		existing, ok := r.entries[tenantID]
		r.mu.RUnlock()

		if ok && existing.State() == base.StateConnected {
			r.mu.Lock()
			r.hits++
			r.mu.Unlock()
			return existing, nil
		}
		if ok {
			return r.reconnect(ctx, existing)
		}
		return r.create(ctx, tenantID)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Entry), nil
}

func (r *Registry) create(ctx context.Context, tenantID string) (*Entry, error) {
	r.log.Info(tenantID, "", "Opening tenant database connection", map[string]interface{}{
		"database": base.DatabaseName(tenantID),
	})

	conn, err := r.opener.Open(ctx, tenantID)
	if err != nil {
		r.log.Error(tenantID, "", fmt.Sprintf("Failed to open tenant connection: %v", err), nil)
		return nil, err
	}

	set, err := r.bind(ctx, conn, tenantID)
	if err != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeGrace)
		defer cancel()
		_ = conn.Close(closeCtx)
		return nil, base.NewConnectionError(tenantID, "connect", false, err)
	}

	now := time.Now().UTC()
	entry := &Entry{
		TenantID:        tenantID,
		DatabaseName:    base.DatabaseName(tenantID),
		Conn:            conn,
		Models:          set,
		ConnectedAt:     now,
		state:           base.StateConnected,
		lastHealthCheck: now,
	}

	r.mu.Lock()
	r.entries[tenantID] = entry
	r.misses++
	r.mu.Unlock()

	r.log.Info(tenantID, "", "Tenant database connection established", map[string]interface{}{
		"database": entry.DatabaseName,
	})
	return entry, nil
}

// reconnect replaces a degraded entry's connection in place. The old
// connection is closed best-effort.
func (r *Registry) reconnect(ctx context.Context, stale *Entry) (*Entry, error) {
	tenantID := stale.TenantID
	r.log.Warn(tenantID, "", "Reconnecting degraded tenant connection", map[string]interface{}{
		"previous_state": string(stale.State()),
		"last_error":     stale.LastError(),
	})

	closeCtx, cancel := context.WithTimeout(context.Background(), closeGrace)
	_ = stale.Conn.Close(closeCtx)
	cancel()

	conn, err := r.opener.Open(ctx, tenantID)
	if err != nil {
		stale.setState(base.StateError, err.Error())
		r.log.Error(tenantID, "", fmt.Sprintf("Reconnect failed: %v", err), nil)
		return nil, err
	}

	set, err := r.bind(ctx, conn, tenantID)
	if err != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeGrace)
		defer cancel()
		_ = conn.Close(closeCtx)
		stale.setState(base.StateError, err.Error())
		return nil, base.NewConnectionError(tenantID, "connect", false, err)
	}

	now := time.Now().UTC()
	fresh := &Entry{
		TenantID:        tenantID,
		DatabaseName:    base.DatabaseName(tenantID),
		Conn:            conn,
		Models:          set,
		ConnectedAt:     now,
		state:           base.StateConnected,
		lastHealthCheck: now,
	}

	r.mu.Lock()
	r.entries[tenantID] = fresh
	r.reconnects++
	r.mu.Unlock()

	r.log.Info(tenantID, "", "Tenant connection re-established", nil)
	return fresh, nil
}

// Get returns the cached entry for a tenant without any side effects: no
// connection is created and no reconnect is attempted.
func (r *Registry) Get(tenantID string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[tenantID]
	return entry, ok
}

// Tenants returns the ids of all cached connections, sorted.
func (r *Registry) Tenants() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MarkState records a health observation against a cached entry. Missing
// tenants are ignored; health marking never creates or removes entries.
func (r *Registry) MarkState(tenantID string, state base.ConnState, lastError string) {
	r.mu.RLock()
	entry, ok := r.entries[tenantID]
	r.mu.RUnlock()
	if !ok {
		return
	}
	entry.setState(state, lastError)
}

// Close disconnects and evicts one tenant's connection. Closing a tenant
// that has no cached connection is a no-op.
func (r *Registry) Close(ctx context.Context, tenantID string) error {
	r.mu.Lock()
	entry, ok := r.entries[tenantID]
	if ok {
		delete(r.entries, tenantID)
		r.closes++
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}

	if err := entry.Conn.Close(ctx); err != nil {
		r.log.Error(tenantID, "", fmt.Sprintf("Failed to close tenant connection: %v", err), nil)
		return &base.OperationFailedError{TenantID: tenantID, Op: "close", Cause: err}
	}
	r.log.Info(tenantID, "", "Tenant database connection closed", nil)
	return nil
}

// CloseAll disconnects every cached connection. All entries are evicted
// even when some closes fail; the failures are joined and returned.
func (r *Registry) CloseAll(ctx context.Context) error {
	r.mu.Lock()
	entries := make([]*Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, entry)
	}
	r.entries = make(map[string]*Entry)
	r.closes += int64(len(entries))
	r.mu.Unlock()

	var errs []error
	for _, entry := range entries {
		if err := entry.Conn.Close(ctx); err != nil {
			errs = append(errs, &base.OperationFailedError{TenantID: entry.TenantID, Op: "close", Cause: err})
		}
	}

	r.log.Info("", "", "Closed all tenant connections", map[string]interface{}{
		"count":    len(entries),
		"failures": len(errs),
	})
	return errors.Join(errs...)
}

// Drop destroys the tenant's database and evicts its connection. This is
// irreversible. A transient connection is opened if none is cached.
func (r *Registry) Drop(ctx context.Context, tenantID string) error {
	r.mu.Lock()
	entry, cached := r.entries[tenantID]
	if cached {
		delete(r.entries, tenantID)
	}
	r.mu.Unlock()

	conn := Conn(nil)
	if cached {
		conn = entry.Conn
	} else {
		opened, err := r.opener.Open(ctx, tenantID)
		if err != nil {
			return base.NewConnectionError(tenantID, "drop", base.IsRetryable(err), err)
		}
		conn = opened
	}

	r.log.Warn(tenantID, "", "Dropping tenant database", map[string]interface{}{
		"database": base.DatabaseName(tenantID),
	})

	dropErr := conn.DropDatabase(ctx)

	closeCtx, cancel := context.WithTimeout(context.Background(), closeGrace)
	defer cancel()
	closeErr := conn.Close(closeCtx)

	r.mu.Lock()
	r.drops++
	r.mu.Unlock()

	if dropErr != nil {
		return &base.OperationFailedError{TenantID: tenantID, Op: "drop", Cause: dropErr}
	}
	if closeErr != nil {
		return &base.OperationFailedError{TenantID: tenantID, Op: "close", Cause: closeErr}
	}
	r.log.Info(tenantID, "", "Tenant database dropped", nil)
	return nil
}

// Stats reports storage usage for the tenant's database. It only reads
// through a cached connection: opening one here would re-declare the model
// indexes, which must not happen after a Drop.
func (r *Registry) Stats(ctx context.Context, tenantID string) (*base.DatabaseStats, error) {
	entry, ok := r.Get(tenantID)
	if !ok {
		return nil, &base.OperationFailedError{
			TenantID: tenantID,
			Op:       "stats",
			Cause:    errors.New("no cached connection"),
		}
	}
	stats, err := entry.Conn.Stats(ctx)
	if err != nil {
		return nil, &base.OperationFailedError{TenantID: tenantID, Op: "stats", Cause: err}
	}
	return stats, nil
}

// Snapshot returns the registry's cumulative counters plus the live entry
// count.
func (r *Registry) Snapshot() Metrics {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Metrics{
		Hits:       r.hits,
		Misses:     r.misses,
		Reconnects: r.reconnects,
		Closes:     r.closes,
		Drops:      r.drops,
		Active:     int64(len(r.entries)),
	}
}
