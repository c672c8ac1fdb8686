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

// Package bind assembles the per-request tenant context: it resolves the
// routing key to a tenant, obtains the tenant's database connection and
// model set, and hands back everything a request handler needs. Binding is
// all-or-nothing, a handler never sees a partially built context.
package bind

import (
	"context"

	"multibase/platform/tenancy/base"
	"multibase/platform/tenancy/config"
	"multibase/platform/tenancy/models"
	"multibase/platform/tenancy/registry"
)

// TenantContext carries everything a request handler needs to operate in
// one tenant's scope. It is built per request and never cached.
type TenantContext struct {
	TenantID     string
	TenantSlug   string
	DatabaseName string
	Config       *base.TenantConfig
	Conn         registry.Conn
	Models       *models.ModelSet
	Health       base.HealthStatus
}

// Binder resolves routing keys into fully wired tenant contexts.
type Binder struct {
	resolver *config.Resolver
	registry *registry.Registry
}

// NewBinder creates a binder over the given resolver and registry.
func NewBinder(resolver *config.Resolver, reg *registry.Registry) *Binder {
	return &Binder{resolver: resolver, registry: reg}
}

// Bind resolves idOrSlug and connects to the tenant's database. A failure
// at any step yields a TenantContextError wrapping the cause; no partial
// context is ever returned.
func (b *Binder) Bind(ctx context.Context, idOrSlug string) (*TenantContext, error) {
	cfg, err := b.resolver.Resolve(idOrSlug)
	if err != nil {
		return nil, &base.TenantContextError{Slug: idOrSlug, Cause: err}
	}

	entry, err := b.registry.Connect(ctx, cfg.ID)
	if err != nil {
		return nil, &base.TenantContextError{Slug: idOrSlug, Cause: err}
	}

	state := entry.State()
	return &TenantContext{
		TenantID:     cfg.ID,
		TenantSlug:   cfg.Slug,
		DatabaseName: entry.DatabaseName,
		Config:       cfg,
		Conn:         entry.Conn,
		Models:       entry.Models,
		// The connection was just obtained through Connect, so the cached
		// registry state is current enough; binding never issues a ping.
		Health: base.HealthStatus{
			Healthy:         state == base.StateConnected,
			TenantID:        cfg.ID,
			DatabaseName:    entry.DatabaseName,
			ConnectionState: state,
			LastChecked:     entry.LastHealthCheck(),
		},
	}, nil
}

// Resolver exposes the binder's tenant directory.
func (b *Binder) Resolver() *config.Resolver {
	return b.resolver
}

// Registry exposes the binder's connection registry.
func (b *Binder) Registry() *registry.Registry {
	return b.registry
}

type contextKey struct{}

// WithTenant stamps the tenant context onto a request context.
func WithTenant(ctx context.Context, tc *TenantContext) context.Context {
	return context.WithValue(ctx, contextKey{}, tc)
}

// FromContext extracts the tenant context stamped by WithTenant.
func FromContext(ctx context.Context) (*TenantContext, bool) {
	tc, ok := ctx.Value(contextKey{}).(*TenantContext)
	return tc, ok
}
