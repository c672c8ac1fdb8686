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

package config

import (
	"fmt"
	"sort"

	"multibase/platform/tenancy/base"
)

// Resolver maps tenant identifiers and slugs to their static configuration.
// The config set is fixed at construction time; all lookups are pure and
// involve no I/O, so a Resolver is safe for concurrent use.
type Resolver struct {
	byID   map[string]*base.TenantConfig
	bySlug map[string]*base.TenantConfig
}

// NewResolver builds a Resolver over the given set of tenant configs.
// Duplicate ids or slugs are rejected.
func NewResolver(configs []*base.TenantConfig) (*Resolver, error) {
	r := &Resolver{
		byID:   make(map[string]*base.TenantConfig, len(configs)),
		bySlug: make(map[string]*base.TenantConfig, len(configs)),
	}

	for _, cfg := range configs {
		if cfg.ID == "" {
			return nil, fmt.Errorf("tenant config with empty id")
		}
		if _, exists := r.byID[cfg.ID]; exists {
			return nil, fmt.Errorf("duplicate tenant id '%s'", cfg.ID)
		}

		slug := cfg.Slug
		if slug == "" {
			slug = cfg.ID
		}
		if other, exists := r.bySlug[slug]; exists {
			return nil, fmt.Errorf("tenants '%s' and '%s' share slug '%s'", other.ID, cfg.ID, slug)
		}

		r.byID[cfg.ID] = cfg
		r.bySlug[slug] = cfg
	}

	return r, nil
}

// Resolve looks up a tenant config by canonical id first, falling back to a
// slug match. Returns a TenantNotFoundError when neither matches.
func (r *Resolver) Resolve(idOrSlug string) (*base.TenantConfig, error) {
	if cfg, ok := r.byID[idOrSlug]; ok {
		return cfg, nil
	}
	if cfg, ok := r.bySlug[idOrSlug]; ok {
		return cfg, nil
	}
	return nil, &base.TenantNotFoundError{Key: idOrSlug}
}

// HasFeature reports whether the named feature is enabled for the tenant.
// Unknown tenants have no features.
func (r *Resolver) HasFeature(tenantID, feature string) bool {
	cfg, ok := r.byID[tenantID]
	if !ok {
		return false
	}
	return cfg.HasFeature(feature)
}

// All returns every known tenant config, ordered by id.
func (r *Resolver) All() []*base.TenantConfig {
	configs := make([]*base.TenantConfig, 0, len(r.byID))
	for _, cfg := range r.byID {
		configs = append(configs, cfg)
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].ID < configs[j].ID })
	return configs
}

// IDs returns every known tenant id, ordered.
func (r *Resolver) IDs() []string {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of known tenants.
func (r *Resolver) Count() int {
	return len(r.byID)
}
