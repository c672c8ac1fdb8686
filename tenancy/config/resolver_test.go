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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multibase/platform/tenancy/base"
)

func testConfigs() []*base.TenantConfig {
	return []*base.TenantConfig{
		{
			ID:       "luxgen",
			Slug:     "luxgen",
			Name:     "LuxGen Industries",
			Features: []string{"polls", "jobs"},
		},
		{
			ID:   "acme-corp",
			Slug: "acme",
			Name: "Acme Corp",
		},
	}
}

func TestResolveByIDAndSlug(t *testing.T) {
	r, err := NewResolver(testConfigs())
	require.NoError(t, err)

	// Canonical id wins
	cfg, err := r.Resolve("luxgen")
	require.NoError(t, err)
	assert.Equal(t, "luxgen", cfg.ID)

	// Slug fallback
	cfg, err = r.Resolve("acme")
	require.NoError(t, err)
	assert.Equal(t, "acme-corp", cfg.ID)

	// Id also resolves when slug differs
	cfg, err = r.Resolve("acme-corp")
	require.NoError(t, err)
	assert.Equal(t, "acme", cfg.Slug)
}

func TestResolveNotFound(t *testing.T) {
	r, err := NewResolver(testConfigs())
	require.NoError(t, err)

	_, err = r.Resolve("unknown")
	require.Error(t, err)
	assert.True(t, base.IsTenantNotFound(err))
}

func TestResolverRejectsDuplicates(t *testing.T) {
	_, err := NewResolver([]*base.TenantConfig{
		{ID: "a", Name: "A"},
		{ID: "a", Name: "A again"},
	})
	assert.Error(t, err)

	_, err = NewResolver([]*base.TenantConfig{
		{ID: "a", Slug: "shared", Name: "A"},
		{ID: "b", Slug: "shared", Name: "B"},
	})
	assert.Error(t, err)
}

func TestHasFeature(t *testing.T) {
	r, err := NewResolver(testConfigs())
	require.NoError(t, err)

	assert.True(t, r.HasFeature("luxgen", "polls"))
	assert.False(t, r.HasFeature("luxgen", "training"))
	assert.False(t, r.HasFeature("acme-corp", "polls"))
	assert.False(t, r.HasFeature("unknown", "polls"))
}

func TestAllAndIDs(t *testing.T) {
	r, err := NewResolver(testConfigs())
	require.NoError(t, err)

	assert.Equal(t, []string{"acme-corp", "luxgen"}, r.IDs())
	assert.Equal(t, 2, r.Count())

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "acme-corp", all[0].ID)
}
