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
	"time"
)

// DatabasePrefix is prepended to the tenant id to derive the tenant's
// isolated database name. The derivation is a pure function of the id so
// the same tenant always lands in the same database across restarts.
const DatabasePrefix = "tenant_"

// DatabaseName derives the isolated database name for a tenant id.
func DatabaseName(tenantID string) string {
	return DatabasePrefix + tenantID
}

// TenantIdentity is the immutable identity of a tenant. ID is the canonical
// key used everywhere internally; Slug is the external-facing routing key
// (may equal ID). Created at config-load time and never mutated.
type TenantIdentity struct {
	ID   string `json:"id" yaml:"id"`
	Slug string `json:"slug" yaml:"slug"`
}

// TenantLimits holds the static resource ceilings for a tenant.
type TenantLimits struct {
	MaxUsers              int64 `json:"max_users" yaml:"max_users"`
	MaxStorageBytes       int64 `json:"max_storage_bytes" yaml:"max_storage_bytes"`
	MaxAPICalls           int64 `json:"max_api_calls" yaml:"max_api_calls"`
	MaxConcurrentSessions int64 `json:"max_concurrent_sessions" yaml:"max_concurrent_sessions"`
	DataRetentionDays     int64 `json:"data_retention_days" yaml:"data_retention_days"`
	MaxJobPosts           int64 `json:"max_job_posts" yaml:"max_job_posts"`
	MaxTrainingPrograms   int64 `json:"max_training_programs" yaml:"max_training_programs"`
	MaxAssessments        int64 `json:"max_assessments" yaml:"max_assessments"`
}

// TenantBranding holds tenant-facing presentation settings.
type TenantBranding struct {
	DisplayName    string `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	LogoURL        string `json:"logo_url,omitempty" yaml:"logo_url,omitempty"`
	PrimaryColor   string `json:"primary_color,omitempty" yaml:"primary_color,omitempty"`
	SecondaryColor string `json:"secondary_color,omitempty" yaml:"secondary_color,omitempty"`
}

// TenantSecurity holds per-tenant security policy knobs.
type TenantSecurity struct {
	AllowedOrigins        []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty"`
	EnforceMFA            bool     `json:"enforce_mfa" yaml:"enforce_mfa"`
	SessionTimeoutMinutes int      `json:"session_timeout_minutes" yaml:"session_timeout_minutes"`
}

// TenantConfig is the static descriptor for one tenant. It is loaded once at
// process start and read-only thereafter; there is exactly one TenantConfig
// per TenantIdentity.ID.
type TenantConfig struct {
	ID       string                 `json:"id" yaml:"id"`
	Slug     string                 `json:"slug" yaml:"slug"`
	Name     string                 `json:"name" yaml:"name"`
	Domain   string                 `json:"domain,omitempty" yaml:"domain,omitempty"`
	Features []string               `json:"features,omitempty" yaml:"features,omitempty"`
	Limits   TenantLimits           `json:"limits" yaml:"limits"`
	Branding TenantBranding         `json:"branding,omitempty" yaml:"branding,omitempty"`
	Security TenantSecurity         `json:"security,omitempty" yaml:"security,omitempty"`
	Settings map[string]interface{} `json:"settings,omitempty" yaml:"settings,omitempty"`
}

// HasFeature reports whether the named feature is enabled for the tenant.
func (c *TenantConfig) HasFeature(name string) bool {
	for _, f := range c.Features {
		if f == name {
			return true
		}
	}
	return false
}

// Identity returns the tenant's immutable identity pair.
func (c *TenantConfig) Identity() TenantIdentity {
	return TenantIdentity{ID: c.ID, Slug: c.Slug}
}

// DatabaseName returns the tenant's isolated database name.
func (c *TenantConfig) DatabaseName() string {
	return DatabaseName(c.ID)
}

// ConnState is the lifecycle state of a cached tenant connection.
type ConnState string

const (
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
	StateDisconnected ConnState = "disconnected"
	StateError        ConnState = "error"
)

// HealthStatus is the result of one health probe against a tenant's
// connection. It is recomputed on every probe and never persisted.
type HealthStatus struct {
	Healthy         bool      `json:"healthy"`
	TenantID        string    `json:"tenant_id"`
	DatabaseName    string    `json:"database_name,omitempty"`
	ConnectionState ConnState `json:"connection_state"`
	ResponseTimeMs  float64   `json:"response_time_ms"`
	LastChecked     time.Time `json:"last_checked"`
	Error           string    `json:"error,omitempty"`
}

// DatabaseStats summarizes storage usage for one tenant database.
type DatabaseStats struct {
	Collections int64 `json:"collections"`
	DataSize    int64 `json:"data_size"`
	StorageSize int64 `json:"storage_size"`
	Indexes     int64 `json:"indexes"`
	ObjectCount int64 `json:"object_count"`
}

// UsageBound pairs a live usage count with its configured ceiling.
type UsageBound struct {
	Current int64 `json:"current"`
	Max     int64 `json:"max"`
}

// Exceeded reports whether the bound has been reached. A Max of zero means
// the limit is not enforced.
func (b UsageBound) Exceeded() bool {
	return b.Max > 0 && b.Current >= b.Max
}

// LimitsResult combines live usage with the tenant's static limits.
type LimitsResult struct {
	TenantID     string     `json:"tenant_id"`
	WithinLimits bool       `json:"within_limits"`
	Users        UsageBound `json:"users"`
	Storage      UsageBound `json:"storage"`
	APICalls     UsageBound `json:"api_calls,omitempty"`
}
