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
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"multibase/platform/shared/logger"
	"multibase/platform/tenancy/base"
)

// PostgresSource reads the tenant directory from a PostgreSQL table. It is an
// alternative to the YAML file source for deployments where tenants are
// provisioned by an external control plane. The directory is still loaded
// once at startup; the resolver built from it stays read-only.
type PostgresSource struct {
	db  *sql.DB
	log *logger.Logger
}

// NewPostgresSource connects to PostgreSQL and ensures the tenants table
// exists. Connection is retried with backoff to tolerate container DNS and
// database startup delays.
func NewPostgresSource(dbURL string) (*PostgresSource, error) {
	maxRetries := 5
	var db *sql.DB
	var err error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		db, err = sql.Open("postgres", dbURL)
		if err == nil {
			err = db.Ping()
			if err == nil {
				break
			}
		}

		if attempt < maxRetries {
			time.Sleep(time.Duration(attempt*2) * time.Second)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to tenant directory after %d attempts: %w", maxRetries, err)
	}

	source := &PostgresSource{
		db:  db,
		log: logger.New("tenant-directory"),
	}

	if err := source.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize tenant directory schema: %w", err)
	}

	return source, nil
}

// initSchema creates the tenants table if it doesn't exist
func (s *PostgresSource) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS tenants (
		id VARCHAR(255) PRIMARY KEY,
		slug VARCHAR(255) NOT NULL UNIQUE,
		name VARCHAR(255) NOT NULL,
		domain VARCHAR(255),
		features JSONB NOT NULL DEFAULT '[]'::jsonb,
		limits JSONB NOT NULL DEFAULT '{}'::jsonb,
		branding JSONB NOT NULL DEFAULT '{}'::jsonb,
		security JSONB NOT NULL DEFAULT '{}'::jsonb,
		settings JSONB NOT NULL DEFAULT '{}'::jsonb,
		enabled BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_tenants_slug ON tenants(slug);
	`

	_, err := s.db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// LoadTenants returns every enabled tenant config from the directory.
func (s *PostgresSource) LoadTenants(ctx context.Context) ([]*base.TenantConfig, error) {
	query := `
		SELECT id, slug, name, COALESCE(domain, ''), features, limits, branding, security, settings
		FROM tenants
		WHERE enabled = true
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenants: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var configs []*base.TenantConfig
	for rows.Next() {
		var cfg base.TenantConfig
		var featuresJSON, limitsJSON, brandingJSON, securityJSON, settingsJSON []byte

		if err := rows.Scan(&cfg.ID, &cfg.Slug, &cfg.Name, &cfg.Domain,
			&featuresJSON, &limitsJSON, &brandingJSON, &securityJSON, &settingsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan tenant row: %w", err)
		}

		if err := json.Unmarshal(featuresJSON, &cfg.Features); err != nil {
			return nil, fmt.Errorf("tenant %s: invalid features: %w", cfg.ID, err)
		}
		if err := json.Unmarshal(limitsJSON, &cfg.Limits); err != nil {
			return nil, fmt.Errorf("tenant %s: invalid limits: %w", cfg.ID, err)
		}
		if err := json.Unmarshal(brandingJSON, &cfg.Branding); err != nil {
			return nil, fmt.Errorf("tenant %s: invalid branding: %w", cfg.ID, err)
		}
		if err := json.Unmarshal(securityJSON, &cfg.Security); err != nil {
			return nil, fmt.Errorf("tenant %s: invalid security: %w", cfg.ID, err)
		}
		if err := json.Unmarshal(settingsJSON, &cfg.Settings); err != nil {
			return nil, fmt.Errorf("tenant %s: invalid settings: %w", cfg.ID, err)
		}

		configs = append(configs, &cfg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tenant rows: %w", err)
	}

	s.log.Info("", "", "Loaded tenant directory", map[string]interface{}{
		"tenants": len(configs),
	})

	return configs, nil
}

// SaveTenant inserts or updates a tenant config in the directory.
func (s *PostgresSource) SaveTenant(ctx context.Context, cfg *base.TenantConfig) error {
	featuresJSON, err := json.Marshal(cfg.Features)
	if err != nil {
		return fmt.Errorf("failed to marshal features: %w", err)
	}
	limitsJSON, err := json.Marshal(cfg.Limits)
	if err != nil {
		return fmt.Errorf("failed to marshal limits: %w", err)
	}
	brandingJSON, err := json.Marshal(cfg.Branding)
	if err != nil {
		return fmt.Errorf("failed to marshal branding: %w", err)
	}
	securityJSON, err := json.Marshal(cfg.Security)
	if err != nil {
		return fmt.Errorf("failed to marshal security: %w", err)
	}
	settingsJSON, err := json.Marshal(cfg.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	slug := cfg.Slug
	if slug == "" {
		slug = cfg.ID
	}

	query := `
		INSERT INTO tenants (id, slug, name, domain, features, limits, branding, security, settings, enabled, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, true, NOW())
		ON CONFLICT (id) DO UPDATE SET
			slug = EXCLUDED.slug,
			name = EXCLUDED.name,
			domain = EXCLUDED.domain,
			features = EXCLUDED.features,
			limits = EXCLUDED.limits,
			branding = EXCLUDED.branding,
			security = EXCLUDED.security,
			settings = EXCLUDED.settings,
			updated_at = NOW()
	`

	_, err = s.db.ExecContext(ctx, query, cfg.ID, slug, cfg.Name, cfg.Domain,
		featuresJSON, limitsJSON, brandingJSON, securityJSON, settingsJSON)
	if err != nil {
		return fmt.Errorf("failed to save tenant '%s': %w", cfg.ID, err)
	}

	return nil
}

// DeleteTenant removes a tenant from the directory.
func (s *PostgresSource) DeleteTenant(ctx context.Context, tenantID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tenants WHERE id = $1`, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete tenant '%s': %w", tenantID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return &base.TenantNotFoundError{Key: tenantID}
	}

	return nil
}

// Close closes the directory database connection.
func (s *PostgresSource) Close() error {
	return s.db.Close()
}
