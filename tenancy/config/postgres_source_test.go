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
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multibase/platform/shared/logger"
	"multibase/platform/tenancy/base"
)

func newMockSource(t *testing.T) (*PostgresSource, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return &PostgresSource{db: db, log: logger.New("tenant-directory-test")}, mock
}

func TestLoadTenants(t *testing.T) {
	source, mock := newMockSource(t)

	rows := sqlmock.NewRows([]string{
		"id", "slug", "name", "domain", "features", "limits", "branding", "security", "settings",
	}).AddRow(
		"luxgen", "luxgen", "LuxGen Industries", "luxgen.example.com",
		[]byte(`["polls","jobs"]`),
		[]byte(`{"max_users":500}`),
		[]byte(`{}`), []byte(`{}`), []byte(`{}`),
	).AddRow(
		"test", "test", "Test Tenant", "",
		[]byte(`[]`), []byte(`{}`), []byte(`{}`), []byte(`{}`), []byte(`{}`),
	)

	mock.ExpectQuery("SELECT id, slug, name").WillReturnRows(rows)

	configs, err := source.LoadTenants(context.Background())
	require.NoError(t, err)
	require.Len(t, configs, 2)

	assert.Equal(t, "luxgen", configs[0].ID)
	assert.Equal(t, int64(500), configs[0].Limits.MaxUsers)
	assert.True(t, configs[0].HasFeature("polls"))
	assert.Equal(t, "test", configs[1].ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadTenantsBadJSON(t *testing.T) {
	source, mock := newMockSource(t)

	rows := sqlmock.NewRows([]string{
		"id", "slug", "name", "domain", "features", "limits", "branding", "security", "settings",
	}).AddRow(
		"broken", "broken", "Broken", "",
		[]byte(`not-json`), []byte(`{}`), []byte(`{}`), []byte(`{}`), []byte(`{}`),
	)

	mock.ExpectQuery("SELECT id, slug, name").WillReturnRows(rows)

	_, err := source.LoadTenants(context.Background())
	assert.Error(t, err)
}

func TestSaveTenant(t *testing.T) {
	source, mock := newMockSource(t)

	mock.ExpectExec("INSERT INTO tenants").
		WithArgs("luxgen", "luxgen", "LuxGen Industries", "luxgen.example.com",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := source.SaveTenant(context.Background(), &base.TenantConfig{
		ID:     "luxgen",
		Slug:   "luxgen",
		Name:   "LuxGen Industries",
		Domain: "luxgen.example.com",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteTenant(t *testing.T) {
	source, mock := newMockSource(t)

	mock.ExpectExec("DELETE FROM tenants").
		WithArgs("luxgen").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, source.DeleteTenant(context.Background(), "luxgen"))

	mock.ExpectExec("DELETE FROM tenants").
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := source.DeleteTenant(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, base.IsTenantNotFound(err))
}
