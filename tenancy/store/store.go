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

package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"multibase/platform/tenancy/base"
)

const (
	// DefaultMaxPoolSize is the default maximum connection pool size per tenant
	DefaultMaxPoolSize = 10
	// DefaultMinPoolSize is the default minimum connection pool size per tenant
	DefaultMinPoolSize = 2
	// DefaultConnectTimeout is the default connection timeout
	DefaultConnectTimeout = 10 * time.Second
	// DefaultServerSelectionTimeout is the default server selection timeout
	DefaultServerSelectionTimeout = 5 * time.Second
	// DefaultSocketTimeout is the default socket timeout
	DefaultSocketTimeout = 45 * time.Second
	// pingTimeout bounds the post-connect liveness verification
	pingTimeout = 5 * time.Second
	// closeTimeout bounds a graceful disconnect
	closeTimeout = 10 * time.Second
)

var errEmptyTenantID = errors.New("tenant id must not be empty")

// Options configures the connection factory. The same options apply to every
// tenant; only the database name varies per tenant.
type Options struct {
	// BaseURI is the MongoDB deployment address, e.g. mongodb://localhost:27017
	BaseURI string

	MaxPoolSize            uint64
	MinPoolSize            uint64
	ConnectTimeout         time.Duration
	SocketTimeout          time.Duration
	ServerSelectionTimeout time.Duration
	AppName                string
}

// DefaultOptions returns the factory defaults for the given base URI.
func DefaultOptions(baseURI string) Options {
	return Options{
		BaseURI:                baseURI,
		MaxPoolSize:            DefaultMaxPoolSize,
		MinPoolSize:            DefaultMinPoolSize,
		ConnectTimeout:         DefaultConnectTimeout,
		SocketTimeout:          DefaultSocketTimeout,
		ServerSelectionTimeout: DefaultServerSelectionTimeout,
		AppName:                "multibase-tenant-store",
	}
}

// Factory opens isolated per-tenant database connections. The tenant's
// storage address is a pure function of its id (tenant_<id>), so the same
// tenant always maps to the same database across restarts. The factory never
// retries internally; retry policy belongs to the caller, which knows whether
// this is a first attempt or a health-triggered reconnect.
type Factory struct {
	opts Options
}

// NewFactory creates a connection factory with the given options. Zero-value
// option fields fall back to the defaults.
func NewFactory(opts Options) *Factory {
	if opts.MaxPoolSize == 0 {
		opts.MaxPoolSize = DefaultMaxPoolSize
	}
	if opts.MinPoolSize == 0 {
		opts.MinPoolSize = DefaultMinPoolSize
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.SocketTimeout == 0 {
		opts.SocketTimeout = DefaultSocketTimeout
	}
	if opts.ServerSelectionTimeout == 0 {
		opts.ServerSelectionTimeout = DefaultServerSelectionTimeout
	}
	if opts.AppName == "" {
		opts.AppName = "multibase-tenant-store"
	}
	return &Factory{opts: opts}
}

// Connection is a live handle to one tenant's isolated database.
type Connection struct {
	TenantID     string
	DatabaseName string

	client   *mongo.Client
	database *mongo.Database
}

// Open establishes a connection for the given tenant. On failure it returns
// a ConnectionError whose Retryable flag is set only for transient causes.
func (f *Factory) Open(ctx context.Context, tenantID string) (*Connection, error) {
	if tenantID == "" {
		return nil, base.NewConnectionError(tenantID, "open", false, errEmptyTenantID)
	}

	clientOpts := options.Client().
		ApplyURI(f.opts.BaseURI).
		SetMaxPoolSize(f.opts.MaxPoolSize).
		SetMinPoolSize(f.opts.MinPoolSize).
		SetConnectTimeout(f.opts.ConnectTimeout).
		SetSocketTimeout(f.opts.SocketTimeout).
		SetServerSelectionTimeout(f.opts.ServerSelectionTimeout).
		SetAppName(f.opts.AppName).
		SetRetryWrites(true).
		SetRetryReads(true)

	connectCtx, cancel := context.WithTimeout(ctx, f.opts.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, base.NewConnectionError(tenantID, "open", isTransient(err), err)
	}

	// Verify the connection before handing it out; a lazily failing handle
	// would otherwise surface as a query error attributed to route logic.
	pingCtx, pingCancel := context.WithTimeout(ctx, pingTimeout)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, base.NewConnectionError(tenantID, "open", isTransient(err), err)
	}

	dbName := base.DatabaseName(tenantID)

	return &Connection{
		TenantID:     tenantID,
		DatabaseName: dbName,
		client:       client,
		database:     client.Database(dbName),
	}, nil
}

// Database returns the tenant's isolated database handle.
func (c *Connection) Database() *mongo.Database {
	return c.database
}

// Ping issues a liveness check against the connection and returns the
// measured round-trip time.
func (c *Connection) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	err := c.client.Ping(ctx, readpref.Primary())
	return time.Since(start), err
}

// Stats reports storage usage for the tenant's database.
func (c *Connection) Stats(ctx context.Context) (*base.DatabaseStats, error) {
	var result struct {
		Collections int64   `bson:"collections"`
		Objects     int64   `bson:"objects"`
		DataSize    float64 `bson:"dataSize"`
		StorageSize float64 `bson:"storageSize"`
		Indexes     int64   `bson:"indexes"`
	}

	err := c.database.RunCommand(ctx, bson.D{{Key: "dbStats", Value: 1}}).Decode(&result)
	if err != nil {
		return nil, &base.OperationFailedError{TenantID: c.TenantID, Op: "stats", Cause: err}
	}

	return &base.DatabaseStats{
		Collections: result.Collections,
		DataSize:    int64(result.DataSize),
		StorageSize: int64(result.StorageSize),
		Indexes:     result.Indexes,
		ObjectCount: result.Objects,
	}, nil
}

// DropDatabase deletes the tenant's database entirely. Irreversible.
func (c *Connection) DropDatabase(ctx context.Context) error {
	if err := c.database.Drop(ctx); err != nil {
		return &base.OperationFailedError{TenantID: c.TenantID, Op: "drop", Cause: err}
	}
	return nil
}

// Close disconnects the underlying client. In-flight operations are drained
// by the driver.
func (c *Connection) Close(ctx context.Context) error {
	closeCtx, cancel := context.WithTimeout(ctx, closeTimeout)
	defer cancel()

	if err := c.client.Disconnect(closeCtx); err != nil {
		return &base.OperationFailedError{TenantID: c.TenantID, Op: "close", Cause: err}
	}
	return nil
}

// isTransient classifies a connect failure as retryable. Timeouts and network
// errors are worth retrying; anything else (auth, malformed URI) is not.
func isTransient(err error) bool {
	return mongo.IsTimeout(err) || mongo.IsNetworkError(err)
}
