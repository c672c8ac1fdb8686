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

// Package limits compares a tenant's live resource usage against the static
// ceilings in its config. API call accounting is tracked in Redis with a
// sliding window and fails open when Redis is unavailable.
package limits

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"multibase/platform/shared/logger"
	"multibase/platform/tenancy/base"
	"multibase/platform/tenancy/registry"
)

// Window is the sliding window over which API calls are counted.
const Window = time.Minute

const redisDialTimeout = 5 * time.Second

// Checker evaluates tenant usage against configured limits.
type Checker struct {
	registry *registry.Registry
	rdb      *redis.Client
	log      *logger.Logger
}

// NewChecker creates a limits checker. redisURL may be empty, in which case
// API call accounting is disabled and only user and storage limits apply.
func NewChecker(reg *registry.Registry, redisURL string, log *logger.Logger) (*Checker, error) {
	if log == nil {
		log = logger.New("tenant-limits")
	}

	c := &Checker{registry: reg, log: log}
	if redisURL == "" {
		return c, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	c.rdb = redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("", "", "API call accounting enabled", nil)
	return c, nil
}

// NewCheckerWithClient creates a checker over an existing Redis client.
func NewCheckerWithClient(reg *registry.Registry, rdb *redis.Client, log *logger.Logger) *Checker {
	if log == nil {
		log = logger.New("tenant-limits")
	}
	return &Checker{registry: reg, rdb: rdb, log: log}
}

func callKey(tenantID string) string {
	return fmt.Sprintf("apicalls:%s", tenantID)
}

// RecordCall appends one API call timestamp to the tenant's sliding window.
// Redis failures are logged and swallowed: accounting never blocks traffic.
func (c *Checker) RecordCall(ctx context.Context, tenantID string) {
	if c.rdb == nil {
		return
	}

	now := time.Now()
	key := callKey(tenantID)

	pipe := c.rdb.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", now.Add(-Window).UnixNano()))
	pipe.ZAdd(ctx, key, &redis.Z{
		Score:  float64(now.UnixNano()),
		Member: fmt.Sprintf("%d", now.UnixNano()),
	})
	pipe.Expire(ctx, key, 2*Window)

	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn(tenantID, "", fmt.Sprintf("Failed to record API call: %v (failing open)", err), nil)
	}
}

// CallsInWindow counts the tenant's API calls inside the sliding window.
// Returns zero on Redis failure (fail open).
func (c *Checker) CallsInWindow(ctx context.Context, tenantID string) int64 {
	if c.rdb == nil {
		return 0
	}

	min := fmt.Sprintf("%d", time.Now().Add(-Window).UnixNano())
	count, err := c.rdb.ZCount(ctx, callKey(tenantID), min, "+inf").Result()
	if err != nil {
		c.log.Warn(tenantID, "", fmt.Sprintf("Failed to count API calls: %v (failing open)", err), nil)
		return 0
	}
	return count
}

// FlushCalls clears the tenant's API call window. Admin operation.
func (c *Checker) FlushCalls(ctx context.Context, tenantID string) error {
	if c.rdb == nil {
		return nil
	}
	if err := c.rdb.Del(ctx, callKey(tenantID)).Err(); err != nil {
		return fmt.Errorf("failed to flush API call window: %w", err)
	}
	return nil
}

// Check compares the tenant's live usage against its configured limits.
// Live users come from the tenant's database, storage from dbStats, API
// calls from the Redis window. A ceiling of zero means unenforced.
func (c *Checker) Check(ctx context.Context, cfg *base.TenantConfig) (*base.LimitsResult, error) {
	entry, err := c.registry.Connect(ctx, cfg.ID)
	if err != nil {
		return nil, err
	}

	userCount, err := entry.Models.Users.Count(ctx)
	if err != nil {
		return nil, base.NewConnectionError(cfg.ID, "limits", base.IsRetryable(err), err)
	}

	stats, err := entry.Conn.Stats(ctx)
	if err != nil {
		return nil, base.NewConnectionError(cfg.ID, "limits", base.IsRetryable(err), err)
	}

	return evaluate(cfg, userCount, stats.DataSize, c.CallsInWindow(ctx, cfg.ID)), nil
}

// evaluate folds the measured usage into a limits verdict.
func evaluate(cfg *base.TenantConfig, users, storageBytes, calls int64) *base.LimitsResult {
	result := &base.LimitsResult{
		TenantID: cfg.ID,
		Users:    base.UsageBound{Current: users, Max: cfg.Limits.MaxUsers},
		Storage:  base.UsageBound{Current: storageBytes, Max: cfg.Limits.MaxStorageBytes},
		APICalls: base.UsageBound{Current: calls, Max: cfg.Limits.MaxAPICalls},
	}
	result.WithinLimits = !result.Users.Exceeded() &&
		!result.Storage.Exceeded() &&
		!result.APICalls.Exceeded()
	return result
}

// Close releases the Redis client if one was created.
func (c *Checker) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}
