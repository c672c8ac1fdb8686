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

// Package gateway is the multi-tenant record gateway. It binds every API
// request to a tenant, routes record operations into the tenant's isolated
// database, and exposes admin endpoints for connection lifecycle, health,
// stats, and limits.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"

	"multibase/platform/httpbind"
	"multibase/platform/shared/logger"
	"multibase/platform/tenancy/base"
	"multibase/platform/tenancy/bind"
	"multibase/platform/tenancy/config"
	"multibase/platform/tenancy/health"
	"multibase/platform/tenancy/limits"
	"multibase/platform/tenancy/registry"
	"multibase/platform/tenancy/store"
)

const shutdownGrace = 15 * time.Second

// Run boots the gateway and blocks until SIGINT or SIGTERM. All tenant
// connections are drained on the way out.
func Run() error {
	log := logger.New("gateway")
	cfg := ConfigFromEnv()

	configs, err := loadTenantConfigs(cfg)
	if err != nil {
		return fmt.Errorf("failed to load tenant directory: %w", err)
	}
	resolver, err := config.NewResolver(configs)
	if err != nil {
		return fmt.Errorf("failed to build tenant resolver: %w", err)
	}
	log.Info("", "", "Tenant directory loaded", map[string]interface{}{
		"tenants": resolver.Count(),
	})

	factory := store.NewFactory(store.DefaultOptions(cfg.MongoURI))
	reg := registry.NewRegistry(registry.FactoryOpener(factory), logger.New("tenant-registry"))
	registerRegistryMetrics(reg)

	monitor := health.NewMonitor(reg, logger.New("tenant-health"), cfg.HealthInterval)

	checker, err := limits.NewChecker(reg, cfg.RedisURL, logger.New("tenant-limits"))
	if err != nil {
		return fmt.Errorf("failed to initialize limits checker: %w", err)
	}
	defer func() { _ = checker.Close() }()

	extractor := &httpbind.Extractor{BaseDomain: cfg.BaseDomain}
	if cfg.JWTSecret != "" {
		extractor.JWTSecret = []byte(cfg.JWTSecret)
	}

	server := NewServer(bind.NewBinder(resolver, reg), monitor, checker, extractor, log)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: corsHandler.Handler(server.Router()),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go monitor.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Info("", "", "Gateway listening", map[string]interface{}{"port": cfg.Port})
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("", "", "Shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("", "", "HTTP shutdown failed: "+err.Error(), nil)
	}
	if err := reg.CloseAll(shutdownCtx); err != nil {
		log.Error("", "", "Connection drain failed: "+err.Error(), nil)
	}

	log.Info("", "", "Gateway stopped", nil)
	return nil
}

// loadTenantConfigs reads the tenant directory. Postgres wins when
// DATABASE_URL is set, otherwise the YAML file is used.
func loadTenantConfigs(cfg Config) ([]*base.TenantConfig, error) {
	if cfg.DirectoryDBURL != "" {
		source, err := config.NewPostgresSource(cfg.DirectoryDBURL)
		if err != nil {
			return nil, err
		}
		defer func() { _ = source.Close() }()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return source.LoadTenants(ctx)
	}

	if _, err := os.Stat(cfg.TenantsFile); err != nil {
		return nil, fmt.Errorf("tenants file %s not readable: %w", cfg.TenantsFile, err)
	}
	return config.LoadFile(cfg.TenantsFile)
}

// registerRegistryMetrics exposes the registry counters to Prometheus.
func registerRegistryMetrics(reg *registry.Registry) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "tenant_registry_hits_total",
			Help: "Cache hits served by the tenant connection registry",
		},
		func() float64 { return float64(reg.Snapshot().Hits) },
	))
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "tenant_registry_misses_total",
			Help: "Connections created by the tenant connection registry",
		},
		func() float64 { return float64(reg.Snapshot().Misses) },
	))
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "tenant_registry_reconnects_total",
			Help: "Reconnects performed for degraded tenant connections",
		},
		func() float64 { return float64(reg.Snapshot().Reconnects) },
	))
}
