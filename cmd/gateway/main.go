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

// Package main is the entry point for the Multibase tenant gateway.
//
// The gateway binds every API request to a tenant, routes record
// operations into the tenant's isolated database, and exposes admin
// endpoints for connection lifecycle, health, stats, and limits.
//
// Usage:
//
//	./gateway
//
// Environment Variables:
//
//	PORT - HTTP server port (default: 8080)
//	MONGODB_URI - MongoDB connection string (default: mongodb://localhost:27017)
//	TENANTS_FILE - YAML tenant directory (default: tenants.yaml)
//	DATABASE_URL - PostgreSQL tenant directory (overrides TENANTS_FILE)
//	REDIS_URL - Redis for API call accounting (optional)
//	JWT_SECRET - Secret for tenant claim extraction (optional)
//	BASE_DOMAIN - Base domain for subdomain tenant routing (optional)
package main

import (
	"log"

	"multibase/platform/gateway"
)

func main() {
	if err := gateway.Run(); err != nil {
		log.Fatalf("gateway: %v", err)
	}
}
