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

package gateway

import (
	"os"
	"strings"
	"time"
)

// Config is the gateway's process configuration, read from the environment.
type Config struct {
	Port           string
	MongoURI       string
	TenantsFile    string
	DirectoryDBURL string
	RedisURL       string
	JWTSecret      string
	BaseDomain     string
	HealthInterval time.Duration
	AllowedOrigins []string
}

// ConfigFromEnv reads the gateway configuration with sensible defaults.
// MONGODB_URI is the only hard requirement; everything else degrades to a
// reduced feature set (no API accounting without REDIS_URL, no subdomain
// routing without BASE_DOMAIN, and so on).
func ConfigFromEnv() Config {
	interval := 30 * time.Second
	if raw := os.Getenv("HEALTH_INTERVAL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			interval = parsed
		}
	}

	origins := []string{"*"}
	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		origins = splitAndTrim(raw)
	}

	return Config{
		Port:           getEnv("PORT", "8080"),
		MongoURI:       getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		TenantsFile:    getEnv("TENANTS_FILE", "tenants.yaml"),
		DirectoryDBURL: os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		BaseDomain:     os.Getenv("BASE_DOMAIN"),
		HealthInterval: interval,
		AllowedOrigins: origins,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitAndTrim(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
