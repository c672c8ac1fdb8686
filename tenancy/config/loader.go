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
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"multibase/platform/tenancy/base"
)

// ConfigFile represents the root structure of a tenant configuration file.
type ConfigFile struct {
	Version string                     `yaml:"version"`
	Tenants map[string]TenantFileEntry `yaml:"tenants"`
}

// TenantFileEntry represents one tenant in the configuration file. The map
// key is the canonical tenant id.
type TenantFileEntry struct {
	Enabled  bool                   `yaml:"enabled"`
	Slug     string                 `yaml:"slug,omitempty"`
	Name     string                 `yaml:"name"`
	Domain   string                 `yaml:"domain,omitempty"`
	Features []string               `yaml:"features,omitempty"`
	Limits   base.TenantLimits      `yaml:"limits,omitempty"`
	Branding base.TenantBranding    `yaml:"branding,omitempty"`
	Security base.TenantSecurity    `yaml:"security,omitempty"`
	Settings map[string]interface{} `yaml:"settings,omitempty"`
}

// LoadFile reads a YAML tenant configuration file, expands environment
// variable references and returns the enabled tenant configs.
func LoadFile(path string) ([]*base.TenantConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tenant config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses YAML tenant configuration content. Environment variable
// references using ${VAR_NAME} or ${VAR_NAME:-default} syntax are expanded
// before parsing.
func Parse(data []byte) ([]*base.TenantConfig, error) {
	expanded := expandEnvVars(string(data))

	var file ConfigFile
	if err := yaml.Unmarshal([]byte(expanded), &file); err != nil {
		return nil, fmt.Errorf("failed to parse tenant config: %w", err)
	}

	if err := validateConfigFile(&file); err != nil {
		return nil, err
	}

	configs := make([]*base.TenantConfig, 0, len(file.Tenants))
	for id, entry := range file.Tenants {
		if !entry.Enabled {
			continue
		}

		slug := entry.Slug
		if slug == "" {
			slug = id
		}

		configs = append(configs, &base.TenantConfig{
			ID:       id,
			Slug:     slug,
			Name:     entry.Name,
			Domain:   entry.Domain,
			Features: entry.Features,
			Limits:   entry.Limits,
			Branding: entry.Branding,
			Security: entry.Security,
			Settings: entry.Settings,
		})
	}

	return configs, nil
}

// validateConfigFile checks the structural requirements of a config file.
func validateConfigFile(file *ConfigFile) error {
	if file.Version == "" {
		return fmt.Errorf("tenant config file must specify a version")
	}

	seenSlugs := make(map[string]string)
	for id, entry := range file.Tenants {
		if id == "" {
			return fmt.Errorf("tenant id must not be empty")
		}
		if entry.Name == "" {
			return fmt.Errorf("tenant '%s' must specify a name", id)
		}

		slug := entry.Slug
		if slug == "" {
			slug = id
		}
		if other, dup := seenSlugs[slug]; dup {
			return fmt.Errorf("tenants '%s' and '%s' share slug '%s'", other, id, slug)
		}
		seenSlugs[slug] = id
	}

	return nil
}

// envVarRegex matches ${VAR_NAME} or $VAR_NAME patterns
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnvVars expands environment variable references in the string.
// Supports both ${VAR_NAME} and $VAR_NAME syntax, plus ${VAR_NAME:-default}
// fallbacks. Undefined variables without a default expand to empty string.
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		defaultVal := ""
		if idx := strings.Index(varName, ":-"); idx != -1 {
			defaultVal = varName[idx+2:]
			varName = varName[:idx]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		return defaultVal
	})
}

// ExampleConfigFile returns an example tenant configuration file.
func ExampleConfigFile() string {
	return `# Multibase tenant configuration
# Environment variables can be referenced using ${VAR_NAME} or ${VAR_NAME:-default} syntax.

version: "1.0"

tenants:
  luxgen:
    enabled: true
    slug: luxgen
    name: "LuxGen Industries"
    domain: luxgen.example.com
    features:
      - polls
      - jobs
      - training
    limits:
      max_users: 500
      max_storage_bytes: 5368709120
      max_api_calls: 100000
      max_concurrent_sessions: 200
      data_retention_days: 365
      max_job_posts: 50
      max_training_programs: 20
      max_assessments: 100
    branding:
      display_name: "LuxGen"
      primary_color: "#112244"
    security:
      session_timeout_minutes: 60

  test:
    enabled: true
    name: "Test Tenant"
    limits:
      max_users: 10
`
}
