// Copyright 2025 uzqw
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

// Package config loads the YAML file describing the set of named vector
// tables a server instance should expose: each table's dimensionality,
// similarity mode, and on-disk record directory.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/uzqw/vex/internal/engine"
)

// DatabaseConfig describes one named table.
type DatabaseConfig struct {
	Name    string `yaml:"name"`
	Dims    int    `yaml:"dims"`
	Mode    string `yaml:"mode"`
	DataDir string `yaml:"data_dir"`
}

// Config is the top-level YAML document: a list of database definitions.
type Config struct {
	Databases []DatabaseConfig `yaml:"databases"`
}

// Load reads and validates a configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if len(cfg.Databases) == 0 {
		return nil, fmt.Errorf("config: %s defines no databases", path)
	}

	seen := make(map[string]bool, len(cfg.Databases))
	for _, db := range cfg.Databases {
		if db.Name == "" {
			return nil, fmt.Errorf("config: database entry missing name")
		}
		if seen[db.Name] {
			return nil, fmt.Errorf("config: duplicate database name %q", db.Name)
		}
		seen[db.Name] = true

		if db.Dims <= 0 {
			return nil, fmt.Errorf("config: database %q has invalid dims %d", db.Name, db.Dims)
		}
		if _, err := engine.ParseMode(db.Mode); err != nil {
			return nil, fmt.Errorf("config: database %q: %w", db.Name, err)
		}
		if db.DataDir == "" {
			return nil, fmt.Errorf("config: database %q missing data_dir", db.Name)
		}
	}

	return &cfg, nil
}

// Lookup returns the named database's configuration.
func (c *Config) Lookup(name string) (DatabaseConfig, bool) {
	for _, db := range c.Databases {
		if db.Name == name {
			return db, true
		}
	}
	return DatabaseConfig{}, false
}
