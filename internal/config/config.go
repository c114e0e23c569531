package config

/*
crt-subs — subdomain discovery via Certificate Transparency logs
Copyright (C) 2026  0xAshura

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

/*
Package config loads the optional YAML settings file. Flags always win over
the file; the file only provides defaults for runs that use the same setup
every time (a standing proxy list, a preferred output format).
*/

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config mirrors the CLI flags that make sense to persist.
type Config struct {
	Timeout     int      `yaml:"timeout"`
	Retries     int      `yaml:"retries"`
	Output      string   `yaml:"output"`
	Keyword     string   `yaml:"keyword"`
	Limit       int      `yaml:"limit"`
	Proxies     []string `yaml:"proxies"`
	ProxyFile   string   `yaml:"proxy_file"`
	Rotate      bool     `yaml:"rotate"`
	NoBanner    bool     `yaml:"no_banner"`
	MetricsPort int      `yaml:"metrics_port"`
	RateLimit   float64  `yaml:"rate_limit"`
}

// Load reads and parses the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}
