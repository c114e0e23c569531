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

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "crt-subs.yaml")
	content := `
timeout: 30
retries: 5
output: json
keyword: api
limit: 100
proxies:
  - http://proxy1:8080
  - socks5://proxy2:1080
rotate: true
no_banner: true
metrics_port: 9090
rate_limit: 2.5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timeout != 30 || cfg.Retries != 5 || cfg.Output != "json" {
		t.Errorf("scalar fields = %+v", cfg)
	}
	if len(cfg.Proxies) != 2 || cfg.Proxies[1] != "socks5://proxy2:1080" {
		t.Errorf("proxies = %v", cfg.Proxies)
	}
	if !cfg.Rotate || !cfg.NoBanner || cfg.MetricsPort != 9090 || cfg.RateLimit != 2.5 {
		t.Errorf("flags = %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadBadYAML(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("timeout: [not an int"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}
