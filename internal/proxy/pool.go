package proxy

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
Package proxy manages the pool of outbound proxy endpoints used to spread
crt.sh queries across several exit points. A pool is built once at startup,
either from an inline comma-separated list or from a file with one endpoint
per line, and is never mutated during a run.

A nil *Endpoint always means "direct connection, no proxy" — there is no
sentinel string for it.
*/

import (
	"bufio"
	"fmt"
	"math/rand"
	"net/url"
	"os"
	"strings"
)

// Schemes accepted on input. Anything else gets an http:// prefix slapped on.
var knownSchemes = []string{"http://", "https://", "socks5://"}

// Endpoint is one outbound proxy. Immutable once constructed.
// URL is nil when the raw spec could not be parsed; such an endpoint is kept
// in the pool (input is passed through best-effort) and fails at connect
// time, where it is treated as a broken proxy.
type Endpoint struct {
	Raw string
	URL *url.URL
}

// String returns the endpoint as the user supplied it, for display and logs.
func (e *Endpoint) String() string {
	if e == nil {
		return "direct"
	}
	return e.Raw
}

func newEndpoint(raw string) *Endpoint {
	u, err := url.Parse(raw)
	if err != nil {
		u = nil
	}
	return &Endpoint{Raw: raw, URL: u}
}

// Strategy selects which endpoint a request goes through.
type Strategy int

const (
	// First always yields the first endpoint in the pool.
	First Strategy = iota
	// Random yields a uniformly chosen endpoint.
	Random
	// RoundRobin yields pool[index mod len(pool)]. Batch scanning passes a
	// 1-based counter, so the first batch domain pairs with pool[1 mod n].
	RoundRobin
)

// Pool is an ordered, read-only sequence of endpoints. May be empty, which
// means every request goes out directly.
type Pool struct {
	endpoints []*Endpoint
}

// NewPool builds a pool from already-constructed endpoints.
func NewPool(endpoints []*Endpoint) *Pool {
	return &Pool{endpoints: endpoints}
}

// Len reports how many endpoints the pool holds.
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.endpoints)
}

// Endpoints returns the ordered endpoints for iteration (proxy testing).
func (p *Pool) Endpoints() []*Endpoint {
	if p == nil {
		return nil
	}
	return p.endpoints
}

// Select picks an endpoint according to the strategy. An empty pool always
// yields nil, meaning direct connection.
func (p *Pool) Select(s Strategy, index int) *Endpoint {
	if p.Len() == 0 {
		return nil
	}
	switch s {
	case Random:
		return p.endpoints[rand.Intn(len(p.endpoints))]
	case RoundRobin:
		return p.endpoints[index%len(p.endpoints)]
	default:
		return p.endpoints[0]
	}
}

// ParseInline splits a comma-separated proxy spec into endpoints: entries are
// trimmed, empties dropped, and an http:// prefix added to anything lacking a
// recognized scheme. It never fails — malformed input passes through and is
// dealt with at connect time.
func ParseInline(spec string) []*Endpoint {
	if spec == "" {
		return nil
	}
	var endpoints []*Endpoint
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !hasKnownScheme(entry) {
			entry = "http://" + entry
		}
		endpoints = append(endpoints, newEndpoint(entry))
	}
	return endpoints
}

func hasKnownScheme(entry string) bool {
	for _, scheme := range knownSchemes {
		if strings.HasPrefix(entry, scheme) {
			return true
		}
	}
	return false
}

// LoadFromFile reads endpoints from a file, one per line, skipping blank
// lines. Lines are used verbatim — no scheme normalization is applied to
// file input. The returned error distinguishes a missing file from other
// read failures; callers treat both as non-fatal and continue with an empty
// pool.
func LoadFromFile(path string) ([]*Endpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("proxy file not found: %s", path)
		}
		return nil, fmt.Errorf("error reading proxy file %s: %w", path, err)
	}
	defer f.Close()

	var endpoints []*Endpoint
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		endpoints = append(endpoints, newEndpoint(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("error reading proxy file %s: %w", path, err)
	}
	return endpoints, nil
}
