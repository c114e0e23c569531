package scan

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
Package scan drives the fetch → extract → filter → limit pipeline for one
domain, and the paced, proxy-rotating loop over many. Everything runs on a
single logical thread of control: one fetch in flight at a time, suspension
only at backoff and pacing delays.
*/

import (
	"context"
	"errors"
	"time"

	"github.com/0xAshura/crt-subs/internal/crtsh"
	"github.com/0xAshura/crt-subs/internal/metrics"
	"github.com/0xAshura/crt-subs/internal/output"
	"github.com/0xAshura/crt-subs/internal/proxy"
)

// Batch scanning constants.
const (
	// batchPace is the fixed delay inserted between batch domains,
	// regardless of outcome, to go easy on crt.sh and the proxies.
	batchPace = 2 * time.Second
	// batchRetries is the fixed per-domain retry count during batch scans,
	// independent of the single-scan setting.
	batchRetries = 2
)

var (
	// ErrInvalidDomain fails a scan before any network call is made.
	ErrInvalidDomain = errors.New("invalid domain format")
	// ErrNoData marks a scan that completed but found zero certificate
	// records. User-visible empty outcome, nothing persisted.
	ErrNoData = errors.New("no certificate data found")
)

// Fetcher is the certificate source. Satisfied by *crtsh.Fetcher.
type Fetcher interface {
	Fetch(ctx context.Context, domain string, opts crtsh.Options) []crtsh.Record
}

// Options configures a single or batch scan.
type Options struct {
	Keyword string
	Limit   int
	Timeout time.Duration
	Retries int
	Pool    *proxy.Pool
	// Rotate picks a random pool member per scan instead of the first.
	Rotate bool
}

// Result is the immutable outcome of one single-domain scan.
type Result struct {
	Domain     string
	Subdomains []string
	Elapsed    time.Duration
	Proxy      *proxy.Endpoint
	Keyword    string
	Limit      int
}

// DomainSummary is one batch entry. Recorded even on total failure, with a
// zero count, so the summary always covers every requested domain.
type DomainSummary struct {
	Domain     string
	Count      int
	Proxy      string
	Subdomains []string
}

// BatchSummary aggregates a whole batch run.
type BatchSummary struct {
	Entries         []DomainSummary
	TotalSubdomains int
	DomainsScanned  int
	ProxiesUsed     int
}

// Scanner orchestrates scans. Construct with NewScanner.
type Scanner struct {
	Log     output.Logger
	Fetcher Fetcher
	// Sleep waits out the pacing delay between batch domains. Injected so
	// tests run without real sleeps.
	Sleep crtsh.SleepFunc
}

// NewScanner wires a scanner around fetcher, logging through log.
func NewScanner(log output.Logger, fetcher Fetcher) *Scanner {
	return &Scanner{
		Log:     log,
		Fetcher: fetcher,
		Sleep:   crtsh.DefaultSleep,
	}
}

// Scan enumerates subdomains of one domain. It validates before touching the
// network, picks a proxy per Options, fetches, extracts, filters, sorts and
// limits. ErrNoData is an empty-but-clean outcome; ErrInvalidDomain is the
// caller's mistake.
func (s *Scanner) Scan(ctx context.Context, domain string, opts Options) (*Result, error) {
	m := metrics.GetMetrics()

	if !crtsh.IsValidDomain(domain) {
		m.DomainsScanned.WithLabelValues("invalid").Inc()
		s.Log.Logf(output.Error, "Invalid domain format: %s", domain)
		return nil, ErrInvalidDomain
	}

	start := time.Now()
	s.Log.Logf(output.Info, "Starting scan for %s", domain)

	var ep *proxy.Endpoint
	if opts.Pool.Len() > 0 {
		if opts.Rotate {
			ep = opts.Pool.Select(proxy.Random, 0)
			s.Log.Logf(output.Info, "Using random proxy from pool")
		} else {
			ep = opts.Pool.Select(proxy.First, 0)
			s.Log.Logf(output.Info, "Using proxy: %s", ep)
		}
	} else {
		s.Log.Logf(output.Info, "Using direct IP (no proxy)")
	}

	records := s.Fetcher.Fetch(ctx, domain, crtsh.Options{
		Timeout:    opts.Timeout,
		MaxRetries: opts.Retries,
		Proxy:      ep,
	})
	if len(records) == 0 {
		m.DomainsScanned.WithLabelValues("empty").Inc()
		s.Log.Logf(output.Warning, "No certificate data found")
		return nil, ErrNoData
	}

	subdomains := crtsh.ExtractSubdomains(records, domain, s.Log)
	s.Log.Logf(output.Success, "Extracted %d unique subdomains", len(subdomains))
	m.SubdomainsExtracted.Add(float64(len(subdomains)))

	if opts.Keyword != "" {
		subdomains = crtsh.FilterSubdomains(subdomains, opts.Keyword)
		s.Log.Logf(output.Success, "Filtered by %q: %d subdomains", opts.Keyword, len(subdomains))
	}

	sorted := crtsh.SortedSubdomains(subdomains)
	if opts.Limit > 0 && len(sorted) > opts.Limit {
		sorted = sorted[:opts.Limit]
		s.Log.Logf(output.Info, "Limited to %d results", opts.Limit)
	}

	elapsed := time.Since(start)
	m.ScanDuration.Observe(elapsed.Seconds())
	m.DomainsScanned.WithLabelValues("ok").Inc()

	return &Result{
		Domain:     domain,
		Subdomains: sorted,
		Elapsed:    elapsed,
		Proxy:      ep,
		Keyword:    opts.Keyword,
		Limit:      opts.Limit,
	}, nil
}

// BatchScan iterates domains in input order with a 1-based counter i,
// routing each through pool[i mod len(pool)] when the pool is non-empty.
// The first domain therefore pairs with pool[1 mod n], not pool[0] — a
// quirk inherited from the original tool and kept on purpose; correcting it
// would silently reshuffle which proxy handles which domain across existing
// setups. Every domain gets an entry, failures included. A fixed pacing
// delay separates consecutive domains regardless of outcome.
func (s *Scanner) BatchScan(ctx context.Context, domains []string, opts Options) *BatchSummary {
	summary := &BatchSummary{
		DomainsScanned: len(domains),
		ProxiesUsed:    opts.Pool.Len(),
	}

	s.Log.Logf(output.Info, "Starting batch scan: %d domain(s) with %d proxy/proxies",
		len(domains), opts.Pool.Len())

	for i, domain := range domains {
		if i > 0 && !s.Sleep(ctx, batchPace) {
			// Interrupted: record the rest as unscanned-but-present.
			for _, rest := range domains[i:] {
				summary.Entries = append(summary.Entries, DomainSummary{Domain: rest, Proxy: "direct"})
			}
			return summary
		}

		n := i + 1 // 1-based, see doc comment
		ep := opts.Pool.Select(proxy.RoundRobin, n)

		s.Log.Logf(output.Info, "[%d/%d] %s", n, len(domains), domain)

		records := s.Fetcher.Fetch(ctx, domain, crtsh.Options{
			Timeout:    opts.Timeout,
			MaxRetries: batchRetries,
			Proxy:      ep,
		})

		entry := DomainSummary{Domain: domain, Proxy: ep.String()}
		if len(records) > 0 {
			subdomains := crtsh.ExtractSubdomains(records, domain, s.Log)
			if opts.Keyword != "" {
				subdomains = crtsh.FilterSubdomains(subdomains, opts.Keyword)
			}
			entry.Subdomains = crtsh.SortedSubdomains(subdomains)
			entry.Count = len(entry.Subdomains)
			s.Log.Logf(output.Success, "%s: %d subdomains", domain, entry.Count)
		} else {
			s.Log.Logf(output.Warning, "%s: No results", domain)
		}

		summary.Entries = append(summary.Entries, entry)
		summary.TotalSubdomains += entry.Count

		if ctx.Err() != nil {
			break
		}
	}

	return summary
}
