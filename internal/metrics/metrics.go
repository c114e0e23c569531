package metrics

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
Package metrics exposes Prometheus counters for the fetch and scan pipeline.
The metrics endpoint is optional — a short-lived CLI run usually doesn't
serve one — but long batch runs behind flaky proxies benefit from watching
retry and failure rates live.
*/

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry          = prometheus.NewRegistry()
	defaultRegisterer = promauto.With(registry)
	metricsEnabled    bool
	metricsServer     *http.Server
)

// Metrics contains all the Prometheus metrics for the application.
type Metrics struct {
	// Fetch layer
	FetchAttemptsTotal *prometheus.CounterVec
	FetchRetriesTotal  prometheus.Counter
	FetchFailuresTotal *prometheus.CounterVec
	RateLimitHitsTotal prometheus.Counter
	RecordsFetched     prometheus.Counter

	// Scan layer
	SubdomainsExtracted prometheus.Counter
	ScanDuration        prometheus.Histogram
	DomainsScanned      *prometheus.CounterVec
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// GetMetrics returns the global metrics instance, creating it on first use.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = newMetrics()
	})
	return globalMetrics
}

// EnableMetrics enables metrics collection.
func EnableMetrics() {
	metricsEnabled = true
}

// IsMetricsEnabled returns whether metrics collection is enabled.
func IsMetricsEnabled() bool {
	return metricsEnabled
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchAttemptsTotal: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crtsubs_fetch_attempts_total",
				Help: "Total crt.sh fetch attempts",
			},
			[]string{"route"}, // "direct" or "proxy"
		),
		FetchRetriesTotal: defaultRegisterer.NewCounter(
			prometheus.CounterOpts{
				Name: "crtsubs_fetch_retries_total",
				Help: "Total fetch attempts beyond the first",
			},
		),
		FetchFailuresTotal: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crtsubs_fetch_failures_total",
				Help: "Fetch attempt failures by class",
			},
			[]string{"class"},
		),
		RateLimitHitsTotal: defaultRegisterer.NewCounter(
			prometheus.CounterOpts{
				Name: "crtsubs_rate_limit_hits_total",
				Help: "HTTP 429 responses from the aggregator",
			},
		),
		RecordsFetched: defaultRegisterer.NewCounter(
			prometheus.CounterOpts{
				Name: "crtsubs_certificate_records_total",
				Help: "Certificate records retrieved",
			},
		),
		SubdomainsExtracted: defaultRegisterer.NewCounter(
			prometheus.CounterOpts{
				Name: "crtsubs_subdomains_extracted_total",
				Help: "Unique subdomains extracted across scans",
			},
		),
		ScanDuration: defaultRegisterer.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crtsubs_scan_duration_seconds",
				Help:    "Wall-clock duration of single-domain scans",
				Buckets: []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
		),
		DomainsScanned: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crtsubs_domains_scanned_total",
				Help: "Domains scanned by outcome",
			},
			[]string{"outcome"}, // "ok", "empty", "invalid"
		),
	}
}

// StartMetricsServer serves the registry on addr. Errors after startup are
// ignored; the scrape endpoint is best-effort.
func StartMetricsServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	metricsServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go func() {
		_ = metricsServer.Serve(ln)
	}()
	return nil
}

// StopMetricsServer shuts the endpoint down, waiting at most the context's
// deadline.
func StopMetricsServer(ctx context.Context) error {
	if metricsServer == nil {
		return nil
	}
	return metricsServer.Shutdown(ctx)
}
