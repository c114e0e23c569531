/*
Package main is the entry point for the crt-subs command-line application.

crt-subs enumerates subdomains of a target domain by querying the crt.sh
Certificate Transparency aggregator. Its primary functionalities include:
  - Scanning a single domain or a comma-separated batch of domains.
  - Routing queries through user-supplied HTTP/SOCKS5 proxies, with optional
    random rotation per scan and round-robin rotation during batches.
  - Testing a proxy list against a reference domain before using it.
  - Filtering, limiting and exporting results (txt, json, csv).

The application uses the Cobra library for command-line interface structure
and flag parsing. It leverages several internal packages:
  - `internal/crtsh`: For the crt.sh query, retry and extraction logic.
  - `internal/proxy`: For proxy list parsing and selection strategies.
  - `internal/scan`: For the single-domain and batch orchestration.
  - `internal/output`: For console display, logging and flat-file exports.
  - `internal/metrics`: For exposing Prometheus metrics when requested.

Graceful shutdown is handled via context cancellation triggered by OS
signals (SIGINT, SIGTERM); an interrupted run exits 0 like a completed one.
*/
package main

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
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/0xAshura/crt-subs/internal/config"
	"github.com/0xAshura/crt-subs/internal/crtsh"
	"github.com/0xAshura/crt-subs/internal/metrics"
	"github.com/0xAshura/crt-subs/internal/output"
	"github.com/0xAshura/crt-subs/internal/proxy"
	"github.com/0xAshura/crt-subs/internal/scan"
)

// Flag variables, bound in init.
var (
	flagDomain      string
	flagBatch       string
	flagProxy       string
	flagProxyFile   string
	flagKeyword     string
	flagOutput      string
	flagConfig      string
	flagLimit       int
	flagTimeout     int
	flagRetries     int
	flagMetricsPort int
	flagRateLimit   float64
	flagRotate      bool
	flagTestProxies bool
	flagNoBanner    bool
)

// exitError carries an explicit process exit code through cobra's error
// return without printing anything.
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit code %d", e.code) }

var rootCmd = &cobra.Command{
	Use:           "crt-subs",
	Short:         "crt-subs - Subdomain discovery via crt.sh Certificate Transparency logs",
	SilenceUsage:  true,
	SilenceErrors: true,
	Example: `  # Single domain
  crt-subs -d example.com

  # Through one proxy
  crt-subs -d example.com -p http://192.168.1.1:8080

  # Batch scan with proxy rotation
  crt-subs -b domain1.com,domain2.com -p http://proxy1:8080,http://proxy2:8080

  # Test proxies
  crt-subs --test-proxies -p http://proxy1:8080,http://proxy2:8080`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(cmd)
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&flagDomain, "domain", "d", "", "Single domain to scan")
	f.StringVarP(&flagBatch, "batch", "b", "", "Comma-separated domains to scan")
	f.StringVarP(&flagProxy, "proxy", "p", "", "Comma-separated proxies (e.g., http://proxy1:8080,http://proxy2:8080)")
	f.StringVar(&flagProxyFile, "proxy-file", "", "File containing proxies (one per line)")
	f.StringVarP(&flagKeyword, "keyword", "k", "", "Filter subdomains by keyword")
	f.StringVarP(&flagOutput, "output", "o", "", "Output format: txt, json or csv")
	f.IntVarP(&flagLimit, "limit", "l", 0, "Limit number of results")
	f.IntVarP(&flagTimeout, "timeout", "t", 60, "Request timeout in seconds")
	f.IntVarP(&flagRetries, "retries", "r", 3, "Number of retries")
	f.BoolVar(&flagRotate, "rotate", false, "Rotate through proxies randomly")
	f.BoolVar(&flagTestProxies, "test-proxies", false, "Test proxies and exit")
	f.BoolVar(&flagNoBanner, "no-banner", false, "Don't display banner")
	f.StringVar(&flagConfig, "config", "", "YAML config file with flag defaults")
	f.IntVar(&flagMetricsPort, "metrics-port", 0, "Prometheus metrics port (0 disables)")
	f.Float64Var(&flagRateLimit, "rate-limit", 0, "Outbound request cap in requests/second (0 disables)")
}

func main() {
	os.Exit(run())
}

func run() int {
	if err := rootCmd.Execute(); err != nil {
		var ee exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// applyConfig fills in defaults from the YAML file for every flag the user
// did not set on the command line.
func applyConfig(cmd *cobra.Command, cfg *config.Config) {
	set := cmd.Flags().Changed
	if !set("timeout") && cfg.Timeout > 0 {
		flagTimeout = cfg.Timeout
	}
	if !set("retries") && cfg.Retries > 0 {
		flagRetries = cfg.Retries
	}
	if !set("output") && cfg.Output != "" {
		flagOutput = cfg.Output
	}
	if !set("keyword") && cfg.Keyword != "" {
		flagKeyword = cfg.Keyword
	}
	if !set("limit") && cfg.Limit > 0 {
		flagLimit = cfg.Limit
	}
	if !set("proxy") && len(cfg.Proxies) > 0 {
		flagProxy = strings.Join(cfg.Proxies, ",")
	}
	if !set("proxy-file") && cfg.ProxyFile != "" {
		flagProxyFile = cfg.ProxyFile
	}
	if !set("rotate") && cfg.Rotate {
		flagRotate = true
	}
	if !set("no-banner") && cfg.NoBanner {
		flagNoBanner = true
	}
	if !set("metrics-port") && cfg.MetricsPort > 0 {
		flagMetricsPort = cfg.MetricsPort
	}
	if !set("rate-limit") && cfg.RateLimit > 0 {
		flagRateLimit = cfg.RateLimit
	}
}

// loadPool builds the proxy pool. Inline proxies win over the file; a file
// that fails to load logs an error and leaves the pool empty, matching the
// "carry on direct" behavior users of the tool rely on.
func loadPool(log output.Logger) *proxy.Pool {
	if flagProxy != "" {
		pool := proxy.NewPool(proxy.ParseInline(flagProxy))
		log.Logf(output.Info, "Loaded %d proxy/proxies", pool.Len())
		return pool
	}
	if flagProxyFile != "" {
		endpoints, err := proxy.LoadFromFile(flagProxyFile)
		if err != nil {
			log.Logf(output.Error, "Failed to load proxies from %s: %v", flagProxyFile, err)
			return proxy.NewPool(nil)
		}
		log.Logf(output.Info, "Loaded %d proxy/proxies from %s", len(endpoints), flagProxyFile)
		return proxy.NewPool(endpoints)
	}
	return proxy.NewPool(nil)
}

func runScan(cmd *cobra.Command) error {
	log := output.NewConsole(os.Stdout)

	if flagConfig != "" {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			log.Logf(output.Error, "%v", err)
			return exitError{1}
		}
		applyConfig(cmd, cfg)
	}

	if !flagNoBanner {
		output.PrintBanner(os.Stdout)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if flagMetricsPort > 0 {
		metrics.EnableMetrics()
		if err := metrics.StartMetricsServer(fmt.Sprintf(":%d", flagMetricsPort)); err != nil {
			log.Logf(output.Warning, "Failed to start metrics server: %v", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = metrics.StopMetricsServer(shutdownCtx)
			}()
		}
	}

	fetcher := crtsh.NewFetcher(log)
	fetcher.SetRateLimit(flagRateLimit)
	scanner := scan.NewScanner(log, fetcher)
	pool := loadPool(log)

	if flagTestProxies {
		return testProxies(ctx, log, fetcher, pool)
	}

	if flagDomain == "" && flagBatch == "" {
		_ = cmd.Help()
		log.Logf(output.Error, "Please specify either -d/--domain or -b/--batch")
		return exitError{1}
	}

	opts := scan.Options{
		Keyword: flagKeyword,
		Limit:   flagLimit,
		Timeout: time.Duration(flagTimeout) * time.Second,
		Retries: flagRetries,
		Pool:    pool,
		Rotate:  flagRotate,
	}

	if flagDomain != "" {
		return singleScan(ctx, log, scanner, flagDomain, opts)
	}
	return batchScan(ctx, log, scanner, opts)
}

// testProxies health-checks every pool member against the reference domain,
// one second apart, then renders the report. Requires a non-empty pool.
func testProxies(ctx context.Context, log output.Logger, fetcher *crtsh.Fetcher, pool *proxy.Pool) error {
	if pool.Len() == 0 {
		log.Logf(output.Error, "No proxies provided")
		return exitError{1}
	}

	log.Logf(output.Info, "Testing %d proxy/proxies...", pool.Len())
	fmt.Println()

	var report output.ProxyReport
	endpoints := pool.Endpoints()
	for i, ep := range endpoints {
		log.Logf(output.Info, "[%d/%d]", i+1, len(endpoints))
		if fetcher.CheckProxy(ctx, ep) {
			report.Working = append(report.Working, ep.String())
		} else {
			report.Failed = append(report.Failed, ep.String())
		}
		if !crtsh.DefaultSleep(ctx, time.Second) {
			break
		}
	}

	output.DisplayProxyTest(os.Stdout, report)
	if interrupted(ctx, log) {
		return exitError{0}
	}
	return nil
}

func singleScan(ctx context.Context, log output.Logger, scanner *scan.Scanner, domain string, opts scan.Options) error {
	result, err := scanner.Scan(ctx, domain, opts)
	if err != nil {
		if interrupted(ctx, log) {
			return exitError{0}
		}
		return exitError{1}
	}

	output.DisplayResult(os.Stdout, result.Domain, result.Subdomains, result.Elapsed, result.Proxy.String())

	if flagOutput != "" {
		path, err := output.Save(".", flagOutput, result.Domain, result.Subdomains)
		if err != nil {
			log.Logf(output.Error, "Failed to write file: %v", err)
		} else {
			log.Logf(output.Success, "Results saved to %s", path)
		}
	}

	if interrupted(ctx, log) {
		return exitError{0}
	}
	return nil
}

func batchScan(ctx context.Context, log output.Logger, scanner *scan.Scanner, opts scan.Options) error {
	var domains []string
	for _, d := range strings.Split(flagBatch, ",") {
		if d = strings.TrimSpace(d); d != "" {
			domains = append(domains, d)
		}
	}
	if len(domains) == 0 {
		log.Logf(output.Error, "No valid domains provided")
		return exitError{1}
	}

	if opts.Pool.Len() > 0 {
		summary := scanner.BatchScan(ctx, domains, opts)
		entries := make([]output.BatchEntry, 0, len(summary.Entries))
		for _, e := range summary.Entries {
			entries = append(entries, output.BatchEntry{Domain: e.Domain, Count: e.Count, Proxy: e.Proxy})
		}
		output.DisplayBatchSummary(os.Stdout, entries,
			summary.TotalSubdomains, summary.DomainsScanned, summary.ProxiesUsed)
	} else {
		log.Logf(output.Warning, "No proxies provided for batch scan. Using direct IP.")
		for _, domain := range domains {
			if ctx.Err() != nil {
				break
			}
			result, err := scanner.Scan(ctx, domain, opts)
			if err != nil {
				continue
			}
			output.DisplayResult(os.Stdout, result.Domain, result.Subdomains, result.Elapsed, result.Proxy.String())
			if flagOutput != "" {
				path, err := output.Save(".", flagOutput, result.Domain, result.Subdomains)
				if err != nil {
					log.Logf(output.Error, "Failed to write file: %v", err)
				} else {
					log.Logf(output.Success, "Results saved to %s", path)
				}
			}
		}
	}

	interrupted(ctx, log)
	// Batch runs exit clean regardless of per-domain outcomes.
	return nil
}

// interrupted reports whether the run was cut short by a signal, logging the
// user-facing notice once.
func interrupted(ctx context.Context, log output.Logger) bool {
	if ctx.Err() == nil {
		return false
	}
	fmt.Println()
	log.Logf(output.Warning, "Interrupted by user")
	return true
}
