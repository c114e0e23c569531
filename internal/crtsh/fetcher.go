package crtsh

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
Package crtsh talks to the crt.sh Certificate Transparency aggregator and
turns its JSON certificate records into subdomain sets.

Fetch never returns an error: every failure path is classified, optionally
retried with a class-specific backoff, logged, and finally resolved to an
empty record list. Callers distinguish "no data" from "data" and nothing
else — the failure detail lives in the logs and metrics.
*/

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/0xAshura/crt-subs/internal/client"
	"github.com/0xAshura/crt-subs/internal/metrics"
	"github.com/0xAshura/crt-subs/internal/output"
	"github.com/0xAshura/crt-subs/internal/proxy"
)

// Proxy health check parameters.
const (
	checkTimeout    = 30 * time.Second
	checkMaxRetries = 1
)

// SleepFunc waits for d or until ctx is done, reporting false when the
// context won. Injected so retry timing is testable without real sleeps.
type SleepFunc func(ctx context.Context, d time.Duration) bool

// DefaultSleep is the SleepFunc used outside of tests.
func DefaultSleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Options configures one fetch.
type Options struct {
	// Timeout bounds the whole request (redirects and body included).
	// Connect timeout is fixed at client.ConnectTimeout.
	Timeout time.Duration
	// MaxRetries is the total number of attempts, not the number of
	// retries after the first. Zero means one attempt.
	MaxRetries int
	// Proxy routes the request; nil means direct.
	Proxy *proxy.Endpoint
	// TestMode discards the payload and only reports whether the call
	// completed. Used by the proxy health check.
	TestMode bool
}

// Fetcher issues crt.sh queries with bounded retries. The zero value is not
// usable; construct with NewFetcher.
type Fetcher struct {
	Log   output.Logger
	Sleep SleepFunc
	// Limiter throttles outbound requests across all attempts and domains.
	// Nil means unthrottled; the class backoffs still apply either way.
	Limiter *rate.Limiter

	// newClient is swapped in tests to inject a canned transport.
	newClient func(cfg client.Config, ep *proxy.Endpoint) (*http.Client, error)
}

// NewFetcher returns a Fetcher logging through log.
func NewFetcher(log output.Logger) *Fetcher {
	return &Fetcher{
		Log:       log,
		Sleep:     DefaultSleep,
		newClient: client.New,
	}
}

// SetRateLimit caps outbound requests at rps per second. Zero or negative
// removes the cap.
func (f *Fetcher) SetRateLimit(rps float64) {
	if rps <= 0 {
		f.Limiter = nil
		return
	}
	f.Limiter = rate.NewLimiter(rate.Limit(rps), 1)
}

// attemptState is where the retry loop stands after one attempt.
type attemptState int

const (
	stateSucceeded attemptState = iota
	stateBackoff
	stateExhausted
)

// Fetch queries crt.sh for %.domain and returns the certificate records.
// All failures resolve to an empty slice after retries are exhausted; the
// reason is logged and counted, never propagated.
func (f *Fetcher) Fetch(ctx context.Context, domain string, opts Options) []Record {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if opts.Timeout == 0 {
		opts.Timeout = client.DefaultRequestTimeout
	}

	m := metrics.GetMetrics()
	route := "direct"
	if opts.Proxy != nil {
		route = "proxy"
	}

	httpClient, err := f.newClient(client.Config{RequestTimeout: opts.Timeout}, opts.Proxy)
	if err != nil {
		// Unparseable proxy endpoint: same contract as a broken proxy.
		m.FetchFailuresTotal.WithLabelValues(classProxy.String()).Inc()
		f.Log.Logf(output.Error, "Proxy error: %s is not usable (%v)", opts.Proxy, err)
		return nil
	}

	url := fmt.Sprintf(QueryURLTemplate, domain)
	for attempt := 1; attempt <= opts.MaxRetries; attempt++ {
		if f.Limiter != nil {
			if err := f.Limiter.Wait(ctx); err != nil {
				return nil
			}
		}
		if attempt > 1 {
			m.FetchRetriesTotal.Inc()
		}
		m.FetchAttemptsTotal.WithLabelValues(route).Inc()

		if opts.TestMode && opts.Proxy != nil {
			f.Log.Logf(output.Info, "Testing proxy %s...", opts.Proxy)
		} else if opts.Proxy != nil {
			f.Log.Logf(output.Info, "Fetching %s via %s... (Attempt %d/%d)", domain, opts.Proxy, attempt, opts.MaxRetries)
		} else {
			f.Log.Logf(output.Info, "Fetching %s... (Attempt %d/%d)", domain, attempt, opts.MaxRetries)
		}

		records, state := f.attempt(ctx, httpClient, url, domain, attempt, opts)
		switch state {
		case stateSucceeded:
			if opts.TestMode && opts.Proxy != nil {
				f.Log.Logf(output.Success, "Proxy %s is working", opts.Proxy)
				return nil
			}
			m.RecordsFetched.Add(float64(len(records)))
			source := "direct IP"
			if opts.Proxy != nil {
				source = opts.Proxy.String()
			}
			f.Log.Logf(output.Success, "Retrieved %d certificates (from %s)", len(records), source)
			return records
		case stateExhausted:
			return nil
		}
		// stateBackoff: the attempt already slept; go around.
		if ctx.Err() != nil {
			return nil
		}
	}
	return nil
}

// attempt performs one request and decides what the loop does next. On a
// retryable failure with attempts remaining it waits out the class backoff
// before returning stateBackoff.
func (f *Fetcher) attempt(ctx context.Context, httpClient *http.Client, url, domain string, attempt int, opts Options) ([]Record, attemptState) {
	m := metrics.GetMetrics()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		f.Log.Logf(output.Error, "Error building request for %s: %v", domain, err)
		return nil, stateExhausted
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, stateExhausted
		}
		class := classifyTransportError(err, opts.Proxy != nil)
		return nil, f.fail(ctx, class, err, domain, attempt, opts)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		m.RateLimitHitsTotal.Inc()
		m.FetchFailuresTotal.WithLabelValues(classRateLimited.String()).Inc()
		// The upstream tool waits out the rate limit even when this was the
		// final attempt; kept for parity.
		f.Log.Logf(output.Warning, "Rate limited (429). Waiting %s...", classRateLimited.backoff())
		if !f.Sleep(ctx, classRateLimited.backoff()) {
			return nil, stateExhausted
		}
		return nil, stateBackoff
	}
	if resp.StatusCode != http.StatusOK {
		m.FetchFailuresTotal.WithLabelValues(classHTTP.String()).Inc()
		f.Log.Logf(output.Error, "HTTP Error: %d", resp.StatusCode)
		return nil, stateExhausted
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		class := classifyTransportError(err, opts.Proxy != nil)
		return nil, f.fail(ctx, class, err, domain, attempt, opts)
	}

	var records []Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, f.fail(ctx, classBadBody, err, domain, attempt, opts)
	}
	return records, stateSucceeded
}

// fail logs and counts one classified failure, sleeps the class backoff when
// a retry is coming, and tells the loop whether to go around.
func (f *Fetcher) fail(ctx context.Context, class failureClass, err error, domain string, attempt int, opts Options) attemptState {
	metrics.GetMetrics().FetchFailuresTotal.WithLabelValues(class.String()).Inc()

	if !class.retryable() {
		switch class {
		case classProxy:
			f.Log.Logf(output.Error, "Proxy error: %s is not working or unreachable", opts.Proxy)
		default:
			f.Log.Logf(output.Error, "Fetch failed for %s: %v", domain, err)
		}
		return stateExhausted
	}

	if attempt < opts.MaxRetries {
		f.Log.Logf(output.Warning, "%s on attempt %d/%d for %s. Retrying in %s...",
			describe(class), attempt, opts.MaxRetries, domain, class.backoff())
		if !f.Sleep(ctx, class.backoff()) {
			return stateExhausted
		}
		return stateBackoff
	}

	f.Log.Logf(output.Error, "%s after %d attempts for %s: %v", describe(class), opts.MaxRetries, domain, err)
	return stateExhausted
}

func describe(class failureClass) string {
	switch class {
	case classTimeout:
		return "Timeout"
	case classConnection:
		return "Connection error"
	case classBadBody:
		return "Invalid JSON response"
	default:
		return "Error"
	}
}

// CheckProxy fetches the reference domain through ep and reports whether the
// proxy works. Fetch absorbs every failure, so any call that runs to
// completion counts as working — a zero-record response included. That
// mirrors the upstream tool's behavior; a stricter check would have to
// distinguish "proxy carried the request" from "proxy ate the request", and
// this one does not.
func (f *Fetcher) CheckProxy(ctx context.Context, ep *proxy.Endpoint) bool {
	f.Fetch(ctx, ReferenceDomain, Options{
		Timeout:    checkTimeout,
		MaxRetries: checkMaxRetries,
		Proxy:      ep,
		TestMode:   true,
	})
	return ctx.Err() == nil
}
