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

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/0xAshura/crt-subs/internal/client"
	"github.com/0xAshura/crt-subs/internal/output"
	"github.com/0xAshura/crt-subs/internal/proxy"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// timeoutError satisfies net.Error with Timeout() == true.
type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

// newTestFetcher builds a Fetcher whose HTTP layer is the given transport and
// whose sleeps are recorded instead of slept.
func newTestFetcher(rt http.RoundTripper, slept *[]time.Duration) *Fetcher {
	f := NewFetcher(output.Nop())
	f.Sleep = func(ctx context.Context, d time.Duration) bool {
		*slept = append(*slept, d)
		return true
	}
	f.newClient = func(cfg client.Config, ep *proxy.Endpoint) (*http.Client, error) {
		return &http.Client{Transport: rt}, nil
	}
	return f
}

const sampleBody = `[
	{"id": 1, "issuer_ca_id": 10, "name_value": "www.example.com\napi.example.com", "common_name": "www.example.com"},
	{"id": 2, "issuer_ca_id": 10, "name_value": "*.example.com", "common_name": "*.example.com"}
]`

func TestFetchSuccess(t *testing.T) {
	t.Parallel()
	var slept []time.Duration
	var requests int
	f := newTestFetcher(roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		requests++
		if got := req.Header.Get("User-Agent"); got != UserAgent {
			t.Errorf("User-Agent = %q; want %q", got, UserAgent)
		}
		if !strings.Contains(req.URL.RawQuery, "output=json") {
			t.Errorf("query %q missing output=json", req.URL.RawQuery)
		}
		return jsonResponse(http.StatusOK, sampleBody), nil
	}), &slept)

	records := f.Fetch(context.Background(), "example.com", Options{MaxRetries: 3})
	if len(records) != 2 {
		t.Fatalf("got %d records; want 2", len(records))
	}
	if records[0].NameValue != "www.example.com\napi.example.com" {
		t.Errorf("unexpected name_value %q", records[0].NameValue)
	}
	if requests != 1 {
		t.Errorf("made %d requests; want 1", requests)
	}
	if len(slept) != 0 {
		t.Errorf("slept %v; want no sleeps on clean success", slept)
	}
}

func TestFetchRateLimitedThenSuccess(t *testing.T) {
	t.Parallel()
	var slept []time.Duration
	var requests int
	f := newTestFetcher(roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		requests++
		if requests == 1 {
			return jsonResponse(http.StatusTooManyRequests, ""), nil
		}
		return jsonResponse(http.StatusOK, sampleBody), nil
	}), &slept)

	records := f.Fetch(context.Background(), "example.com", Options{MaxRetries: 3})
	if len(records) != 2 {
		t.Fatalf("got %d records; want 2", len(records))
	}
	if requests != 2 {
		t.Errorf("made %d requests; want 2", requests)
	}
	if len(slept) != 1 || slept[0] != 10*time.Second {
		t.Errorf("slept %v; want one 10s rate-limit wait", slept)
	}
}

// A 429 on the final attempt still waits out the rate limit before giving up.
func TestFetchRateLimitedFinalAttemptStillSleeps(t *testing.T) {
	t.Parallel()
	var slept []time.Duration
	f := newTestFetcher(roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusTooManyRequests, ""), nil
	}), &slept)

	records := f.Fetch(context.Background(), "example.com", Options{MaxRetries: 2})
	if records != nil {
		t.Fatalf("got %d records; want none", len(records))
	}
	if len(slept) != 2 {
		t.Fatalf("slept %v; want a 10s wait per 429, final attempt included", slept)
	}
	for _, d := range slept {
		if d != 10*time.Second {
			t.Errorf("slept %v; want 10s", d)
		}
	}
}

func TestFetchTimeoutsThenSuccess(t *testing.T) {
	t.Parallel()
	var slept []time.Duration
	var requests int
	f := newTestFetcher(roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		requests++
		if requests <= 2 {
			return nil, timeoutError{}
		}
		return jsonResponse(http.StatusOK, sampleBody), nil
	}), &slept)

	records := f.Fetch(context.Background(), "example.com", Options{MaxRetries: 3})
	if len(records) != 2 {
		t.Fatalf("got %d records; want 2", len(records))
	}
	if requests != 3 {
		t.Errorf("made %d requests; want 3", requests)
	}
	if len(slept) != 2 || slept[0] != 5*time.Second || slept[1] != 5*time.Second {
		t.Errorf("slept %v; want two 5s timeout backoffs", slept)
	}
}

func TestFetchBadJSONRetriesThenGivesUp(t *testing.T) {
	t.Parallel()
	var slept []time.Duration
	var requests int
	f := newTestFetcher(roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		requests++
		return jsonResponse(http.StatusOK, "<html>not json</html>"), nil
	}), &slept)

	records := f.Fetch(context.Background(), "example.com", Options{MaxRetries: 2})
	if records != nil {
		t.Fatalf("got %d records; want none", len(records))
	}
	if requests != 2 {
		t.Errorf("made %d requests; want 2", requests)
	}
	// Backoff only between attempts, not after the last.
	if len(slept) != 1 || slept[0] != 2*time.Second {
		t.Errorf("slept %v; want one 2s bad-body backoff", slept)
	}
}

// Non-429 HTTP errors are deterministic; no retry, no sleep.
func TestFetchHTTPErrorNoRetry(t *testing.T) {
	t.Parallel()
	var slept []time.Duration
	var requests int
	f := newTestFetcher(roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		requests++
		return jsonResponse(http.StatusInternalServerError, ""), nil
	}), &slept)

	records := f.Fetch(context.Background(), "example.com", Options{MaxRetries: 3})
	if records != nil {
		t.Fatalf("got %d records; want none", len(records))
	}
	if requests != 1 {
		t.Errorf("made %d requests; want 1", requests)
	}
	if len(slept) != 0 {
		t.Errorf("slept %v; want none", slept)
	}
}

func TestFetchProxyFailureNoRetry(t *testing.T) {
	t.Parallel()
	var slept []time.Duration
	var requests int
	f := newTestFetcher(roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		requests++
		return nil, errors.New("proxyconnect tcp: connection refused")
	}), &slept)

	ep := proxy.ParseInline("http://bad-proxy:8080")[0]
	records := f.Fetch(context.Background(), "example.com", Options{MaxRetries: 3, Proxy: ep})
	if records != nil {
		t.Fatalf("got %d records; want none", len(records))
	}
	if requests != 1 {
		t.Errorf("made %d requests; want 1 (broken proxies don't retry)", requests)
	}
	if len(slept) != 0 {
		t.Errorf("slept %v; want none", slept)
	}
}

func TestClassifyTransportError(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name     string
		err      error
		hasProxy bool
		expected failureClass
	}{
		{"Nil", nil, false, classNone},
		{"Deadline", context.DeadlineExceeded, false, classTimeout},
		{"Net timeout", timeoutError{}, false, classTimeout},
		{"Proxyconnect with proxy", errors.New("proxyconnect tcp: refused"), true, classProxy},
		{"Proxyconnect without proxy ignored", errors.New("proxyconnect tcp: refused"), false, classUnknown},
		{"Socks with proxy", errors.New("socks connect tcp 1.2.3.4:1080: EOF"), true, classProxy},
		{"Connection refused text", errors.New("dial tcp: connection refused"), false, classConnection},
		{"No such host text", errors.New("lookup crt.sh: no such host"), false, classConnection},
		{"Unknown", errors.New("mystery"), false, classUnknown},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := classifyTransportError(tc.err, tc.hasProxy); got != tc.expected {
				t.Errorf("classifyTransportError(%v, %v) = %v; want %v", tc.err, tc.hasProxy, got, tc.expected)
			}
		})
	}
}

// CheckProxy counts any completed call as working, a failed fetch included.
func TestCheckProxy(t *testing.T) {
	t.Parallel()

	t.Run("Completed call is working", func(t *testing.T) {
		t.Parallel()
		var slept []time.Duration
		f := newTestFetcher(roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			return nil, errors.New("proxyconnect tcp: refused")
		}), &slept)
		ep := proxy.ParseInline("http://dead-proxy:8080")[0]
		if !f.CheckProxy(context.Background(), ep) {
			t.Error("CheckProxy = false; a completed (even failed) call counts as working")
		}
	})

	t.Run("Cancelled context is not working", func(t *testing.T) {
		t.Parallel()
		var slept []time.Duration
		f := newTestFetcher(roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, sampleBody), nil
		}), &slept)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		ep := proxy.ParseInline("http://proxy:8080")[0]
		if f.CheckProxy(ctx, ep) {
			t.Error("CheckProxy = true on a cancelled context")
		}
	})
}
