package client

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
Package client builds the HTTP clients used for crt.sh queries. Each client
is either direct or bound to one proxy endpoint for its whole lifetime; the
fetch layer asks for a fresh client per scan rather than mutating a shared
transport.

TLS certificate verification is DISABLED on these clients. The upstream
aggregator is reached through arbitrary user-supplied proxies, many of which
man-in-the-middle TLS; the tool explicitly trusts everything on this path.
The data fetched is public CT log content, so confidentiality is not a
concern here — integrity of the result set is the accepted trade-off.
*/

import (
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/0xAshura/crt-subs/internal/proxy"
)

// Client construction constants.
const (
	// ConnectTimeout bounds dialing the aggregator (or the proxy in front
	// of it). The read side is bounded separately by Config.RequestTimeout.
	ConnectTimeout = 10 * time.Second
	// KeepAliveTimeout is the interval between keep-alive probes for active
	// connections.
	KeepAliveTimeout = 30 * time.Second
	// DefaultRequestTimeout is the overall request timeout used when the
	// caller does not provide one.
	DefaultRequestTimeout = 60 * time.Second

	defaultIdleConnTimeout = 90 * time.Second
	defaultMaxIdleConns    = 10
)

// ErrBadProxyURL means the proxy endpoint could not be parsed into a URL.
// The fetch layer treats it like any other broken proxy: no retry.
var ErrBadProxyURL = errors.New("proxy endpoint has no usable URL")

// Config holds the per-client knobs. A zero value gets sensible defaults.
type Config struct {
	// RequestTimeout is the timeout for the entire request, including
	// redirects and reading the body.
	RequestTimeout time.Duration
	// ConnectTimeout is the maximum duration for establishing a connection.
	ConnectTimeout time.Duration
}

// New builds an HTTP client routed through endpoint, or a direct client when
// endpoint is nil. Redirects are followed (net/http default, capped at 10).
func New(cfg Config, endpoint *proxy.Endpoint) (*http.Client, error) {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = ConnectTimeout
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   cfg.ConnectTimeout,
			KeepAlive: KeepAliveTimeout,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true, // see package comment
		},
		MaxIdleConns:        defaultMaxIdleConns,
		IdleConnTimeout:     defaultIdleConnTimeout,
		TLSHandshakeTimeout: cfg.ConnectTimeout,
		ForceAttemptHTTP2:   true,
	}

	if endpoint != nil {
		if endpoint.URL == nil {
			return nil, ErrBadProxyURL
		}
		// http.ProxyURL handles http, https and socks5 schemes.
		transport.Proxy = http.ProxyURL(endpoint.URL)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.RequestTimeout,
	}, nil
}
