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
	"net"
	"strings"
	"time"
)

// failureClass buckets everything that can go wrong during one fetch
// attempt. Each class carries its own retry policy and backoff, so the
// attempt loop stays a plain state machine instead of a pile of special
// cases.
type failureClass int

const (
	classNone failureClass = iota
	classTimeout
	classConnection
	classProxy
	classRateLimited
	classHTTP
	classBadBody
	classUnknown
)

func (c failureClass) String() string {
	switch c {
	case classTimeout:
		return "timeout"
	case classConnection:
		return "connection"
	case classProxy:
		return "proxy"
	case classRateLimited:
		return "rate_limited"
	case classHTTP:
		return "http"
	case classBadBody:
		return "bad_body"
	default:
		return "unknown"
	}
}

// retryable reports whether another attempt may help. A broken proxy stays
// broken and a non-429 upstream error is deterministic, so neither retries.
func (c failureClass) retryable() bool {
	switch c {
	case classProxy, classHTTP:
		return false
	}
	return true
}

// backoff is the fixed delay before the next attempt for this class.
func (c failureClass) backoff() time.Duration {
	switch c {
	case classTimeout, classConnection:
		return 5 * time.Second
	case classRateLimited:
		return 10 * time.Second
	case classBadBody:
		return 2 * time.Second
	default:
		return 3 * time.Second
	}
}

// classifyTransportError buckets an error returned by http.Client.Do.
// hasProxy tells it whether a proxy was configured for the attempt; the
// net/http proxy machinery reports CONNECT and SOCKS failures only through
// error text, so that is what we match on.
func classifyTransportError(err error, hasProxy bool) failureClass {
	if err == nil {
		return classNone
	}
	if hasProxy {
		msg := err.Error()
		if strings.Contains(msg, "proxyconnect") || strings.Contains(msg, "socks connect") {
			return classProxy
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return classTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return classTimeout
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return classConnection
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return classConnection
	}
	// url.Error wrapping something we don't recognize still smells like a
	// transport problem when it names the dial.
	if strings.Contains(err.Error(), "connection refused") || strings.Contains(err.Error(), "no such host") {
		return classConnection
	}
	return classUnknown
}
