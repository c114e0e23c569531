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

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/0xAshura/crt-subs/internal/proxy"
)

func TestNewDirect(t *testing.T) {
	t.Parallel()
	c, err := New(Config{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Timeout != DefaultRequestTimeout {
		t.Errorf("Timeout = %v; want default %v", c.Timeout, DefaultRequestTimeout)
	}
	transport, ok := c.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("Transport is %T; want *http.Transport", c.Transport)
	}
	if transport.Proxy != nil {
		t.Error("direct client has a proxy configured")
	}
	if transport.TLSClientConfig == nil || !transport.TLSClientConfig.InsecureSkipVerify {
		t.Error("TLS verification should be disabled on outbound clients")
	}
}

func TestNewWithProxy(t *testing.T) {
	t.Parallel()
	ep := proxy.ParseInline("http://10.0.0.1:8080")[0]
	c, err := New(Config{RequestTimeout: 5 * time.Second}, ep)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v; want 5s", c.Timeout)
	}
	transport := c.Transport.(*http.Transport)
	if transport.Proxy == nil {
		t.Fatal("proxied client has no proxy function")
	}
	req, _ := http.NewRequest(http.MethodGet, "https://crt.sh/", nil)
	u, err := transport.Proxy(req)
	if err != nil {
		t.Fatalf("proxy func: %v", err)
	}
	if u.Host != "10.0.0.1:8080" {
		t.Errorf("proxy host = %q; want 10.0.0.1:8080", u.Host)
	}
}

func TestNewBadProxyURL(t *testing.T) {
	t.Parallel()
	ep := &proxy.Endpoint{Raw: "http://[::1"}
	_, err := New(Config{}, ep)
	if !errors.Is(err, ErrBadProxyURL) {
		t.Fatalf("err = %v; want ErrBadProxyURL", err)
	}
}
