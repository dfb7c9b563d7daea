// Package util holds HTTP plumbing shared by the outbound clients.
package util

import (
	"fmt"
	"net/http"
	"net/url"
)

// NewProxyFunc routes https requests through httpsProxy and everything else
// through httpProxy. With neither set it defers to HTTP_PROXY/HTTPS_PROXY/NO_PROXY.
func NewProxyFunc(httpProxy, httpsProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	return func(req *http.Request) (*url.URL, error) {
		raw := httpProxy
		if req.URL.Scheme == "https" && httpsProxy != "" {
			raw = httpsProxy
		}
		if raw == "" {
			return http.ProxyFromEnvironment(req)
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url %q: %w", raw, err)
		}
		return u, nil
	}
}

// NewTransport returns a transport using the configured proxies, or nil
// (the default transport) when none are configured
func NewTransport(httpProxy, httpsProxy string) http.RoundTripper {
	if httpProxy == "" && httpsProxy == "" {
		return nil
	}
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.Proxy = NewProxyFunc(httpProxy, httpsProxy)
	return t
}
