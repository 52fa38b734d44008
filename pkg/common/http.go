package common

import (
	_ "embed"
	"net/http"
	"strings"
	"time"
)

//go:embed VERSION
var version string

// UserAgent is sent on every outbound request made through HTTPClient.
func UserAgent() string {
	return "ESSBoard/" + strings.TrimSpace(version)
}

type headerTransport struct {
	transport http.RoundTripper
	headers   http.Header
}

// RoundTrip implements http.RoundTripper.
func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request so the caller's headers are left untouched
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", UserAgent())
	for k, vs := range t.headers {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return t.transport.RoundTrip(req)
}

// HTTPClient returns an http client with the essboard user-agent set. Any
// headers given are added to every request, replacing existing values.
// A zero timeout means requests are bounded only by their context.
func HTTPClient(timeout time.Duration, headers http.Header) *http.Client {
	return &http.Client{
		Transport: &headerTransport{
			transport: http.DefaultTransport,
			headers:   headers.Clone(),
		},
		Timeout: timeout,
	}
}
