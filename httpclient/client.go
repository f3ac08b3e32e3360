// Package httpclient builds the outbound client shared by the API adapters.
package httpclient

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// New returns an http.Client with the given timeout whose transport records
// an OpenTelemetry span per request. Without a configured tracer provider the
// spans are no-ops.
func New(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}
