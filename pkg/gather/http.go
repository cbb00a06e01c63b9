package gather

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gokaycavdar/go-vpnsense/pkg/models"
)

// DefaultMaxBody caps how much of a response body is kept for diagnostics.
const DefaultMaxBody = 4 << 10

// HTTPProber issues real requests and times them.
type HTTPProber struct {
	client  *http.Client
	maxBody int64
}

// NewHTTPProber wraps client, usually one built by httpclient.New.
func NewHTTPProber(client *http.Client) *HTTPProber {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPProber{client: client, maxBody: DefaultMaxBody}
}

// Probe sends one request. ElapsedMs covers the time until response headers
// arrive. Transport failures and timeouts are returned as errors together with
// a Failed observation.
func (p *HTTPProber) Probe(ctx context.Context, method, url string) (models.HTTPObservation, error) {
	obs := models.HTTPObservation{Method: method, URL: url}

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		obs.Failed = true
		return obs, fmt.Errorf("build request %s %s: %w", method, url, err)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	obs.ElapsedMs = float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		obs.Failed = true
		return obs, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	obs.Status = resp.StatusCode
	if method != http.MethodHead {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, p.maxBody))
		obs.Body = string(body)
	}
	return obs, nil
}
