//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package fallback

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Prober checks whether the external verification dependency is alive.
// A nil return means healthy.
type Prober interface {
	Probe(ctx context.Context) error
}

// probeSecret is deliberately invalid: the probe asserts the dependency is
// up and answering, not that verification succeeds.
const (
	probeSecret   = "health-check-invalid-secret"
	probeResponse = "health-check-probe"
)

// HTTPProber performs a synthetic verification call against the dependency's
// verify endpoint.
type HTTPProber struct {
	url    string
	client *http.Client
}

// NewHTTPProber creates a prober with a bounded request timeout.
func NewHTTPProber(verifyURL string, timeout time.Duration) *HTTPProber {
	return &HTTPProber{
		url:    verifyURL,
		client: &http.Client{Timeout: timeout},
	}
}

// Probe submits the invalid credential. Any response below 500 means the
// dependency is alive: a 4xx (or a 200 with a failure payload) is the
// expected reaction to a bogus secret. 5xx, timeouts and transport errors
// all read as unhealthy.
func (p *HTTPProber) Probe(ctx context.Context) error {
	form := url.Values{
		"secret":   {probeSecret},
		"response": {probeResponse},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe verification dependency: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("verification dependency returned %d", resp.StatusCode)
	}
	return nil
}
