//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"mosaic/backend/internal/logger"
)

// Alert describes a degradation event worth paging someone about.
type Alert struct {
	ID        string    `json:"id"`
	FeatureID string    `json:"featureId"`
	Reason    string    `json:"reason"`
	Message   string    `json:"message,omitempty"`
	At        time.Time `json:"at"`
}

// Notifier dispatches alerts. Implementations are best-effort: delivery
// failures are logged, never propagated into the request path.
type Notifier interface {
	Notify(ctx context.Context, a Alert)
}

// NopNotifier drops every alert; used when alerting is disabled.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Alert) {}

// WebhookNotifier POSTs alerts as JSON to a configured endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier with a bounded request timeout.
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, a Alert) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.At.IsZero() {
		a.At = time.Now().UTC()
	}

	body, err := json.Marshal(a)
	if err != nil {
		logger.Warn("alert marshal failed", "feature", a.FeatureID, "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		logger.Warn("alert request build failed", "feature", a.FeatureID, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		logger.Warn("alert delivery failed", "feature", a.FeatureID, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		logger.Warn("alert endpoint rejected delivery", "feature", a.FeatureID, "status", resp.StatusCode)
	}
}

// ThrottledNotifier bounds how often alerts reach the wrapped notifier so a
// flapping dependency cannot flood the receiving channel.
type ThrottledNotifier struct {
	next    Notifier
	limiter *rate.Limiter
}

// NewThrottled wraps next, allowing at most one alert per interval with the
// given burst.
func NewThrottled(next Notifier, interval time.Duration, burst int) *ThrottledNotifier {
	return &ThrottledNotifier{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(interval), burst),
	}
}

func (n *ThrottledNotifier) Notify(ctx context.Context, a Alert) {
	if !n.limiter.Allow() {
		logger.Debug("alert suppressed by throttle", "feature", a.FeatureID, "reason", a.Reason)
		return
	}
	n.next.Notify(ctx, a)
}
