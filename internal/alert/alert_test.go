package alert_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mosaic/backend/internal/alert"
)

func TestWebhookNotifier_PostsJSON(t *testing.T) {
	var received alert.Alert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := alert.NewWebhookNotifier(srv.URL, 5*time.Second)
	n.Notify(context.Background(), alert.Alert{
		FeatureID: "USER_LOGIN",
		Reason:    "API_TIMEOUT",
		Message:   "verification dependency timing out",
	})

	require.Equal(t, "USER_LOGIN", received.FeatureID)
	require.NotEmpty(t, received.ID, "notifier should assign an ID")
	require.False(t, received.At.IsZero())
}

func TestWebhookNotifier_DeliveryFailureDoesNotPanic(t *testing.T) {
	n := alert.NewWebhookNotifier("http://127.0.0.1:1", time.Second)
	n.Notify(context.Background(), alert.Alert{FeatureID: "USER_LOGIN"})
}

type countingNotifier struct {
	calls atomic.Int64
}

func (c *countingNotifier) Notify(context.Context, alert.Alert) {
	c.calls.Add(1)
}

func TestThrottledNotifier_SuppressesFloods(t *testing.T) {
	var inner countingNotifier
	n := alert.NewThrottled(&inner, time.Hour, 2)

	for i := 0; i < 10; i++ {
		n.Notify(context.Background(), alert.Alert{FeatureID: "USER_LOGIN"})
	}

	require.Equal(t, int64(2), inner.calls.Load(), "only the burst should get through")
}
