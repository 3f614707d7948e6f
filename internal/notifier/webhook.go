package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// WebhookNotifier posts operational alerts (failed commits, harvest errors,
// invariant violations) to a configured webhook as JSON.
type WebhookNotifier struct {
	URL    string
	Client *http.Client
}

// NewWebhookNotifier creates a notifier. An empty URL disables delivery.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		URL:    url,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Notify delivers one alert with exponential backoff retry.
func (w *WebhookNotifier) Notify(ctx context.Context, event, detail string) error {
	if w.URL == "" {
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"event":  event,
		"detail": detail,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 2 * time.Minute

	return backoff.Retry(func() error {
		return w.post(payload)
	}, backoff.WithContext(policy, ctx))
}

func (w *WebhookNotifier) post(payload []byte) error {
	resp, err := w.Client.Post(w.URL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("post alert: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook error: status %d, body: %s", resp.StatusCode, string(body))
	}
	return nil
}
