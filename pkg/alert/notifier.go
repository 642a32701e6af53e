package alert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Notifier delivers alert text somewhere. Delivery is best-effort: callers
// dispatch sends asynchronously and only log failures.
type Notifier interface {
	Send(text string) error
}

// Webhook posts alert text to a configured HTTP endpoint. It requires both
// a URL and a token; if either is missing, Send silently no-ops.
type Webhook struct {
	url    string
	token  string
	client *http.Client
}

// NewWebhook creates a webhook notifier.
func NewWebhook(url, token string) *Webhook {
	return &Webhook{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Configured reports whether both credentials are present.
func (w *Webhook) Configured() bool {
	return w.url != "" && w.token != ""
}

// Send posts the text as a JSON payload.
func (w *Webhook) Send(text string) error {
	if !w.Configured() {
		return nil
	}

	body, _ := json.Marshal(map[string]string{"text": text})
	req, err := http.NewRequest(http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+w.token)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}
