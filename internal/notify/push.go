// Package notify implements the outbound notification clients: Expo push
// messages and the email relay. Both are fire-and-forget from the caller's
// point of view; failures surface as errors for logging only.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nekoneko/seisan-server/internal/config"
)

// pushMessage is the payload the push relay expects.
type pushMessage struct {
	Title         string `json:"title"`
	Body          string `json:"body"`
	ExpoPushToken string `json:"expo_push_token"`
}

// Client sends push notifications and emails over HTTP.
type Client struct {
	cfg        config.NotifyConfig
	httpClient *http.Client
}

// NewClient creates a notification client from the notify configuration.
func NewClient(cfg config.NotifyConfig) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SendPush delivers a push notification to a single device token. A channel
// with no configured endpoint is a no-op.
func (c *Client) SendPush(ctx context.Context, expoPushToken, title, body string) error {
	if c.cfg.PushAPIURL == "" || expoPushToken == "" {
		return nil
	}

	payload, err := json.Marshal(pushMessage{
		Title:         title,
		Body:          body,
		ExpoPushToken: expoPushToken,
	})
	if err != nil {
		return fmt.Errorf("failed to encode push message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.PushAPIURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("push notification failed: %s", resp.Status)
	}

	return nil
}
