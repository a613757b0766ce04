package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// emailMessage is the payload for the email relay endpoint.
type emailMessage struct {
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// SendEmail posts a subject and HTML body to the configured email relay,
// authenticated with a bearer token. No configured endpoint means no-op.
func (c *Client) SendEmail(ctx context.Context, subject, html string) error {
	if c.cfg.EmailAPIURL == "" {
		return nil
	}

	payload, err := json.Marshal(emailMessage{
		From:    c.cfg.EmailFrom,
		To:      c.cfg.EmailTo,
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("failed to encode email message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.EmailAPIURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.EmailAPIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.EmailAPIToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("email send failed: %s", resp.Status)
	}

	return nil
}
