// Package notify sends outbound SMS via the Twilio Messages API.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the production Twilio API endpoint.
const DefaultBaseURL = "https://api.twilio.com"

// Client sends messages from one Twilio number.
type Client struct {
	baseURL    string
	accountSID string
	authToken  string
	from       string
	httpClient *http.Client
}

// NewClient creates a Twilio client. baseURL may be empty for production.
func NewClient(baseURL, accountSID, authToken, from string, timeout time.Duration) *Client {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    trimmed,
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Send delivers one message. Callers treat delivery as best-effort.
func (c *Client) Send(ctx context.Context, to, body string) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID)

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.from)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create message request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("message request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("twilio returned status %d: %s", resp.StatusCode, msg)
	}
	return nil
}
