// Package wallet provides a client for the Privy custody API.
// Wallets are created on first use, one per phone identity.
package wallet

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tempopay/bump/internal/models"
)

// DefaultBaseURL is the production custody API endpoint.
const DefaultBaseURL = "https://api.privy.io/v1"

// Client is a Privy custody API client.
type Client struct {
	baseURL    string
	appID      string
	authHeader string
	httpClient *http.Client
}

// NewClient creates a custody client. baseURL may be empty for production.
func NewClient(baseURL, appID, appSecret string, timeout time.Duration) *Client {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    trimmed,
		appID:      appID,
		authHeader: "Basic " + base64.StdEncoding.EncodeToString([]byte(appID+":"+appSecret)),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// custodyUser is the subset of the API's user object we read.
type custodyUser struct {
	ID             string `json:"id"`
	LinkedAccounts []struct {
		Type      string `json:"type"`
		ChainType string `json:"chain_type"`
		Address   string `json:"address"`
	} `json:"linked_accounts"`
}

// GetOrCreateWallet finds the user linked to a phone number, creating one
// with an embedded wallet when absent. Idempotent per phone.
func (c *Client) GetOrCreateWallet(ctx context.Context, phone string) (*models.Wallet, error) {
	user, err := c.findByPhone(ctx, phone)
	if err == nil {
		return walletFromUser(phone, user)
	}

	user, err = c.createUser(ctx, phone)
	if err != nil {
		return nil, err
	}
	return walletFromUser(phone, user)
}

func (c *Client) findByPhone(ctx context.Context, phone string) (*custodyUser, error) {
	body := map[string]string{"number": phone}
	return c.do(ctx, http.MethodPost, "/users/phone/number", body)
}

func (c *Client) createUser(ctx context.Context, phone string) (*custodyUser, error) {
	body := map[string]any{
		"linked_accounts": []map[string]string{
			{"type": "phone", "number": phone},
		},
		"create_ethereum_wallet": true,
	}
	return c.do(ctx, http.MethodPost, "/users", body)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*custodyUser, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode custody request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create custody request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("privy-app-id", c.appID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("custody request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("custody API returned status %d: %s", resp.StatusCode, msg)
	}

	var user custodyUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode custody response: %w", err)
	}
	return &user, nil
}

func walletFromUser(phone string, user *custodyUser) (*models.Wallet, error) {
	for _, account := range user.LinkedAccounts {
		if account.Type == "wallet" && account.ChainType == "ethereum" {
			return &models.Wallet{
				Phone:    phone,
				WalletID: user.ID,
				Address:  account.Address,
			}, nil
		}
	}
	return nil, fmt.Errorf("no wallet found for user %s", user.ID)
}
