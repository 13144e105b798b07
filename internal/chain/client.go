// Package chain provides a client for the Tempo transfer relay, which
// sponsors and submits stablecoin transactions on behalf of custodial
// wallets.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tempopay/bump/internal/models"
)

// Client is a Tempo relay API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a relay client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type transferRequest struct {
	WalletID string   `json:"wallet_id"`
	From     string   `json:"from"`
	To       []string `json:"to"`
	Token    string   `json:"token"`
	Amount   string   `json:"amount"`
	Memo     string   `json:"memo,omitempty"`
}

type transferResponse struct {
	Hash string `json:"hash"`
}

type balanceResponse struct {
	Balances map[string]json.Number `json:"balances"`
}

// Transfer submits one stablecoin transfer and returns its transaction hash.
func (c *Client) Transfer(ctx context.Context, walletID, fromAddress, toAddress string, amount decimal.Decimal, memo string) (string, error) {
	return c.submit(ctx, "/v1/transfers", transferRequest{
		WalletID: walletID,
		From:     fromAddress,
		To:       []string{toAddress},
		Token:    models.Currency,
		Amount:   amount.String(),
		Memo:     memo,
	})
}

// BatchTransfer submits one transfer of amountEach to every address and
// returns the first transaction hash.
func (c *Client) BatchTransfer(ctx context.Context, walletID, fromAddress string, toAddresses []string, amountEach decimal.Decimal, memo string) (string, error) {
	return c.submit(ctx, "/v1/transfers/batch", transferRequest{
		WalletID: walletID,
		From:     fromAddress,
		To:       toAddresses,
		Token:    models.Currency,
		Amount:   amountEach.String(),
		Memo:     memo,
	})
}

// Fund requests test funds from the relay faucet.
func (c *Client) Fund(ctx context.Context, address string, amount decimal.Decimal) (string, error) {
	return c.submit(ctx, "/v1/faucet", transferRequest{
		To:     []string{address},
		Token:  models.Currency,
		Amount: amount.String(),
	})
}

func (c *Client) submit(ctx context.Context, path string, body transferRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode transfer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create transfer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// The relay deduplicates retried submissions by this key.
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transfer request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("relay returned status %d: %s", resp.StatusCode, msg)
	}

	var tr transferResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("failed to decode transfer response: %w", err)
	}
	if tr.Hash == "" {
		return "", fmt.Errorf("relay returned no transaction hash")
	}
	return tr.Hash, nil
}

// BalanceOf reads the stablecoin balance of an address.
func (c *Client) BalanceOf(ctx context.Context, address string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/v1/balances/%s", c.baseURL, url.PathEscape(address))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to create balance request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("balance request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, fmt.Errorf("relay returned status %d", resp.StatusCode)
	}

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()

	var br balanceResponse
	if err := decoder.Decode(&br); err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to decode balance response: %w", err)
	}

	raw, ok := br.Balances[models.Currency]
	if !ok {
		return decimal.Zero, nil
	}
	balance, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to parse balance: %w", err)
	}
	return balance, nil
}
