package wallet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const walletUserJSON = `{
	"id": "did:privy:user1",
	"linked_accounts": [
		{"type": "phone", "number": "+15551234567"},
		{"type": "wallet", "chain_type": "ethereum", "address": "0xabc123"}
	]
}`

func TestGetOrCreateWalletExistingUser(t *testing.T) {
	t.Parallel()

	var gotPath, gotAppID, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAppID = r.Header.Get("privy-app-id")
		gotAuth = r.Header.Get("Authorization")

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "+15551234567", body["number"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(walletUserJSON))
	}))
	defer server.Close()

	client := NewClient(server.URL, "app-id", "app-secret", time.Second)
	wallet, err := client.GetOrCreateWallet(context.Background(), "+15551234567")
	require.NoError(t, err)

	require.Equal(t, "/users/phone/number", gotPath)
	require.Equal(t, "app-id", gotAppID)
	require.Contains(t, gotAuth, "Basic ")
	require.Equal(t, "did:privy:user1", wallet.WalletID)
	require.Equal(t, "0xabc123", wallet.Address)
	require.Equal(t, "+15551234567", wallet.Phone)
}

func TestGetOrCreateWalletCreatesUser(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/phone/number":
			http.Error(w, `{"error": "not found"}`, http.StatusNotFound)
		case "/users":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, true, body["create_ethereum_wallet"])

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(walletUserJSON))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "app-id", "app-secret", time.Second)
	wallet, err := client.GetOrCreateWallet(context.Background(), "+15551234567")
	require.NoError(t, err)
	require.Equal(t, "0xabc123", wallet.Address)
}

func TestGetOrCreateWalletNoLinkedWallet(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "did:privy:user2", "linked_accounts": []}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "app-id", "app-secret", time.Second)
	_, err := client.GetOrCreateWallet(context.Background(), "+15551234567")
	require.ErrorContains(t, err, "no wallet found for user did:privy:user2")
}

func TestGetOrCreateWalletAPIFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "app-id", "app-secret", time.Second)
	_, err := client.GetOrCreateWallet(context.Background(), "+15551234567")
	require.ErrorContains(t, err, "status 500")
}
