package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tempopay/bump/internal/config"
	"github.com/tempopay/bump/internal/models"
)

// fakeWalletStore caches wallets in memory with append-only semantics.
type fakeWalletStore struct {
	wallets map[string]*models.Wallet
}

func newFakeWalletStore() *fakeWalletStore {
	return &fakeWalletStore{wallets: make(map[string]*models.Wallet)}
}

func (s *fakeWalletStore) Get(_ context.Context, phone string) (*models.Wallet, error) {
	wallet, ok := s.wallets[phone]
	if !ok {
		return nil, nil
	}
	return wallet, nil
}

func (s *fakeWalletStore) Put(_ context.Context, wallet *models.Wallet) error {
	if _, ok := s.wallets[wallet.Phone]; ok {
		return nil
	}
	s.wallets[wallet.Phone] = wallet
	return nil
}

// fakeCustody mints deterministic wallets per phone and counts calls.
type fakeCustody struct {
	calls int
	err   error
}

func (c *fakeCustody) GetOrCreateWallet(_ context.Context, phone string) (*models.Wallet, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &models.Wallet{
		Phone:    phone,
		WalletID: "wallet-" + phone,
		Address:  "0xaddr" + phone,
	}, nil
}

// fakeChain records transfers and serves balances from a map.
type fakeChain struct {
	balances map[string]decimal.Decimal

	transferErr error
	transfers   []fakeTransfer
	funded      []fakeTransfer
}

type fakeTransfer struct {
	walletID string
	from     string
	to       []string
	amount   decimal.Decimal
	memo     string
}

func newFakeChain() *fakeChain {
	return &fakeChain{balances: make(map[string]decimal.Decimal)}
}

func (c *fakeChain) Transfer(_ context.Context, walletID, fromAddress, toAddress string, amount decimal.Decimal, memo string) (string, error) {
	if c.transferErr != nil {
		return "", c.transferErr
	}
	c.transfers = append(c.transfers, fakeTransfer{
		walletID: walletID, from: fromAddress, to: []string{toAddress}, amount: amount, memo: memo,
	})
	return fmt.Sprintf("0xhash%d", len(c.transfers)), nil
}

func (c *fakeChain) BatchTransfer(_ context.Context, walletID, fromAddress string, toAddresses []string, amountEach decimal.Decimal, memo string) (string, error) {
	if c.transferErr != nil {
		return "", c.transferErr
	}
	c.transfers = append(c.transfers, fakeTransfer{
		walletID: walletID, from: fromAddress, to: toAddresses, amount: amountEach, memo: memo,
	})
	return fmt.Sprintf("0xhash%d", len(c.transfers)), nil
}

func (c *fakeChain) BalanceOf(_ context.Context, address string) (decimal.Decimal, error) {
	balance, ok := c.balances[address]
	if !ok {
		return decimal.Zero, nil
	}
	return balance, nil
}

func (c *fakeChain) Fund(_ context.Context, address string, amount decimal.Decimal) (string, error) {
	c.funded = append(c.funded, fakeTransfer{to: []string{address}, amount: amount})
	return "0xfaucet", nil
}

// fakeNotifier records notifications; safe for the bot's async delivery.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *fakeNotifier) Send(_ context.Context, to, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, to+": "+body)
	return nil
}

// fakeRequestStore keeps payment requests in memory.
type fakeRequestStore struct {
	nextID   int64
	requests map[int64]*models.PaymentRequest
}

func newFakeRequestStore() *fakeRequestStore {
	return &fakeRequestStore{nextID: 1, requests: make(map[int64]*models.PaymentRequest)}
}

func (s *fakeRequestStore) Create(_ context.Context, req *models.PaymentRequest) error {
	req.ID = s.nextID
	req.Status = models.RequestStatusPending
	req.CreatedAt = time.Now()
	s.nextID++
	copied := *req
	s.requests[req.ID] = &copied
	return nil
}

func (s *fakeRequestStore) Get(_ context.Context, id int64) (*models.PaymentRequest, error) {
	req, ok := s.requests[id]
	if !ok {
		return nil, nil
	}
	copied := *req
	return &copied, nil
}

func (s *fakeRequestStore) ListPendingFor(_ context.Context, toPhone string) ([]models.PaymentRequest, error) {
	var out []models.PaymentRequest
	for _, req := range s.requests {
		if req.ToPhone == toPhone && req.Status == models.RequestStatusPending {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (s *fakeRequestStore) MarkPaid(_ context.Context, id int64) (bool, error) {
	req, ok := s.requests[id]
	if !ok || req.Status != models.RequestStatusPending {
		return false, nil
	}
	req.Status = models.RequestStatusPaid
	return true, nil
}

// fakeTransactionStore appends transactions to a slice, newest last.
type fakeTransactionStore struct {
	txs []models.Transaction
}

func (s *fakeTransactionStore) Create(_ context.Context, tx *models.Transaction) error {
	tx.ID = int64(len(s.txs) + 1)
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	s.txs = append(s.txs, *tx)
	return nil
}

func (s *fakeTransactionStore) ListRecent(_ context.Context, phone string, limit int) ([]models.Transaction, error) {
	var out []models.Transaction
	for i := len(s.txs) - 1; i >= 0 && len(out) < limit; i-- {
		if s.txs[i].Phone == phone {
			out = append(out, s.txs[i])
		}
	}
	return out, nil
}

// fakeLinks builds predictable links without URL encoding concerns.
type fakeLinks struct{}

func (fakeLinks) PaymentLink(to string, amount *decimal.Decimal, memo string) string {
	return "https://bump.test/pay?to=" + to
}

func (fakeLinks) QRLink(to string, amount *decimal.Decimal, memo string) string {
	return "https://bump.test/qr?to=" + to
}

// fakeAssist returns a canned reply/command pair.
type fakeAssist struct {
	reply string
	cmd   *models.Command
	calls int
}

func (a *fakeAssist) TryParse(_ context.Context, _, _ string, _ []models.Contact) (string, *models.Command) {
	a.calls++
	return a.reply, a.cmd
}

var errFakeTransfer = errors.New("relay unavailable")

// testBot bundles a Bot wired to in-memory fakes.
type testBot struct {
	bot      *Bot
	contacts *fakeContactStore
	tags     *fakeTagStore
	wallets  *fakeWalletStore
	custody  *fakeCustody
	chain    *fakeChain
	notifier *fakeNotifier
	requests *fakeRequestStore
	txs      *fakeTransactionStore
	limits   *fakeLimitStore
}

func newTestBot() *testBot {
	contacts := newFakeContactStore()
	tags := newFakeTagStore()
	wallets := newFakeWalletStore()
	custody := &fakeCustody{}
	chain := newFakeChain()
	notifier := &fakeNotifier{}
	requests := newFakeRequestStore()
	txs := &fakeTransactionStore{}
	limits := newFakeLimitStore()

	cfg := &config.Config{DefaultCountryCode: "1", BaseURL: "https://bump.test"}

	b := &Bot{
		cfg:          cfg,
		contacts:     contacts,
		tags:         tags,
		wallets:      wallets,
		requests:     requests,
		transactions: txs,
		ledger:       NewLedger(limits),
		resolver:     NewResolver(contacts, tags, cfg.DefaultCountryCode),
		custody:      custody,
		chain:        chain,
		notifier:     notifier,
		links:        fakeLinks{},
	}

	return &testBot{
		bot:      b,
		contacts: contacts,
		tags:     tags,
		wallets:  wallets,
		custody:  custody,
		chain:    chain,
		notifier: notifier,
		requests: requests,
		txs:      txs,
		limits:   limits,
	}
}

// fund sets the balance the chain reports for a phone's deterministic wallet.
func (tb *testBot) fund(phone string, amount int64) {
	tb.chain.balances["0xaddr"+phone] = decimal.NewFromInt(amount)
}
