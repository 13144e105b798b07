package bot

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/tempopay/bump/internal/config"
	"github.com/tempopay/bump/internal/logger"
	"github.com/tempopay/bump/internal/models"
	"github.com/tempopay/bump/internal/repository"
)

// WalletService creates custodial wallets on first use.
// Idempotent per phone identity; the result is cached in WalletStore.
type WalletService interface {
	GetOrCreateWallet(ctx context.Context, phone string) (*models.Wallet, error)
}

// WalletStore caches the identity -> wallet mapping.
type WalletStore interface {
	Get(ctx context.Context, phone string) (*models.Wallet, error)
	Put(ctx context.Context, wallet *models.Wallet) error
}

// ChainService executes stablecoin operations via the relay.
type ChainService interface {
	Transfer(ctx context.Context, walletID, fromAddress, toAddress string, amount decimal.Decimal, memo string) (string, error)
	BatchTransfer(ctx context.Context, walletID, fromAddress string, toAddresses []string, amountEach decimal.Decimal, memo string) (string, error)
	BalanceOf(ctx context.Context, address string) (decimal.Decimal, error)
	Fund(ctx context.Context, address string, amount decimal.Decimal) (string, error)
}

// Notifier delivers outbound messages to counterparties. Calls are
// best-effort from the bot's perspective.
type Notifier interface {
	Send(ctx context.Context, to, body string) error
}

// RequestStore persists the payment-request lifecycle.
type RequestStore interface {
	Create(ctx context.Context, req *models.PaymentRequest) error
	Get(ctx context.Context, id int64) (*models.PaymentRequest, error)
	ListPendingFor(ctx context.Context, toPhone string) ([]models.PaymentRequest, error)
	MarkPaid(ctx context.Context, id int64) (bool, error)
}

// TransactionStore persists the append-only transfer audit log.
type TransactionStore interface {
	Create(ctx context.Context, tx *models.Transaction) error
	ListRecent(ctx context.Context, phone string, limit int) ([]models.Transaction, error)
}

// LinkBuilder renders payment links and QR image URLs.
type LinkBuilder interface {
	PaymentLink(to string, amount *decimal.Decimal, memo string) string
	QRLink(to string, amount *decimal.Decimal, memo string) string
}

// CommandAssist is the optional natural-language parsing layer. It must never
// fail: when it cannot produce a command it returns ("", nil) and the caller
// falls back to the deterministic grammar.
type CommandAssist interface {
	TryParse(ctx context.Context, phone, text string, contacts []models.Contact) (string, *models.Command)
}

// Collaborators bundles the external services the bot calls out to.
type Collaborators struct {
	Custody  WalletService
	Chain    ChainService
	Notifier Notifier
	Links    LinkBuilder
	Assist   CommandAssist // nil when no NL credential is configured
}

// Bot interprets inbound messages and orchestrates payment operations.
type Bot struct {
	cfg *config.Config

	contacts     ContactStore
	tags         TagStore
	wallets      WalletStore
	requests     RequestStore
	transactions TransactionStore

	ledger   *Ledger
	resolver *Resolver

	custody  WalletService
	chain    ChainService
	notifier Notifier
	links    LinkBuilder
	assist   CommandAssist

	commandCounter metric.Int64Counter
}

// New creates a Bot wired to repositories over the given pool.
func New(cfg *config.Config, pool *pgxpool.Pool, collab Collaborators) *Bot {
	contacts := repository.NewContactRepository(pool)
	tags := repository.NewTagRepository(pool)

	b := &Bot{
		cfg:          cfg,
		contacts:     contacts,
		tags:         tags,
		wallets:      repository.NewWalletRepository(pool),
		requests:     repository.NewRequestRepository(pool),
		transactions: repository.NewTransactionRepository(pool),
		ledger:       NewLedger(repository.NewLimitRepository(pool)),
		resolver:     NewResolver(contacts, tags, cfg.DefaultCountryCode),
		custody:      collab.Custody,
		chain:        collab.Chain,
		notifier:     collab.Notifier,
		links:        collab.Links,
		assist:       collab.Assist,
	}
	b.initMetrics()
	return b
}

func (b *Bot) initMetrics() {
	meter := otel.Meter("bump/bot")
	counter, err := meter.Int64Counter("bump.commands",
		metric.WithDescription("Commands dispatched, by kind"))
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to create command counter")
		return
	}
	b.commandCounter = counter
}

// HandleMessage runs the full pipeline for one inbound message and returns
// the reply text. Every failure path yields a textual reply; nothing
// propagates to the transport as an error.
func (b *Bot) HandleMessage(ctx context.Context, from, body string) string {
	phone := models.NormalizePhone(from, b.cfg.DefaultCountryCode)

	logger.Log.Info().
		Str("sender", logger.HashPhone(phone)).
		Str("text", logger.SanitizeText(body)).
		Msg("Inbound message")

	var assistReply string
	if b.assist != nil {
		contacts, err := b.contacts.ListByOwner(ctx, phone)
		if err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to load contacts for assist")
		}
		reply, cmd := b.assist.TryParse(ctx, phone, body, contacts)
		if cmd != nil {
			return b.Dispatch(ctx, phone, cmd)
		}
		assistReply = reply
	}

	cmd, err := ParseCommand(body)
	if err != nil {
		if assistReply != "" {
			return assistReply
		}
		return "❌ " + err.Error()
	}

	return b.Dispatch(ctx, phone, cmd)
}

// Dispatch executes a typed command for a normalized sender identity.
func (b *Bot) Dispatch(ctx context.Context, phone string, cmd *models.Command) string {
	if b.commandCounter != nil {
		b.commandCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("command", string(cmd.Kind)),
		))
	}

	switch cmd.Kind {
	case models.CmdSend:
		return b.handleSend(ctx, phone, cmd)
	case models.CmdSplit:
		return b.handleSplit(ctx, phone, cmd)
	case models.CmdRequest:
		return b.handleRequest(ctx, phone, cmd)
	case models.CmdPay:
		return b.handlePay(ctx, phone, cmd)
	case models.CmdBalance:
		return b.handleBalance(ctx, phone)
	case models.CmdHistory:
		return b.handleHistory(ctx, phone)
	case models.CmdAddContact:
		return b.handleAddContact(ctx, phone, cmd)
	case models.CmdSetLimit:
		return b.handleSetLimit(ctx, phone, cmd)
	case models.CmdSetTag:
		return b.handleSetTag(ctx, phone, cmd)
	case models.CmdQR:
		return b.handleQR(phone, cmd)
	case models.CmdFund:
		return b.handleFund(ctx, phone, cmd)
	default:
		return helpText
	}
}

// notify delivers a counterparty message without blocking or failing the
// primary operation.
func (b *Bot) notify(to, body string) {
	if b.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := b.notifier.Send(ctx, to, body); err != nil {
			logger.Log.Warn().
				Err(err).
				Str("to", logger.HashPhone(to)).
				Msg("Failed to send notification")
		}
	}()
}
