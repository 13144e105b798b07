package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tempopay/bump/internal/logger"
	"github.com/tempopay/bump/internal/models"
	"github.com/tempopay/bump/internal/repository"
)

const notifyTimeout = 10 * time.Second

// historyLength is how many transactions HISTORY shows.
const historyLength = 10

const helpText = `BUMP Commands:
SEND $20 to +1234567890 lunch
SEND $5 to $alice or @mom
SPLIT $60 to +123,+456,+789 dinner
REQUEST $50 from @mom rent
PAY 1 (pay request #1)
ADD @mom +15551234567
TAG yourname (claim your $tag)
LIMIT $100/day
QR [$20] [memo] (payment QR code)
FUND $100 (test funds)
BAL · HISTORY · HELP`

const limitExceededReason = "Daily spending limit exceeded. Check LIMIT or try a smaller amount."

// ensureWallet returns the identity's wallet, creating it via the custody
// service on first use. The mapping is cached permanently.
func (b *Bot) ensureWallet(ctx context.Context, phone string) (*models.Wallet, error) {
	cached, err := b.wallets.Get(ctx, phone)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return cached, nil
	}

	wallet, err := b.custody.GetOrCreateWallet(ctx, phone)
	if err != nil {
		return nil, err
	}
	if err := b.wallets.Put(ctx, wallet); err != nil {
		return nil, err
	}
	return wallet, nil
}

// recipientAddress returns the on-chain destination for a resolved recipient,
// creating the counterparty's wallet when the token did not carry an address.
func (b *Bot) recipientAddress(ctx context.Context, recipient Recipient) (string, error) {
	if recipient.Address != "" {
		return recipient.Address, nil
	}
	wallet, err := b.ensureWallet(ctx, recipient.Phone)
	if err != nil {
		return "", err
	}
	return wallet.Address, nil
}

func (b *Bot) handleSend(ctx context.Context, phone string, cmd *models.Command) string {
	ok, err := b.ledger.CanSpend(ctx, phone, cmd.Amount)
	if err != nil {
		return failedReceipt(cmd.Amount, cmd.Recipient.Display(), err.Error())
	}
	if !ok {
		return failedReceipt(cmd.Amount, cmd.Recipient.Display(), limitExceededReason)
	}

	recipient, err := b.resolver.Resolve(ctx, phone, cmd.Recipient)
	if err != nil {
		var resErr *ResolutionError
		if errors.As(err, &resErr) {
			return "❌ " + resErr.Message
		}
		return failedReceipt(cmd.Amount, cmd.Recipient.Display(), err.Error())
	}

	sender, err := b.ensureWallet(ctx, phone)
	if err != nil {
		return failedReceipt(cmd.Amount, recipient.Display, err.Error())
	}

	balance, err := b.chain.BalanceOf(ctx, sender.Address)
	if err != nil {
		return failedReceipt(cmd.Amount, recipient.Display, err.Error())
	}
	if balance.LessThan(cmd.Amount) {
		return failedReceipt(cmd.Amount, recipient.Display,
			fmt.Sprintf("Insufficient balance ($%s). Text FUND $%s to top up.",
				balance.StringFixed(2), cmd.Amount.StringFixed(2)))
	}

	toAddress, err := b.recipientAddress(ctx, recipient)
	if err != nil {
		return failedReceipt(cmd.Amount, recipient.Display, err.Error())
	}

	hash, err := b.chain.Transfer(ctx, sender.WalletID, sender.Address, toAddress, cmd.Amount, cmd.Memo)
	if err != nil {
		return failedReceipt(cmd.Amount, recipient.Display, err.Error())
	}

	b.recordTransfer(ctx, phone, cmd.Amount, recipient.Display, cmd.Memo, hash)
	if err := b.ledger.RecordSpend(ctx, phone, cmd.Amount); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to record spend")
	}
	if recipient.Phone != "" {
		b.notify(recipient.Phone, fmt.Sprintf("💸 You received $%s from %s%s",
			cmd.Amount.StringFixed(2), phone, memoSuffix(cmd.Memo)))
	}

	return successReceipt(models.CmdSend, cmd.Amount, recipient.Display, hash, cmd.Memo)
}

func (b *Bot) handleSplit(ctx context.Context, phone string, cmd *models.Command) string {
	displayAll := displayTokens(cmd.Recipients)

	// The configured amount is the total; the ledger is debited once.
	ok, err := b.ledger.CanSpend(ctx, phone, cmd.Amount)
	if err != nil {
		return failedReceipt(cmd.Amount, displayAll, err.Error())
	}
	if !ok {
		return failedReceipt(cmd.Amount, displayAll, limitExceededReason)
	}

	recipients := make([]Recipient, 0, len(cmd.Recipients))
	for _, token := range cmd.Recipients {
		recipient, err := b.resolver.Resolve(ctx, phone, token)
		if err != nil {
			var resErr *ResolutionError
			if errors.As(err, &resErr) {
				return "❌ " + resErr.Message
			}
			return failedReceipt(cmd.Amount, displayAll, err.Error())
		}
		recipients = append(recipients, recipient)
	}

	sender, err := b.ensureWallet(ctx, phone)
	if err != nil {
		return failedReceipt(cmd.Amount, displayAll, err.Error())
	}

	balance, err := b.chain.BalanceOf(ctx, sender.Address)
	if err != nil {
		return failedReceipt(cmd.Amount, displayAll, err.Error())
	}
	if balance.LessThan(cmd.Amount) {
		return failedReceipt(cmd.Amount, displayAll,
			fmt.Sprintf("Insufficient balance ($%s). Text FUND $%s to top up.",
				balance.StringFixed(2), cmd.Amount.StringFixed(2)))
	}

	addresses := make([]string, 0, len(recipients))
	for _, recipient := range recipients {
		address, err := b.recipientAddress(ctx, recipient)
		if err != nil {
			return failedReceipt(cmd.Amount, displayAll, err.Error())
		}
		addresses = append(addresses, address)
	}

	n := int64(len(recipients))
	each := cmd.Amount.Div(decimal.NewFromInt(n)).Round(2)

	hash, err := b.chain.BatchTransfer(ctx, sender.WalletID, sender.Address, addresses, each, cmd.Memo)
	if err != nil {
		return failedReceipt(cmd.Amount, displayAll, err.Error())
	}

	// One audit entry per leg; single ledger debit of the total.
	for _, recipient := range recipients {
		b.recordTransfer(ctx, phone, each, recipient.Display, cmd.Memo, hash)
		if recipient.Phone != "" {
			b.notify(recipient.Phone, fmt.Sprintf("💸 You received $%s from %s%s",
				each.StringFixed(2), phone, memoSuffix(cmd.Memo)))
		}
	}
	if err := b.ledger.RecordSpend(ctx, phone, cmd.Amount); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to record spend")
	}

	destination := fmt.Sprintf("%d people ($%s each)", n, each.StringFixed(2))
	return successReceipt(models.CmdSplit, cmd.Amount, destination, hash, cmd.Memo)
}

func (b *Bot) handleRequest(ctx context.Context, phone string, cmd *models.Command) string {
	payer, err := b.resolver.Resolve(ctx, phone, cmd.From)
	if err != nil {
		var resErr *ResolutionError
		if errors.As(err, &resErr) {
			return "❌ " + resErr.Message
		}
		return "❌ " + err.Error()
	}

	req := &models.PaymentRequest{
		FromPhone: phone,
		ToPhone:   payer.Phone,
		Amount:    cmd.Amount,
		Memo:      cmd.Memo,
	}
	if err := b.requests.Create(ctx, req); err != nil {
		return "❌ " + err.Error()
	}

	b.notify(payer.Phone, fmt.Sprintf("💸 %s requested $%s%s. Reply \"PAY %d\" to send.",
		phone, cmd.Amount.StringFixed(2), memoSuffix(cmd.Memo), req.ID))

	return fmt.Sprintf("📤 Requested $%s from %s. They'll get a text!",
		cmd.Amount.StringFixed(2), payer.Display)
}

func (b *Bot) handlePay(ctx context.Context, phone string, cmd *models.Command) string {
	req, err := b.requests.Get(ctx, cmd.RequestID)
	if err != nil {
		return "❌ " + err.Error()
	}
	if req == nil {
		return fmt.Sprintf("❌ Request #%d not found", cmd.RequestID)
	}
	if req.Status != models.RequestStatusPending {
		return fmt.Sprintf("❌ Request #%d was already paid", req.ID)
	}
	if req.ToPhone != phone {
		return "❌ This request is not for you"
	}

	ok, err := b.ledger.CanSpend(ctx, phone, req.Amount)
	if err != nil {
		return failedReceipt(req.Amount, req.FromPhone, err.Error())
	}
	if !ok {
		return failedReceipt(req.Amount, req.FromPhone, limitExceededReason)
	}

	payer, err := b.ensureWallet(ctx, phone)
	if err != nil {
		return failedReceipt(req.Amount, req.FromPhone, err.Error())
	}

	balance, err := b.chain.BalanceOf(ctx, payer.Address)
	if err != nil {
		return failedReceipt(req.Amount, req.FromPhone, err.Error())
	}
	if balance.LessThan(req.Amount) {
		return failedReceipt(req.Amount, req.FromPhone,
			fmt.Sprintf("Insufficient balance ($%s). Text FUND $%s to top up.",
				balance.StringFixed(2), req.Amount.StringFixed(2)))
	}

	requester, err := b.ensureWallet(ctx, req.FromPhone)
	if err != nil {
		return failedReceipt(req.Amount, req.FromPhone, err.Error())
	}

	// A transfer failure leaves the request pending; the user sees a failed
	// receipt, not an error about the request itself.
	hash, err := b.chain.Transfer(ctx, payer.WalletID, payer.Address, requester.Address, req.Amount, req.Memo)
	if err != nil {
		return failedReceipt(req.Amount, req.FromPhone, err.Error())
	}

	won, err := b.requests.MarkPaid(ctx, req.ID)
	if err != nil {
		logger.Log.Error().Err(err).Int64("request_id", req.ID).Msg("Failed to mark request paid")
	} else if !won {
		// Lost a concurrent PAY race after the transfer went through.
		logger.Log.Warn().Int64("request_id", req.ID).Msg("Request was paid concurrently")
	}

	b.recordTransfer(ctx, phone, req.Amount, req.FromPhone, req.Memo, hash)
	if err := b.ledger.RecordSpend(ctx, phone, req.Amount); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to record spend")
	}
	b.notify(req.FromPhone, fmt.Sprintf("✅ %s paid your $%s request!", phone, req.Amount.StringFixed(2)))

	return successReceipt(models.CmdPay, req.Amount, req.FromPhone, hash, req.Memo)
}

func (b *Bot) handleBalance(ctx context.Context, phone string) string {
	wallet, err := b.ensureWallet(ctx, phone)
	if err != nil {
		return "❌ " + err.Error()
	}
	balance, err := b.chain.BalanceOf(ctx, wallet.Address)
	if err != nil {
		return "❌ " + err.Error()
	}

	reply := fmt.Sprintf("💰 Balance: $%s %s\n📍 %s...",
		balance.StringFixed(2), models.Currency, shortAddress(wallet.Address))

	pending, err := b.requests.ListPendingFor(ctx, phone)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to list pending requests")
		return reply
	}
	if len(pending) > 0 {
		reply += "\n\n📨 Pending requests:"
		for _, req := range pending {
			reply += fmt.Sprintf("\n#%d: $%s from %s%s. Reply PAY %d",
				req.ID, req.Amount.StringFixed(2), req.FromPhone, memoSuffix(req.Memo), req.ID)
		}
	}
	return reply
}

func (b *Bot) handleHistory(ctx context.Context, phone string) string {
	txs, err := b.transactions.ListRecent(ctx, phone, historyLength)
	if err != nil {
		return "❌ " + err.Error()
	}
	if len(txs) == 0 {
		return "No transactions yet. Text HELP to get started."
	}

	var sb strings.Builder
	sb.WriteString("📜 Recent transactions:\n")
	for _, tx := range txs {
		sb.WriteString(fmt.Sprintf("\n➡️ $%s to %s", tx.Amount.StringFixed(2), tx.Counterparty))
		if tx.Memo != "" {
			sb.WriteString(fmt.Sprintf(" %q", tx.Memo))
		}
		sb.WriteString(" — " + tx.CreatedAt.Format("Jan 2"))
	}
	return sb.String()
}

func (b *Bot) handleAddContact(ctx context.Context, phone string, cmd *models.Command) string {
	contactPhone := models.NormalizePhone(cmd.Phone, b.cfg.DefaultCountryCode)
	if contactPhone == "" {
		return "❌ That phone number doesn't look right"
	}
	err := b.contacts.Upsert(ctx, &models.Contact{
		OwnerPhone: phone,
		Nickname:   cmd.Nickname,
		Phone:      contactPhone,
	})
	if err != nil {
		return "❌ " + err.Error()
	}

	logger.Log.Debug().
		Str("owner", logger.HashPhone(phone)).
		Str("contact", logger.RedactPhone(contactPhone)).
		Msg("Contact saved")

	return fmt.Sprintf("💾 Saved @%s → %s", cmd.Nickname, contactPhone)
}

func (b *Bot) handleSetLimit(ctx context.Context, phone string, cmd *models.Command) string {
	if err := b.ledger.SetLimit(ctx, phone, cmd.Amount); err != nil {
		return "❌ " + err.Error()
	}
	return fmt.Sprintf("✅ Daily spending limit set to $%s/day", cmd.Amount.StringFixed(2))
}

func (b *Bot) handleSetTag(ctx context.Context, phone string, cmd *models.Command) string {
	name := strings.ToLower(cmd.Tag)
	if !models.ValidTag(name) {
		return fmt.Sprintf("❌ Tags must be %d-%d characters: lowercase letters, digits or _",
			models.MinTagLength, models.MaxTagLength)
	}

	wallet, err := b.ensureWallet(ctx, phone)
	if err != nil {
		return "❌ " + err.Error()
	}

	err = b.tags.Claim(ctx, name, phone, wallet.Address)
	if errors.Is(err, repository.ErrTagTaken) {
		return fmt.Sprintf("❌ Tag $%s is already taken", name)
	}
	if err != nil {
		return "❌ " + err.Error()
	}
	return fmt.Sprintf("✅ Tag claimed! Friends can now pay you with: SEND $5 to $%s", name)
}

func (b *Bot) handleQR(phone string, cmd *models.Command) string {
	var amount *decimal.Decimal
	if cmd.HasAmount {
		amount = &cmd.Amount
	}
	link := b.links.PaymentLink(phone, amount, cmd.Memo)
	qr := b.links.QRLink(phone, amount, cmd.Memo)
	return fmt.Sprintf("📲 Share this to get paid:\n%s\n\nQR image: %s", link, qr)
}

func (b *Bot) handleFund(ctx context.Context, phone string, cmd *models.Command) string {
	wallet, err := b.ensureWallet(ctx, phone)
	if err != nil {
		return failedReceipt(cmd.Amount, phone, err.Error())
	}
	hash, err := b.chain.Fund(ctx, wallet.Address, cmd.Amount)
	if err != nil {
		return failedReceipt(cmd.Amount, phone, err.Error())
	}
	return fmt.Sprintf("🚰 Funded $%s test %s\n🔗 %s",
		cmd.Amount.StringFixed(2), models.Currency, TxLink(hash))
}

// recordTransfer appends one audit log entry; storage failures are logged,
// not surfaced, since the transfer itself already succeeded.
func (b *Bot) recordTransfer(ctx context.Context, phone string, amount decimal.Decimal, counterparty, memo, hash string) {
	err := b.transactions.Create(ctx, &models.Transaction{
		Phone:        phone,
		Direction:    models.DirectionSend,
		Amount:       amount,
		Counterparty: counterparty,
		Memo:         memo,
		ChainHash:    hash,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to record transaction")
	}
}

func memoSuffix(memo string) string {
	if memo == "" {
		return ""
	}
	return fmt.Sprintf(" for %q", memo)
}

func shortAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:10]
}

func displayTokens(tokens []models.RecipientToken) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.Display()
	}
	return strings.Join(parts, ", ")
}
