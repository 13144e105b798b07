package bot

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tempopay/bump/internal/models"
)

const (
	senderPhone    = "+15550001111"
	recipientPhone = "+15552223333"
)

func sendCommand(amount string, token models.RecipientToken, memo string) *models.Command {
	return &models.Command{
		Kind:      models.CmdSend,
		Amount:    decimal.RequireFromString(amount),
		Recipient: token,
		Memo:      memo,
	}
}

func phoneToken(phone string) models.RecipientToken {
	return models.RecipientToken{Kind: models.TokenPhone, Value: phone}
}

func TestHandleSendSuccess(t *testing.T) {
	t.Parallel()

	tb := newTestBot()
	tb.fund(senderPhone, 100)
	ctx := context.Background()

	reply := tb.bot.Dispatch(ctx, senderPhone, sendCommand("20", phoneToken(recipientPhone), "lunch"))

	require.Contains(t, reply, "✅ Status: Confirmed")
	require.Contains(t, reply, "💰 Amount: $20.00 AlphaUSD")
	require.Contains(t, reply, "👤 To: "+recipientPhone)
	require.Contains(t, reply, `📝 Memo: "lunch"`)
	require.Contains(t, reply, ExplorerURL)

	require.Len(t, tb.chain.transfers, 1)
	transfer := tb.chain.transfers[0]
	require.Equal(t, "wallet-"+senderPhone, transfer.walletID)
	require.Equal(t, []string{"0xaddr" + recipientPhone}, transfer.to)
	require.Equal(t, "lunch", transfer.memo)

	require.Len(t, tb.txs.txs, 1)
	require.Equal(t, senderPhone, tb.txs.txs[0].Phone)
	require.Equal(t, recipientPhone, tb.txs.txs[0].Counterparty)

	limit, err := tb.limits.Get(ctx, senderPhone)
	require.NoError(t, err)
	require.NotNil(t, limit)
	require.True(t, decimal.NewFromInt(20).Equal(limit.SpentToday))

	// Both wallets are cached after the first use.
	require.Equal(t, 2, tb.custody.calls)
	cached, err := tb.wallets.Get(ctx, senderPhone)
	require.NoError(t, err)
	require.NotNil(t, cached)
}

func TestHandleSendInsufficientBalance(t *testing.T) {
	t.Parallel()

	tb := newTestBot()
	tb.fund(senderPhone, 5)
	ctx := context.Background()

	reply := tb.bot.Dispatch(ctx, senderPhone, sendCommand("20", phoneToken(recipientPhone), ""))

	require.Contains(t, reply, "❌ Status: Failed")
	require.Contains(t, reply, "Insufficient balance ($5.00). Text FUND $20.00 to top up.")
	require.Empty(t, tb.chain.transfers)
	require.Empty(t, tb.txs.txs)
}

func TestHandleSendLimitExceeded(t *testing.T) {
	t.Parallel()

	tb := newTestBot()
	tb.fund(senderPhone, 1000)
	ctx := context.Background()

	require.NoError(t, tb.bot.ledger.SetLimit(ctx, senderPhone, decimal.NewFromInt(10)))
	reply := tb.bot.Dispatch(ctx, senderPhone, sendCommand("20", phoneToken(recipientPhone), ""))

	require.Contains(t, reply, "❌ Status: Failed")
	require.Contains(t, reply, limitExceededReason)
	require.Empty(t, tb.chain.transfers)

	// A blocked attempt consumes no budget.
	limit, err := tb.limits.Get(ctx, senderPhone)
	require.NoError(t, err)
	require.True(t, limit.SpentToday.IsZero())
}

func TestHandleSendTransferFailure(t *testing.T) {
	t.Parallel()

	tb := newTestBot()
	tb.fund(senderPhone, 100)
	tb.chain.transferErr = errFakeTransfer
	ctx := context.Background()

	reply := tb.bot.Dispatch(ctx, senderPhone, sendCommand("20", phoneToken(recipientPhone), ""))

	require.Contains(t, reply, "❌ Status: Failed")
	require.Contains(t, reply, errFakeTransfer.Error())

	// A failed transfer leaves the audit log and the ledger untouched.
	require.Empty(t, tb.txs.txs)
	limit, err := tb.limits.Get(ctx, senderPhone)
	require.NoError(t, err)
	require.Nil(t, limit)
}

func TestHandleSendUnknownNickname(t *testing.T) {
	t.Parallel()

	tb := newTestBot()
	reply := tb.bot.Dispatch(context.Background(), senderPhone,
		sendCommand("20", models.RecipientToken{Kind: models.TokenNickname, Value: "mom"}, ""))

	require.Equal(t, "❌ Contact @mom not found. Save it with: ADD @mom +15551234567", reply)
	require.Empty(t, tb.chain.transfers)
}

func TestHandleSendToTagUsesStoredAddress(t *testing.T) {
	t.Parallel()

	tb := newTestBot()
	tb.fund(senderPhone, 100)
	ctx := context.Background()
	require.NoError(t, tb.tags.Claim(ctx, "alice", recipientPhone, "0xtagaddr"))

	reply := tb.bot.Dispatch(ctx, senderPhone,
		sendCommand("5", models.RecipientToken{Kind: models.TokenTag, Value: "alice"}, ""))

	require.Contains(t, reply, "✅ Status: Confirmed")
	require.Contains(t, reply, "👤 To: $alice")
	require.Len(t, tb.chain.transfers, 1)
	require.Equal(t, []string{"0xtagaddr"}, tb.chain.transfers[0].to)

	// The tag carried the address, so only the sender needed a wallet.
	require.Equal(t, 1, tb.custody.calls)
}

func TestHandleSplit(t *testing.T) {
	t.Parallel()

	tb := newTestBot()
	tb.fund(senderPhone, 100)
	ctx := context.Background()

	cmd := &models.Command{
		Kind:   models.CmdSplit,
		Amount: decimal.NewFromInt(60),
		Recipients: []models.RecipientToken{
			phoneToken("+15551110001"),
			phoneToken("+15551110002"),
			phoneToken("+15551110003"),
		},
		Memo: "dinner",
	}
	reply := tb.bot.Dispatch(ctx, senderPhone, cmd)

	require.Contains(t, reply, "✅ Status: Confirmed")
	require.Contains(t, reply, "💰 Amount: $60.00 AlphaUSD")
	require.Contains(t, reply, "👥 Split to: 3 people ($20.00 each)")

	require.Len(t, tb.chain.transfers, 1)
	require.Len(t, tb.chain.transfers[0].to, 3)
	require.True(t, decimal.RequireFromString("20").Equal(tb.chain.transfers[0].amount))

	// One audit entry per leg, one ledger debit for the total.
	require.Len(t, tb.txs.txs, 3)
	limit, err := tb.limits.Get(ctx, senderPhone)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(60).Equal(limit.SpentToday))
}

func TestHandleSplitUnevenAmount(t *testing.T) {
	t.Parallel()

	tb := newTestBot()
	tb.fund(senderPhone, 100)

	cmd := &models.Command{
		Kind:   models.CmdSplit,
		Amount: decimal.NewFromInt(10),
		Recipients: []models.RecipientToken{
			phoneToken("+15551110001"),
			phoneToken("+15551110002"),
			phoneToken("+15551110003"),
		},
	}
	reply := tb.bot.Dispatch(context.Background(), senderPhone, cmd)

	require.Contains(t, reply, "3 people ($3.33 each)")
}

func TestHandleSplitChecksTotalAgainstLimit(t *testing.T) {
	t.Parallel()

	tb := newTestBot()
	tb.fund(senderPhone, 1000)
	ctx := context.Background()

	// Each share is under the limit but the total is not.
	require.NoError(t, tb.bot.ledger.SetLimit(ctx, senderPhone, decimal.NewFromInt(50)))

	cmd := &models.Command{
		Kind:   models.CmdSplit,
		Amount: decimal.NewFromInt(60),
		Recipients: []models.RecipientToken{
			phoneToken("+15551110001"),
			phoneToken("+15551110002"),
		},
	}
	reply := tb.bot.Dispatch(ctx, senderPhone, cmd)

	require.Contains(t, reply, limitExceededReason)
	require.Empty(t, tb.chain.transfers)
}

func TestHandleRequestAndPay(t *testing.T) {
	t.Parallel()

	tb := newTestBot()
	ctx := context.Background()

	// The requester asks the payer for money.
	reply := tb.bot.Dispatch(ctx, recipientPhone, &models.Command{
		Kind:   models.CmdRequest,
		Amount: decimal.NewFromInt(50),
		From:   phoneToken(senderPhone),
		Memo:   "rent",
	})
	require.Equal(t, "📤 Requested $50.00 from "+senderPhone+". They'll get a text!", reply)

	pending, err := tb.requests.ListPendingFor(ctx, senderPhone)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, recipientPhone, pending[0].FromPhone)

	// The payer settles it.
	tb.fund(senderPhone, 100)
	reply = tb.bot.Dispatch(ctx, senderPhone, &models.Command{Kind: models.CmdPay, RequestID: pending[0].ID})
	require.Contains(t, reply, "✅ Status: Confirmed")
	require.Contains(t, reply, "👤 To: "+recipientPhone)
	require.Contains(t, reply, `📝 Memo: "rent"`)

	paid, err := tb.requests.Get(ctx, pending[0].ID)
	require.NoError(t, err)
	require.Equal(t, models.RequestStatusPaid, paid.Status)

	// Paying it again is rejected.
	reply = tb.bot.Dispatch(ctx, senderPhone, &models.Command{Kind: models.CmdPay, RequestID: pending[0].ID})
	require.Contains(t, reply, "already paid")
	require.Len(t, tb.chain.transfers, 1)
}

func TestHandlePayGuards(t *testing.T) {
	t.Parallel()

	tb := newTestBot()
	ctx := context.Background()

	reply := tb.bot.Dispatch(ctx, senderPhone, &models.Command{Kind: models.CmdPay, RequestID: 42})
	require.Equal(t, "❌ Request #42 not found", reply)

	require.NoError(t, tb.requests.Create(ctx, &models.PaymentRequest{
		FromPhone: recipientPhone,
		ToPhone:   "+15559998888",
		Amount:    decimal.NewFromInt(10),
	}))
	reply = tb.bot.Dispatch(ctx, senderPhone, &models.Command{Kind: models.CmdPay, RequestID: 1})
	require.Equal(t, "❌ This request is not for you", reply)
}

func TestHandlePayTransferFailureKeepsRequestPending(t *testing.T) {
	t.Parallel()

	tb := newTestBot()
	ctx := context.Background()
	tb.fund(senderPhone, 100)
	tb.chain.transferErr = errFakeTransfer

	require.NoError(t, tb.requests.Create(ctx, &models.PaymentRequest{
		FromPhone: recipientPhone,
		ToPhone:   senderPhone,
		Amount:    decimal.NewFromInt(10),
	}))

	reply := tb.bot.Dispatch(ctx, senderPhone, &models.Command{Kind: models.CmdPay, RequestID: 1})
	require.Contains(t, reply, "❌ Status: Failed")

	req, err := tb.requests.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, models.RequestStatusPending, req.Status)
}

func TestHandleBalance(t *testing.T) {
	t.Parallel()

	tb := newTestBot()
	tb.fund(senderPhone, 42)

	reply := tb.bot.Dispatch(context.Background(), senderPhone, &models.Command{Kind: models.CmdBalance})
	require.Contains(t, reply, "💰 Balance: $42.00 AlphaUSD")
	require.Contains(t, reply, "📍 0xaddr+155...")
	require.NotContains(t, reply, "📨 Pending requests:")
}

func TestHandleBalanceShowsPendingRequests(t *testing.T) {
	t.Parallel()

	tb := newTestBot()
	tb.fund(senderPhone, 42)
	ctx := context.Background()

	require.NoError(t, tb.requests.Create(ctx, &models.PaymentRequest{
		FromPhone: recipientPhone,
		ToPhone:   senderPhone,
		Amount:    decimal.NewFromInt(50),
		Memo:      "rent",
	}))

	reply := tb.bot.Dispatch(ctx, senderPhone, &models.Command{Kind: models.CmdBalance})
	require.Contains(t, reply, "📨 Pending requests:")
	require.Contains(t, reply, `#1: $50.00 from `+recipientPhone+` for "rent". Reply PAY 1`)
}

func TestHandleHistory(t *testing.T) {
	t.Parallel()

	tb := newTestBot()
	tb.fund(senderPhone, 100)
	ctx := context.Background()

	reply := tb.bot.Dispatch(ctx, senderPhone, &models.Command{Kind: models.CmdHistory})
	require.Equal(t, "No transactions yet. Text HELP to get started.", reply)

	tb.bot.Dispatch(ctx, senderPhone, sendCommand("20", phoneToken(recipientPhone), "lunch"))

	reply = tb.bot.Dispatch(ctx, senderPhone, &models.Command{Kind: models.CmdHistory})
	require.Contains(t, reply, "📜 Recent transactions:")
	require.Contains(t, reply, "➡️ $20.00 to "+recipientPhone)
	require.Contains(t, reply, `"lunch"`)
}

func TestHandleAddContact(t *testing.T) {
	t.Parallel()

	tb := newTestBot()
	ctx := context.Background()

	reply := tb.bot.Dispatch(ctx, senderPhone, &models.Command{
		Kind:     models.CmdAddContact,
		Nickname: "mom",
		Phone:    "(555) 444-5555",
	})
	require.Equal(t, "💾 Saved @mom → +15554445555", reply)

	// The nickname is immediately usable as a recipient.
	tb.fund(senderPhone, 100)
	reply = tb.bot.Dispatch(ctx, senderPhone,
		sendCommand("5", models.RecipientToken{Kind: models.TokenNickname, Value: "mom"}, ""))
	require.Contains(t, reply, "✅ Status: Confirmed")
	require.Contains(t, reply, "👤 To: @mom")
}

func TestHandleSetLimit(t *testing.T) {
	t.Parallel()

	tb := newTestBot()
	reply := tb.bot.Dispatch(context.Background(), senderPhone, &models.Command{
		Kind:   models.CmdSetLimit,
		Amount: decimal.NewFromInt(100),
	})
	require.Equal(t, "✅ Daily spending limit set to $100.00/day", reply)
}

func TestHandleSetTag(t *testing.T) {
	t.Parallel()

	tb := newTestBot()
	ctx := context.Background()

	reply := tb.bot.Dispatch(ctx, senderPhone, &models.Command{Kind: models.CmdSetTag, Tag: "Alice"})
	require.Equal(t, "✅ Tag claimed! Friends can now pay you with: SEND $5 to $alice", reply)

	// Claimed tags resolve for other senders.
	tag, err := tb.tags.Get(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, tag)
	require.Equal(t, senderPhone, tag.Phone)
}

func TestHandleSetTagInvalid(t *testing.T) {
	t.Parallel()

	tb := newTestBot()
	reply := tb.bot.Dispatch(context.Background(), senderPhone, &models.Command{Kind: models.CmdSetTag, Tag: "ab"})
	require.Contains(t, reply, "❌ Tags must be 3-15 characters")
}

func TestHandleQR(t *testing.T) {
	t.Parallel()

	tb := newTestBot()
	reply := tb.bot.Dispatch(context.Background(), senderPhone, &models.Command{Kind: models.CmdQR})
	require.Contains(t, reply, "📲 Share this to get paid:")
	require.Contains(t, reply, "https://bump.test/pay?to="+senderPhone)
	require.Contains(t, reply, "https://bump.test/qr?to="+senderPhone)
}

func TestHandleFund(t *testing.T) {
	t.Parallel()

	tb := newTestBot()
	reply := tb.bot.Dispatch(context.Background(), senderPhone, &models.Command{
		Kind:   models.CmdFund,
		Amount: decimal.NewFromInt(100),
	})
	require.Contains(t, reply, "🚰 Funded $100.00 test AlphaUSD")
	require.Contains(t, reply, TxLink("0xfaucet"))
	require.Len(t, tb.chain.funded, 1)
}

func TestDispatchHelp(t *testing.T) {
	t.Parallel()

	tb := newTestBot()
	reply := tb.bot.Dispatch(context.Background(), senderPhone, &models.Command{Kind: models.CmdHelp})
	require.Equal(t, helpText, reply)
}
