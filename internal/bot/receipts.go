package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tempopay/bump/internal/models"
)

// ExplorerURL is the block explorer base for transaction links.
const ExplorerURL = "https://explore.tempo.xyz/tx"

const receiptRule = "━━━━━━━━━━━━━━━━━━━━"

// TxLink returns the explorer link for a transaction hash.
func TxLink(hash string) string {
	return ExplorerURL + "/" + hash
}

// shortHash abbreviates a transaction hash for inline display.
func shortHash(hash string) string {
	if len(hash) <= 18 {
		return hash
	}
	return hash[:18] + "..."
}

// successReceipt formats the confirmation summary for a completed transfer.
// kind distinguishes a direct send from a split for the destination line.
func successReceipt(kind models.CommandKind, amount decimal.Decimal, destination, hash, memo string) string {
	lines := []string{
		receiptRule,
		"📄 BUMP Receipt",
		receiptRule,
		"",
		fmt.Sprintf("💰 Amount: $%s %s", amount.StringFixed(2), models.Currency),
	}
	if kind == models.CmdSplit {
		lines = append(lines, "👥 Split to: "+destination)
	} else {
		lines = append(lines, "👤 To: "+destination)
	}
	if memo != "" {
		lines = append(lines, fmt.Sprintf("📝 Memo: %q", memo))
	}
	lines = append(lines,
		"",
		"🕐 "+time.Now().Format("Jan 2, 2006 3:04 PM"),
		"✅ Status: Confirmed",
		"",
		"🔗 "+TxLink(hash),
		receiptRule,
	)
	return strings.Join(lines, "\n")
}

// failedReceipt formats the summary for a money-moving command that did not
// complete. No state was mutated when this is returned.
func failedReceipt(amount decimal.Decimal, destination, reason string) string {
	lines := []string{
		receiptRule,
		"📄 BUMP Receipt",
		receiptRule,
		"",
		fmt.Sprintf("💰 Amount: $%s", amount.StringFixed(2)),
		"👤 To: " + destination,
		"",
		"🕐 " + time.Now().Format("Jan 2, 2006 3:04 PM"),
		"❌ Status: Failed",
		"⚠️ " + reason,
		receiptRule,
	}
	return strings.Join(lines, "\n")
}
