// Package models defines the domain entities for the BUMP payment bot.
package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Currency is the stablecoin every transfer settles in.
const Currency = "AlphaUSD"

// DefaultCountryCode is prepended to bare national numbers.
const DefaultCountryCode = "1"

// Tag name constraints: lowercase word, claimed globally.
const (
	MinTagLength = 3
	MaxTagLength = 15
)

var tagRegex = regexp.MustCompile(`^[a-z0-9_]+$`)

// ValidTag reports whether name is an acceptable payment tag.
// Tags are matched case-insensitively; callers should lowercase first.
func ValidTag(name string) bool {
	if len(name) < MinTagLength || len(name) > MaxTagLength {
		return false
	}
	return tagRegex.MatchString(name)
}

var nonDigitRegex = regexp.MustCompile(`\D`)

// NormalizePhone converts a raw phone token into canonical +<cc><digits> form.
// Non-digits are stripped; numbers without the country code prefix get it
// prepended.
func NormalizePhone(raw, countryCode string) string {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	digits := nonDigitRegex.ReplaceAllString(raw, "")
	if digits == "" {
		return ""
	}
	if !strings.HasPrefix(digits, countryCode) {
		digits = countryCode + digits
	}
	return "+" + digits
}

// Contact is a private nickname -> phone mapping scoped to one owner.
type Contact struct {
	ID         int
	OwnerPhone string
	Nickname   string
	Phone      string
	CreatedAt  time.Time
}

// Tag is a globally unique alias pointing at an identity's wallet address.
type Tag struct {
	Name      string
	Phone     string
	Address   string
	CreatedAt time.Time
}

// Wallet is the cached custody-service answer for one identity.
// The phone -> wallet mapping is append-only: once created it never changes.
type Wallet struct {
	Phone     string
	WalletID  string
	Address   string
	CreatedAt time.Time
}

// SpendingLimit tracks the rolling daily spend for one identity.
// A nil DailyLimit means unlimited.
type SpendingLimit struct {
	Phone       string
	DailyLimit  *decimal.Decimal
	SpentToday  decimal.Decimal
	WindowStart time.Time
}

// SpendingWindow is the accounting period for daily limits.
const SpendingWindow = 24 * time.Hour

// Payment request lifecycle states.
const (
	RequestStatusPending = "pending"
	RequestStatusPaid    = "paid"
)

// PaymentRequest is an obligation from ToPhone to pay FromPhone.
type PaymentRequest struct {
	ID        int64
	FromPhone string
	ToPhone   string
	Amount    decimal.Decimal
	Memo      string
	Status    string
	CreatedAt time.Time
}

// DirectionSend marks an outbound transaction leg.
const DirectionSend = "send"

// Transaction is one append-only audit entry per completed transfer leg.
type Transaction struct {
	ID           int64
	Phone        string
	Direction    string
	Amount       decimal.Decimal
	Counterparty string
	Memo         string
	ChainHash    string
	CreatedAt    time.Time
}
