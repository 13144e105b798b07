package models

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// CommandKind enumerates the user intents the bot understands.
type CommandKind string

// Command kinds, one per user intent.
const (
	CmdSend       CommandKind = "SEND"
	CmdSplit      CommandKind = "SPLIT"
	CmdRequest    CommandKind = "REQUEST"
	CmdPay        CommandKind = "PAY"
	CmdBalance    CommandKind = "BAL"
	CmdHistory    CommandKind = "HISTORY"
	CmdAddContact CommandKind = "ADD"
	CmdSetLimit   CommandKind = "LIMIT"
	CmdSetTag     CommandKind = "TAG"
	CmdQR         CommandKind = "QR"
	CmdFund       CommandKind = "FUND"
	CmdHelp       CommandKind = "HELP"
)

// Command is a parsed user intent. Only the fields relevant to Kind are set;
// a Command is immutable once constructed.
type Command struct {
	Kind CommandKind

	// Money-moving fields.
	Amount     decimal.Decimal  // SEND, SPLIT, REQUEST, LIMIT, FUND, QR
	HasAmount  bool             // QR amount is optional
	Recipient  RecipientToken   // SEND
	Recipients []RecipientToken // SPLIT
	From       RecipientToken   // REQUEST
	Memo       string

	// Lifecycle and settings fields.
	RequestID int64  // PAY
	Nickname  string // ADD
	Phone     string // ADD
	Tag       string // TAG
}

// TokenKind discriminates the recipient sigil grammar.
type TokenKind string

// Recipient token kinds.
const (
	TokenTag      TokenKind = "tag"      // $word
	TokenNickname TokenKind = "nickname" // @word
	TokenPhone    TokenKind = "phone"    // bare digits, optional leading +
)

// RecipientToken is a sigil-tagged recipient reference, produced once by
// ParseRecipientToken and consumed uniformly by SEND/SPLIT/REQUEST handling.
type RecipientToken struct {
	Kind  TokenKind
	Value string
}

// Display renders the token the way the user wrote it.
func (t RecipientToken) Display() string {
	switch t.Kind {
	case TokenTag:
		return "$" + t.Value
	case TokenNickname:
		return "@" + t.Value
	default:
		return t.Value
	}
}

var (
	wordTokenRegex  = regexp.MustCompile(`^\w+$`)
	phoneTokenRegex = regexp.MustCompile(`^(\+\d+|\d{10,15})$`)
)

// ParseRecipientToken classifies one recipient token by its sigil:
// $word is a tag, @word a nickname, a digit/+ sequence a phone number.
// Tags and nicknames are case-insensitive and normalized to lowercase.
func ParseRecipientToken(raw string) (RecipientToken, bool) {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(raw, "$"):
		word := raw[1:]
		if !wordTokenRegex.MatchString(word) {
			return RecipientToken{}, false
		}
		return RecipientToken{Kind: TokenTag, Value: strings.ToLower(word)}, true
	case strings.HasPrefix(raw, "@"):
		word := raw[1:]
		if !wordTokenRegex.MatchString(word) {
			return RecipientToken{}, false
		}
		return RecipientToken{Kind: TokenNickname, Value: strings.ToLower(word)}, true
	case phoneTokenRegex.MatchString(raw):
		return RecipientToken{Kind: TokenPhone, Value: raw}, true
	default:
		return RecipientToken{}, false
	}
}
