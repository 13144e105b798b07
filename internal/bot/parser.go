// Package bot contains the command grammar, recipient resolution, spending
// ledger and the dispatcher that turns commands into replies.
package bot

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tempopay/bump/internal/models"
)

// ErrUnrecognizedCommand is returned when no grammar rule matches.
var ErrUnrecognizedCommand = errors.New("unknown command. Text HELP for usage")

// ErrInsufficientRecipients is returned when SPLIT finds fewer than two
// distinct recipients.
var ErrInsufficientRecipients = errors.New("SPLIT requires at least 2 recipients")

var (
	payRegex     = regexp.MustCompile(`(?i)^PAY\s+(\d+)$`)
	fundRegex    = regexp.MustCompile(`(?i)^FUND\s+(\$?[\d.]+)$`)
	tagRegex     = regexp.MustCompile(`(?i)^TAG\s+(\S+)$`)
	addRegex     = regexp.MustCompile(`(?i)^ADD\s+@(\w+)\s+(\+?[\d\s().-]{7,20})$`)
	limitRegex   = regexp.MustCompile(`(?i)^LIMIT\s+(\$?[\d.]+)(?:/day)?$`)
	sendRegex    = regexp.MustCompile(`(?i)^SEND\s+(\$?[\d.]+)\s+(?:to\s+)?(\S+)\s*(.*)$`)
	splitRegex   = regexp.MustCompile(`(?i)^SPLIT\s+(\$?[\d.]+)\s+(?:to\s+)?(.*)$`)
	requestRegex = regexp.MustCompile(`(?i)^REQUEST\s+(\$?[\d.]+)\s+(?:from\s+)?(\S+)\s*(.*)$`)
	qrRegex      = regexp.MustCompile(`(?i)^QR(?:\s+(.*))?$`)
)

// ParseCommand turns raw message text into a typed Command.
// Deterministic and case-insensitive on keywords; returns
// ErrUnrecognizedCommand when no rule matches.
func ParseCommand(input string) (*models.Command, error) {
	text := strings.TrimSpace(input)
	upper := strings.ToUpper(text)

	switch upper {
	case "BAL", "BALANCE":
		return &models.Command{Kind: models.CmdBalance}, nil
	case "HISTORY":
		return &models.Command{Kind: models.CmdHistory}, nil
	case "HELP", "HI", "HELLO", "START":
		return &models.Command{Kind: models.CmdHelp}, nil
	}

	if m := payRegex.FindStringSubmatch(text); m != nil {
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || id <= 0 {
			return nil, ErrUnrecognizedCommand
		}
		return &models.Command{Kind: models.CmdPay, RequestID: id}, nil
	}

	if m := fundRegex.FindStringSubmatch(text); m != nil {
		amount, err := parseAmount(m[1])
		if err != nil {
			return nil, err
		}
		return &models.Command{Kind: models.CmdFund, Amount: amount}, nil
	}

	if m := tagRegex.FindStringSubmatch(text); m != nil {
		// Token shape only; tag rules are enforced at dispatch time.
		return &models.Command{Kind: models.CmdSetTag, Tag: m[1]}, nil
	}

	if m := addRegex.FindStringSubmatch(text); m != nil {
		return &models.Command{
			Kind:     models.CmdAddContact,
			Nickname: strings.ToLower(m[1]),
			Phone:    strings.TrimSpace(m[2]),
		}, nil
	}

	if m := limitRegex.FindStringSubmatch(text); m != nil {
		amount, err := parseAmount(m[1])
		if err != nil {
			return nil, err
		}
		return &models.Command{Kind: models.CmdSetLimit, Amount: amount}, nil
	}

	if m := sendRegex.FindStringSubmatch(text); m != nil {
		amount, err := parseAmount(m[1])
		if err != nil {
			return nil, err
		}
		token, ok := models.ParseRecipientToken(m[2])
		if !ok {
			return nil, ErrUnrecognizedCommand
		}
		return &models.Command{
			Kind:      models.CmdSend,
			Amount:    amount,
			Recipient: token,
			Memo:      strings.TrimSpace(m[3]),
		}, nil
	}

	if m := splitRegex.FindStringSubmatch(text); m != nil {
		amount, err := parseAmount(m[1])
		if err != nil {
			return nil, err
		}
		recipients, memo := splitRecipients(m[2])
		if len(recipients) < 2 {
			return nil, ErrInsufficientRecipients
		}
		return &models.Command{
			Kind:       models.CmdSplit,
			Amount:     amount,
			Recipients: recipients,
			Memo:       memo,
		}, nil
	}

	if m := requestRegex.FindStringSubmatch(text); m != nil {
		amount, err := parseAmount(m[1])
		if err != nil {
			return nil, err
		}
		token, ok := models.ParseRecipientToken(m[2])
		if !ok || token.Kind == models.TokenTag {
			return nil, ErrUnrecognizedCommand
		}
		return &models.Command{
			Kind:   models.CmdRequest,
			Amount: amount,
			From:   token,
			Memo:   strings.TrimSpace(m[3]),
		}, nil
	}

	if m := qrRegex.FindStringSubmatch(text); m != nil {
		cmd := &models.Command{Kind: models.CmdQR}
		rest := strings.TrimSpace(m[1])
		if rest != "" {
			fields := strings.Fields(rest)
			// The amount keeps its $ sigil so a memo may start with a number.
			amount, err := parseAmount(fields[0])
			if strings.HasPrefix(fields[0], "$") && err == nil {
				cmd.Amount = amount
				cmd.HasAmount = true
				cmd.Memo = strings.TrimSpace(strings.Join(fields[1:], " "))
			} else {
				cmd.Memo = rest
			}
		}
		return cmd, nil
	}

	return nil, ErrUnrecognizedCommand
}

// parseAmount parses an amount token with an optional leading dollar sign.
// Amounts must be finite positive decimals.
func parseAmount(token string) (decimal.Decimal, error) {
	token = strings.TrimPrefix(strings.TrimSpace(token), "$")
	amount, err := decimal.NewFromString(token)
	if err != nil {
		return decimal.Decimal{}, ErrUnrecognizedCommand
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Decimal{}, errors.New("amount must be greater than zero")
	}
	return amount, nil
}

// splitRecipients consumes recipient tokens (comma or space separated) from
// the front of rest; everything after the first non-recipient token is memo.
// Duplicate tokens are collapsed.
func splitRecipients(rest string) ([]models.RecipientToken, string) {
	normalized := strings.ReplaceAll(rest, ",", " ")
	fields := strings.Fields(normalized)

	var recipients []models.RecipientToken
	seen := make(map[models.RecipientToken]bool)
	memoStart := len(fields)

	for i, field := range fields {
		token, ok := models.ParseRecipientToken(field)
		if !ok {
			memoStart = i
			break
		}
		if !seen[token] {
			seen[token] = true
			recipients = append(recipients, token)
		}
	}

	memo := ""
	if memoStart < len(fields) {
		memo = strings.Join(fields[memoStart:], " ")
	}
	return recipients, memo
}
