package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"github.com/tempopay/bump/internal/logger"
	"github.com/tempopay/bump/internal/models"
)

// ParseCommandTimeout bounds one command extraction call.
const ParseCommandTimeout = 15 * time.Second

const systemPrompt = `You are BUMP, a friendly SMS payment assistant. Parse natural language into payment commands.

RESPOND WITH JSON ONLY: {"reply": "message", "command": {...} or null}

COMMANDS TO EXTRACT:

1. SEND - send money to someone:
   Examples: "send $20 to +1234567890", "pay mom $50", "transfer 30 dollars to @john for lunch"
   {"reply": "Sending $20 to +1234567890...", "command": {"type": "SEND", "amount": "20", "recipient": "+1234567890", "memo": ""}}

2. SPLIT - split a bill between multiple people:
   Examples: "split $60 between +123, +456, +789", "send $20 each to +123 and +456"
   {"reply": "Splitting $60 between 3 people...", "command": {"type": "SPLIT", "amount": "60", "recipients": ["+123", "+456", "+789"], "memo": ""}}

3. BAL - check balance:
   Examples: "balance", "how much do I have", "check my wallet"
   {"reply": "", "command": {"type": "BAL"}}

4. REQUEST - request money from someone:
   Examples: "request $50 from +123 for rent", "ask mom for $100"
   {"reply": "Requesting $50 from +123...", "command": {"type": "REQUEST", "amount": "50", "from": "+123", "memo": "rent"}}

5. PAY - pay a pending request:
   Examples: "pay request 1", "pay #1", "accept request 1"
   {"reply": "Paying request #1...", "command": {"type": "PAY", "requestId": 1}}

6. HISTORY - view transactions:
   Examples: "history", "my transactions", "what did I send"
   {"reply": "", "command": {"type": "HISTORY"}}

7. ADD - save a contact:
   Examples: "save +123 as mom", "add @john +456", "remember +789 as boss"
   {"reply": "Saved!", "command": {"type": "ADD", "nickname": "mom", "phone": "+123"}}

8. LIMIT - set a daily spending limit:
   Examples: "set limit $100", "daily limit 50 dollars"
   {"reply": "Limit set!", "command": {"type": "LIMIT", "amount": "100"}}

9. TAG - claim a payment tag:
   Examples: "claim tag bob", "my tag is alice_99"
   {"reply": "", "command": {"type": "TAG", "tag": "bob"}}

10. QR - generate a payment QR:
    Examples: "qr code for $50", "generate qr", "payment qr 20 dollars coffee"
    {"reply": "", "command": {"type": "QR", "amount": "50", "memo": "coffee"}}

11. FUND - add test funds:
    Examples: "fund $100", "add test money", "give me $50"
    {"reply": "", "command": {"type": "FUND", "amount": "100"}}

12. HELP - show help:
    Examples: "help", "what can you do", "commands"
    {"reply": "", "command": {"type": "HELP"}}

RULES:
- Amounts are decimal strings in USD.
- Extract phone numbers (start with + or digits). $name means a payment tag, @name a saved contact.
- If a memo/reason is mentioned, include it.
- If unclear, ask for clarification with a reply and null command.
- NEVER make up phone numbers.
- For SPLIT: if the user says "$X each to N people", total = X * N.`

// assistResponse is the JSON envelope returned by the model.
type assistResponse struct {
	Reply   string         `json:"reply"`
	Command *assistCommand `json:"command"`
}

type assistCommand struct {
	Type       string      `json:"type"`
	Amount     string      `json:"amount"`
	Recipient  string      `json:"recipient"`
	Recipients []string    `json:"recipients"`
	From       string      `json:"from"`
	RequestID  json.Number `json:"requestId"`
	Nickname   string      `json:"nickname"`
	Phone      string      `json:"phone"`
	Tag        string      `json:"tag"`
	Memo       string      `json:"memo"`
}

// CommandParser extracts payment commands from natural language.
// It is a safe enrichment layer: every failure mode collapses to ("", nil)
// so the caller can fall back to the deterministic grammar.
type CommandParser struct {
	client *Client
}

// NewCommandParser creates a CommandParser over a Gemini client.
func NewCommandParser(client *Client) *CommandParser {
	return &CommandParser{client: client}
}

// TryParse attempts to extract a command from a free-form message.
// Returns a clarification reply and/or a command; never an error.
func (p *CommandParser) TryParse(ctx context.Context, phone, message string, contacts []models.Contact) (string, *models.Command) {
	if p.client == nil || p.client.generator == nil {
		return "", nil
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, ParseCommandTimeout)
	defer cancel()

	prompt := buildCommandPrompt(message, contacts)

	resp, err := p.client.generator.GenerateContent(timeoutCtx, ModelName, []*genai.Content{
		{Parts: []*genai.Part{{Text: prompt}}},
	}, nil)
	if err != nil {
		logger.Log.Debug().Err(err).Msg("NL assist call failed, falling back to grammar")
		return "", nil
	}

	text := responseText(resp)
	if text == "" {
		return "", nil
	}

	parsed, err := parseAssistResponse(text)
	if err != nil {
		logger.Log.Debug().Err(err).Msg("NL assist returned malformed output")
		return "", nil
	}

	if parsed.Command == nil {
		return parsed.Reply, nil
	}

	cmd, err := parsed.Command.toCommand()
	if err != nil {
		logger.Log.Debug().Err(err).Msg("NL assist command rejected")
		return parsed.Reply, nil
	}
	return parsed.Reply, cmd
}

func buildCommandPrompt(message string, contacts []models.Contact) string {
	var sb strings.Builder
	sb.WriteString(systemPrompt)

	if len(contacts) > 0 {
		sb.WriteString("\n\nUSER'S CONTACTS:\n")
		for _, c := range contacts {
			fmt.Fprintf(&sb, "@%s: %s\n", c.Nickname, c.Phone)
		}
		sb.WriteString("Replace contact names with their phone numbers.")
	}

	fmt.Fprintf(&sb, "\n\nUser message: %q\n\nRespond with JSON only:", message)
	return sb.String()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}
	return text
}

func parseAssistResponse(response string) (*assistResponse, error) {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	var ar assistResponse
	if err := json.Unmarshal([]byte(response), &ar); err != nil {
		return nil, fmt.Errorf("failed to parse assist response: %w", err)
	}
	return &ar, nil
}

// toCommand converts the model's JSON into a typed Command, rejecting
// anything with an unusable amount, recipient or type.
func (c *assistCommand) toCommand() (*models.Command, error) {
	kind := models.CommandKind(strings.ToUpper(strings.TrimSpace(c.Type)))

	switch kind {
	case models.CmdBalance, models.CmdHistory, models.CmdHelp:
		return &models.Command{Kind: kind}, nil

	case models.CmdPay:
		id, err := c.RequestID.Int64()
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid request id %q", c.RequestID)
		}
		return &models.Command{Kind: kind, RequestID: id}, nil

	case models.CmdSend:
		amount, err := parsePositiveAmount(c.Amount)
		if err != nil {
			return nil, err
		}
		token, ok := models.ParseRecipientToken(c.Recipient)
		if !ok {
			return nil, fmt.Errorf("invalid recipient %q", c.Recipient)
		}
		return &models.Command{Kind: kind, Amount: amount, Recipient: token, Memo: c.Memo}, nil

	case models.CmdSplit:
		amount, err := parsePositiveAmount(c.Amount)
		if err != nil {
			return nil, err
		}
		var tokens []models.RecipientToken
		for _, raw := range c.Recipients {
			token, ok := models.ParseRecipientToken(raw)
			if !ok {
				return nil, fmt.Errorf("invalid recipient %q", raw)
			}
			tokens = append(tokens, token)
		}
		if len(tokens) < 2 {
			return nil, fmt.Errorf("split needs at least 2 recipients")
		}
		return &models.Command{Kind: kind, Amount: amount, Recipients: tokens, Memo: c.Memo}, nil

	case models.CmdRequest:
		amount, err := parsePositiveAmount(c.Amount)
		if err != nil {
			return nil, err
		}
		token, ok := models.ParseRecipientToken(c.From)
		if !ok {
			return nil, fmt.Errorf("invalid payer %q", c.From)
		}
		return &models.Command{Kind: kind, Amount: amount, From: token, Memo: c.Memo}, nil

	case models.CmdAddContact:
		if c.Nickname == "" || c.Phone == "" {
			return nil, fmt.Errorf("contact needs nickname and phone")
		}
		return &models.Command{
			Kind:     kind,
			Nickname: strings.ToLower(strings.TrimPrefix(c.Nickname, "@")),
			Phone:    c.Phone,
		}, nil

	case models.CmdSetLimit, models.CmdFund:
		amount, err := parsePositiveAmount(c.Amount)
		if err != nil {
			return nil, err
		}
		return &models.Command{Kind: kind, Amount: amount}, nil

	case models.CmdSetTag:
		if c.Tag == "" {
			return nil, fmt.Errorf("tag is required")
		}
		return &models.Command{Kind: kind, Tag: strings.TrimPrefix(c.Tag, "$")}, nil

	case models.CmdQR:
		cmd := &models.Command{Kind: kind, Memo: c.Memo}
		if c.Amount != "" && c.Amount != "0" {
			amount, err := parsePositiveAmount(c.Amount)
			if err != nil {
				return nil, err
			}
			cmd.Amount = amount
			cmd.HasAmount = true
		}
		return cmd, nil

	default:
		return nil, fmt.Errorf("unknown command type %q", c.Type)
	}
}

func parsePositiveAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimPrefix(strings.TrimSpace(raw), "$"))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to parse amount %q: %w", raw, err)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Decimal{}, fmt.Errorf("amount must be positive, got %q", raw)
	}
	return amount, nil
}
