package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

var hashSalt string

// InitHashSalt loads the log hash salt from the environment.
// In production, set LOG_HASH_SALT.
func InitHashSalt() {
	hashSalt = os.Getenv("LOG_HASH_SALT")
	if hashSalt == "" {
		hashSalt = "default-salt-change-in-production"
	}
}

// HashPhone creates a privacy-preserving hash of a phone identity.
// Phone numbers never appear in logs in the clear; the hash still lets us
// correlate actions by the same sender.
func HashPhone(phone string) string {
	if hashSalt == "" {
		InitHashSalt()
	}
	hash := sha256.Sum256([]byte(phone + ":" + hashSalt))
	return hex.EncodeToString(hash[:])[:8]
}

// RedactPhone keeps the country code and last two digits of a phone number.
func RedactPhone(phone string) string {
	if len(phone) < 6 {
		return "<redacted>"
	}
	return phone[:2] + strings.Repeat("*", len(phone)-4) + phone[len(phone)-2:]
}

// SanitizeText is a general-purpose sanitizer for user-provided message text.
func SanitizeText(text string) string {
	if text == "" {
		return "<empty>"
	}

	if len(text) <= 10 {
		return fmt.Sprintf("<%d chars>", len(text))
	}

	return fmt.Sprintf("%s...<%d chars>", text[:3], len(text))
}
