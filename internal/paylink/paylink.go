// Package paylink builds shareable payment links and renders them as QR
// codes.
package paylink

import (
	"fmt"
	"net/url"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
	"github.com/shopspring/decimal"
)

// QRSize is the rendered QR image size in pixels.
const QRSize = 300

// Builder constructs payment URLs under one public base URL.
type Builder struct {
	baseURL string
}

// NewBuilder creates a Builder. baseURL is the public address of this
// service, without a trailing slash.
func NewBuilder(baseURL string) *Builder {
	return &Builder{baseURL: strings.TrimRight(baseURL, "/")}
}

// PaymentLink returns the human-facing payment page URL for an identity.
func (b *Builder) PaymentLink(to string, amount *decimal.Decimal, memo string) string {
	return b.baseURL + "/pay?" + paymentQuery(to, amount, memo)
}

// QRLink returns the URL of the PNG QR image encoding the payment link.
func (b *Builder) QRLink(to string, amount *decimal.Decimal, memo string) string {
	return b.baseURL + "/qr?" + paymentQuery(to, amount, memo)
}

func paymentQuery(to string, amount *decimal.Decimal, memo string) string {
	params := url.Values{}
	params.Set("to", to)
	if amount != nil {
		params.Set("amount", amount.StringFixed(2))
	}
	if memo != "" {
		params.Set("memo", memo)
	}
	return params.Encode()
}

// RenderQR encodes a link as a PNG QR image.
func RenderQR(link string) ([]byte, error) {
	png, err := qrcode.Encode(link, qrcode.Medium, QRSize)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR code: %w", err)
	}
	return png, nil
}
