package server

import (
	"encoding/xml"
	"html/template"
	"net/http"
	"strings"

	"github.com/tempopay/bump/internal/logger"
	"github.com/tempopay/bump/internal/paylink"
)

// whatsAppPrefix marks senders messaging over WhatsApp instead of SMS.
const whatsAppPrefix = "whatsapp:"

type handler struct {
	bot   MessageBot
	links *paylink.Builder
}

func (h *handler) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /sms", h.handleSMS)
	mux.HandleFunc("GET /pay", h.handlePay)
	mux.HandleFunc("GET /qr", h.handleQR)
	mux.HandleFunc("GET /health", h.handleHealth)
}

// twiml is the Twilio webhook reply envelope.
type twiml struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// handleSMS receives one inbound message and replies with TwiML.
// The bot always produces reply text, so command failures never become
// transport errors.
func (h *handler) handleSMS(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	from := r.PostFormValue("From")
	body := strings.TrimSpace(r.PostFormValue("Body"))
	if from == "" {
		http.Error(w, "missing sender", http.StatusBadRequest)
		return
	}

	// WhatsApp senders arrive as "whatsapp:+15551234567".
	from = strings.TrimPrefix(from, whatsAppPrefix)

	reply := h.bot.HandleMessage(r.Context(), from, body)

	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	if err := xml.NewEncoder(w).Encode(twiml{Message: reply}); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to encode TwiML reply")
	}
}

var payTemplate = template.Must(template.New("pay").Parse(`<!DOCTYPE html>
<html>
<head><title>BUMP · Pay {{.To}}</title></head>
<body style="font-family: sans-serif; max-width: 28rem; margin: 3rem auto; text-align: center">
	<h1>💸 Pay {{.To}}</h1>
	{{if .Amount}}<p style="font-size: 2rem">${{.Amount}}</p>{{end}}
	{{if .Memo}}<p>“{{.Memo}}”</p>{{end}}
	<img src="{{.QRPath}}" alt="payment QR" width="300" height="300">
	<p>Scan with your phone, or text<br>
	<code>SEND {{if .Amount}}${{.Amount}}{{else}}$&lt;amount&gt;{{end}} to {{.To}}{{if .Memo}} {{.Memo}}{{end}}</code></p>
</body>
</html>
`))

type payPage struct {
	To     string
	Amount string
	Memo   string
	QRPath template.URL
}

// handlePay renders the human-facing payment page.
func (h *handler) handlePay(w http.ResponseWriter, r *http.Request) {
	to := r.URL.Query().Get("to")
	if to == "" {
		http.Error(w, "missing recipient", http.StatusBadRequest)
		return
	}

	page := payPage{
		To:     to,
		Amount: r.URL.Query().Get("amount"),
		Memo:   r.URL.Query().Get("memo"),
		QRPath: template.URL("/qr?" + r.URL.RawQuery),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := payTemplate.Execute(w, page); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to render payment page")
	}
}

// handleQR renders the payment link for the same query parameters as a PNG.
func (h *handler) handleQR(w http.ResponseWriter, r *http.Request) {
	to := r.URL.Query().Get("to")
	if to == "" {
		http.Error(w, "missing recipient", http.StatusBadRequest)
		return
	}

	link := h.links.PaymentLink(to, nil, "")
	if r.URL.RawQuery != "" {
		// Preserve amount and memo exactly as requested.
		link = strings.SplitN(link, "?", 2)[0] + "?" + r.URL.RawQuery
	}

	png, err := paylink.RenderQR(link)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to render QR")
		http.Error(w, "failed to render QR", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("OK"))
}
