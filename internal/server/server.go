// Package server exposes the HTTP transport: the Twilio webhook, the
// payment page, QR rendering and health.
package server

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tempopay/bump/internal/paylink"
)

// MessageBot turns one inbound message into reply text.
type MessageBot interface {
	HandleMessage(ctx context.Context, from, body string) string
}

// Server is the HTTP front of the bot.
type Server struct {
	srv *http.Server
}

// New creates a Server listening on addr.
func New(addr string, b MessageBot, links *paylink.Builder) *Server {
	mux := http.NewServeMux()
	h := &handler{bot: b, links: links}
	h.register(mux)

	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      otelhttp.NewHandler(mux, "bump"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Start serves until the listener fails or Stop is called.
func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
