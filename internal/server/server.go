// Package server exposes the HTTP surface: inbound messages, session status,
// pairing code, document delivery and a read-only transaction listing.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Veraticus/the-spice-must-chat/internal/address"
	"github.com/Veraticus/the-spice-must-chat/internal/common"
	"github.com/Veraticus/the-spice-must-chat/internal/model"
	"github.com/Veraticus/the-spice-must-chat/internal/router"
	"github.com/Veraticus/the-spice-must-chat/internal/service"
	"github.com/Veraticus/the-spice-must-chat/internal/transport"
	"github.com/gin-gonic/gin"
)

// Session is the read side of the session manager.
type Session interface {
	IsConnected() bool
	CurrentPairingCode() (string, bool)
	Status() model.StatusRecord
}

// MessageHandler runs the inbound pipeline for one message.
type MessageHandler interface {
	Handle(ctx context.Context, msg model.InboundMessage) (router.Result, error)
}

// DocumentSender delivers a resolved document.
type DocumentSender interface {
	SendDocument(ctx context.Context, addr string, doc transport.Document) bool
}

// TransactionLister lists recorded transactions.
type TransactionLister interface {
	ListTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error)
}

// Deps are the collaborators behind the handlers. Documents and Transactions
// are optional; their endpoints answer 503 and 404 respectively when unset.
type Deps struct {
	Session      Session
	Messages     MessageHandler
	Sender       DocumentSender
	Documents    service.DocumentSource
	Transactions TransactionLister
	Logger       *slog.Logger
	Normalizer   address.Normalizer
	Now          func() time.Time
}

// Server is the HTTP server.
type Server struct {
	deps   Deps
	logger *slog.Logger
	router *gin.Engine
}

// NewServer creates the server and registers routes.
func NewServer(deps Deps) (*Server, error) {
	if deps.Session == nil {
		return nil, fmt.Errorf("%w: session", common.ErrMissingConfig)
	}
	if deps.Messages == nil {
		return nil, fmt.Errorf("%w: message handler", common.ErrMissingConfig)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Normalizer.Domain == "" {
		deps.Normalizer = address.NewNormalizer("")
	}

	logger := common.LoggerOrDefault(deps.Logger).With("component", "http")
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		deps:   deps,
		logger: logger,
		router: engine,
	}

	engine.POST("/message", s.handleMessage)
	engine.GET("/status", s.handleStatus)
	engine.GET("/qr", s.handleQR)
	engine.POST("/send-document", s.handleSendDocument)
	engine.GET("/transactions", s.handleTransactions)

	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http_listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Info("http_stopped")
	return nil
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http_request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start).String())
	}
}
