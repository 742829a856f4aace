// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/the-spice-must-chat/internal/model"
	"github.com/Veraticus/the-spice-must-chat/internal/transport"
	"github.com/shopspring/decimal"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate  *time.Time
	EndDate    *time.Time
	Direction  model.TransactionDirection
	ContextTag model.ContextTag
	Limit      int
	Offset     int
}

// CredentialStore persists the session's opaque credentials.
// Load returns empty credentials, not an error, when nothing is stored.
type CredentialStore interface {
	Load(ctx context.Context) (transport.Credentials, error)
	Save(ctx context.Context, creds transport.Credentials) error
	Purge(ctx context.Context) error
}

// StatusPublisher receives every connection state change for UI polling.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, record model.StatusRecord) error
}

// StatusReader returns the last published status.
type StatusReader interface {
	LatestStatus(ctx context.Context) (*model.StatusRecord, error)
}

// TransactionStore is the persistence collaborator for finished records.
type TransactionStore interface {
	SaveTransaction(ctx context.Context, txn *model.Transaction) error
	GetTransactionByMessageID(ctx context.Context, messageID string) (*model.Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
}

// TransactionSink receives a copy of every recorded transaction.
type TransactionSink interface {
	Append(ctx context.Context, txn model.Transaction) error
}

// Transcriber turns a retrievable audio URL into plain text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioURL, language string) (string, error)
}

// Messenger is the live session as seen by senders.
type Messenger interface {
	IsConnected() bool
	SendText(ctx context.Context, address, body string) error
	SendDocument(ctx context.Context, address string, doc transport.Document) error
	CheckExists(ctx context.Context, address string) (bool, string, error)
}

// Replier delivers a chat reply. It reports false when nothing was sent.
type Replier interface {
	SendText(ctx context.Context, rawAddress, body string) bool
}

// DocumentSource resolves a document reference into something deliverable.
type DocumentSource interface {
	Resolve(ctx context.Context, ref DocumentRef) (transport.Document, error)
}

// DocumentRef identifies a document held elsewhere in the system.
type DocumentRef struct {
	PatientID    string
	PatientName  string
	DocumentID   string
	DocumentType string
}

// PeriodSummary aggregates transactions for one context tag over a period.
type PeriodSummary struct {
	Start      time.Time
	End        time.Time
	ContextTag model.ContextTag
	Income     decimal.Decimal
	Expenses   decimal.Decimal
	Net        decimal.Decimal
	Count      int
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
