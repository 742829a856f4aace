// Package model defines the core domain models used throughout the application.
package model

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionDirection indicates whether money came in or went out.
type TransactionDirection string

// Transaction direction constants.
const (
	DirectionIncome  TransactionDirection = "income"
	DirectionExpense TransactionDirection = "expense"
)

// ContextTag separates household bookkeeping from the clinic's.
type ContextTag string

// Context tag constants.
const (
	ContextHome   ContextTag = "HOME"
	ContextClinic ContextTag = "CLINIC"
)

// DefaultCategory is used when no keyword group matches.
const DefaultCategory = "Outros"

// Transaction is a financial record created from a chat message.
type Transaction struct {
	OccurredOn  time.Time
	CreatedAt   time.Time
	Amount      decimal.Decimal
	ID          string
	MessageID   string // Messaging network message ID that produced this record
	Source      string // Sender address on the messaging network
	SenderName  string
	Description string
	Category    string
	Hash        string
	Direction   TransactionDirection
	ContextTag  ContextTag
}

// GenerateHash creates a unique hash for duplicate detection.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%s:%s:%s:%s",
		t.OccurredOn.Format("2006-01-02"),
		t.Amount.StringFixed(2),
		t.Direction,
		t.Source,
		t.MessageID)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// IsIncome reports whether the transaction is money received.
func (t *Transaction) IsIncome() bool {
	return t.Direction == DirectionIncome
}
