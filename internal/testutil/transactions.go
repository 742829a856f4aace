package testutil

import (
	"time"

	"github.com/Veraticus/the-spice-must-chat/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionBuilder builds transaction fixtures. The zero configuration is a
// valid HOME expense of R$ 10,00 in "Outros".
//
// Example:
//
//	txn := testutil.NewTransaction().
//		Income("200").
//		Clinic().
//		On(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)).
//		Build()
type TransactionBuilder struct {
	txn model.Transaction
}

// NewTransaction starts a builder with defaults.
func NewTransaction() *TransactionBuilder {
	now := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)
	return &TransactionBuilder{txn: model.Transaction{
		ID:         uuid.NewString(),
		Source:     "5511988887777@s.whatsapp.net",
		SenderName: "Test",
		Amount:     decimal.NewFromInt(10),
		Direction:  model.DirectionExpense,
		Category:   model.DefaultCategory,
		ContextTag: model.ContextHome,
		OccurredOn: now,
		CreatedAt:  now,
	}}
}

// Expense sets an expense amount.
func (b *TransactionBuilder) Expense(amount string) *TransactionBuilder {
	b.txn.Direction = model.DirectionExpense
	b.txn.Amount = decimal.RequireFromString(amount)
	return b
}

// Income sets an income amount.
func (b *TransactionBuilder) Income(amount string) *TransactionBuilder {
	b.txn.Direction = model.DirectionIncome
	b.txn.Amount = decimal.RequireFromString(amount)
	return b
}

// Clinic tags the transaction as a clinic transaction.
func (b *TransactionBuilder) Clinic() *TransactionBuilder {
	b.txn.ContextTag = model.ContextClinic
	return b
}

// Category sets the category.
func (b *TransactionBuilder) Category(name string) *TransactionBuilder {
	b.txn.Category = name
	return b
}

// Description sets the description.
func (b *TransactionBuilder) Description(text string) *TransactionBuilder {
	b.txn.Description = text
	return b
}

// MessageID sets the originating message ID.
func (b *TransactionBuilder) MessageID(id string) *TransactionBuilder {
	b.txn.MessageID = id
	return b
}

// On sets the date the transaction happened.
func (b *TransactionBuilder) On(date time.Time) *TransactionBuilder {
	b.txn.OccurredOn = date
	return b
}

// Build returns the transaction with its hash filled in.
func (b *TransactionBuilder) Build() model.Transaction {
	txn := b.txn
	txn.Hash = txn.GenerateHash()
	return txn
}
