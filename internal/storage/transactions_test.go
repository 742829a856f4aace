package storage

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/the-spice-must-chat/internal/common"
	"github.com/Veraticus/the-spice-must-chat/internal/model"
	"github.com/Veraticus/the-spice-must-chat/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransaction_GenerateHash(t *testing.T) {
	a := testTransaction("txn1", "50.00", 1)
	b := testTransaction("txn1", "50.00", 1)
	assert.Equal(t, a.GenerateHash(), b.GenerateHash())

	b.Amount = decimal.RequireFromString("51")
	assert.NotEqual(t, a.GenerateHash(), b.GenerateHash())

	c := testTransaction("txn1", "50.00", 2)
	assert.NotEqual(t, a.GenerateHash(), c.GenerateHash())

	d := testTransaction("txn1", "50.00", 1)
	d.Direction = model.DirectionIncome
	assert.NotEqual(t, a.GenerateHash(), d.GenerateHash())
}

func TestSaveAndGetTransaction(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	txn := testTransaction("txn1", "50.5", 3)
	require.NoError(t, store.SaveTransaction(ctx, txn))
	assert.NotEmpty(t, txn.Hash)
	assert.False(t, txn.CreatedAt.IsZero())

	got, err := store.GetTransactionByID(ctx, "txn1")
	require.NoError(t, err)
	assert.Equal(t, "50.50", got.Amount.StringFixed(2))
	assert.Equal(t, txn.MessageID, got.MessageID)
	assert.Equal(t, txn.Source, got.Source)
	assert.Equal(t, txn.SenderName, got.SenderName)
	assert.Equal(t, model.DirectionExpense, got.Direction)
	assert.Equal(t, model.ContextHome, got.ContextTag)
	assert.Equal(t, "Alimentação", got.Category)
	assert.Equal(t, "mercado", got.Description)
	assert.True(t, txn.OccurredOn.Equal(got.OccurredOn))

	byMessage, err := store.GetTransactionByMessageID(ctx, "msg-txn1")
	require.NoError(t, err)
	assert.Equal(t, "txn1", byMessage.ID)
}

func TestGetTransaction_NotFound(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	_, err := store.GetTransactionByID(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = store.GetTransactionByMessageID(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSaveTransaction_Duplicates(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveTransaction(ctx, testTransaction("txn1", "10", 1)))

	dup := testTransaction("txn2", "20", 2)
	dup.MessageID = "msg-txn1"
	err := store.SaveTransaction(ctx, dup)
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)

	// Records without a message ID never collide on it.
	first := testTransaction("manual1", "10", 1)
	first.MessageID = ""
	second := testTransaction("manual2", "11", 1)
	second.MessageID = ""
	require.NoError(t, store.SaveTransaction(ctx, first))
	require.NoError(t, store.SaveTransaction(ctx, second))
}

func TestSaveTransaction_Validation(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*model.Transaction)
	}{
		{name: "missing id", mutate: func(txn *model.Transaction) { txn.ID = "" }},
		{name: "missing date", mutate: func(txn *model.Transaction) { txn.OccurredOn = time.Time{} }},
		{name: "zero amount", mutate: func(txn *model.Transaction) { txn.Amount = decimal.Zero }},
		{name: "negative amount", mutate: func(txn *model.Transaction) { txn.Amount = decimal.NewFromInt(-5) }},
		{name: "bad direction", mutate: func(txn *model.Transaction) { txn.Direction = "sideways" }},
		{name: "bad context", mutate: func(txn *model.Transaction) { txn.ContextTag = "OFFICE" }},
		{name: "missing category", mutate: func(txn *model.Transaction) { txn.Category = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := testTransaction("bad", "10", 1)
			tt.mutate(txn)
			err := store.SaveTransaction(ctx, txn)
			assert.ErrorIs(t, err, ErrInvalidTransaction)
		})
	}

	assert.ErrorIs(t, store.SaveTransaction(ctx, nil), ErrNilParameter)
}

func TestListTransactions(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	for i, amount := range []string{"10", "20", "30", "40"} {
		txn := testTransaction(string(rune('a'+i)), amount, i+1)
		if i%2 == 1 {
			txn.Direction = model.DirectionIncome
			txn.ContextTag = model.ContextClinic
		}
		require.NoError(t, store.SaveTransaction(ctx, txn))
	}

	all, err := store.ListTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "d", all[0].ID, "newest first")

	start := time.Date(2026, time.October, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.October, 3, 0, 0, 0, 0, time.UTC)
	ranged, err := store.ListTransactions(ctx, service.TransactionFilter{StartDate: &start, EndDate: &end})
	require.NoError(t, err)
	require.Len(t, ranged, 2)

	clinic, err := store.ListTransactions(ctx, service.TransactionFilter{ContextTag: model.ContextClinic})
	require.NoError(t, err)
	assert.Len(t, clinic, 2)

	expenses, err := store.ListTransactions(ctx, service.TransactionFilter{Direction: model.DirectionExpense, Limit: 1})
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, "c", expenses[0].ID)

	_, err = store.ListTransactions(ctx, service.TransactionFilter{StartDate: &end, EndDate: &start})
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestGetSummary(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	home := testTransaction("h1", "100.10", 5)
	income := testTransaction("c1", "500", 6)
	income.Direction = model.DirectionIncome
	income.ContextTag = model.ContextClinic
	clinicExpense := testTransaction("c2", "120.40", 7)
	clinicExpense.ContextTag = model.ContextClinic

	for _, txn := range []*model.Transaction{home, income, clinicExpense} {
		require.NoError(t, store.SaveTransaction(ctx, txn))
	}

	start := time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.October, 31, 0, 0, 0, 0, time.UTC)
	summaries, err := store.GetSummary(ctx, start, end)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, model.ContextHome, summaries[0].ContextTag)
	assert.Equal(t, 1, summaries[0].Count)
	assert.Equal(t, "-100.10", summaries[0].Net.StringFixed(2))

	assert.Equal(t, model.ContextClinic, summaries[1].ContextTag)
	assert.Equal(t, 2, summaries[1].Count)
	assert.Equal(t, "500.00", summaries[1].Income.StringFixed(2))
	assert.Equal(t, "120.40", summaries[1].Expenses.StringFixed(2))
	assert.Equal(t, "379.60", summaries[1].Net.StringFixed(2))
}
