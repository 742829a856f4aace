package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/Veraticus/the-spice-must-chat/internal/model"
	"github.com/Veraticus/the-spice-must-chat/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderStatus(t *testing.T) {
	now := time.Date(2024, time.March, 10, 9, 0, 30, 0, time.UTC)

	tests := []struct {
		name        string
		record      model.StatusRecord
		contains    []string
		notContains []string
	}{
		{
			name:     "waiting shows pairing payload",
			record:   model.StatusRecord{Status: model.StatusWaitingQR, PairingPayload: "2@abc", UpdatedAt: now.Add(-30 * time.Second)},
			contains: []string{"waiting_qr", "2@abc", "30s ago"},
		},
		{
			name:        "connected hides payload",
			record:      model.StatusRecord{Status: model.StatusConnected, PairingPayload: "2@abc", UpdatedAt: now},
			contains:    []string{"connected"},
			notContains: []string{"2@abc"},
		},
		{
			name:        "never published",
			record:      model.StatusRecord{Status: model.StatusDisconnected},
			contains:    []string{"disconnected"},
			notContains: []string{"Updated"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := RenderStatus(tt.record, now)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.notContains {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestRenderTransactions(t *testing.T) {
	assert.Contains(t, RenderTransactions(nil), "No transactions")

	out := RenderTransactions([]model.Transaction{{
		OccurredOn:  time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC),
		Amount:      decimal.RequireFromString("50"),
		Direction:   model.DirectionExpense,
		ContextTag:  model.ContextHome,
		Category:    "Alimentação",
		Description: "mercado",
	}})
	assert.Contains(t, out, "2024-03-05")
	assert.Contains(t, out, "50.00")
	assert.Contains(t, out, "mercado")
}

func TestRenderSummaries(t *testing.T) {
	out := RenderSummaries([]service.PeriodSummary{{
		ContextTag: model.ContextClinic,
		Income:     decimal.NewFromInt(300),
		Expenses:   decimal.NewFromInt(100),
		Net:        decimal.NewFromInt(200),
		Count:      4,
	}})
	assert.Contains(t, out, "CLINIC")
	assert.Contains(t, out, "200.00")
	assert.Contains(t, out, "(4)")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "curto", truncate("curto", 10))
	assert.Equal(t, "Alimentaç…", truncate("Alimentação", 10))
}

func TestProgressFunc(t *testing.T) {
	var buf bytes.Buffer
	bar := NewProgressBar(&buf, 3, "Syncing")
	progress := ProgressFunc(bar)

	progress(2)
	progress(1)

	require.True(t, bar.IsFinished())
}
