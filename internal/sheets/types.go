package sheets

import (
	"time"

	"github.com/Veraticus/the-spice-must-chat/internal/model"
	"github.com/Veraticus/the-spice-must-chat/internal/service"
	"github.com/shopspring/decimal"
)

// LedgerHeader is the first row of the ledger tab.
var LedgerHeader = []any{
	"Data", "Tipo", "Valor", "Categoria", "Descrição", "Contexto", "Remetente", "Origem", "ID", "Mensagem",
}

// SummaryHeader is the first row of the summary tab.
var SummaryHeader = []any{
	"Início", "Fim", "Contexto", "Receitas", "Despesas", "Saldo", "Lançamentos",
}

// LedgerRow represents a single row in the ledger tab.
type LedgerRow struct {
	Date        time.Time
	Amount      decimal.Decimal
	Direction   string
	Category    string
	Description string
	Context     string
	SenderName  string
	Source      string
	ID          string
	MessageID   string
}

// NewLedgerRow converts a transaction.
func NewLedgerRow(txn model.Transaction) LedgerRow {
	direction := "Despesa"
	if txn.IsIncome() {
		direction = "Receita"
	}
	return LedgerRow{
		Date:        txn.OccurredOn,
		Amount:      txn.Amount,
		Direction:   direction,
		Category:    txn.Category,
		Description: txn.Description,
		Context:     string(txn.ContextTag),
		SenderName:  txn.SenderName,
		Source:      txn.Source,
		ID:          txn.ID,
		MessageID:   txn.MessageID,
	}
}

// Values renders the row for the Sheets API. Amounts are written as numbers.
func (r LedgerRow) Values() []any {
	return []any{
		r.Date.Format("2006-01-02"),
		r.Direction,
		r.Amount.InexactFloat64(),
		r.Category,
		r.Description,
		r.Context,
		r.SenderName,
		r.Source,
		r.ID,
		r.MessageID,
	}
}

// SummaryRow represents a single row in the summary tab.
type SummaryRow struct {
	Start    time.Time
	End      time.Time
	Income   decimal.Decimal
	Expenses decimal.Decimal
	Net      decimal.Decimal
	Context  string
	Count    int
}

// NewSummaryRow converts a period summary.
func NewSummaryRow(s service.PeriodSummary) SummaryRow {
	return SummaryRow{
		Start:    s.Start,
		End:      s.End,
		Income:   s.Income,
		Expenses: s.Expenses,
		Net:      s.Net,
		Context:  string(s.ContextTag),
		Count:    s.Count,
	}
}

// Values renders the row for the Sheets API.
func (r SummaryRow) Values() []any {
	return []any{
		r.Start.Format("2006-01-02"),
		r.End.Format("2006-01-02"),
		r.Context,
		r.Income.InexactFloat64(),
		r.Expenses.InexactFloat64(),
		r.Net.InexactFloat64(),
		r.Count,
	}
}
