package router

import (
	"fmt"
	"strings"

	"github.com/Veraticus/the-spice-must-chat/internal/model"
	"github.com/shopspring/decimal"
)

const (
	helpMessage = "Não entendi sua mensagem. 🤔\n\n" +
		"Envie o valor e uma descrição, por exemplo:\n" +
		"• gastei R$ 50,00 no mercado\n" +
		"• recebi 200 reais da clínica\n" +
		"• 35 reais uber 12/03\n\n" +
		"Também aceito áudios."

	transcriptionApology = "Desculpe, não consegui entender o áudio. 😕\n" +
		"Pode enviar de novo ou escrever a mensagem?"
)

// FormatAmount renders amount the Brazilian way, as "R$ 1234,50".
func FormatAmount(amount decimal.Decimal) string {
	return "R$ " + strings.Replace(amount.StringFixed(2), ".", ",", 1)
}

// ContextLabel is the reply wording for a context tag.
func ContextLabel(tag model.ContextTag) string {
	if tag == model.ContextClinic {
		return "Clínica"
	}
	return "Casa"
}

func directionLabel(direction model.TransactionDirection) string {
	if direction == model.DirectionIncome {
		return "Receita"
	}
	return "Despesa"
}

func confirmationMessage(txn model.Transaction) string {
	var b strings.Builder
	b.WriteString("✅ Registrado!\n\n")
	fmt.Fprintf(&b, "💰 %s: %s\n", directionLabel(txn.Direction), FormatAmount(txn.Amount))
	fmt.Fprintf(&b, "📅 %s\n", txn.OccurredOn.Format("02/01/2006"))
	if txn.Description != "" {
		fmt.Fprintf(&b, "📝 %s\n", txn.Description)
	}
	fmt.Fprintf(&b, "🏷️ %s\n", txn.Category)
	fmt.Fprintf(&b, "📍 %s", ContextLabel(txn.ContextTag))
	return b.String()
}
