// Package extract turns free chat text into a structured financial intent.
//
// Extraction is deterministic and table driven: one amount pattern plus the
// keyword tables in Tables. Input that does not look like a financial message
// yields a nil Intent, never an error.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/Veraticus/the-spice-must-chat/internal/model"
	"github.com/shopspring/decimal"
)

var (
	// "R$ 50,00" or "50 reais". Thousands separators are not supported.
	amountPattern = regexp.MustCompile(`(?i)(?:r\$\s*(\d+(?:[.,]\d{1,2})?)|(\d+(?:[.,]\d{1,2})?)\s*(?:reais|real)\b)`)

	datePattern = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2}|\d{4}))?\b`)
)

// Intent is what a message says about one transaction.
type Intent struct {
	OccurredOn  *time.Time
	Amount      decimal.Decimal
	Description string
	Category    string
	Direction   model.TransactionDirection
	ContextTag  model.ContextTag
}

// Extractor applies a fixed set of keyword tables.
type Extractor struct {
	categoryIndex []map[string]struct{}
	tables        Tables
}

// New builds an Extractor from tables.
func New(tables Tables) *Extractor {
	index := make([]map[string]struct{}, len(tables.Categories))
	for i, group := range tables.Categories {
		words := make(map[string]struct{}, len(group.Keywords))
		for _, kw := range group.Keywords {
			words[strings.ToLower(kw)] = struct{}{}
		}
		index[i] = words
	}
	return &Extractor{tables: tables, categoryIndex: index}
}

// Default returns an Extractor over DefaultTables.
func Default() *Extractor {
	return New(DefaultTables())
}

// Extract parses text. A nil result means no amount was found or the amount
// was not positive. now supplies the year for dates written without one.
func (e *Extractor) Extract(text string, now time.Time) *Intent {
	amount, start, end, ok := findAmount(text)
	if !ok {
		return nil
	}

	lower := strings.ToLower(text)
	// The amount itself must not count as a keyword ("99 reais").
	words := wordSet(strings.ToLower(text[:start] + " " + text[end:]))

	intent := &Intent{
		Amount:      amount,
		Direction:   e.direction(lower),
		Description: description(text[end:]),
		Category:    e.category(words),
		ContextTag:  e.contextTag(lower),
	}
	if date, found := findDate(text, now); found {
		intent.OccurredOn = &date
	}
	return intent
}

func findAmount(text string) (decimal.Decimal, int, int, bool) {
	loc := amountPattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return decimal.Zero, 0, 0, false
	}

	var raw string
	switch {
	case loc[2] >= 0:
		raw = text[loc[2]:loc[3]]
	case loc[4] >= 0:
		raw = text[loc[4]:loc[5]]
	default:
		return decimal.Zero, 0, 0, false
	}

	amount, err := decimal.NewFromString(strings.Replace(raw, ",", ".", 1))
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, 0, 0, false
	}
	return amount.Round(2), loc[0], loc[1], true
}

func description(rest string) string {
	line, _, _ := strings.Cut(rest, "\n")
	return strings.TrimFunc(line, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune("-–:,.;", r)
	})
}

func (e *Extractor) direction(lower string) model.TransactionDirection {
	for _, kw := range e.tables.IncomeKeywords {
		if strings.Contains(lower, kw) {
			return model.DirectionIncome
		}
	}
	return model.DirectionExpense
}

func (e *Extractor) category(words map[string]struct{}) string {
	for i, group := range e.tables.Categories {
		for word := range words {
			if _, ok := e.categoryIndex[i][word]; ok {
				return group.Category
			}
		}
	}
	return model.DefaultCategory
}

func (e *Extractor) contextTag(lower string) model.ContextTag {
	for _, kw := range e.tables.ClinicKeywords {
		if strings.Contains(lower, kw) {
			return model.ContextClinic
		}
	}
	return model.ContextHome
}

func findDate(text string, now time.Time) (time.Time, bool) {
	m := datePattern.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}

	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year := now.Year()
	if m[3] != "" {
		year, _ = strconv.Atoi(m[3])
		if len(m[3]) == 2 {
			year += 2000
		}
	}

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
	// time.Date normalizes 31/02 into March; reject instead.
	if date.Day() != day || int(date.Month()) != month {
		return time.Time{}, false
	}
	return date, true
}

func wordSet(lower string) map[string]struct{} {
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

var defaultExtractor = Default()

// Extract parses text with the default tables.
func Extract(text string, now time.Time) *Intent {
	return defaultExtractor.Extract(text, now)
}
