// Package storage provides the data persistence layer for the application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/the-spice-must-chat/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrInvalidDateRange   = errors.New("start date must be before end date")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidStatus      = errors.New("invalid connection status")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTransaction)
	}
	if txn.OccurredOn.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if !txn.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidTransaction, txn.Amount)
	}
	if txn.Direction != model.DirectionIncome && txn.Direction != model.DirectionExpense {
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidTransaction, txn.Direction)
	}
	if txn.ContextTag != model.ContextHome && txn.ContextTag != model.ContextClinic {
		return fmt.Errorf("%w: unknown context tag %q", ErrInvalidTransaction, txn.ContextTag)
	}
	if txn.Category == "" {
		return fmt.Errorf("%w: missing category", ErrInvalidTransaction)
	}
	return nil
}

// validateStatus validates a published connection status.
func validateStatus(record model.StatusRecord) error {
	switch record.Status {
	case model.StatusWaitingQR, model.StatusConnecting, model.StatusConnected, model.StatusDisconnected:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, record.Status)
	}
	if record.UpdatedAt.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidStatus)
	}
	return nil
}
