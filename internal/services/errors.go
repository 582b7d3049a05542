package services

import (
	"errors"
	"fmt"

	"luckyenvelope/internal/models"
)

// Errors returned by EnvelopeService. Callers match them with errors.Is.
var (
	// ErrValidation means the code is missing or malformed.
	ErrValidation = errors.New("invalid code format")

	// ErrNotFound means no record carries the code.
	ErrNotFound = errors.New("record not found")

	// ErrConflict means the requested transition is not allowed from the
	// current status. See ConflictError.
	ErrConflict = errors.New("status transition not allowed")

	// ErrBusy means another update for the same code is in flight.
	ErrBusy = errors.New("request is being processed")

	// ErrOutOfStock means no prize kind had remaining stock.
	ErrOutOfStock = errors.New("all prizes are out of stock")

	// ErrStore wraps a failed lookup, patch or count against the store.
	ErrStore = errors.New("record store failure")
)

// ConflictError rejects a transition. Prize fields are set when the
// participant already holds a prize.
type ConflictError struct {
	Current   models.Status
	PrizeID   string
	PrizeName string
}

// Error implements error.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: current status %s", ErrConflict, e.Current)
}

// Is reports whether target is ErrConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}
