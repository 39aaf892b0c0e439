package storage

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splittrack/internal/models"
)

// Unavailable wraps a backend failure so callers can match ErrUnavailable
// while keeping the driver error in the chain.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// CheckExpenses validates records read back from a backend. A malformed
// record fails the whole read instead of being dropped.
func CheckExpenses(expenses []models.GroupExpense) error {
	for _, e := range expenses {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("stored expense %s: %w", e.ID, err)
		}
	}
	return nil
}

// ParseAmount decodes a stored decimal amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: bad amount %q", models.ErrInvalidExpense, s)
	}
	return d, nil
}
