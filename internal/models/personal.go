package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCategory is stored when a personal expense names no category.
const DefaultCategory = "Other"

// MaxCategoryLength bounds Expense.Category.
const MaxCategoryLength = 50

// Expense is an entry in one user's personal ledger. It is never split and
// never counts toward group balances.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// UserID is the identity (email) that owns the entry.
	UserID string

	Description string

	// Amount is the positive total spent.
	Amount decimal.Decimal

	// Category is a free-form label such as "Food"; DefaultCategory when empty.
	Category string

	// Date is the Unix timestamp of the expense.
	Date int64
}

// Normalize canonicalizes the owner, trims text fields, and fills in the
// default category.
func (e *Expense) Normalize() {
	e.UserID = NormalizeMemberID(e.UserID)
	e.Description = strings.TrimSpace(e.Description)
	e.Category = strings.TrimSpace(e.Category)
	if e.Category == "" {
		e.Category = DefaultCategory
	}
}

// Validate checks the entry. Every failure wraps ErrInvalidExpense.
func (e Expense) Validate() error {
	if e.UserID == "" {
		return fmt.Errorf("%w: owner required", ErrInvalidExpense)
	}
	if !e.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidExpense, e.Amount)
	}
	if strings.TrimSpace(e.Description) == "" {
		return fmt.Errorf("%w: description required", ErrInvalidExpense)
	}
	if len(e.Description) > MaxDescriptionLength {
		return fmt.Errorf("%w: description too long (max %d characters)", ErrInvalidExpense, MaxDescriptionLength)
	}
	if len(e.Category) > MaxCategoryLength {
		return fmt.Errorf("%w: category too long (max %d characters)", ErrInvalidExpense, MaxCategoryLength)
	}
	return nil
}
