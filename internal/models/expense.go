package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxDescriptionLength bounds GroupExpense.Description.
const MaxDescriptionLength = 200

// GroupExpense is one shared expense inside a group, split equally among
// its participants. It is immutable once stored.
type GroupExpense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// GroupID is the group this expense belongs to.
	GroupID string

	// Description is what the money was spent on (e.g., "Groceries").
	Description string

	// Amount is the positive total paid.
	Amount decimal.Decimal

	// Payer is the member ID of whoever paid. The payer does not have to be
	// one of the participants.
	Payer string

	// Participants are the member IDs sharing the expense. Each owes
	// Amount / len(Participants).
	Participants []string

	// Date is the Unix timestamp of the expense.
	Date int64
}

// Normalize canonicalizes identities, trims the description, and removes
// duplicate participants while keeping their first-seen order.
func (e *GroupExpense) Normalize() {
	e.Description = strings.TrimSpace(e.Description)
	e.Payer = NormalizeMemberID(e.Payer)

	seen := make(map[string]bool, len(e.Participants))
	participants := make([]string, 0, len(e.Participants))
	for _, p := range e.Participants {
		p = NormalizeMemberID(p)
		if seen[p] {
			continue
		}
		seen[p] = true
		participants = append(participants, p)
	}
	e.Participants = participants
}

// Validate checks the record against the expense schema. Every failure wraps
// ErrInvalidExpense.
func (e GroupExpense) Validate() error {
	if !e.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidExpense, e.Amount)
	}
	if len(e.Participants) == 0 {
		return fmt.Errorf("%w: at least one participant required", ErrInvalidExpense)
	}
	if e.Payer == "" {
		return fmt.Errorf("%w: payer required", ErrInvalidExpense)
	}
	if strings.TrimSpace(e.Description) == "" {
		return fmt.Errorf("%w: description required", ErrInvalidExpense)
	}
	if len(e.Description) > MaxDescriptionLength {
		return fmt.Errorf("%w: description too long (max %d characters)", ErrInvalidExpense, MaxDescriptionLength)
	}

	seen := make(map[string]bool, len(e.Participants))
	for _, p := range e.Participants {
		if p == "" {
			return fmt.Errorf("%w: empty participant id", ErrInvalidExpense)
		}
		if seen[p] {
			return fmt.Errorf("%w: duplicate participant %q", ErrInvalidExpense, p)
		}
		seen[p] = true
	}
	return nil
}

// HasParticipant reports whether id shares this expense.
func (e GroupExpense) HasParticipant(id string) bool {
	for _, p := range e.Participants {
		if p == id {
			return true
		}
	}
	return false
}
