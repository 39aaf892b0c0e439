package calculator

import (
	"fmt"
	"math/big"

	"github.com/mmynk/splittrack/internal/models"
)

// Share computes the exact amount each participant owes for an expense:
// amount / len(participants). The expense must be valid.
func Share(expense models.GroupExpense) *big.Rat {
	share := expense.Amount.Rat()
	return share.Quo(share, new(big.Rat).SetInt64(int64(len(expense.Participants))))
}

// validate runs the schema check and, when groupID is set, verifies the
// expense belongs to that group. Mixing groups would break conservation of
// the group's balances.
func validate(groupID string, expense models.GroupExpense) error {
	if err := expense.Validate(); err != nil {
		return &ExpenseError{ExpenseID: expense.ID, Err: err}
	}
	if groupID != "" && expense.GroupID != groupID {
		return &ExpenseError{
			ExpenseID: expense.ID,
			Err:       fmt.Errorf("%w: belongs to group %q, not %q", models.ErrInvalidExpense, expense.GroupID, groupID),
		}
	}
	return nil
}

// credit adds amount to m[id], creating the entry on first use.
func credit(m map[string]*big.Rat, id string, amount *big.Rat) {
	bal, ok := m[id]
	if !ok {
		bal = new(big.Rat)
		m[id] = bal
	}
	bal.Add(bal, amount)
}

// debit subtracts amount from m[id], creating the entry on first use.
func debit(m map[string]*big.Rat, id string, amount *big.Rat) {
	bal, ok := m[id]
	if !ok {
		bal = new(big.Rat)
		m[id] = bal
	}
	bal.Sub(bal, amount)
}
