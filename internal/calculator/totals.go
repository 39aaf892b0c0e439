package calculator

import (
	"math/big"
	"sort"

	"github.com/mmynk/splittrack/internal/models"
)

// UserTotals is one user's position across all of their groups.
type UserTotals struct {
	UserID string

	// TotalOwed is what others owe the user. Never negative.
	TotalOwed *big.Rat

	// TotalOwe is what the user owes others. Never negative.
	TotalOwe *big.Rat

	// Breakdown maps counterparty identity to the signed amount between them.
	// Positive = the counterparty owes the user.
	Breakdown map[string]*big.Rat
}

// Net returns TotalOwed - TotalOwe, which equals the sum of Breakdown.
func (t UserTotals) Net() *big.Rat {
	return new(big.Rat).Sub(t.TotalOwed, t.TotalOwe)
}

// Counterparties returns the breakdown keys in sorted order.
func (t UserTotals) Counterparties() []string {
	ids := make([]string, 0, len(t.Breakdown))
	for id := range t.Breakdown {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ComputeUserTotals accumulates what uid owes and is owed across expenses
// from any number of groups.
//
// Only expenses that list uid as a participant count. When uid paid, every
// other participant owes uid their share. Otherwise uid owes the payer one
// share. Contributions are paired payer/participant per expense; chains such
// as "A owes B, B owes C" are not netted.
//
// The breakdown is keyed by identity so the same person seen in two groups is
// one counterparty. Any invalid expense fails the whole computation.
func ComputeUserTotals(uid string, expenses []models.GroupExpense) (UserTotals, error) {
	totals := UserTotals{
		UserID:    uid,
		TotalOwed: new(big.Rat),
		TotalOwe:  new(big.Rat),
		Breakdown: make(map[string]*big.Rat),
	}

	for _, expense := range expenses {
		if err := validate("", expense); err != nil {
			return UserTotals{}, err
		}
		if !expense.HasParticipant(uid) {
			continue
		}

		share := Share(expense)
		if expense.Payer == uid {
			for _, p := range expense.Participants {
				if p == uid {
					continue
				}
				credit(totals.Breakdown, p, share)
				totals.TotalOwed.Add(totals.TotalOwed, share)
			}
			continue
		}

		debit(totals.Breakdown, expense.Payer, share)
		totals.TotalOwe.Add(totals.TotalOwe, share)
	}

	return totals, nil
}
