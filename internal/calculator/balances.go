package calculator

import (
	"math/big"
	"sort"

	"github.com/mmynk/splittrack/internal/models"
)

// MemberBalance is one member's position inside a group.
// All values are exact; rounding belongs to the presentation layer.
type MemberBalance struct {
	MemberID string
	Paid     *big.Rat // Total paid as payer
	Owed     *big.Rat // Total of shares owed as participant
}

// Net returns Paid - Owed. Positive = owed money, negative = owes money.
func (b *MemberBalance) Net() *big.Rat {
	return new(big.Rat).Sub(b.Paid, b.Owed)
}

// GroupBalances maps member ID to its balance within one group.
type GroupBalances map[string]*MemberBalance

// Net returns the net balance per member.
func (g GroupBalances) Net() map[string]*big.Rat {
	out := make(map[string]*big.Rat, len(g))
	for id, b := range g {
		out[id] = b.Net()
	}
	return out
}

// Sum adds every member's net balance. For a computed GroupBalances it is
// always exactly zero.
func (g GroupBalances) Sum() *big.Rat {
	sum := new(big.Rat)
	for _, b := range g {
		sum.Add(sum, b.Paid)
		sum.Sub(sum, b.Owed)
	}
	return sum
}

// IDs returns the member IDs in sorted order.
func (g GroupBalances) IDs() []string {
	ids := make([]string, 0, len(g))
	for id := range g {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a deep copy that shares no *big.Rat with g.
func (g GroupBalances) Clone() GroupBalances {
	out := make(GroupBalances, len(g))
	for id, b := range g {
		out[id] = &MemberBalance{
			MemberID: b.MemberID,
			Paid:     new(big.Rat).Set(b.Paid),
			Owed:     new(big.Rat).Set(b.Owed),
		}
	}
	return out
}

func (g GroupBalances) entry(id string) *MemberBalance {
	b, ok := g[id]
	if !ok {
		b = &MemberBalance{MemberID: id, Paid: new(big.Rat), Owed: new(big.Rat)}
		g[id] = b
	}
	return b
}

// ComputeGroupBalances computes every member's net balance over one group's
// expenses.
//
// Algorithm:
//   - every listed member starts at zero and stays in the result
//   - for each expense the payer is credited the full amount
//   - each participant is debited amount / len(participants)
//   - identities that appear only in expenses are included as well
//
// Arithmetic is exact, so the balances always sum to zero and the result does
// not depend on expense order. Any invalid expense, or one from a different
// group, fails the whole computation with an error wrapping
// models.ErrInvalidExpense.
func ComputeGroupBalances(groupID string, members []string, expenses []models.GroupExpense) (GroupBalances, error) {
	balances := make(GroupBalances, len(members))
	for _, id := range members {
		balances.entry(id)
	}

	for _, expense := range expenses {
		if err := validate(groupID, expense); err != nil {
			return nil, err
		}

		payer := balances.entry(expense.Payer)
		payer.Paid.Add(payer.Paid, expense.Amount.Rat())

		share := Share(expense)
		for _, p := range expense.Participants {
			participant := balances.entry(p)
			participant.Owed.Add(participant.Owed, share)
		}
	}

	return balances, nil
}
