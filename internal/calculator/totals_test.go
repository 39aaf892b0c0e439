package calculator

import (
	"errors"
	"math/big"
	"math/rand"
	"testing"

	"github.com/mmynk/splittrack/internal/models"
)

func TestComputeUserTotals(t *testing.T) {
	tests := []struct {
		name          string
		uid           string
		expenses      []models.GroupExpense
		wantOwed      string
		wantOwe       string
		wantBreakdown map[string]string
	}{
		{
			name:          "user paid for everyone",
			uid:           alice,
			expenses:      []models.GroupExpense{expense("e1", "30", alice, alice, bob, charlie)},
			wantOwed:      "20",
			wantOwe:       "0",
			wantBreakdown: map[string]string{bob: "10", charlie: "10"},
		},
		{
			name:          "someone else paid",
			uid:           bob,
			expenses:      []models.GroupExpense{expense("e1", "30", alice, alice, bob, charlie)},
			wantOwed:      "0",
			wantOwe:       "10",
			wantBreakdown: map[string]string{alice: "-10"},
		},
		{
			name: "contributions with one counterparty net out",
			uid:  alice,
			expenses: []models.GroupExpense{
				expense("e1", "60", alice, alice, bob, charlie),
				expense("e2", "30", bob, alice, bob),
			},
			wantOwed:      "40",
			wantOwe:       "15",
			wantBreakdown: map[string]string{bob: "5", charlie: "20"},
		},
		{
			name:          "user not a participant is ignored",
			uid:           alice,
			expenses:      []models.GroupExpense{expense("e1", "10", alice, bob)},
			wantOwed:      "0",
			wantOwe:       "0",
			wantBreakdown: map[string]string{},
		},
		{
			name:          "user in no expense",
			uid:           diana,
			expenses:      []models.GroupExpense{expense("e1", "30", alice, alice, bob, charlie)},
			wantOwed:      "0",
			wantOwe:       "0",
			wantBreakdown: map[string]string{},
		},
		{
			name:          "no expenses at all",
			uid:           alice,
			wantOwed:      "0",
			wantOwe:       "0",
			wantBreakdown: map[string]string{},
		},
		{
			name:          "paying only for yourself owes nobody",
			uid:           alice,
			expenses:      []models.GroupExpense{expense("e1", "12", alice, alice)},
			wantOwed:      "0",
			wantOwe:       "0",
			wantBreakdown: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals, err := ComputeUserTotals(tt.uid, tt.expenses)
			if err != nil {
				t.Fatalf("ComputeUserTotals failed: %v", err)
			}
			if totals.TotalOwed.Cmp(rat(tt.wantOwed)) != 0 {
				t.Errorf("TotalOwed = %s, want %s", totals.TotalOwed.RatString(), tt.wantOwed)
			}
			if totals.TotalOwe.Cmp(rat(tt.wantOwe)) != 0 {
				t.Errorf("TotalOwe = %s, want %s", totals.TotalOwe.RatString(), tt.wantOwe)
			}
			if len(totals.Breakdown) != len(tt.wantBreakdown) {
				t.Errorf("breakdown: expected %d entries, got %v", len(tt.wantBreakdown), totals.Counterparties())
			}
			for id, w := range tt.wantBreakdown {
				got, ok := totals.Breakdown[id]
				if !ok {
					t.Errorf("breakdown: missing %s", id)
					continue
				}
				if got.Cmp(rat(w)) != 0 {
					t.Errorf("breakdown[%s] = %s, want %s", id, got.RatString(), w)
				}
			}
		})
	}
}

func TestComputeUserTotals_InvalidExpense(t *testing.T) {
	_, err := ComputeUserTotals(alice, []models.GroupExpense{
		expense("e1", "30", alice, alice, bob),
		expense("e2", "0", bob, alice, bob),
	})
	if !errors.Is(err, models.ErrInvalidExpense) {
		t.Fatalf("expected ErrInvalidExpense, got %v", err)
	}
}

func TestComputeUserTotals_NetMatchesBreakdown(t *testing.T) {
	r := rand.New(rand.NewSource(99))
	for round := 0; round < 30; round++ {
		expenses := randomExpenses(r, 1+r.Intn(40))
		for i := range expenses {
			// Spread expenses over several groups; totals are cross-group.
			expenses[i].GroupID = []string{"g1", "g2", "g3"}[r.Intn(3)]
		}

		for _, uid := range []string{alice, bob, charlie, diana} {
			totals, err := ComputeUserTotals(uid, expenses)
			if err != nil {
				t.Fatalf("ComputeUserTotals failed: %v", err)
			}
			if totals.TotalOwed.Sign() < 0 || totals.TotalOwe.Sign() < 0 {
				t.Fatalf("%s: totals must be non-negative, got owed=%s owe=%s",
					uid, totals.TotalOwed.RatString(), totals.TotalOwe.RatString())
			}
			sum := new(big.Rat)
			for _, v := range totals.Breakdown {
				sum.Add(sum, v)
			}
			if sum.Cmp(totals.Net()) != 0 {
				t.Fatalf("%s: breakdown sums to %s, net is %s", uid, sum.RatString(), totals.Net().RatString())
			}
		}
	}
}

// For a user in a single group whose expenses always include the payer,
// the cross-group breakdown decomposes the user's group balance.
func TestComputeUserTotals_ConsistentWithGroupBalances(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	expenses := randomExpenses(r, 40)
	for i := range expenses {
		if !expenses[i].HasParticipant(expenses[i].Payer) {
			expenses[i].Participants = append(expenses[i].Participants, expenses[i].Payer)
		}
	}

	members := []string{alice, bob, charlie, diana}
	balances, err := ComputeGroupBalances("g1", members, expenses)
	if err != nil {
		t.Fatalf("ComputeGroupBalances failed: %v", err)
	}

	for _, uid := range members {
		totals, err := ComputeUserTotals(uid, expenses)
		if err != nil {
			t.Fatalf("ComputeUserTotals failed: %v", err)
		}
		if got, want := totals.Net(), balances[uid].Net(); got.Cmp(want) != 0 {
			t.Errorf("%s: cross-group net %s, group balance %s", uid, got.RatString(), want.RatString())
		}
	}
}
