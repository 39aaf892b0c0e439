package calculator

import (
	"errors"
	"fmt"
	"math/big"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splittrack/internal/models"
)

const (
	alice   = "alice@example.com"
	bob     = "bob@example.com"
	charlie = "charlie@example.com"
	diana   = "diana@example.com"
)

func rat(s string) *big.Rat {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		panic("bad rational " + s)
	}
	return r
}

func expense(id, amount, payer string, participants ...string) models.GroupExpense {
	return models.GroupExpense{
		ID:           id,
		GroupID:      "g1",
		Description:  "expense " + id,
		Amount:       decimal.RequireFromString(amount),
		Payer:        payer,
		Participants: participants,
	}
}

func assertNet(t *testing.T, balances GroupBalances, want map[string]string) {
	t.Helper()
	if len(balances) != len(want) {
		t.Errorf("expected %d members, got %d (%v)", len(want), len(balances), balances.IDs())
	}
	for id, w := range want {
		b, ok := balances[id]
		if !ok {
			t.Errorf("%s: missing from balances", id)
			continue
		}
		if got := b.Net(); got.Cmp(rat(w)) != 0 {
			t.Errorf("%s: net = %s, want %s", id, got.RatString(), w)
		}
	}
}

func TestComputeGroupBalances(t *testing.T) {
	tests := []struct {
		name     string
		members  []string
		expenses []models.GroupExpense
		want     map[string]string
		wantErr  bool
	}{
		{
			name:     "one expense split three ways",
			members:  []string{alice, bob, charlie},
			expenses: []models.GroupExpense{expense("e1", "30", alice, alice, bob, charlie)},
			want:     map[string]string{alice: "20", bob: "-10", charlie: "-10"},
		},
		{
			name:     "payer is not a participant",
			members:  []string{alice, bob},
			expenses: []models.GroupExpense{expense("e1", "10", alice, bob)},
			want:     map[string]string{alice: "10", bob: "-10"},
		},
		{
			name:    "two expenses accumulate",
			members: []string{alice, bob, charlie},
			expenses: []models.GroupExpense{
				expense("e1", "60", alice, alice, bob, charlie),
				expense("e2", "30", bob, alice, bob),
			},
			want: map[string]string{alice: "25", bob: "-5", charlie: "-20"},
		},
		{
			name:     "member without expenses is included at zero",
			members:  []string{alice, bob, diana},
			expenses: []models.GroupExpense{expense("e1", "12.50", bob, alice, bob)},
			want:     map[string]string{alice: "-6.25", bob: "6.25", diana: "0"},
		},
		{
			name:     "identity outside the member list is still counted",
			members:  []string{alice},
			expenses: []models.GroupExpense{expense("e1", "8", alice, alice, charlie)},
			want:     map[string]string{alice: "4", charlie: "-4"},
		},
		{
			name:     "uneven split keeps full precision",
			members:  []string{alice, bob, charlie},
			expenses: []models.GroupExpense{expense("e1", "10", alice, alice, bob, charlie)},
			want:     map[string]string{alice: "20/3", bob: "-10/3", charlie: "-10/3"},
		},
		{
			name:     "no expenses",
			members:  []string{alice, bob},
			expenses: nil,
			want:     map[string]string{alice: "0", bob: "0"},
		},
		{
			name:     "zero amount fails",
			members:  []string{alice, bob},
			expenses: []models.GroupExpense{expense("e1", "0", alice, alice, bob)},
			wantErr:  true,
		},
		{
			name:    "one bad record fails the whole group",
			members: []string{alice, bob},
			expenses: []models.GroupExpense{
				expense("e1", "20", alice, alice, bob),
				expense("e2", "5", bob),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			balances, err := ComputeGroupBalances("g1", tt.members, tt.expenses)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ComputeGroupBalances() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, models.ErrInvalidExpense) {
					t.Errorf("expected ErrInvalidExpense, got %v", err)
				}
				if balances != nil {
					t.Error("expected no partial result on error")
				}
				return
			}
			assertNet(t, balances, tt.want)
			if sum := balances.Sum(); sum.Sign() != 0 {
				t.Errorf("balances sum to %s, want 0", sum.RatString())
			}
		})
	}
}

func TestComputeGroupBalances_PaidAndOwed(t *testing.T) {
	balances, err := ComputeGroupBalances("g1", []string{alice, bob, charlie}, []models.GroupExpense{
		expense("e1", "60", alice, alice, bob, charlie),
		expense("e2", "30", bob, alice, bob),
	})
	if err != nil {
		t.Fatalf("ComputeGroupBalances failed: %v", err)
	}

	a := balances[alice]
	if a.Paid.Cmp(rat("60")) != 0 {
		t.Errorf("alice paid = %s, want 60", a.Paid.RatString())
	}
	if a.Owed.Cmp(rat("35")) != 0 {
		t.Errorf("alice owed = %s, want 35", a.Owed.RatString())
	}
}

func TestComputeGroupBalances_ForeignExpense(t *testing.T) {
	e := expense("e1", "10", alice, alice, bob)
	e.GroupID = "other"

	_, err := ComputeGroupBalances("g1", []string{alice, bob}, []models.GroupExpense{e})
	if !errors.Is(err, models.ErrInvalidExpense) {
		t.Fatalf("expected ErrInvalidExpense, got %v", err)
	}

	var expErr *ExpenseError
	if !errors.As(err, &expErr) {
		t.Fatalf("expected *ExpenseError, got %T", err)
	}
	if expErr.ExpenseID != "e1" {
		t.Errorf("expense id: expected 'e1', got %q", expErr.ExpenseID)
	}
}

// randomExpenses builds a reproducible set of valid expenses with awkward
// amounts and participant counts.
func randomExpenses(r *rand.Rand, n int) []models.GroupExpense {
	people := []string{alice, bob, charlie, diana}
	expenses := make([]models.GroupExpense, n)
	for i := range expenses {
		perm := r.Perm(len(people))
		count := 1 + r.Intn(len(people))
		participants := make([]string, count)
		for j := 0; j < count; j++ {
			participants[j] = people[perm[j]]
		}
		cents := 1 + r.Intn(100000)
		expenses[i] = expense(
			fmt.Sprintf("e%d", i),
			decimal.New(int64(cents), -2).String(),
			people[r.Intn(len(people))],
			participants...,
		)
	}
	return expenses
}

func TestComputeGroupBalances_Conservation(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		expenses := randomExpenses(r, 1+r.Intn(30))
		balances, err := ComputeGroupBalances("g1", []string{alice, bob, charlie, diana}, expenses)
		if err != nil {
			t.Fatalf("round %d: ComputeGroupBalances failed: %v", round, err)
		}
		if sum := balances.Sum(); sum.Sign() != 0 {
			t.Fatalf("round %d: balances sum to %s, want exactly 0", round, sum.RatString())
		}
	}
}

func TestComputeGroupBalances_OrderIndependentAndIdempotent(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	expenses := randomExpenses(r, 25)
	members := []string{alice, bob, charlie, diana}

	first, err := ComputeGroupBalances("g1", members, expenses)
	if err != nil {
		t.Fatalf("ComputeGroupBalances failed: %v", err)
	}

	again, err := ComputeGroupBalances("g1", members, expenses)
	if err != nil {
		t.Fatalf("ComputeGroupBalances failed: %v", err)
	}

	shuffled := append([]models.GroupExpense(nil), expenses...)
	r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	permuted, err := ComputeGroupBalances("g1", members, shuffled)
	if err != nil {
		t.Fatalf("ComputeGroupBalances failed: %v", err)
	}

	for _, id := range first.IDs() {
		want := first[id].Net()
		if got := again[id].Net(); got.Cmp(want) != 0 {
			t.Errorf("%s: recomputation gave %s, want %s", id, got.RatString(), want.RatString())
		}
		if got := permuted[id].Net(); got.Cmp(want) != 0 {
			t.Errorf("%s: permuted input gave %s, want %s", id, got.RatString(), want.RatString())
		}
	}
}
