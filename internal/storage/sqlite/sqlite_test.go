package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splittrack/internal/models"
	"github.com/mmynk/splittrack/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "splittrack-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_Groups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateGroup generates ID and timestamp", func(t *testing.T) {
		group := &models.Group{
			Name:      "Roommates",
			CreatedBy: "alice@example.com",
			Members: []models.Member{
				{ID: "alice@example.com", Nickname: "Alice"},
				{ID: "bob@example.com", Nickname: "Bob"},
			},
		}
		if err := store.CreateGroup(ctx, group); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		if group.ID == "" {
			t.Error("Expected group ID to be generated")
		}
		if group.CreatedAt == 0 {
			t.Error("Expected CreatedAt to be set")
		}

		got, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if got.Name != "Roommates" || got.CreatedBy != "alice@example.com" {
			t.Errorf("unexpected group: %+v", got)
		}
		if len(got.Members) != 2 || got.Members[0].ID != "alice@example.com" || got.Members[1].Nickname != "Bob" {
			t.Errorf("unexpected members: %+v", got.Members)
		}
	})

	t.Run("GetGroup returns ErrNotFound", func(t *testing.T) {
		_, err := store.GetGroup(ctx, "nonexistent-id")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
		_, err = store.ListGroupMembers(ctx, "nonexistent-id")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound from ListGroupMembers, got %v", err)
		}
	})

	t.Run("AddGroupMembers keeps existing nicknames", func(t *testing.T) {
		group := &models.Group{
			Name:      "Trip",
			CreatedBy: "carol@example.com",
			Members:   []models.Member{{ID: "carol@example.com", Nickname: "Carol"}},
		}
		if err := store.CreateGroup(ctx, group); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}

		err := store.AddGroupMembers(ctx, group.ID, []models.Member{
			{ID: "carol@example.com", Nickname: "Renamed"},
			{ID: "dave@example.com", Nickname: "Dave"},
		})
		if err != nil {
			t.Fatalf("AddGroupMembers failed: %v", err)
		}

		members, err := store.ListGroupMembers(ctx, group.ID)
		if err != nil {
			t.Fatalf("ListGroupMembers failed: %v", err)
		}
		if len(members) != 2 {
			t.Fatalf("Expected 2 members, got %d", len(members))
		}
		if members[0].Nickname != "Carol" {
			t.Errorf("Expected nickname to stay 'Carol', got %q", members[0].Nickname)
		}
		if members[1].ID != "dave@example.com" {
			t.Errorf("Expected dave appended last, got %q", members[1].ID)
		}

		if err := store.AddGroupMembers(ctx, "nonexistent-id", members); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound for unknown group, got %v", err)
		}
	})

	t.Run("ListGroupsForMember returns newest first with all members", func(t *testing.T) {
		older := &models.Group{Name: "Older", CreatedBy: "erin@example.com", CreatedAt: 100,
			Members: []models.Member{{ID: "erin@example.com"}, {ID: "frank@example.com"}}}
		newer := &models.Group{Name: "Newer", CreatedBy: "erin@example.com", CreatedAt: 200,
			Members: []models.Member{{ID: "erin@example.com"}}}
		other := &models.Group{Name: "Other", CreatedBy: "frank@example.com", CreatedAt: 300,
			Members: []models.Member{{ID: "frank@example.com"}}}
		for _, g := range []*models.Group{older, newer, other} {
			if err := store.CreateGroup(ctx, g); err != nil {
				t.Fatalf("CreateGroup failed: %v", err)
			}
		}

		groups, err := store.ListGroupsForMember(ctx, "erin@example.com")
		if err != nil {
			t.Fatalf("ListGroupsForMember failed: %v", err)
		}
		if len(groups) != 2 {
			t.Fatalf("Expected 2 groups, got %d", len(groups))
		}
		if groups[0].Name != "Newer" || groups[1].Name != "Older" {
			t.Errorf("Expected [Newer Older], got [%s %s]", groups[0].Name, groups[1].Name)
		}
		if len(groups[1].Members) != 2 {
			t.Errorf("Expected Older to carry 2 members, got %d", len(groups[1].Members))
		}

		none, err := store.ListGroupsForMember(ctx, "nobody@example.com")
		if err != nil {
			t.Fatalf("ListGroupsForMember failed: %v", err)
		}
		if len(none) != 0 {
			t.Errorf("Expected no groups, got %d", len(none))
		}
	})
}

func TestSQLiteStore_Expenses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	home := &models.Group{Name: "Home", CreatedBy: "alice@example.com",
		Members: []models.Member{{ID: "alice@example.com"}, {ID: "bob@example.com"}, {ID: "carol@example.com"}}}
	trip := &models.Group{Name: "Trip", CreatedBy: "alice@example.com",
		Members: []models.Member{{ID: "alice@example.com"}, {ID: "dave@example.com"}}}
	for _, g := range []*models.Group{home, trip} {
		if err := store.CreateGroup(ctx, g); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
	}

	expenses := []*models.GroupExpense{
		{GroupID: home.ID, Description: "Rent", Amount: decimal.RequireFromString("1200.10"), Date: 10,
			Payer: "alice@example.com", Participants: []string{"carol@example.com", "alice@example.com", "bob@example.com"}},
		{GroupID: home.ID, Description: "Pizza", Amount: decimal.RequireFromString("0.01"), Date: 20,
			Payer: "bob@example.com", Participants: []string{"bob@example.com"}},
		{GroupID: trip.ID, Description: "Gas", Amount: decimal.RequireFromString("45"), Date: 30,
			Payer: "dave@example.com", Participants: []string{"alice@example.com", "dave@example.com"}},
		{GroupID: trip.ID, Description: "Gift", Amount: decimal.RequireFromString("15"), Date: 40,
			Payer: "alice@example.com", Participants: []string{"dave@example.com"}},
	}
	for _, e := range expenses {
		if err := store.CreateExpense(ctx, e); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
		if e.ID == "" {
			t.Fatal("Expected expense ID to be generated")
		}
	}

	t.Run("ListExpenses round-trips amounts and participant order", func(t *testing.T) {
		got, err := store.ListExpenses(ctx, home.ID)
		if err != nil {
			t.Fatalf("ListExpenses failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("Expected 2 expenses, got %d", len(got))
		}
		if got[0].Description != "Pizza" {
			t.Errorf("Expected newest first, got %q", got[0].Description)
		}
		rent := got[1]
		if !rent.Amount.Equal(decimal.RequireFromString("1200.10")) {
			t.Errorf("Amount mismatch: got %s", rent.Amount)
		}
		want := []string{"carol@example.com", "alice@example.com", "bob@example.com"}
		if len(rent.Participants) != len(want) {
			t.Fatalf("Participants mismatch: got %v", rent.Participants)
		}
		for i := range want {
			if rent.Participants[i] != want[i] {
				t.Errorf("Participant %d: got %s, want %s", i, rent.Participants[i], want[i])
			}
		}
	})

	t.Run("ListExpensesForParticipant spans groups", func(t *testing.T) {
		got, err := store.ListExpensesForParticipant(ctx, "alice@example.com")
		if err != nil {
			t.Fatalf("ListExpensesForParticipant failed: %v", err)
		}
		// Rent and Gas; Gift was paid by alice but she is not a participant.
		if len(got) != 2 {
			t.Fatalf("Expected 2 expenses, got %d", len(got))
		}
		if got[0].Description != "Gas" || got[1].Description != "Rent" {
			t.Errorf("Expected [Gas Rent], got [%s %s]", got[0].Description, got[1].Description)
		}
		if len(got[0].Participants) != 2 {
			t.Errorf("Expected every participant to be loaded, got %v", got[0].Participants)
		}
	})

	t.Run("ListExpensesInvolving includes payer-only expenses and honors limit", func(t *testing.T) {
		got, err := store.ListExpensesInvolving(ctx, "alice@example.com", 0)
		if err != nil {
			t.Fatalf("ListExpensesInvolving failed: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("Expected 3 expenses, got %d", len(got))
		}
		if got[0].Description != "Gift" {
			t.Errorf("Expected Gift first, got %q", got[0].Description)
		}

		limited, err := store.ListExpensesInvolving(ctx, "alice@example.com", 1)
		if err != nil {
			t.Fatalf("ListExpensesInvolving failed: %v", err)
		}
		if len(limited) != 1 || limited[0].Description != "Gift" {
			t.Errorf("Expected only Gift, got %d expenses", len(limited))
		}
	})

	t.Run("CreateExpense for unknown group", func(t *testing.T) {
		err := store.CreateExpense(ctx, &models.GroupExpense{
			GroupID: "nonexistent-id", Description: "x", Amount: decimal.NewFromInt(1),
			Payer: "alice@example.com", Participants: []string{"alice@example.com"},
		})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("malformed stored record fails the read", func(t *testing.T) {
		bad := &models.Group{Name: "Bad", CreatedBy: "zed@example.com", Members: []models.Member{{ID: "zed@example.com"}}}
		if err := store.CreateGroup(ctx, bad); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		_, err := store.db.ExecContext(ctx,
			"INSERT INTO group_expenses (id, group_id, description, amount, payer, date) VALUES ('raw', ?, 'raw', '0', 'zed@example.com', 1)",
			bad.ID,
		)
		if err != nil {
			t.Fatalf("raw insert failed: %v", err)
		}

		_, err = store.ListExpenses(ctx, bad.ID)
		if !errors.Is(err, models.ErrInvalidExpense) {
			t.Errorf("Expected ErrInvalidExpense, got %v", err)
		}
	})
}

func TestSQLiteStore_Users(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := models.NewUser("Alice@Example.com", "Alice", "hash")
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	dup := models.NewUser("alice@example.com", "Other", "hash")
	if err := store.CreateUser(ctx, dup); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("Expected ErrConflict for duplicate email, got %v", err)
	}

	got, err := store.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if got.ID != user.ID || got.DisplayName != "Alice" {
		t.Errorf("unexpected user: %+v", got)
	}

	if _, err := store.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	users, err := store.GetUsersByEmails(ctx, []string{"alice@example.com", "nobody@example.com"})
	if err != nil {
		t.Fatalf("GetUsersByEmails failed: %v", err)
	}
	if len(users) != 1 || users["alice@example.com"] == nil {
		t.Errorf("Expected only alice, got %v", users)
	}
}

func TestSQLiteStore_PersonalExpenses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entries := []*models.Expense{
		{UserID: "alice@example.com", Description: "Coffee", Amount: decimal.RequireFromString("3.5"), Category: "Food", Date: 100},
		{UserID: "alice@example.com", Description: "Rent", Amount: decimal.RequireFromString("900.01"), Category: models.DefaultCategory, Date: 300},
		{UserID: "bob@example.com", Description: "Bus", Amount: decimal.NewFromInt(2), Category: "Transport", Date: 200},
	}
	for _, e := range entries {
		if err := store.CreatePersonalExpense(ctx, e); err != nil {
			t.Fatalf("CreatePersonalExpense failed: %v", err)
		}
		if e.ID == "" {
			t.Fatal("expected ID to be generated")
		}
	}

	got, err := store.ListPersonalExpenses(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("ListPersonalExpenses failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 entries for alice, got %d", len(got))
	}
	if got[0].Description != "Rent" || got[1].Description != "Coffee" {
		t.Errorf("Expected newest first, got %s then %s", got[0].Description, got[1].Description)
	}
	if !got[0].Amount.Equal(decimal.RequireFromString("900.01")) || got[1].Category != "Food" {
		t.Errorf("unexpected entries: %+v", got)
	}

	t.Run("delete is scoped to the owner", func(t *testing.T) {
		bobs := entries[2].ID
		if err := store.DeletePersonalExpense(ctx, "alice@example.com", bobs); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound deleting another user's entry, got %v", err)
		}
		if err := store.DeletePersonalExpense(ctx, "bob@example.com", bobs); err != nil {
			t.Fatalf("DeletePersonalExpense failed: %v", err)
		}
		if err := store.DeletePersonalExpense(ctx, "bob@example.com", bobs); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound on second delete, got %v", err)
		}
		left, err := store.ListPersonalExpenses(ctx, "bob@example.com")
		if err != nil {
			t.Fatalf("ListPersonalExpenses failed: %v", err)
		}
		if len(left) != 0 {
			t.Errorf("Expected empty ledger for bob, got %v", left)
		}
	})
}
