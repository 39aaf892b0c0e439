package service

import (
	"context"
	"strings"
	"testing"

	"connectrpc.com/connect"

	"github.com/mmynk/splittrack/internal/models"
	"github.com/mmynk/splittrack/pkg/api"
)

func TestGetUserTotals_NoExpenses(t *testing.T) {
	s := setupTestServer(t)

	tests := []struct {
		name     string
		setup    func(t *testing.T)
		wantCode connect.Code
	}{
		{
			name:     "no groups",
			setup:    func(*testing.T) {},
			wantCode: connect.CodeNotFound,
		},
		{
			name:  "empty group",
			setup: func(t *testing.T) { s.createGroup(t, "Quiet", api.Member{ID: bob}) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup(t)
			resp, err := s.balance.GetUserTotals(context.Background(), as(alice, &api.GetUserTotalsRequest{}))
			if tt.wantCode != 0 {
				assertCode(t, err, tt.wantCode)
				return
			}
			if err != nil {
				t.Fatalf("GetUserTotals failed: %v", err)
			}
			msg := resp.Msg
			if msg.UserID != alice || msg.TotalOwe != "0.00" || msg.TotalOwed != "0.00" || msg.Net != "0.00" {
				t.Errorf("expected zero totals for %s, got %+v", alice, msg)
			}
			if len(msg.Breakdown) != 0 {
				t.Errorf("expected empty breakdown, got %v", msg.Breakdown)
			}
		})
	}
}

func TestGetUserTotals_AcrossGroups(t *testing.T) {
	s := setupTestServer(t)
	if err := s.store.CreateUser(context.Background(), models.NewUser(carol, "Carol", "hash")); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	home := s.createGroup(t, "Home", api.Member{ID: bob}, api.Member{ID: carol})
	s.addExpense(t, home, "30", alice, alice, bob, carol)

	trip := s.createGroup(t, "Trip", api.Member{ID: bob, Nickname: "B2"})
	s.addExpense(t, trip, "20", bob, alice, bob)

	resp, err := s.balance.GetUserTotals(context.Background(), as(alice, &api.GetUserTotalsRequest{}))
	if err != nil {
		t.Fatalf("GetUserTotals failed: %v", err)
	}

	msg := resp.Msg
	if msg.TotalOwed != "20.00" {
		t.Errorf("total_owed: expected 20.00, got %s", msg.TotalOwed)
	}
	if msg.TotalOwe != "10.00" {
		t.Errorf("total_owe: expected 10.00, got %s", msg.TotalOwe)
	}
	if msg.Net != "10.00" {
		t.Errorf("net: expected 10.00, got %s", msg.Net)
	}

	want := []struct {
		id, label, amount, direction, text string
	}{
		{bob, "B2", "0.00", "settled", "You and B2 are settled up"},
		{carol, "Carol", "10.00", "owes_you", "Carol owes you "},
	}
	if len(msg.Breakdown) != len(want) {
		t.Fatalf("expected %d breakdown entries, got %+v", len(want), msg.Breakdown)
	}
	for i, w := range want {
		got := msg.Breakdown[i]
		if got.CounterpartyID != w.id || got.Label != w.label || got.Amount != w.amount || got.Direction != w.direction {
			t.Errorf("entry %d: expected %+v, got %+v", i, w, got)
		}
		if !strings.HasPrefix(got.Text, w.text) {
			t.Errorf("entry %d text: expected prefix %q, got %q", i, w.text, got.Text)
		}
	}
}

func TestGetUserTotals_OnlySharedGroups(t *testing.T) {
	s := setupTestServer(t)

	home := s.createGroup(t, "Home", api.Member{ID: bob})
	s.addExpense(t, home, "10", alice, alice, bob)

	// dave's group with bob is invisible to alice.
	resp, err := s.group.CreateGroup(context.Background(), as(dave, &api.CreateGroupRequest{
		Name:    "Dave and Bob",
		Members: []api.Member{{ID: bob}},
	}))
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	_, err = s.group.AddGroupExpense(context.Background(), as(dave, &api.AddGroupExpenseRequest{
		GroupID:      resp.Msg.Group.ID,
		Description:  "Tickets",
		Amount:       "40",
		Participants: []string{dave, bob},
	}))
	if err != nil {
		t.Fatalf("AddGroupExpense failed: %v", err)
	}

	tests := []struct {
		name    string
		caller  string
		userID  string
		wantOwe string
	}{
		{"seen by alice", alice, bob, "5.00"},
		{"seen by bob", bob, "", "25.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := s.balance.GetUserTotals(context.Background(), as(tt.caller, &api.GetUserTotalsRequest{UserID: tt.userID}))
			if err != nil {
				t.Fatalf("GetUserTotals failed: %v", err)
			}
			if resp.Msg.UserID != bob {
				t.Errorf("user_id: expected %s, got %s", bob, resp.Msg.UserID)
			}
			if resp.Msg.TotalOwe != tt.wantOwe {
				t.Errorf("total_owe: expected %s, got %s", tt.wantOwe, resp.Msg.TotalOwe)
			}
		})
	}
}

func TestGetUserTotals_UnknownUser(t *testing.T) {
	s := setupTestServer(t)
	s.createGroup(t, "Home", api.Member{ID: bob})

	tests := []struct {
		name   string
		caller string
		userID string
	}{
		{"never seen", alice, "stranger@example.com"},
		{"no shared group", dave, bob},
		{"caller in no group", dave, dave},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.balance.GetUserTotals(context.Background(), as(tt.caller, &api.GetUserTotalsRequest{UserID: tt.userID}))
			assertCode(t, err, connect.CodeNotFound)
		})
	}
}

func TestListUserExpenses(t *testing.T) {
	s := setupTestServer(t)
	groupID := s.createGroup(t, "Home", api.Member{ID: bob}, api.Member{ID: carol})
	for i := 0; i < 3; i++ {
		s.addExpense(t, groupID, "9", bob, bob, carol)
	}
	s.addExpense(t, groupID, "12", alice, alice, bob)
	s.addExpense(t, groupID, "6", bob, alice, bob)

	tests := []struct {
		name   string
		caller string
		limit  int32
		want   int
	}{
		{"payer or participant", alice, 0, 2},
		{"all of bob's", bob, 0, 5},
		{"limited", bob, 2, 2},
		{"outsider", dave, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := s.balance.ListUserExpenses(context.Background(), as(tt.caller, &api.ListUserExpensesRequest{Limit: tt.limit}))
			if err != nil {
				t.Fatalf("ListUserExpenses failed: %v", err)
			}
			if len(resp.Msg.Expenses) != tt.want {
				t.Errorf("expected %d expenses, got %d", tt.want, len(resp.Msg.Expenses))
			}
		})
	}
}
