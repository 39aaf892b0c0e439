package summary

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splittrack/internal/calculator"
)

// MemberLine is one row of a group balance report.
type MemberLine struct {
	MemberID string
	Label    string
	Paid     decimal.Decimal
	Owed     decimal.Decimal
	Balance  decimal.Decimal // Positive = owed money, negative = owes money
}

// GroupReport is the rounded, labelled view of a group's balances.
type GroupReport struct {
	GroupID string
	Members []MemberLine
}

// BuildGroupReport rounds each member's exact balance once and attaches
// labels. Rows are ordered by label, then identity.
func BuildGroupReport(groupID string, balances calculator.GroupBalances, labels *Labeler) GroupReport {
	lines := make([]MemberLine, 0, len(balances))
	for _, id := range balances.IDs() {
		b := balances[id]
		lines = append(lines, MemberLine{
			MemberID: id,
			Label:    labels.Label(id),
			Paid:     Round(b.Paid),
			Owed:     Round(b.Owed),
			Balance:  Round(b.Net()),
		})
	}
	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].Label != lines[j].Label {
			return lines[i].Label < lines[j].Label
		}
		return lines[i].MemberID < lines[j].MemberID
	})
	return GroupReport{GroupID: groupID, Members: lines}
}

// Direction says which way money flows between the user and a counterparty.
type Direction string

const (
	OwesYou Direction = "owes_you"
	YouOwe  Direction = "you_owe"
	Settled Direction = "settled"
)

// Entry is one counterparty in a user report.
type Entry struct {
	CounterpartyID string
	Label          string
	Amount         decimal.Decimal // Signed; positive = counterparty owes the user
	Direction      Direction
}

// UserReport is the rounded, labelled view of a user's cross-group totals.
type UserReport struct {
	UserID    string
	TotalOwe  decimal.Decimal
	TotalOwed decimal.Decimal
	Net       decimal.Decimal
	Entries   []Entry
}

// BuildUserReport rounds totals and breakdown entries once each and resolves
// counterparty labels. Entries are ordered by label, then identity.
func BuildUserReport(totals calculator.UserTotals, labels *Labeler) UserReport {
	entries := make([]Entry, 0, len(totals.Breakdown))
	for _, id := range totals.Counterparties() {
		amount := Round(totals.Breakdown[id])
		entries = append(entries, Entry{
			CounterpartyID: id,
			Label:          labels.Label(id),
			Amount:         amount,
			Direction:      directionOf(amount),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Label != entries[j].Label {
			return entries[i].Label < entries[j].Label
		}
		return entries[i].CounterpartyID < entries[j].CounterpartyID
	})

	return UserReport{
		UserID:    totals.UserID,
		TotalOwe:  Round(totals.TotalOwe),
		TotalOwed: Round(totals.TotalOwed),
		Net:       Round(totals.Net()),
		Entries:   entries,
	}
}

func directionOf(amount decimal.Decimal) Direction {
	switch amount.Sign() {
	case 1:
		return OwesYou
	case -1:
		return YouOwe
	default:
		return Settled
	}
}
