package api

type GetUserTotalsRequest struct {
	// UserID defaults to the caller. Another user is visible only through
	// groups shared with the caller.
	UserID string `json:"user_id,omitempty"`
}

// BreakdownEntry is the signed amount between the user and one
// counterparty; positive means the counterparty owes the user.
type BreakdownEntry struct {
	CounterpartyID string `json:"counterparty_id"`
	Label          string `json:"label"`
	Amount         string `json:"amount"`
	Direction      string `json:"direction"`
	Text           string `json:"text"`
}

type GetUserTotalsResponse struct {
	UserID    string            `json:"user_id"`
	TotalOwe  string            `json:"total_owe"`
	TotalOwed string            `json:"total_owed"`
	Net       string            `json:"net"`
	Breakdown []*BreakdownEntry `json:"breakdown"`
}

type ListUserExpensesRequest struct {
	// Limit defaults to 20 and is capped at 100.
	Limit int32 `json:"limit,omitempty"`
}

type ListUserExpensesResponse struct {
	Expenses []*Expense `json:"expenses"`
}
