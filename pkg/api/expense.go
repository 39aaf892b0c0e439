package api

// PersonalExpense is an entry in the caller's own ledger. It is never split
// and never affects group balances.
type PersonalExpense struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Amount      string     `json:"amount"`
	Category    string     `json:"category"`
	Date        *Timestamp `json:"date,omitempty"`
}

type AddExpenseRequest struct {
	Description string `json:"description"`
	// Amount is a positive decimal string, e.g. "12.50".
	Amount string `json:"amount"`
	// Category defaults to "Other".
	Category string     `json:"category,omitempty"`
	Date     *Timestamp `json:"date,omitempty"`
}

type AddExpenseResponse struct {
	Expense *PersonalExpense `json:"expense"`
}

// ListExpensesRequest lists the caller's ledger, newest first.
type ListExpensesRequest struct{}

type ListExpensesResponse struct {
	Expenses []*PersonalExpense `json:"expenses"`
}

type DeleteExpenseRequest struct {
	ExpenseID string `json:"expense_id"`
}

type DeleteExpenseResponse struct{}
