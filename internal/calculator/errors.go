package calculator

import "fmt"

// ExpenseError identifies the record that made a computation fail.
// It unwraps to the underlying validation error (models.ErrInvalidExpense).
type ExpenseError struct {
	ExpenseID string
	Err       error
}

func (e *ExpenseError) Error() string {
	return fmt.Sprintf("expense %s: %v", e.ExpenseID, e.Err)
}

func (e *ExpenseError) Unwrap() error {
	return e.Err
}
