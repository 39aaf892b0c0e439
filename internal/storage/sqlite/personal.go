package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splittrack/internal/models"
	"github.com/mmynk/splittrack/internal/storage"
)

// CreatePersonalExpense persists a ledger entry.
func (s *SQLiteStore) CreatePersonalExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.Date == 0 {
		expense.Date = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO personal_expenses (id, user_id, description, amount, category, date) VALUES (?, ?, ?, ?, ?, ?)",
		expense.ID, expense.UserID, expense.Description, expense.Amount.String(), expense.Category, expense.Date,
	)
	if err != nil {
		return storage.Unavailable("insert personal expense", err)
	}
	return nil
}

// ListPersonalExpenses returns uid's ledger, newest first.
func (s *SQLiteStore) ListPersonalExpenses(ctx context.Context, uid string) ([]models.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, description, amount, category, date
		FROM personal_expenses
		WHERE user_id = ?
		ORDER BY date DESC, id`,
		uid,
	)
	if err != nil {
		return nil, storage.Unavailable("list personal expenses", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		var (
			e      models.Expense
			amount string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Description, &amount, &e.Category, &e.Date); err != nil {
			return nil, storage.Unavailable("scan personal expense", err)
		}
		if e.Amount, err = storage.ParseAmount(amount); err != nil {
			return nil, fmt.Errorf("stored personal expense %s: %w", e.ID, err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Unavailable("iterate personal expenses", err)
	}
	return expenses, nil
}

// DeletePersonalExpense removes one of uid's entries. Another user's entry
// is reported as missing.
func (s *SQLiteStore) DeletePersonalExpense(ctx context.Context, uid, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM personal_expenses WHERE id = ? AND user_id = ?", id, uid)
	if err != nil {
		return storage.Unavailable("delete personal expense", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storage.Unavailable("delete personal expense", err)
	}
	if n == 0 {
		return fmt.Errorf("personal expense %s: %w", id, storage.ErrNotFound)
	}
	return nil
}
