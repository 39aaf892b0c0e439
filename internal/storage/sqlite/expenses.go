package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splittrack/internal/models"
	"github.com/mmynk/splittrack/internal/storage"
)

const expenseColumns = `e.id, e.group_id, e.description, e.amount, e.payer, e.date, p.participant`

// CreateExpense persists a new expense with its participants.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.GroupExpense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.Date == 0 {
		expense.Date = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.Unavailable("begin transaction", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM groups WHERE id = ?", expense.GroupID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("group %s: %w", expense.GroupID, storage.ErrNotFound)
	}
	if err != nil {
		return storage.Unavailable("check group existence", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO group_expenses (id, group_id, description, amount, payer, date) VALUES (?, ?, ?, ?, ?, ?)",
		expense.ID, expense.GroupID, expense.Description, expense.Amount.String(), expense.Payer, expense.Date,
	)
	if err != nil {
		return storage.Unavailable("insert expense", err)
	}

	for i, p := range expense.Participants {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO expense_participants (expense_id, participant, position) VALUES (?, ?, ?)",
			expense.ID, p, i,
		)
		if err != nil {
			return storage.Unavailable("insert expense participant", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storage.Unavailable("commit transaction", err)
	}
	return nil
}

// ListExpenses returns every expense of a group, newest first.
// A single statement reads expenses and participants, so the result is one snapshot.
func (s *SQLiteStore) ListExpenses(ctx context.Context, groupID string) ([]models.GroupExpense, error) {
	return s.queryExpenses(ctx, `
		SELECT `+expenseColumns+`
		FROM group_expenses e
		LEFT JOIN expense_participants p ON p.expense_id = e.id
		WHERE e.group_id = ?
		ORDER BY e.date DESC, e.id, p.position`,
		groupID,
	)
}

// ListExpensesForParticipant returns every expense listing uid as a participant.
func (s *SQLiteStore) ListExpensesForParticipant(ctx context.Context, uid string) ([]models.GroupExpense, error) {
	return s.queryExpenses(ctx, `
		SELECT `+expenseColumns+`
		FROM group_expenses e
		LEFT JOIN expense_participants p ON p.expense_id = e.id
		WHERE e.id IN (SELECT expense_id FROM expense_participants WHERE participant = ?)
		ORDER BY e.date DESC, e.id, p.position`,
		uid,
	)
}

// ListExpensesInvolving returns the most recent expenses uid paid for or shares.
func (s *SQLiteStore) ListExpensesInvolving(ctx context.Context, uid string, limit int) ([]models.GroupExpense, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	return s.queryExpenses(ctx, `
		WITH recent AS (
			SELECT id, date FROM group_expenses
			WHERE payer = ? OR id IN (SELECT expense_id FROM expense_participants WHERE participant = ?)
			ORDER BY date DESC, id
			LIMIT ?
		)
		SELECT `+expenseColumns+`
		FROM recent r
		JOIN group_expenses e ON e.id = r.id
		LEFT JOIN expense_participants p ON p.expense_id = e.id
		ORDER BY e.date DESC, e.id, p.position`,
		uid, uid, limit,
	)
}

// queryExpenses folds one row per (expense, participant) into expenses,
// preserving row order, and validates every record.
func (s *SQLiteStore) queryExpenses(ctx context.Context, query string, args ...any) ([]models.GroupExpense, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.Unavailable("list expenses", err)
	}
	defer rows.Close()

	var expenses []models.GroupExpense
	for rows.Next() {
		var (
			e           models.GroupExpense
			amount      string
			participant sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.GroupID, &e.Description, &amount, &e.Payer, &e.Date, &participant); err != nil {
			return nil, storage.Unavailable("scan expense", err)
		}

		if n := len(expenses); n > 0 && expenses[n-1].ID == e.ID {
			expenses[n-1].Participants = append(expenses[n-1].Participants, participant.String)
			continue
		}

		if e.Amount, err = storage.ParseAmount(amount); err != nil {
			return nil, fmt.Errorf("stored expense %s: %w", e.ID, err)
		}
		// An expense without participants comes back as one NULL row and
		// then fails validation below.
		if participant.Valid {
			e.Participants = []string{participant.String}
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Unavailable("iterate expenses", err)
	}

	if err := storage.CheckExpenses(expenses); err != nil {
		return nil, err
	}
	return expenses, nil
}
