package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmynk/splittrack/internal/models"
	"github.com/mmynk/splittrack/internal/storage"
)

const expenseColumns = `e.id, e.group_id, e.description, e.amount::text, e.payer, e.date, p.participant`

// CreateExpense persists a new expense with its participants.
func (s *PostgresStore) CreateExpense(ctx context.Context, expense *models.GroupExpense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.Date == 0 {
		expense.Date = time.Now().Unix()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storage.Unavailable("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	var exists int
	err = tx.QueryRow(ctx, "SELECT 1 FROM groups WHERE id = $1", expense.GroupID).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("group %s: %w", expense.GroupID, storage.ErrNotFound)
	}
	if err != nil {
		return storage.Unavailable("check group existence", err)
	}

	_, err = tx.Exec(ctx,
		"INSERT INTO group_expenses (id, group_id, description, amount, payer, date) VALUES ($1, $2, $3, $4::numeric, $5, $6)",
		expense.ID, expense.GroupID, expense.Description, expense.Amount.String(), expense.Payer, expense.Date,
	)
	if err != nil {
		return storage.Unavailable("insert expense", err)
	}

	batch := &pgx.Batch{}
	for i, p := range expense.Participants {
		batch.Queue(
			"INSERT INTO expense_participants (expense_id, participant, position) VALUES ($1, $2, $3)",
			expense.ID, p, i,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return storage.Unavailable("insert expense participants", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return storage.Unavailable("commit transaction", err)
	}
	return nil
}

// ListExpenses returns every expense of a group, newest first.
func (s *PostgresStore) ListExpenses(ctx context.Context, groupID string) ([]models.GroupExpense, error) {
	return s.queryExpenses(ctx, `
		SELECT `+expenseColumns+`
		FROM group_expenses e
		LEFT JOIN expense_participants p ON p.expense_id = e.id
		WHERE e.group_id = $1
		ORDER BY e.date DESC, e.id, p.position`,
		groupID,
	)
}

// ListExpensesForParticipant returns every expense listing uid as a participant.
func (s *PostgresStore) ListExpensesForParticipant(ctx context.Context, uid string) ([]models.GroupExpense, error) {
	return s.queryExpenses(ctx, `
		SELECT `+expenseColumns+`
		FROM group_expenses e
		LEFT JOIN expense_participants p ON p.expense_id = e.id
		WHERE e.id IN (SELECT expense_id FROM expense_participants WHERE participant = $1)
		ORDER BY e.date DESC, e.id, p.position`,
		uid,
	)
}

// ListExpensesInvolving returns the most recent expenses uid paid for or shares.
func (s *PostgresStore) ListExpensesInvolving(ctx context.Context, uid string, limit int) ([]models.GroupExpense, error) {
	var lim *int64 // NULL: no limit
	if limit > 0 {
		n := int64(limit)
		lim = &n
	}
	return s.queryExpenses(ctx, `
		WITH recent AS (
			SELECT id FROM group_expenses
			WHERE payer = $1 OR id IN (SELECT expense_id FROM expense_participants WHERE participant = $1)
			ORDER BY date DESC, id
			LIMIT $2::bigint
		)
		SELECT `+expenseColumns+`
		FROM recent r
		JOIN group_expenses e ON e.id = r.id
		LEFT JOIN expense_participants p ON p.expense_id = e.id
		ORDER BY e.date DESC, e.id, p.position`,
		uid, lim,
	)
}

func (s *PostgresStore) queryExpenses(ctx context.Context, query string, args ...any) ([]models.GroupExpense, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storage.Unavailable("list expenses", err)
	}
	defer rows.Close()

	var expenses []models.GroupExpense
	for rows.Next() {
		var (
			e           models.GroupExpense
			amount      string
			participant *string
		)
		if err := rows.Scan(&e.ID, &e.GroupID, &e.Description, &amount, &e.Payer, &e.Date, &participant); err != nil {
			return nil, storage.Unavailable("scan expense", err)
		}

		if n := len(expenses); n > 0 && expenses[n-1].ID == e.ID {
			if participant != nil {
				expenses[n-1].Participants = append(expenses[n-1].Participants, *participant)
			}
			continue
		}

		if e.Amount, err = storage.ParseAmount(amount); err != nil {
			return nil, fmt.Errorf("stored expense %s: %w", e.ID, err)
		}
		if participant != nil {
			e.Participants = []string{*participant}
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
