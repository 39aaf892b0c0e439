// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/splittrack/internal/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable wraps every failure of the backing store other than a
	// missing record. The core surfaces it and never retries.
	ErrUnavailable = errors.New("store unavailable")

	// ErrConflict is returned when a unique record already exists.
	ErrConflict = errors.New("already exists")
)

// RecordStore holds groups and their expenses.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the service layer.
type RecordStore interface {
	// CreateGroup persists a new group with its members.
	// The group.ID and group.CreatedAt fields are populated by the store when empty.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group and its members.
	// Returns ErrNotFound if the group does not exist.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListGroupMembers returns the members of a group.
	// Returns ErrNotFound if the group does not exist.
	ListGroupMembers(ctx context.Context, groupID string) ([]models.Member, error)

	// ListGroupsForMember returns every group that lists uid as a member,
	// newest first.
	ListGroupsForMember(ctx context.Context, uid string) ([]*models.Group, error)

	// AddGroupMembers adds members that are not already in the group.
	// Existing members keep their nickname.
	AddGroupMembers(ctx context.Context, groupID string, members []models.Member) error

	// CreateExpense persists a new expense.
	// The expense.ID and expense.Date fields are populated by the store when empty.
	CreateExpense(ctx context.Context, expense *models.GroupExpense) error

	// ListExpenses returns every expense of a group, newest first, read as
	// one consistent snapshot.
	ListExpenses(ctx context.Context, groupID string) ([]models.GroupExpense, error)

	// ListExpensesForParticipant returns every expense, across all groups,
	// that lists uid as a participant, read as one consistent snapshot.
	ListExpensesForParticipant(ctx context.Context, uid string) ([]models.GroupExpense, error)

	// ListExpensesInvolving returns the most recent expenses where uid is the
	// payer or a participant. limit <= 0 means no limit.
	ListExpensesInvolving(ctx context.Context, uid string, limit int) ([]models.GroupExpense, error)
}

// LedgerStore holds each user's personal expenses. Entries are scoped to
// their owner.
type LedgerStore interface {
	// CreatePersonalExpense persists a new entry.
	// The expense.ID and expense.Date fields are populated by the store when empty.
	CreatePersonalExpense(ctx context.Context, expense *models.Expense) error

	// ListPersonalExpenses returns uid's entries, newest first.
	ListPersonalExpenses(ctx context.Context, uid string) ([]models.Expense, error)

	// DeletePersonalExpense removes entry id owned by uid.
	// Returns ErrNotFound if no such entry belongs to uid.
	DeletePersonalExpense(ctx context.Context, uid, id string) error
}

// UserStore is the identity directory.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail returns ErrNotFound when no user has that email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUsersByEmails returns the users that exist, keyed by email.
	GetUsersByEmails(ctx context.Context, emails []string) (map[string]*models.User, error)
}

// Store is everything the services need from a backend.
type Store interface {
	RecordStore
	LedgerStore
	UserStore

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
