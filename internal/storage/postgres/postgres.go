// Package postgres provides a PostgreSQL-backed implementation of the
// storage.Store interface on top of a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mmynk/splittrack/internal/models"
	"github.com/mmynk/splittrack/internal/storage"
)

var _ storage.Store = (*PostgresStore)(nil)

// PostgresStore implements storage.Store using PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// New connects to databaseURL, runs migrations and verifies the connection.
func New(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database URL: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 0
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	if err := runMigrations(config.ConnConfig.Copy()); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return storage.Unavailable("ping", err)
	}
	return nil
}

// CreateGroup persists a new group with its members.
func (s *PostgresStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storage.Unavailable("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		"INSERT INTO groups (id, name, created_by, created_at) VALUES ($1, $2, $3, $4)",
		group.ID, group.Name, group.CreatedBy, group.CreatedAt,
	)
	if err != nil {
		return storage.Unavailable("insert group", err)
	}

	for i, m := range group.Members {
		_, err = tx.Exec(ctx,
			"INSERT INTO group_members (group_id, member_id, nickname, position) VALUES ($1, $2, $3, $4)",
			group.ID, m.ID, m.Nickname, i,
		)
		if err != nil {
			return storage.Unavailable("insert group member", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return storage.Unavailable("commit transaction", err)
	}
	return nil
}

// GetGroup retrieves a group by ID, including its members.
func (s *PostgresStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, storage.Unavailable("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	group := &models.Group{}
	err = tx.QueryRow(ctx,
		"SELECT id, name, created_by, created_at FROM groups WHERE id = $1",
		groupID,
	).Scan(&group.ID, &group.Name, &group.CreatedBy, &group.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, storage.Unavailable("get group", err)
	}

	members, err := queryMembers(ctx, tx,
		"SELECT group_id, member_id, nickname FROM group_members WHERE group_id = $1 ORDER BY position",
		groupID,
	)
	if err != nil {
		return nil, err
	}
	group.Members = members[groupID]
	return group, nil
}

func (s *PostgresStore) ListGroupMembers(ctx context.Context, groupID string) ([]models.Member, error) {
	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return group.Members, nil
}

// ListGroupsForMember returns every group that lists uid, newest first.
func (s *PostgresStore) ListGroupsForMember(ctx context.Context, uid string) ([]*models.Group, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, storage.Unavailable("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT g.id, g.name, g.created_by, g.created_at
		FROM groups g
		JOIN group_members m ON m.group_id = g.id
		WHERE m.member_id = $1
		ORDER BY g.created_at DESC, g.id`,
		uid,
	)
	if err != nil {
		return nil, storage.Unavailable("list groups", err)
	}

	var groups []*models.Group
	for rows.Next() {
		g := &models.Group{}
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedBy, &g.CreatedAt); err != nil {
			rows.Close()
			return nil, storage.Unavailable("scan group", err)
		}
		groups = append(groups, g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, storage.Unavailable("iterate groups", err)
	}
	if len(groups) == 0 {
		return nil, nil
	}

	members, err := queryMembers(ctx, tx, `
		SELECT group_id, member_id, nickname FROM group_members
		WHERE group_id IN (SELECT group_id FROM group_members WHERE member_id = $1)
		ORDER BY group_id, position`,
		uid,
	)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		g.Members = members[g.ID]
	}
	return groups, nil
}

// AddGroupMembers adds members that are not already in the group.
func (s *PostgresStore) AddGroupMembers(ctx context.Context, groupID string, members []models.Member) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storage.Unavailable("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	// Lock the group row so concurrent adds assign distinct positions.
	var exists int
	err = tx.QueryRow(ctx, "SELECT 1 FROM groups WHERE id = $1 FOR UPDATE", groupID).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return storage.Unavailable("check group existence", err)
	}

	for _, m := range members {
		_, err = tx.Exec(ctx, `
			INSERT INTO group_members (group_id, member_id, nickname, position)
			VALUES ($1, $2, $3, (SELECT COALESCE(MAX(position), -1) + 1 FROM group_members WHERE group_id = $1))
			ON CONFLICT (group_id, member_id) DO NOTHING`,
			groupID, m.ID, m.Nickname,
		)
		if err != nil {
			return storage.Unavailable("insert group member", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return storage.Unavailable("commit transaction", err)
	}
	return nil
}

func queryMembers(ctx context.Context, tx pgx.Tx, query string, args ...any) (map[string][]models.Member, error) {
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, storage.Unavailable("get group members", err)
	}
	defer rows.Close()

	out := make(map[string][]models.Member)
	for rows.Next() {
		var groupID string
		var m models.Member
		if err := rows.Scan(&groupID, &m.ID, &m.Nickname); err != nil {
			return nil, storage.Unavailable("scan group member", err)
		}
		out[groupID] = append(out[groupID], m)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Unavailable("iterate group members", err)
	}
	return out, nil
}

// isUniqueViolation reports whether err is a unique_violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
