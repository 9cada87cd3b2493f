package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hrygo/rod/store"
)

func (q *Queries) EnsureUser(ctx context.Context, create *store.User) (*store.User, error) {
	stmt := `INSERT INTO users (id, level) VALUES (` + q.placeholders(2) + `) ON CONFLICT(id) DO NOTHING`
	if _, err := q.db.ExecContext(ctx, stmt, create.ID, create.Level); err != nil {
		return nil, fmt.Errorf("failed to ensure user: %w", err)
	}

	list, err := q.ListUsers(ctx, &store.FindUser{ID: &create.ID})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("user %q missing after insert", create.ID)
	}
	return list[0], nil
}

func (q *Queries) ListUsers(ctx context.Context, find *store.FindUser) ([]*store.User, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "id = "+q.placeholder(len(args)+1)), append(args, *find.ID)
	}

	query := `SELECT id, level, streak, last_active_date, created_ts FROM users WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts ASC`
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	list := make([]*store.User, 0)
	for rows.Next() {
		u := &store.User{}
		if err := rows.Scan(&u.ID, &u.Level, &u.Streak, &u.LastActiveDate, &u.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		list = append(list, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return list, nil
}

func (q *Queries) UpdateUser(ctx context.Context, update *store.UpdateUser) (*store.User, error) {
	set, args := []string{}, []any{}
	if update.Level != nil {
		set, args = append(set, "level = "+q.placeholder(len(args)+1)), append(args, *update.Level)
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}

	args = append(args, update.ID)
	stmt := `UPDATE users SET ` + strings.Join(set, ", ") + ` WHERE id = ` + q.placeholder(len(args)) + ` RETURNING id, level, streak, last_active_date, created_ts`
	u := &store.User{}
	if err := q.db.QueryRowContext(ctx, stmt, args...).Scan(&u.ID, &u.Level, &u.Streak, &u.LastActiveDate, &u.CreatedTs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return u, nil
}

func (q *Queries) SwapUserStreak(ctx context.Context, swap *store.SwapUserStreak) (bool, error) {
	stmt := `UPDATE users SET streak = ` + q.placeholder(1) + `, last_active_date = ` + q.placeholder(2) +
		` WHERE id = ` + q.placeholder(3) + ` AND last_active_date = ` + q.placeholder(4)
	result, err := q.db.ExecContext(ctx, stmt, swap.Streak, swap.LastActiveDate, swap.ID, swap.ExpectedLastActiveDate)
	if err != nil {
		return false, fmt.Errorf("failed to update user streak: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected == 1, nil
}
