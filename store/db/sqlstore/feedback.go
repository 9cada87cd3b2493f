package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hrygo/rod/store"
)

func (q *Queries) CreateFeedback(ctx context.Context, create *store.Feedback) (*store.Feedback, error) {
	fields := []string{"message_id", "user_text", "correction", "explanation"}
	args := []any{create.MessageID, create.UserText, create.Correction, create.Explanation}

	stmt := `INSERT INTO feedback (` + strings.Join(fields, ", ") + `)
		VALUES (` + q.placeholders(len(args)) + `)
		ON CONFLICT(message_id) DO NOTHING
		RETURNING id, created_ts`
	if err := q.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID, &create.CreatedTs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create feedback: %w", err)
	}
	return create, nil
}

func (q *Queries) ListFeedback(ctx context.Context, find *store.FindFeedback) ([]*store.Feedback, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.MessageID != nil {
		where, args = append(where, "f.message_id = "+q.placeholder(len(args)+1)), append(args, *find.MessageID)
	}
	if find.ConversationID != nil {
		where, args = append(where, "m.conversation_id = "+q.placeholder(len(args)+1)), append(args, *find.ConversationID)
	}

	query := `SELECT f.id, f.message_id, f.user_text, f.correction, f.explanation, f.created_ts
		FROM feedback f
		JOIN messages m ON m.id = f.message_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY f.created_ts DESC, f.id DESC`
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Feedback, 0)
	for rows.Next() {
		f := &store.Feedback{}
		if err := rows.Scan(&f.ID, &f.MessageID, &f.UserText, &f.Correction, &f.Explanation, &f.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		list = append(list, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate feedback: %w", err)
	}
	return list, nil
}
