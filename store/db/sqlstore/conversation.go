package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hrygo/rod/store"
)

func (q *Queries) CreateConversation(ctx context.Context, create *store.Conversation) (*store.Conversation, error) {
	fields := []string{"user_id", "context_lock", "title"}
	args := []any{create.UserID, create.ContextLock, create.Title}

	stmt := `INSERT INTO conversations (` + strings.Join(fields, ", ") + `)
		VALUES (` + q.placeholders(len(args)) + `)
		RETURNING id, created_ts`
	if err := q.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID, &create.CreatedTs); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return create, nil
}

func (q *Queries) ListConversations(ctx context.Context, find *store.FindConversation) ([]*store.Conversation, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "c.id = "+q.placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.UserID != nil {
		where, args = append(where, "c.user_id = "+q.placeholder(len(args)+1)), append(args, *find.UserID)
	}

	query := `SELECT c.id, c.user_id, c.context_lock, c.title, c.created_ts,
			(SELECT m.content FROM messages m WHERE m.conversation_id = c.id AND m.role = 'user' ORDER BY m.id ASC LIMIT 1)
		FROM conversations c
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY c.id DESC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Conversation, 0)
	for rows.Next() {
		c := &store.Conversation{}
		var firstUserMessage sql.NullString
		if err := rows.Scan(&c.ID, &c.UserID, &c.ContextLock, &c.Title, &c.CreatedTs, &firstUserMessage); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		if firstUserMessage.Valid {
			c.FirstUserMessage = &firstUserMessage.String
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversations: %w", err)
	}
	return list, nil
}

func (q *Queries) UpdateConversation(ctx context.Context, update *store.UpdateConversation) (*store.Conversation, error) {
	set, args := []string{}, []any{}
	if update.Title != nil {
		set, args = append(set, "title = "+q.placeholder(len(args)+1)), append(args, *update.Title)
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}

	args = append(args, update.ID)
	stmt := `UPDATE conversations SET ` + strings.Join(set, ", ") + ` WHERE id = ` + q.placeholder(len(args)) + ` RETURNING id, user_id, context_lock, title, created_ts`
	c := &store.Conversation{}
	if err := q.db.QueryRowContext(ctx, stmt, args...).Scan(&c.ID, &c.UserID, &c.ContextLock, &c.Title, &c.CreatedTs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("conversation not found")
		}
		return nil, fmt.Errorf("failed to update conversation: %w", err)
	}
	return c, nil
}
