package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hrygo/rod/store"
)

func (q *Queries) CreateMediaItem(ctx context.Context, create *store.MediaItem) (*store.MediaItem, error) {
	fields := []string{"title", "summary", "link", "image_url", "level", "source"}
	args := []any{create.Title, create.Summary, create.Link, create.ImageURL, create.Level, create.Source}

	stmt := `INSERT INTO media_items (` + strings.Join(fields, ", ") + `)
		VALUES (` + q.placeholders(len(args)) + `)
		ON CONFLICT(link) DO NOTHING
		RETURNING id, created_ts`
	if err := q.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID, &create.CreatedTs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create media item: %w", err)
	}
	return create, nil
}

func (q *Queries) ListMediaItems(ctx context.Context, find *store.FindMediaItem) ([]*store.MediaItem, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.Link != nil {
		where, args = append(where, "link = "+q.placeholder(len(args)+1)), append(args, *find.Link)
	}
	if find.Level != nil {
		where, args = append(where, "level = "+q.placeholder(len(args)+1)), append(args, *find.Level)
	}

	query := `SELECT id, title, summary, link, image_url, level, source, created_ts FROM media_items WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts DESC, id DESC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list media items: %w", err)
	}
	defer rows.Close()

	list := make([]*store.MediaItem, 0)
	for rows.Next() {
		item := &store.MediaItem{}
		if err := rows.Scan(&item.ID, &item.Title, &item.Summary, &item.Link, &item.ImageURL, &item.Level, &item.Source, &item.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan media item: %w", err)
		}
		list = append(list, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate media items: %w", err)
	}
	return list, nil
}
