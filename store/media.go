package store

import "context"

// MediaItem is a news article offered as a conversation topic.
type MediaItem struct {
	ID       int32
	Title    string
	Summary  string
	Link     string
	ImageURL string
	// Level is the estimated CEFR difficulty.
	Level     string
	Source    string
	CreatedTs int64
}

type FindMediaItem struct {
	Link  *string
	Level *string
	Limit *int
}

// CreateMediaItem returns ErrAlreadyExists when the link is already stored.
func (s *Store) CreateMediaItem(ctx context.Context, create *MediaItem) (*MediaItem, error) {
	return s.driver.CreateMediaItem(ctx, create)
}

// ListMediaItems returns articles newest first.
func (s *Store) ListMediaItems(ctx context.Context, find *FindMediaItem) ([]*MediaItem, error) {
	return s.driver.ListMediaItems(ctx, find)
}
