package store

import "context"

// Feedback is a grammar correction attached to exactly one user message.
type Feedback struct {
	ID          int32
	MessageID   int32
	UserText    string
	Correction  string
	Explanation string
	CreatedTs   int64
}

type FindFeedback struct {
	MessageID *int32
	// ConversationID joins through the message table.
	ConversationID *int32
}

// CreateFeedback returns ErrAlreadyExists if the message already has a correction.
func (s *Store) CreateFeedback(ctx context.Context, create *Feedback) (*Feedback, error) {
	return s.driver.CreateFeedback(ctx, create)
}

// ListFeedback returns corrections newest first.
func (s *Store) ListFeedback(ctx context.Context, find *FindFeedback) ([]*Feedback, error) {
	return s.driver.ListFeedback(ctx, find)
}
