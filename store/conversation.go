package store

import "context"

type Conversation struct {
	ID     int32
	UserID string
	// ContextLock is the raw JSON topic payload, empty when the thread is free-form.
	ContextLock string
	Title       string
	CreatedTs   int64

	// FirstUserMessage is filled by ListConversations; nil when the thread has no user message yet.
	FirstUserMessage *string
}

type FindConversation struct {
	ID     *int32
	UserID *string
	// Limit caps the result; conversations are always returned newest first.
	Limit *int
}

type UpdateConversation struct {
	ID    int32
	Title *string
}

func (s *Store) CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error) {
	return s.driver.CreateConversation(ctx, create)
}

func (s *Store) ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error) {
	return s.driver.ListConversations(ctx, find)
}

// GetConversation returns nil without error when no conversation matches.
func (s *Store) GetConversation(ctx context.Context, find *FindConversation) (*Conversation, error) {
	limit := 1
	find.Limit = &limit
	list, err := s.ListConversations(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// GetLatestConversation returns the most recently created conversation of the user, or nil.
func (s *Store) GetLatestConversation(ctx context.Context, userID string) (*Conversation, error) {
	return s.GetConversation(ctx, &FindConversation{UserID: &userID})
}

func (s *Store) UpdateConversation(ctx context.Context, update *UpdateConversation) (*Conversation, error) {
	return s.driver.UpdateConversation(ctx, update)
}
