package store

import "context"

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Message is immutable once created. Within a conversation, ID order is the history order.
type Message struct {
	ID             int32
	ConversationID int32
	Role           MessageRole
	Content        string
	CreatedTs      int64
}

type FindMessage struct {
	ID             *int32
	ConversationID *int32
}

func (s *Store) CreateMessage(ctx context.Context, create *Message) (*Message, error) {
	return s.driver.CreateMessage(ctx, create)
}

// ListMessages returns messages in insertion order.
func (s *Store) ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error) {
	return s.driver.ListMessages(ctx, find)
}
