package tutor

import (
	"context"

	"github.com/hrygo/rod/store"
)

// Store is the interface for store operations needed by the tutor service.
type Store interface {
	EnsureUser(ctx context.Context, create *store.User) (*store.User, error)
	GetUser(ctx context.Context, find *store.FindUser) (*store.User, error)
	UpdateUser(ctx context.Context, update *store.UpdateUser) (*store.User, error)
	SwapUserStreak(ctx context.Context, swap *store.SwapUserStreak) (bool, error)

	CreateConversation(ctx context.Context, create *store.Conversation) (*store.Conversation, error)
	ListConversations(ctx context.Context, find *store.FindConversation) ([]*store.Conversation, error)
	GetConversation(ctx context.Context, find *store.FindConversation) (*store.Conversation, error)
	GetLatestConversation(ctx context.Context, userID string) (*store.Conversation, error)
	UpdateConversation(ctx context.Context, update *store.UpdateConversation) (*store.Conversation, error)

	CreateMessage(ctx context.Context, create *store.Message) (*store.Message, error)
	ListMessages(ctx context.Context, find *store.FindMessage) ([]*store.Message, error)

	CreateFeedback(ctx context.Context, create *store.Feedback) (*store.Feedback, error)
	ListFeedback(ctx context.Context, find *store.FindFeedback) ([]*store.Feedback, error)
}

var _ Store = (*store.Store)(nil)

// CritiqueScheduler hands a critique off to background workers.
type CritiqueScheduler interface {
	// Enqueue must not block. It reports false when the job was dropped.
	Enqueue(job *Critique) bool
}
