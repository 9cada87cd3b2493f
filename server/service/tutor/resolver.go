package tutor

import (
	"bytes"
	"context"
	"encoding/json"

	apperrors "github.com/hrygo/rod/server/internal/errors"
	"github.com/hrygo/rod/store"
)

// ResolveRequest describes which thread an inbound message asks for.
type ResolveRequest struct {
	UserID         string
	ConversationID *int32
	// ContextLock is an optional JSON topic payload. null and empty count as absent.
	ContextLock json.RawMessage
	ForceNew    bool
}

func (r *ResolveRequest) hasContextLock() bool {
	return normalizeContextLock(r.ContextLock) != ""
}

// explicitConversation reports the conversation id that precedence would honour, if any.
func (r *ResolveRequest) explicitConversation() (int32, bool) {
	if r.ForceNew || r.hasContextLock() || r.ConversationID == nil {
		return 0, false
	}
	return *r.ConversationID, true
}

func normalizeContextLock(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	return string(trimmed)
}

// Resolver picks the conversation a message belongs to.
type Resolver struct {
	store Store
}

// NewResolver creates a new conversation resolver.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Lookup loads a conversation. A missing conversation, or one owned by someone
// other than ownerID when ownerID is set, is NOT_FOUND.
func (r *Resolver) Lookup(ctx context.Context, conversationID int32, ownerID string) (*store.Conversation, error) {
	conversation, err := r.store.GetConversation(ctx, &store.FindConversation{ID: &conversationID})
	if err != nil {
		return nil, apperrors.Internal("failed to load conversation", err)
	}
	if conversation == nil || (ownerID != "" && conversation.UserID != ownerID) {
		return nil, apperrors.NotFound("conversation not found").WithContext("conversation_id", conversationID)
	}
	return conversation, nil
}

// Resolve ensures the user exists, then applies, highest first:
//  1. ForceNew or a context lock: a new conversation carrying the lock.
//  2. An explicit conversation id owned by the user.
//  3. The user's latest conversation, or a new one when there is none.
func (r *Resolver) Resolve(ctx context.Context, req *ResolveRequest) (*store.Conversation, error) {
	if _, err := r.store.EnsureUser(ctx, &store.User{ID: req.UserID}); err != nil {
		return nil, apperrors.Internal("failed to ensure user", err)
	}

	if req.ForceNew || req.hasContextLock() {
		return r.create(ctx, req.UserID, normalizeContextLock(req.ContextLock))
	}

	if id, ok := req.explicitConversation(); ok {
		return r.Lookup(ctx, id, req.UserID)
	}

	latest, err := r.store.GetLatestConversation(ctx, req.UserID)
	if err != nil {
		return nil, apperrors.Internal("failed to load latest conversation", err)
	}
	if latest != nil {
		return latest, nil
	}
	return r.create(ctx, req.UserID, "")
}

func (r *Resolver) create(ctx context.Context, userID, contextLock string) (*store.Conversation, error) {
	conversation, err := r.store.CreateConversation(ctx, &store.Conversation{
		UserID:      userID,
		ContextLock: contextLock,
	})
	if err != nil {
		return nil, apperrors.Internal("failed to create conversation", err)
	}
	return conversation, nil
}
