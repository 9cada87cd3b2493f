// Package tutor implements the conversation layer of the language tutor:
// resolving threads, generating level-appropriate replies, tracking streaks and
// scheduling background grammar critique.
package tutor

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hrygo/rod/plugin/ai"
	apperrors "github.com/hrygo/rod/server/internal/errors"
	"github.com/hrygo/rod/server/internal/observability"
	"github.com/hrygo/rod/store"
)

const (
	// DefaultMaxMessageLength is the message limit in runes when none is configured.
	DefaultMaxMessageLength = 2000
	// TitleSnippetLength is the rune length of a title derived from the first message.
	TitleSnippetLength = 30
	// PlaceholderTitle names a conversation without any user message.
	PlaceholderTitle = "Ny Samtale"
	// MaxTitleLength bounds explicit titles in runes.
	MaxTitleLength = 200
)

// Options configures the tutor service.
type Options struct {
	MaxMessageLength int
	ReplyTimeout     time.Duration
	// Location decides calendar days for streaks.
	Location *time.Location
}

// ChatRequest is one inbound user message.
type ChatRequest struct {
	UserID         string
	Message        string
	ConversationID *int32
	ContextLock    json.RawMessage
	ForceNew       bool
}

// ChatResponse is the tutor's answer to a ChatRequest.
type ChatResponse struct {
	Reply          string
	ConversationID int32
	Fallback       bool
}

// ConversationSummary is one row of a user's history list.
type ConversationSummary struct {
	ID    int32
	Date  time.Time
	Title string
}

// Service sequences the tutor components per request.
type Service struct {
	store     Store
	streaks   *StreakTracker
	resolver  *Resolver
	replies   *ReplyGenerator
	scheduler CritiqueScheduler

	maxMessageLength int
}

// NewService creates the tutor service. scheduler may be nil, which disables critique.
func NewService(st Store, llm ai.LLMService, scheduler CritiqueScheduler, opts Options) *Service {
	if opts.MaxMessageLength <= 0 {
		opts.MaxMessageLength = DefaultMaxMessageLength
	}
	return &Service{
		store:            st,
		streaks:          NewStreakTracker(st, opts.Location),
		resolver:         NewResolver(st),
		replies:          NewReplyGenerator(st, llm, opts.ReplyTimeout),
		scheduler:        scheduler,
		maxMessageLength: opts.MaxMessageLength,
	}
}

// Streaks exposes the tracker, mainly for tests that need to pin the clock.
func (s *Service) Streaks() *StreakTracker {
	return s.streaks
}

// HandleMessage runs one chat turn: validate, check ownership, touch the streak
// (which ensures the user), resolve the thread, persist the user message,
// generate and persist the reply, then schedule critique without waiting on it.
func (s *Service) HandleMessage(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	userID := strings.TrimSpace(req.UserID)
	text := strings.TrimSpace(req.Message)
	if userID == "" {
		return nil, apperrors.InvalidArgument("user_id is required")
	}
	if text == "" {
		return nil, apperrors.InvalidArgument("message must not be empty")
	}
	if utf8.RuneCountInString(text) > s.maxMessageLength {
		return nil, apperrors.InvalidArgument("message is too long").WithContext("max_length", s.maxMessageLength)
	}

	resolveReq := &ResolveRequest{
		UserID:         userID,
		ConversationID: req.ConversationID,
		ContextLock:    req.ContextLock,
		ForceNew:       req.ForceNew,
	}
	// Rejected before anything is written.
	if id, ok := resolveReq.explicitConversation(); ok {
		if _, err := s.resolver.Lookup(ctx, id, userID); err != nil {
			return nil, err
		}
	}

	user, err := s.streaks.Touch(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to update streak", err)
	}
	level := levelOrDefault(user.Level)

	conversation, err := s.resolver.Resolve(ctx, resolveReq)
	if err != nil {
		return nil, err
	}

	userMessage, err := s.store.CreateMessage(ctx, &store.Message{
		ConversationID: conversation.ID,
		Role:           store.MessageRoleUser,
		Content:        text,
	})
	if err != nil {
		return nil, apperrors.Internal("failed to save message", err)
	}

	reply, err := s.replies.Generate(ctx, conversation, level)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.CreateMessage(ctx, &store.Message{
		ConversationID: conversation.ID,
		Role:           store.MessageRoleAssistant,
		Content:        reply.Text,
	}); err != nil {
		return nil, apperrors.Internal("failed to save reply", err)
	}

	s.scheduleCritique(ctx, &Critique{
		MessageID:      userMessage.ID,
		ConversationID: conversation.ID,
		UserID:         userID,
		UserText:       text,
		Reply:          reply.Text,
		Level:          level,
		Context:        priorMessages(reply.History, userMessage.ID, CriticContextSize),
		RequestID:      observability.RequestID(ctx),
	})

	observability.Logger(ctx).Info("chat turn completed",
		slog.Int(observability.LogFieldConversationID, int(conversation.ID)),
		slog.Int(observability.LogFieldMessageLen, utf8.RuneCountInString(text)),
		slog.String("level", string(level)),
		slog.Bool("fallback", reply.Fallback),
	)
	return &ChatResponse{
		Reply:          reply.Text,
		ConversationID: conversation.ID,
		Fallback:       reply.Fallback,
	}, nil
}

func (s *Service) scheduleCritique(ctx context.Context, job *Critique) {
	if s.scheduler == nil {
		return
	}
	if !s.scheduler.Enqueue(job) {
		observability.Logger(ctx).Warn("critique queue full, skipping grammar check",
			slog.Int(observability.LogFieldMessageID, int(job.MessageID)))
	}
}

// priorMessages returns up to n messages created before messageID, oldest first.
// The result is a fresh slice so later history loads cannot alias it.
func priorMessages(history []*store.Message, messageID int32, n int) []*store.Message {
	end := 0
	for end < len(history) && history[end].ID < messageID {
		end++
	}
	start := end - n
	if start < 0 {
		start = 0
	}
	return append([]*store.Message(nil), history[start:end]...)
}

// ListConversations returns the user's conversations newest first.
func (s *Service) ListConversations(ctx context.Context, userID string) ([]*ConversationSummary, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.InvalidArgument("user_id is required")
	}
	conversations, err := s.store.ListConversations(ctx, &store.FindConversation{UserID: &userID})
	if err != nil {
		return nil, apperrors.Internal("failed to list conversations", err)
	}

	summaries := make([]*ConversationSummary, 0, len(conversations))
	for _, c := range conversations {
		summaries = append(summaries, &ConversationSummary{
			ID:    c.ID,
			Date:  time.Unix(c.CreatedTs, 0).UTC(),
			Title: DisplayTitle(c),
		})
	}
	return summaries, nil
}

// DisplayTitle is the explicit title, else a snippet of the first user message,
// else PlaceholderTitle.
func DisplayTitle(c *store.Conversation) string {
	if c.Title != "" {
		return c.Title
	}
	if c.FirstUserMessage == nil {
		return PlaceholderTitle
	}
	runes := []rune(*c.FirstUserMessage)
	if len(runes) <= TitleSnippetLength {
		return *c.FirstUserMessage
	}
	return string(runes[:TitleSnippetLength]) + "..."
}

// RenameConversation sets an explicit title. ownerID is optional.
func (s *Service) RenameConversation(ctx context.Context, conversationID int32, title, ownerID string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return apperrors.InvalidArgument("title must not be empty")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return apperrors.InvalidArgument("title is too long").WithContext("max_length", MaxTitleLength)
	}
	if _, err := s.resolver.Lookup(ctx, conversationID, ownerID); err != nil {
		return err
	}
	if _, err := s.store.UpdateConversation(ctx, &store.UpdateConversation{ID: conversationID, Title: &title}); err != nil {
		return apperrors.Internal("failed to rename conversation", err)
	}
	return nil
}

// GetMessages returns a conversation's messages in insertion order. ownerID is optional.
func (s *Service) GetMessages(ctx context.Context, conversationID int32, ownerID string) ([]*store.Message, error) {
	if _, err := s.resolver.Lookup(ctx, conversationID, ownerID); err != nil {
		return nil, err
	}
	messages, err := s.store.ListMessages(ctx, &store.FindMessage{ConversationID: &conversationID})
	if err != nil {
		return nil, apperrors.Internal("failed to list messages", err)
	}
	return messages, nil
}

// GetFeedback returns a conversation's corrections newest first. ownerID is optional.
func (s *Service) GetFeedback(ctx context.Context, conversationID int32, ownerID string) ([]*store.Feedback, error) {
	if _, err := s.resolver.Lookup(ctx, conversationID, ownerID); err != nil {
		return nil, err
	}
	feedback, err := s.store.ListFeedback(ctx, &store.FindFeedback{ConversationID: &conversationID})
	if err != nil {
		return nil, apperrors.Internal("failed to list feedback", err)
	}
	return feedback, nil
}

// SetLevel stores a user's proficiency level, creating the user if needed.
func (s *Service) SetLevel(ctx context.Context, userID, level string) (Level, error) {
	if strings.TrimSpace(userID) == "" {
		return "", apperrors.InvalidArgument("user_id is required")
	}
	parsed, err := ParseLevel(level)
	if err != nil {
		return "", err
	}
	if _, err := s.store.EnsureUser(ctx, &store.User{ID: userID, Level: string(parsed)}); err != nil {
		return "", apperrors.Internal("failed to ensure user", err)
	}
	value := string(parsed)
	if _, err := s.store.UpdateUser(ctx, &store.UpdateUser{ID: userID, Level: &value}); err != nil {
		return "", apperrors.Internal("failed to update level", err)
	}
	return parsed, nil
}

// GetLevel returns the user's level, A1 for unknown users.
func (s *Service) GetLevel(ctx context.Context, userID string) (Level, error) {
	user, err := s.store.GetUser(ctx, &store.FindUser{ID: &userID})
	if err != nil {
		return "", apperrors.Internal("failed to load user", err)
	}
	if user == nil {
		return LevelA1, nil
	}
	return levelOrDefault(user.Level), nil
}

// GetStreak returns the stored streak, 0 for unknown users.
func (s *Service) GetStreak(ctx context.Context, userID string) (int32, error) {
	user, err := s.store.GetUser(ctx, &store.FindUser{ID: &userID})
	if err != nil {
		return 0, apperrors.Internal("failed to load user", err)
	}
	if user == nil {
		return 0, nil
	}
	return user.Streak, nil
}
