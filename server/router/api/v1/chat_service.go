package v1

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/rod/server/internal/observability"
	"github.com/hrygo/rod/server/service/tutor"
)

// EventReplyFallback counts turns answered with the fallback text.
const EventReplyFallback = "reply_fallback"

type ChatRequest struct {
	UserID         string          `json:"user_id"`
	Message        string          `json:"message"`
	ConversationID *int32          `json:"conversation_id,omitempty"`
	ContextData    json.RawMessage `json:"context_data,omitempty"`
	ForceNew       bool            `json:"force_new,omitempty"`
}

type ChatResponse struct {
	Role           string `json:"role"`
	Content        string `json:"content"`
	ConversationID int32  `json:"conversation_id"`
}

type ConversationResponse struct {
	ID    int32  `json:"id"`
	Date  string `json:"date"`
	Title string `json:"title"`
}

type MessageResponse struct {
	ID        int32  `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

type FeedbackResponse struct {
	UserText    string `json:"user_text"`
	Correction  string `json:"correction"`
	Explanation string `json:"explanation"`
	CreatedAt   string `json:"created_at"`
}

type RenameRequest struct {
	Title string `json:"title"`
}

// PostChat handles one chat turn.
// POST /chat
func (s *APIV1Service) PostChat(c echo.Context) error {
	start := time.Now()
	var opErr error
	defer func() { s.observe(observability.OpChat, start, opErr) }()

	var req ChatRequest
	if opErr = bindJSON(c, &req); opErr != nil {
		return respondError(c, opErr)
	}
	ctx := withUser(c, req.UserID)

	resp, opErr := s.Tutor.HandleMessage(ctx, &tutor.ChatRequest{
		UserID:         req.UserID,
		Message:        req.Message,
		ConversationID: req.ConversationID,
		ContextLock:    req.ContextData,
		ForceNew:       req.ForceNew,
	})
	if opErr != nil {
		return respondError(c, opErr)
	}
	if resp.Fallback {
		s.Metrics.Inc(EventReplyFallback)
	}
	return c.JSON(http.StatusOK, ChatResponse{
		Role:           "assistant",
		Content:        resp.Reply,
		ConversationID: resp.ConversationID,
	})
}

// ListHistory returns the user's conversations newest first.
// GET /history/:user_id
func (s *APIV1Service) ListHistory(c echo.Context) error {
	userID := c.Param("user_id")
	summaries, err := s.Tutor.ListConversations(withUser(c, userID), userID)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]ConversationResponse, 0, len(summaries))
	for _, summary := range summaries {
		out = append(out, ConversationResponse{
			ID:    summary.ID,
			Date:  summary.Date.Format(time.RFC3339),
			Title: summary.Title,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// GetConversationMessages returns the ordered message history.
// GET /chat/:conversation_id?user_id=
func (s *APIV1Service) GetConversationMessages(c echo.Context) error {
	id, err := conversationIDParam(c)
	if err != nil {
		return respondError(c, err)
	}
	owner := ownerParam(c)
	messages, err := s.Tutor.GetMessages(withUser(c, owner), id, owner)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, MessageResponse{
			ID:        m.ID,
			Role:      string(m.Role),
			Content:   m.Content,
			CreatedAt: formatTs(m.CreatedTs),
		})
	}
	return c.JSON(http.StatusOK, out)
}

// RenameConversation sets an explicit title.
// PATCH /conversations/:conversation_id?user_id=
func (s *APIV1Service) RenameConversation(c echo.Context) error {
	id, err := conversationIDParam(c)
	if err != nil {
		return respondError(c, err)
	}
	var req RenameRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, err)
	}
	owner := ownerParam(c)
	if err := s.Tutor.RenameConversation(withUser(c, owner), id, req.Title, owner); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "updated"})
}

// ListFeedback returns the conversation's corrections newest first.
// GET /feedback/:conversation_id?user_id=
func (s *APIV1Service) ListFeedback(c echo.Context) error {
	id, err := conversationIDParam(c)
	if err != nil {
		return respondError(c, err)
	}
	owner := ownerParam(c)
	feedback, err := s.Tutor.GetFeedback(withUser(c, owner), id, owner)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]FeedbackResponse, 0, len(feedback))
	for _, f := range feedback {
		out = append(out, FeedbackResponse{
			UserText:    f.UserText,
			Correction:  f.Correction,
			Explanation: f.Explanation,
			CreatedAt:   formatTs(f.CreatedTs),
		})
	}
	return c.JSON(http.StatusOK, out)
}
