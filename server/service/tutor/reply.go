package tutor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hrygo/rod/plugin/ai"
	"github.com/hrygo/rod/plugin/ai/timeout"
	apperrors "github.com/hrygo/rod/server/internal/errors"
	"github.com/hrygo/rod/server/internal/observability"
	"github.com/hrygo/rod/store"
)

// FallbackReply is returned whenever the reply collaborator fails.
const FallbackReply = "Beklager, jeg har problemer med å koble til akkurat nå."

// Reply is a generated tutor turn.
type Reply struct {
	Text string
	// Fallback is set when Text is FallbackReply because generation failed.
	Fallback bool
	// History is the conversation as submitted, oldest first.
	History []*store.Message
}

// ReplyGenerator builds the prompt for a level and asks the LLM for the next turn.
type ReplyGenerator struct {
	store   Store
	llm     ai.LLMService
	timeout time.Duration
}

// NewReplyGenerator creates a reply generator. A non-positive timeout uses the default.
func NewReplyGenerator(store Store, llm ai.LLMService, replyTimeout time.Duration) *ReplyGenerator {
	if replyTimeout <= 0 {
		replyTimeout = timeout.ReplyTimeout
	}
	return &ReplyGenerator{store: store, llm: llm, timeout: replyTimeout}
}

// Generate loads the full history of conversation and returns the tutor's reply.
// Collaborator failures, timeouts and empty output yield FallbackReply; only
// persistence failures are returned as errors.
func (g *ReplyGenerator) Generate(ctx context.Context, conversation *store.Conversation, level Level) (*Reply, error) {
	history, err := g.store.ListMessages(ctx, &store.FindMessage{ConversationID: &conversation.ID})
	if err != nil {
		return nil, apperrors.Internal("failed to load history", err)
	}

	messages := BuildReplyMessages(PersonaFor(level), conversation.ContextLock, history)

	genCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, err := g.llm.Chat(genCtx, messages)
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		logger := observability.Logger(ctx).With(
			slog.Int(observability.LogFieldConversationID, int(conversation.ID)),
			slog.String("level", string(level)),
		)
		if err != nil {
			logger.Warn("reply generation failed, using fallback", slog.String("error", err.Error()))
		} else {
			logger.Warn("reply generation returned empty output, using fallback")
		}
		return &Reply{Text: FallbackReply, Fallback: true, History: history}, nil
	}
	return &Reply{Text: text, History: history}, nil
}

// BuildReplyMessages assembles persona instructions, an optional topic block and
// the ordered history.
func BuildReplyMessages(persona Persona, contextLock string, history []*store.Message) []ai.Message {
	system := persona.Instructions
	if topic := topicBlock(contextLock); topic != "" {
		system += "\n\n" + topic
	}

	messages := make([]ai.Message, 0, len(history)+1)
	messages = append(messages, ai.SystemPrompt(system))
	for _, m := range history {
		if m.Role == store.MessageRoleAssistant {
			messages = append(messages, ai.AssistantMessage(m.Content))
		} else {
			messages = append(messages, ai.UserMessage(m.Content))
		}
	}
	return messages
}

// topicBlock renders a context lock for the persona. Payloads with a title or
// summary are rendered as fields; anything else is passed through verbatim.
func topicBlock(contextLock string) string {
	if contextLock == "" {
		return ""
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(contextLock), &fields); err == nil {
		title, _ := fields["title"].(string)
		summary, _ := fields["summary"].(string)
		if title != "" || summary != "" {
			var b strings.Builder
			b.WriteString("TEMA: Brukeren vil snakke om denne artikkelen. Hold samtalen til temaet.\n")
			if title != "" {
				fmt.Fprintf(&b, "Tittel: %s\n", title)
			}
			if summary != "" {
				fmt.Fprintf(&b, "Sammendrag: %s\n", summary)
			}
			return strings.TrimRight(b.String(), "\n")
		}
	}
	return "TEMA: Brukeren vil snakke om dette: " + contextLock
}
