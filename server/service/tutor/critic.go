package tutor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hrygo/rod/plugin/ai"
	"github.com/hrygo/rod/server/internal/observability"
	"github.com/hrygo/rod/store"
)

// CriticContextSize is how many prior messages the critic sees.
const CriticContextSize = 4

// Critique is one unit of background grammar work for a user message.
type Critique struct {
	MessageID      int32
	ConversationID int32
	UserID         string
	UserText       string
	Reply          string
	Level          Level
	// Context holds the messages before the critiqued one, oldest first.
	Context []*store.Message
	// RequestID links background logs to the originating request.
	RequestID string
}

// Finding is the critic's verdict on one message.
type Finding struct {
	HasError    bool
	Correction  string
	Explanation string
}

// Critic judges user messages and persists corrections.
type Critic struct {
	store Store
	llm   ai.LLMService
}

// NewCritic creates a grammar critic. llm should be configured for JSON output.
func NewCritic(store Store, llm ai.LLMService) *Critic {
	return &Critic{store: store, llm: llm}
}

// Critique runs the critic for job. It returns the stored feedback, or nil when
// there is no finding. Collaborator failures are never returned; only a failure
// to persist a finding is.
func (c *Critic) Critique(ctx context.Context, job *Critique) (*store.Feedback, error) {
	logger := observability.Logger(ctx).With(
		slog.Int(observability.LogFieldMessageID, int(job.MessageID)),
		slog.Int(observability.LogFieldConversationID, int(job.ConversationID)),
	)

	policy := CriticPolicyFor(job.Level)
	raw, err := c.llm.Chat(ctx, []ai.Message{
		ai.SystemPrompt(policy.Instructions),
		ai.UserMessage(BuildCriticPrompt(job.Context, job.UserText, job.Reply)),
	})
	if err != nil {
		logger.Warn("grammar critique failed", slog.String("error", err.Error()))
		return nil, nil
	}

	finding, ok := ParseFinding(raw)
	if !ok {
		logger.Warn("grammar critique returned unparsable output", slog.Int("length", len(raw)))
		return nil, nil
	}
	if !finding.HasError {
		return nil, nil
	}

	feedback, err := c.store.CreateFeedback(ctx, &store.Feedback{
		MessageID:   job.MessageID,
		UserText:    job.UserText,
		Correction:  finding.Correction,
		Explanation: finding.Explanation,
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			logger.Info("message already has feedback")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to save feedback: %w", err)
	}
	logger.Info("grammar feedback saved", slog.Int("feedback_id", int(feedback.ID)))
	return feedback, nil
}

// BuildCriticPrompt renders the context window, the target message and the
// tutor's reply used as an oracle for intent.
func BuildCriticPrompt(history []*store.Message, userText, reply string) string {
	var b strings.Builder
	b.WriteString("SAMTALEHISTORIKK (KONTEKST)\n")

	window := history
	if len(window) > CriticContextSize {
		window = window[len(window)-CriticContextSize:]
	}
	if len(window) == 0 {
		b.WriteString("(Ingen tidligere meldinger. Dette er starten på samtalen.)\n")
	}
	for _, m := range window {
		label := "Student"
		if m.Role == store.MessageRoleAssistant {
			label = "Rod (Lærer)"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, m.Content)
	}

	fmt.Fprintf(&b, "\nANALYSEOBJEKT\nSiste melding fra student (RETT DENNE): '%s'\n", userText)
	fmt.Fprintf(&b, "\nORAKEL (TOLKNING)\nRods svar på denne meldingen: '%s'", reply)
	return b.String()
}

type rawFinding struct {
	HasError    *bool  `json:"has_error"`
	Correction  string `json:"correction"`
	Explanation string `json:"explanation"`
}

// ParseFinding decodes critic output. It reports false when the output is not a
// JSON object with a boolean has_error. A flagged error without a correction is
// reported as no error.
func ParseFinding(raw string) (*Finding, bool) {
	body := stripCodeFence(raw)
	if body == "" {
		return nil, false
	}

	var parsed rawFinding
	if err := json.Unmarshal([]byte(body), &parsed); err != nil || parsed.HasError == nil {
		return nil, false
	}

	finding := &Finding{
		HasError:    *parsed.HasError,
		Correction:  strings.TrimSpace(parsed.Correction),
		Explanation: strings.TrimSpace(parsed.Explanation),
	}
	if finding.HasError && finding.Correction == "" {
		finding.HasError = false
	}
	return finding, true
}

func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
