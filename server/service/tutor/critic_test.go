package tutor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/rod/plugin/ai"
	"github.com/hrygo/rod/store"
)

func TestBuildCriticPrompt(t *testing.T) {
	t.Run("start of conversation", func(t *testing.T) {
		prompt := BuildCriticPrompt(nil, "Jeg er trøtt", "Å nei, sov du dårlig?")
		assert.Contains(t, prompt, "starten på samtalen")
		assert.Contains(t, prompt, "ANALYSEOBJEKT")
		assert.Contains(t, prompt, "'Jeg er trøtt'")
		assert.Contains(t, prompt, "ORAKEL")
		assert.Contains(t, prompt, "'Å nei, sov du dårlig?'")
	})

	t.Run("bounded window with role labels", func(t *testing.T) {
		var history []*store.Message
		for i := 1; i <= 6; i++ {
			role := store.MessageRoleUser
			if i%2 == 0 {
				role = store.MessageRoleAssistant
			}
			history = append(history, &store.Message{ID: int32(i), Role: role, Content: "melding-" + string(rune('0'+i))})
		}

		prompt := BuildCriticPrompt(history, "siste", "svar")
		assert.NotContains(t, prompt, "melding-1")
		assert.NotContains(t, prompt, "melding-2")
		for _, want := range []string{"Student: melding-3", "Rod (Lærer): melding-4", "Student: melding-5", "Rod (Lærer): melding-6"} {
			assert.Contains(t, prompt, want)
		}
		assert.NotContains(t, prompt, "starten på samtalen")
		assert.Less(t, strings.Index(prompt, "melding-3"), strings.Index(prompt, "melding-6"))
	})
}

func TestParseFinding(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		wantOK bool
		want   *Finding
	}{
		{
			name:   "error with correction",
			raw:    `{"has_error": true, "correction": "Jeg heter Ola.", "explanation": "You used the wrong verb."}`,
			wantOK: true,
			want:   &Finding{HasError: true, Correction: "Jeg heter Ola.", Explanation: "You used the wrong verb."},
		},
		{
			name:   "no error",
			raw:    `{"has_error": false}`,
			wantOK: true,
			want:   &Finding{HasError: false},
		},
		{
			name:   "fenced json",
			raw:    "```json\n{\"has_error\": true, \"correction\": \"Hei.\", \"explanation\": \"x\"}\n```",
			wantOK: true,
			want:   &Finding{HasError: true, Correction: "Hei.", Explanation: "x"},
		},
		{
			name:   "error without correction is no finding",
			raw:    `{"has_error": true, "correction": "  ", "explanation": "hmm"}`,
			wantOK: true,
			want:   &Finding{HasError: false, Explanation: "hmm"},
		},
		{name: "missing has_error", raw: `{"correction": "Hei."}`},
		{name: "string has_error", raw: `{"has_error": "yes"}`},
		{name: "prose", raw: "The sentence looks fine."},
		{name: "empty", raw: ""},
		{name: "array", raw: `[true]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseFinding(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newCritiqueFixture(t *testing.T, ts *store.Store) *Critique {
	t.Helper()
	ctx := context.Background()
	userID := "user-" + t.Name()
	_, err := ts.EnsureUser(ctx, &store.User{ID: userID})
	require.NoError(t, err)
	conversation, err := ts.CreateConversation(ctx, &store.Conversation{UserID: userID})
	require.NoError(t, err)
	message, err := ts.CreateMessage(ctx, &store.Message{ConversationID: conversation.ID, Role: store.MessageRoleUser, Content: "Jeg er heter Ola"})
	require.NoError(t, err)
	return &Critique{
		MessageID:      message.ID,
		ConversationID: conversation.ID,
		UserID:         userID,
		UserText:       message.Content,
		Reply:          "Hei Ola!",
		Level:          LevelB1,
	}
}

func TestCriticCritique(t *testing.T) {
	ctx := context.Background()

	t.Run("finding is persisted once", func(t *testing.T) {
		ts := newTestStore(t)
		job := newCritiqueFixture(t, ts)
		llm := ai.NewMockLLMService(`{"has_error": true, "correction": "Jeg heter Ola.", "explanation": "Drop \"er\"."}`)
		critic := NewCritic(ts, llm)

		feedback, err := critic.Critique(ctx, job)
		require.NoError(t, err)
		require.NotNil(t, feedback)
		assert.Equal(t, "Jeg heter Ola.", feedback.Correction)
		assert.Equal(t, job.UserText, feedback.UserText)

		// The policy of the job's level is used as system prompt.
		calls := llm.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, CriticPolicyFor(LevelB1).Instructions, calls[0][0].Content)

		again, err := critic.Critique(ctx, job)
		require.NoError(t, err)
		assert.Nil(t, again)

		list, err := ts.ListFeedback(ctx, &store.FindFeedback{ConversationID: &job.ConversationID})
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	for name, llm := range map[string]*ai.MockLLMService{
		"no error":    ai.NewMockLLMService(`{"has_error": false, "correction": "", "explanation": ""}`),
		"unparsable":  ai.NewMockLLMService("Looks good to me!"),
		"llm failure": {ChatFunc: func(context.Context, []ai.Message) (string, error) { return "", errors.New("503") }},
	} {
		t.Run(name, func(t *testing.T) {
			ts := newTestStore(t)
			job := newCritiqueFixture(t, ts)

			feedback, err := NewCritic(ts, llm).Critique(ctx, job)
			require.NoError(t, err)
			assert.Nil(t, feedback)

			list, err := ts.ListFeedback(ctx, &store.FindFeedback{MessageID: &job.MessageID})
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}
