package tutor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/rod/plugin/ai"
	"github.com/hrygo/rod/store"
)

func TestBuildReplyMessages(t *testing.T) {
	history := []*store.Message{
		{ID: 1, Role: store.MessageRoleUser, Content: "Hei"},
		{ID: 2, Role: store.MessageRoleAssistant, Content: "Hei! Hvordan går det?"},
		{ID: 3, Role: store.MessageRoleUser, Content: "Bra, takk"},
	}

	messages := BuildReplyMessages(PersonaFor(LevelA2), "", history)
	require.Len(t, messages, 4)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, PersonaFor(LevelA2).Instructions, messages[0].Content)
	assert.Equal(t, []string{"user", "assistant", "user"}, []string{messages[1].Role, messages[2].Role, messages[3].Role})
	assert.Equal(t, "Bra, takk", messages[3].Content)
}

func TestTopicBlock(t *testing.T) {
	assert.Empty(t, topicBlock(""))

	block := topicBlock(`{"title":"Valg","summary":"Nye tall fra kommunen."}`)
	assert.Contains(t, block, "Tittel: Valg")
	assert.Contains(t, block, "Sammendrag: Nye tall fra kommunen.")

	raw := topicBlock(`{"topic":"fotball"}`)
	assert.Contains(t, raw, `{"topic":"fotball"}`)

	messages := BuildReplyMessages(PersonaFor(LevelB1), `{"title":"Valg"}`, nil)
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0].Content, "Tittel: Valg")
}

func TestReplyGenerator(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore(t)
	userID := "user-" + t.Name()
	_, err := ts.EnsureUser(ctx, &store.User{ID: userID})
	require.NoError(t, err)
	conversation, err := ts.CreateConversation(ctx, &store.Conversation{UserID: userID})
	require.NoError(t, err)
	_, err = ts.CreateMessage(ctx, &store.Message{ConversationID: conversation.ID, Role: store.MessageRoleUser, Content: "Hei"})
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		llm := ai.NewMockLLMService("  Hei på deg!  ")
		reply, err := NewReplyGenerator(ts, llm, time.Second).Generate(ctx, conversation, LevelB1)
		require.NoError(t, err)
		assert.Equal(t, "Hei på deg!", reply.Text)
		assert.False(t, reply.Fallback)
		require.Len(t, reply.History, 1)

		calls := llm.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, PersonaFor(LevelB1).Instructions, calls[0][0].Content)
		assert.Equal(t, "Hei", calls[0][1].Content)
	})

	t.Run("collaborator error", func(t *testing.T) {
		llm := &ai.MockLLMService{ChatFunc: func(context.Context, []ai.Message) (string, error) {
			return "", errors.New("connection refused")
		}}
		reply, err := NewReplyGenerator(ts, llm, time.Second).Generate(ctx, conversation, LevelA1)
		require.NoError(t, err)
		assert.Equal(t, FallbackReply, reply.Text)
		assert.True(t, reply.Fallback)
	})

	t.Run("empty output", func(t *testing.T) {
		reply, err := NewReplyGenerator(ts, ai.NewMockLLMService("   "), time.Second).Generate(ctx, conversation, LevelA1)
		require.NoError(t, err)
		assert.Equal(t, FallbackReply, reply.Text)
	})

	t.Run("timeout", func(t *testing.T) {
		llm := &ai.MockLLMService{ChatFunc: func(ctx context.Context, _ []ai.Message) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		}}
		start := time.Now()
		reply, err := NewReplyGenerator(ts, llm, 20*time.Millisecond).Generate(ctx, conversation, LevelA1)
		require.NoError(t, err)
		assert.Equal(t, FallbackReply, reply.Text)
		assert.Less(t, time.Since(start), 5*time.Second)
	})
}
