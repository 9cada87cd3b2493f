package tutor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/rod/plugin/ai"
	apperrors "github.com/hrygo/rod/server/internal/errors"
	"github.com/hrygo/rod/store"
)

// englishAwareCritic flags target messages written in English, as the
// intermediate and advanced policies require.
func englishAwareCritic() *ai.MockLLMService {
	return &ai.MockLLMService{ChatFunc: func(_ context.Context, messages []ai.Message) (string, error) {
		prompt := messages[len(messages)-1].Content
		target := prompt[strings.Index(prompt, "ANALYSEOBJEKT"):strings.Index(prompt, "ORAKEL")]
		if strings.Contains(target, "I would like") {
			return `{"has_error": true, "correction": "Jeg vil gjerne ha en kaffe.", "explanation": "You wrote in English."}`, nil
		}
		return `{"has_error": false}`, nil
	}}
}

type serviceFixture struct {
	store     *store.Store
	service   *Service
	scheduler *recordingScheduler
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	ts := newTestStore(t)
	scheduler := &recordingScheduler{}
	svc := NewService(ts, ai.NewMockLLMService("Så hyggelig! Fortell mer."), scheduler, Options{MaxMessageLength: 50})
	svc.Streaks().now = fixedClock("2026-03-10")
	return &serviceFixture{store: ts, service: svc, scheduler: scheduler}
}

func (f *serviceFixture) conversationCount(t *testing.T, userID string) int {
	t.Helper()
	list, err := f.store.ListConversations(context.Background(), &store.FindConversation{UserID: &userID})
	require.NoError(t, err)
	return len(list)
}

func TestHandleMessageAlternatingHistory(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	userID := "user-" + t.Name()

	var conversationID int32
	for n := 1; n <= 4; n++ {
		resp, err := f.service.HandleMessage(ctx, &ChatRequest{UserID: userID, Message: fmt.Sprintf("Melding %d", n)})
		require.NoError(t, err)
		assert.Equal(t, "Så hyggelig! Fortell mer.", resp.Reply)
		if n == 1 {
			conversationID = resp.ConversationID
		}
		assert.Equal(t, conversationID, resp.ConversationID, "the latest conversation is resumed")

		messages, err := f.service.GetMessages(ctx, conversationID, userID)
		require.NoError(t, err)
		require.Len(t, messages, 2*n)
		for i, m := range messages {
			if i%2 == 0 {
				assert.Equal(t, store.MessageRoleUser, m.Role)
			} else {
				assert.Equal(t, store.MessageRoleAssistant, m.Role)
			}
		}
	}
}

func TestHandleMessageFirstAndSecondTurn(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore(t)
	critic := NewCritic(ts, englishAwareCritic())
	svc := NewService(ts, ai.NewMockLLMService("Hei Ola! Hyggelig å møte deg."), &inlineScheduler{critic: critic}, Options{})
	svc.Streaks().now = fixedClock("2026-03-10")
	userID := "u1-" + t.Name()

	first, err := svc.HandleMessage(ctx, &ChatRequest{UserID: userID, Message: "Hei, jeg heter Ola"})
	require.NoError(t, err)

	messages, err := svc.GetMessages(ctx, first.ConversationID, "")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, store.MessageRoleUser, messages[0].Role)
	assert.Equal(t, store.MessageRoleAssistant, messages[1].Role)

	streak, err := svc.GetStreak(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int32(1), streak)

	feedback, err := svc.GetFeedback(ctx, first.ConversationID, userID)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(feedback), 1)

	second, err := svc.HandleMessage(ctx, &ChatRequest{UserID: userID, Message: "Jeg bor i Bergen", ConversationID: &first.ConversationID})
	require.NoError(t, err)
	assert.Equal(t, first.ConversationID, second.ConversationID)

	list, err := ts.ListConversations(ctx, &store.FindConversation{UserID: &userID})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	messages, err = svc.GetMessages(ctx, first.ConversationID, userID)
	require.NoError(t, err)
	assert.Len(t, messages, 4)
	streak, err = svc.GetStreak(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int32(1), streak, "same-day message does not extend the streak")
}

func TestHandleMessageEnglishAtB1IsFlagged(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore(t)
	critic := NewCritic(ts, englishAwareCritic())
	svc := NewService(ts, ai.NewMockLLMService("Vil du ha melk i kaffen?"), &inlineScheduler{critic: critic}, Options{})
	userID := "user-" + t.Name()

	level, err := svc.SetLevel(ctx, userID, "B1")
	require.NoError(t, err)
	assert.Equal(t, LevelB1, level)

	resp, err := svc.HandleMessage(ctx, &ChatRequest{UserID: userID, Message: "I would like a coffee"})
	require.NoError(t, err)

	feedback, err := svc.GetFeedback(ctx, resp.ConversationID, userID)
	require.NoError(t, err)
	require.Len(t, feedback, 1)
	assert.Equal(t, "I would like a coffee", feedback[0].UserText)
	assert.Equal(t, "Jeg vil gjerne ha en kaffe.", feedback[0].Correction)

	// A correct follow-up adds no feedback.
	_, err = svc.HandleMessage(ctx, &ChatRequest{UserID: userID, Message: "Ja takk", ConversationID: &resp.ConversationID})
	require.NoError(t, err)
	feedback, err = svc.GetFeedback(ctx, resp.ConversationID, userID)
	require.NoError(t, err)
	assert.Len(t, feedback, 1)
}

func TestHandleMessageSchedulesCritiqueSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	userID := "user-" + t.Name()

	_, err := f.service.SetLevel(ctx, userID, "a2")
	require.NoError(t, err)

	var conversationID int32
	for i := 0; i < 3; i++ {
		resp, err := f.service.HandleMessage(ctx, &ChatRequest{UserID: userID, Message: fmt.Sprintf("tur %d", i)})
		require.NoError(t, err)
		conversationID = resp.ConversationID
	}

	jobs := f.scheduler.Jobs()
	require.Len(t, jobs, 3)
	assert.Empty(t, jobs[0].Context)
	last := jobs[2]
	assert.Equal(t, "tur 2", last.UserText)
	assert.Equal(t, LevelA2, last.Level)
	assert.Equal(t, conversationID, last.ConversationID)
	require.Len(t, last.Context, CriticContextSize)
	for _, m := range last.Context {
		assert.Less(t, m.ID, last.MessageID, "context holds only messages before the critiqued one")
	}
	assert.Equal(t, "tur 1", last.Context[2].Content)
}

func TestHandleMessageDroppedCritiqueStillReplies(t *testing.T) {
	f := newServiceFixture(t)
	f.scheduler.drop = true

	resp, err := f.service.HandleMessage(context.Background(), &ChatRequest{UserID: "user-" + t.Name(), Message: "Hei"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Reply)
}

func TestHandleMessageContextLockAlwaysNew(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	userID := "user-" + t.Name()

	first, err := f.service.HandleMessage(ctx, &ChatRequest{UserID: userID, Message: "Hei"})
	require.NoError(t, err)

	article := json.RawMessage(`{"title":"Storm på Vestlandet","summary":"Kraftig vind."}`)
	locked, err := f.service.HandleMessage(ctx, &ChatRequest{UserID: userID, Message: "Hva synes du?", ContextLock: article, ConversationID: &first.ConversationID})
	require.NoError(t, err)
	assert.NotEqual(t, first.ConversationID, locked.ConversationID)

	forced, err := f.service.HandleMessage(ctx, &ChatRequest{UserID: userID, Message: "Ny start", ForceNew: true})
	require.NoError(t, err)
	assert.NotEqual(t, locked.ConversationID, forced.ConversationID)
	assert.Equal(t, 3, f.conversationCount(t, userID))
}

func TestHandleMessageRejectsInvalidInputWithoutSideEffects(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	userID := "user-" + t.Name()

	tests := []struct {
		name string
		req  *ChatRequest
		code apperrors.ErrorCode
	}{
		{"empty message", &ChatRequest{UserID: userID, Message: "   "}, apperrors.ErrCodeInvalidArgument},
		{"missing user", &ChatRequest{Message: "Hei"}, apperrors.ErrCodeInvalidArgument},
		{"too long", &ChatRequest{UserID: userID, Message: strings.Repeat("å", 51)}, apperrors.ErrCodeInvalidArgument},
		{"unknown conversation", &ChatRequest{UserID: userID, Message: "Hei", ConversationID: ptr(int32(4242))}, apperrors.ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.HandleMessage(ctx, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.GetCodeFromError(err, apperrors.ErrCodeInternal))
		})
	}

	user, err := f.store.GetUser(ctx, &store.FindUser{ID: &userID})
	require.NoError(t, err)
	assert.Nil(t, user, "rejected requests must not create the user")
	assert.Empty(t, f.scheduler.Jobs())
}

func TestHandleMessageRejectsForeignConversation(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	owner, intruder := "owner-"+t.Name(), "intruder-"+t.Name()

	resp, err := f.service.HandleMessage(ctx, &ChatRequest{UserID: owner, Message: "Hemmelig"})
	require.NoError(t, err)

	_, err = f.service.HandleMessage(ctx, &ChatRequest{UserID: intruder, Message: "Hei", ConversationID: &resp.ConversationID})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))

	user, err := f.store.GetUser(ctx, &store.FindUser{ID: &intruder})
	require.NoError(t, err)
	assert.Nil(t, user)

	messages, err := f.service.GetMessages(ctx, resp.ConversationID, owner)
	require.NoError(t, err)
	assert.Len(t, messages, 2)

	_, err = f.service.GetMessages(ctx, resp.ConversationID, intruder)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
	_, err = f.service.GetFeedback(ctx, resp.ConversationID, intruder)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
	err = f.service.RenameConversation(ctx, resp.ConversationID, "Mitt", intruder)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
}

func TestListConversationsTitles(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	userID := "user-" + t.Name()

	long := "Dette er en ganske lang første melding"
	first, err := f.service.HandleMessage(ctx, &ChatRequest{UserID: userID, Message: long})
	require.NoError(t, err)
	second, err := f.service.HandleMessage(ctx, &ChatRequest{UserID: userID, Message: "Kort", ForceNew: true})
	require.NoError(t, err)
	empty, err := f.store.CreateConversation(ctx, &store.Conversation{UserID: userID})
	require.NoError(t, err)

	list, err := f.service.ListConversations(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 3)

	// Newest first.
	assert.Equal(t, []int32{empty.ID, second.ConversationID, first.ConversationID}, []int32{list[0].ID, list[1].ID, list[2].ID})
	assert.Equal(t, PlaceholderTitle, list[0].Title)
	assert.Equal(t, "Kort", list[1].Title)
	assert.Equal(t, string([]rune(long)[:TitleSnippetLength])+"...", list[2].Title)
	assert.False(t, list[2].Date.IsZero())

	require.NoError(t, f.service.RenameConversation(ctx, first.ConversationID, "  Om meg  ", userID))
	list, err = f.service.ListConversations(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "Om meg", list[2].Title)

	err = f.service.RenameConversation(ctx, first.ConversationID, " ", "")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidArgument))
	err = f.service.RenameConversation(ctx, 99999, "x", "")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
}

func TestDisplayTitle(t *testing.T) {
	exact := strings.Repeat("a", TitleSnippetLength)
	assert.Equal(t, exact, DisplayTitle(&store.Conversation{FirstUserMessage: &exact}))
	assert.Equal(t, "Eget", DisplayTitle(&store.Conversation{Title: "Eget", FirstUserMessage: &exact}))
	assert.Equal(t, PlaceholderTitle, DisplayTitle(&store.Conversation{}))
}

func TestLevelAndStreakForUnknownUser(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	userID := "user-" + t.Name()

	level, err := f.service.GetLevel(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, LevelA1, level)

	streak, err := f.service.GetStreak(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int32(0), streak)

	_, err = f.service.SetLevel(ctx, userID, "D4")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidArgument))

	_, err = f.service.SetLevel(ctx, userID, "c1")
	require.NoError(t, err)
	level, err = f.service.GetLevel(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, LevelC1, level)

	_, err = f.service.SetLevel(ctx, userID, "A2")
	require.NoError(t, err)
	level, err = f.service.GetLevel(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, LevelA2, level)
}

func TestHandleMessageUsesLevelPersona(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore(t)
	llm := ai.NewMockLLMService("Kjempebra!")
	svc := NewService(ts, llm, nil, Options{})
	userID := "user-" + t.Name()

	_, err := svc.SetLevel(ctx, userID, "C1")
	require.NoError(t, err)
	_, err = svc.HandleMessage(ctx, &ChatRequest{UserID: userID, Message: "Skjer a?"})
	require.NoError(t, err)

	calls := llm.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, PersonaFor(LevelC1).Instructions, calls[0][0].Content)
	assert.Equal(t, "Skjer a?", calls[0][len(calls[0])-1].Content)
}
