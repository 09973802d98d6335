package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"support-agent/dao"
	"support-agent/internal/aiclient"
	"support-agent/internal/testutil"
	"support-agent/model"
)

type fakeGenerator struct {
	reply   string
	err     error
	delay   time.Duration
	prompts []string
}

func (g *fakeGenerator) Generate(ctx context.Context, req aiclient.GenerateRequest) (string, error) {
	g.prompts = append(g.prompts, req.Prompt)
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return g.reply, g.err
}

type chatFixture struct {
	db  *gorm.DB
	biz *model.Business
	gen *fakeGenerator
	svc *ChatService
}

func newChatFixture(t *testing.T, liveChat bool) *chatFixture {
	t.Helper()
	db := testutil.DB(t)
	f := &chatFixture{
		db:  db,
		biz: testutil.Business(t, db, "acme", liveChat),
		gen: &fakeGenerator{reply: "We are open from 9am to 5pm."},
	}
	opts := DefaultChatOptions()
	opts.ReplyTimeout = 200 * time.Millisecond
	f.svc = NewChatService(ChatDeps{
		Businesses:  dao.NewBusinessStore(db),
		Sessions:    dao.NewSessionStore(db),
		Messages:    dao.NewMessageStore(db),
		Knowledge:   dao.NewKnowledgeStore(db),
		Escalations: dao.NewEscalationStore(db),
		Generator:   f.gen,
	}, opts, zerolog.Nop())
	return f
}

func (f *chatFixture) ask(t *testing.T, sessionID, message string) *model.ChatResponse {
	t.Helper()
	resp, err := f.svc.HandleMessage(context.Background(), model.ChatRequest{
		BusinessSlug: f.biz.Slug,
		SessionID:    sessionID,
		Message:      message,
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	return resp
}

func (f *chatFixture) addFAQ(t *testing.T, question, answer string) {
	t.Helper()
	require.NoError(t, dao.NewKnowledgeStore(f.db).Add(context.Background(), &model.FAQ{
		BusinessID: f.biz.ID,
		Question:   question,
		Answer:     answer,
		IsActive:   true,
	}))
}

func (f *chatFixture) messages(t *testing.T, sessionID string) []model.ChatMessage {
	t.Helper()
	msgs, err := dao.NewMessageStore(f.db).Recent(context.Background(), sessionID, 50)
	require.NoError(t, err)
	return msgs
}

func TestChatImmediateEscalationNewCustomer(t *testing.T) {
	f := newChatFixture(t, true)

	resp := f.ask(t, "", "I need to speak to a supervisor right now")

	assert.Equal(t, model.OutcomeOK, resp.Outcome)
	assert.Equal(t, 100, resp.Context.Score)
	assert.Equal(t, model.TierImmediate, resp.Context.Tier)
	assert.Empty(t, resp.Context.CaseNumber)
	assert.True(t, resp.EscalationSuggested)
	assert.Contains(t, resp.Answer, "name")
	assert.Contains(t, resp.Answer, "email")
	assert.Contains(t, resp.Answer, "phone")
	require.NotNil(t, resp.Context.Action)
	assert.Equal(t, "escalate://new", resp.Context.Action.Link)
	assert.Empty(t, f.gen.prompts, "hand-off replies are not generated")

	sess, err := dao.NewSessionStore(f.db).Get(context.Background(), f.biz.ID, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, sess.EscalationAttempts)
}

func TestChatImmediateEscalationWithoutLiveChat(t *testing.T) {
	f := newChatFixture(t, false)

	resp := f.ask(t, "", "let me talk to a manager")

	assert.True(t, resp.EscalationSuggested)
	require.NotNil(t, resp.Context.Action)
	assert.Equal(t, model.ActionTicketForm, resp.Context.Action.Type)
	assert.Equal(t, "escalate://ticket", resp.Context.Action.Link)
}

func TestChatReturningCustomerReconnect(t *testing.T) {
	f := newChatFixture(t, true)
	sess := testutil.Session(t, f.db, f.biz.ID)
	testutil.Escalation(t, f.db, f.biz.ID, sess.ID, "482910", model.EscalationPending)

	resp := f.ask(t, "", "can you check on case 482910, I want to talk to someone")

	assert.Equal(t, model.IntentEscalationRequest, resp.Context.Intent)
	assert.Equal(t, "482910", resp.Context.CaseNumber)
	assert.Contains(t, resp.Answer, "482910")
	assert.Contains(t, resp.Answer, "Dana")
	assert.NotContains(t, resp.Answer, "phone number")
	require.NotNil(t, resp.Context.Action)
	assert.Equal(t, model.ActionContinueCase, resp.Context.Action.Type)
	assert.Equal(t, "escalate://continue/482910", resp.Context.Action.Link)
	assert.True(t, resp.EscalationSuggested)
}

func TestChatReturningCustomerUnknownCase(t *testing.T) {
	f := newChatFixture(t, true)

	resp := f.ask(t, "", "talk to a human about case 111222")

	assert.Contains(t, resp.Answer, "111222")
	require.NotNil(t, resp.Context.Action)
	assert.Equal(t, "escalate://new", resp.Context.Action.Link)
}

func TestChatStatusCheckOnly(t *testing.T) {
	f := newChatFixture(t, true)
	sess := testutil.Session(t, f.db, f.biz.ID)
	testutil.Escalation(t, f.db, f.biz.ID, sess.ID, "482910", model.EscalationResolved)

	resp := f.ask(t, "", "what's the status of ticket 482910")

	assert.Equal(t, model.IntentCaseFollowup, resp.Context.Intent)
	assert.Contains(t, resp.Answer, "482910")
	assert.Contains(t, resp.Answer, "resolved")
	assert.False(t, resp.EscalationSuggested)
	assert.Nil(t, resp.Context.Action)
}

func TestChatCaseFollowupNeverEscalates(t *testing.T) {
	f := newChatFixture(t, true)
	sess := testutil.Session(t, f.db, f.biz.ID)
	testutil.Escalation(t, f.db, f.biz.ID, sess.ID, "482910", model.EscalationPending)

	resp := f.ask(t, "", "I am furious, the status of case 482910 is terrible")

	assert.Equal(t, model.IntentCaseFollowup, resp.Context.Intent)
	assert.Equal(t, 100, resp.Context.Score)
	assert.Equal(t, model.TierImmediate, resp.Context.Tier)
	assert.Contains(t, resp.Answer, "482910")
	assert.False(t, resp.EscalationSuggested)
	assert.Nil(t, resp.Context.Action)
}

func TestChatStatusCheckMissingNumber(t *testing.T) {
	f := newChatFixture(t, true)

	resp := f.ask(t, "", "any update on my ticket?")

	assert.Contains(t, resp.Answer, "case number")
	assert.False(t, resp.EscalationSuggested)

	resp = f.ask(t, resp.SessionID, "status of case 909090")
	assert.Contains(t, resp.Answer, "couldn't find case 909090")
}

func TestChatUnknownQueryNoKnowledge(t *testing.T) {
	f := newChatFixture(t, true)

	resp := f.ask(t, "", "do you offer drone delivery")

	assert.Equal(t, model.OutcomeOK, resp.Outcome)
	assert.GreaterOrEqual(t, resp.Context.Tier, model.TierSuggestAlternatives)
	assert.Contains(t, resp.Answer, "I don't have those details")
	assert.Contains(t, resp.Answer, escalationOfferSuffix())
	assert.True(t, resp.EscalationSuggested)
	require.NotNil(t, resp.Context.Action)
	assert.Equal(t, model.ActionOffer, resp.Context.Action.Type)
	assert.Empty(t, f.gen.prompts)
}

func TestChatKnowledgeAnswer(t *testing.T) {
	f := newChatFixture(t, true)
	f.addFAQ(t, "What are your opening hours?", "We are open from 9am to 5pm, Monday to Saturday.")

	resp := f.ask(t, "", "what are your opening hours")

	assert.Equal(t, model.OutcomeOK, resp.Outcome)
	assert.Equal(t, "We are open from 9am to 5pm.", resp.Answer)
	assert.Equal(t, 1, resp.Context.Knowledge)
	assert.False(t, resp.EscalationSuggested)
	assert.Nil(t, resp.Context.Action)
	require.Len(t, f.gen.prompts, 1)
	assert.Contains(t, f.gen.prompts[0], "Q: What are your opening hours?")
	assert.Contains(t, f.gen.prompts[0], "Customer: what are your opening hours")

	msgs := f.messages(t, resp.SessionID)
	require.Len(t, msgs, 2)
	assert.ElementsMatch(t, []model.SenderType{model.SenderCustomer, model.SenderAI},
		[]model.SenderType{msgs[0].SenderType, msgs[1].SenderType})
}

func TestChatGenerationFailures(t *testing.T) {
	tests := []struct {
		name    string
		gen     fakeGenerator
		outcome model.Outcome
		answer  string
	}{
		{
			name:    "quota",
			gen:     fakeGenerator{err: fmt.Errorf("generate: %w", aiclient.ErrQuota)},
			outcome: model.OutcomeUnavailable,
			answer:  unavailableReply(),
		},
		{
			name:    "upstream error",
			gen:     fakeGenerator{err: errors.New("connection reset")},
			outcome: model.OutcomeError,
			answer:  troubleReply(),
		},
		{
			name:    "timeout",
			gen:     fakeGenerator{reply: "too late", delay: time.Second},
			outcome: model.OutcomeOK,
			answer:  naturalFallback(model.IntentInformationRequest, "Acme acme"),
		},
		{
			name:    "empty reply",
			gen:     fakeGenerator{reply: "   "},
			outcome: model.OutcomeOK,
			answer:  naturalFallback(model.IntentInformationRequest, "Acme acme"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newChatFixture(t, true)
			*f.gen = tt.gen
			f.addFAQ(t, "What are your opening hours?", "We are open from 9am to 5pm.")

			resp := f.ask(t, "", "what are your opening hours")

			assert.Equal(t, tt.outcome, resp.Outcome)
			assert.Equal(t, tt.answer, resp.Answer)
			assert.NotEmpty(t, resp.SessionID)
			if tt.outcome != model.OutcomeOK {
				assert.True(t, resp.EscalationSuggested)
				require.NotNil(t, resp.Context.Action, "a failed turn still offers a way to the team")
				assert.Equal(t, "escalate://new", resp.Context.Action.Link)
			}
			assert.Len(t, f.messages(t, resp.SessionID), 2)
		})
	}
}

func TestChatSessionContinuity(t *testing.T) {
	f := newChatFixture(t, true)

	first := f.ask(t, "", "hello")
	second := f.ask(t, first.SessionID, "hello again")
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Len(t, f.messages(t, first.SessionID), 4)

	fresh := f.ask(t, "does-not-exist", "hello")
	assert.NotEqual(t, "does-not-exist", fresh.SessionID)
	assert.NotEmpty(t, fresh.SessionID)
}

func TestChatHistoryRaisesScore(t *testing.T) {
	f := newChatFixture(t, true)

	var sessionID string
	var resp *model.ChatResponse
	for _, msg := range []string{"can you ship to canada", "what about mexico", "and to brazil", "ok so what now"} {
		resp = f.ask(t, sessionID, msg)
		sessionID = resp.SessionID
	}
	assert.Greater(t, resp.Context.Score, 0)
}

func TestChatHistoryKeepsOnlyCustomerAndAITurns(t *testing.T) {
	f := newChatFixture(t, true)
	ctx := context.Background()
	sess := testutil.Session(t, f.db, f.biz.ID)
	store := dao.NewMessageStore(f.db)
	for _, m := range []model.ChatMessage{
		{SenderType: model.SenderCustomer, Message: "is my refund through?"},
		{SenderType: model.SenderAI, Message: "Unfortunately I don't have that information."},
		{SenderType: model.SenderAgent, SenderID: "agent-a", Message: "Unfortunately the bank is slow, give it a day."},
		{SenderType: model.SenderSystem, Message: "Unfortunately the agent left the chat."},
	} {
		m.BusinessID, m.SessionID = f.biz.ID, sess.ID
		require.NoError(t, store.Create(ctx, &m))
	}

	turns := f.svc.history(ctx, sess.ID)

	require.Len(t, turns, 2)
	var roles []model.Role
	for _, turn := range turns {
		roles = append(roles, turn.Role)
		assert.NotContains(t, turn.Text, "bank")
		assert.NotContains(t, turn.Text, "left the chat")
	}
	assert.ElementsMatch(t, []model.Role{model.RoleCustomer, model.RoleAssistant}, roles)

	score := NewEscalationScorer().Score(ScoreInput{Message: "ok", History: turns})
	assert.Equal(t, 15, score.Score, "one unhelpful AI reply")
}

func TestChatValidation(t *testing.T) {
	f := newChatFixture(t, true)
	ctx := context.Background()

	_, err := f.svc.HandleMessage(ctx, model.ChatRequest{BusinessSlug: "acme", Message: "   "})
	assert.ErrorIs(t, err, model.ErrValidation)

	long := make([]rune, 1001)
	for i := range long {
		long[i] = 'a'
	}
	_, err = f.svc.HandleMessage(ctx, model.ChatRequest{BusinessSlug: "acme", Message: string(long)})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = f.svc.HandleMessage(ctx, model.ChatRequest{BusinessSlug: "nope", Message: "hi"})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestChatNeverStrandsCustomer(t *testing.T) {
	f := newChatFixture(t, false)
	f.addFAQ(t, "Do you repair tents?", "Yes, tent repairs take about a week.")
	f.gen.err = errors.New("boom")

	for _, msg := range []string{
		"hi",
		"do you repair tents",
		"what is the price of a tent",
		"this is useless, I am furious",
		"status of case 123456",
		"I want a supervisor",
	} {
		resp := f.ask(t, "", msg)
		hasAction := resp.Context.Action != nil
		asks := containsAny(resp.Answer, "?", "link below", "share")
		assert.True(t, hasAction || asks, "no way forward for %q: %q", msg, resp.Answer)
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
