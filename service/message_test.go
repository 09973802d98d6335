package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"support-agent/dao"
	"support-agent/internal/testutil"
	"support-agent/model"
)

func TestMessageSend(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	biz := testutil.Business(t, db, "acme", true)
	sess := testutil.Session(t, db, biz.ID)
	esc := testutil.Escalation(t, db, biz.ID, sess.ID, "482910", model.EscalationEscalated)
	otherSess := testutil.Session(t, db, biz.ID)

	messages := dao.NewMessageStore(db)
	router := &storingRouter{store: messages, routed: true}
	svc := NewMessageService(dao.NewSessionStore(db), dao.NewEscalationStore(db), messages, router, zerolog.Nop())
	agent := &Actor{AgentID: "agent-a", BusinessID: biz.ID}

	t.Run("customer", func(t *testing.T) {
		res, err := svc.Send(ctx, nil, SendMessageInput{
			BusinessID:   biz.ID,
			SessionID:    sess.ID,
			EscalationID: esc.ID,
			Message:      "  is anyone there?  ",
		})
		require.NoError(t, err)
		assert.True(t, res.Routed)
		assert.Equal(t, model.SenderCustomer, res.Message.SenderType)
		assert.Equal(t, "is anyone there?", res.Message.Message)
		assert.NotEmpty(t, res.Message.ID)
	})

	t.Run("customer cannot impersonate an agent", func(t *testing.T) {
		_, err := svc.Send(ctx, nil, SendMessageInput{BusinessID: biz.ID, SessionID: sess.ID, SenderType: model.SenderAgent, Message: "hi"})
		assert.ErrorIs(t, err, model.ErrForbidden)
	})

	t.Run("agent", func(t *testing.T) {
		res, err := svc.Send(ctx, agent, SendMessageInput{
			SessionID:    sess.ID,
			EscalationID: esc.ID,
			Message:      "Hi Dana, I'm looking at your case now.",
			Attachments:  []model.Attachment{{Name: "label.pdf", URL: "https://files.example.com/label.pdf", Size: 2048, MimeType: "application/pdf"}},
		})
		require.NoError(t, err)
		assert.Equal(t, model.SenderAgent, res.Message.SenderType)
		assert.Equal(t, "agent-a", res.Message.SenderID)
		assert.Equal(t, biz.ID, res.Message.BusinessID)

		stored, err := messages.ByID(ctx, res.Message.ID)
		require.NoError(t, err)
		require.Len(t, stored.Attachments, 1)
		assert.Equal(t, "label.pdf", stored.Attachments[0].Name)
	})

	t.Run("system", func(t *testing.T) {
		res, err := svc.Send(ctx, agent, SendMessageInput{SessionID: sess.ID, SenderType: model.SenderSystem, Message: "Agent joined"})
		require.NoError(t, err)
		assert.Equal(t, model.SenderSystem, res.Message.SenderType)
	})

	t.Run("escalation of another session", func(t *testing.T) {
		_, err := svc.Send(ctx, nil, SendMessageInput{BusinessID: biz.ID, SessionID: otherSess.ID, EscalationID: esc.ID, Message: "hi"})
		assert.ErrorIs(t, err, model.ErrForbidden)
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := svc.Send(ctx, nil, SendMessageInput{BusinessID: biz.ID, SessionID: "missing", Message: "hi"})
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("missing ids", func(t *testing.T) {
		_, err := svc.Send(ctx, nil, SendMessageInput{Message: "hi"})
		assert.ErrorIs(t, err, model.ErrValidation)
		_, err = svc.Send(ctx, nil, SendMessageInput{BusinessID: biz.ID, SessionID: sess.ID, Message: "   "})
		assert.ErrorIs(t, err, model.ErrValidation)
	})
}

func TestMessageFeedback(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	biz := testutil.Business(t, db, "acme", true)
	sess := testutil.Session(t, db, biz.ID)
	messages := dao.NewMessageStore(db)
	svc := NewMessageService(dao.NewSessionStore(db), dao.NewEscalationStore(db), messages, &storingRouter{store: messages}, zerolog.Nop())

	ai := &model.ChatMessage{BusinessID: biz.ID, SessionID: sess.ID, SenderType: model.SenderAI, Message: "We open at 9am."}
	customer := &model.ChatMessage{BusinessID: biz.ID, SessionID: sess.ID, SenderType: model.SenderCustomer, Message: "when do you open"}
	require.NoError(t, messages.Create(ctx, ai))
	require.NoError(t, messages.Create(ctx, customer))

	m, err := svc.SetFeedback(ctx, ai.ID, model.FeedbackGood)
	require.NoError(t, err)
	assert.Equal(t, model.FeedbackGood, m.Feedback)

	stored, err := messages.ByID(ctx, ai.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FeedbackGood, stored.Feedback)

	_, err = svc.SetFeedback(ctx, ai.ID, model.FeedbackUnset)
	require.NoError(t, err)
	stored, err = messages.ByID(ctx, ai.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FeedbackUnset, stored.Feedback)

	_, err = svc.SetFeedback(ctx, ai.ID, model.Feedback("meh"))
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = svc.SetFeedback(ctx, customer.ID, model.FeedbackBad)
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = svc.SetFeedback(ctx, "missing", model.FeedbackBad)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
