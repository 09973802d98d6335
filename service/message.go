package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"support-agent/dao"
	"support-agent/model"
)

type SendMessageInput struct {
	BusinessID   string             `json:"businessId"`
	SessionID    string             `json:"sessionId"`
	EscalationID string             `json:"escalationId"`
	SenderType   model.SenderType   `json:"senderType"`
	Message      string             `json:"message"`
	Attachments  []model.Attachment `json:"attachments"`
}

type SendMessageResult struct {
	Message *model.ChatMessage `json:"message"`
	Routed  bool               `json:"routed"`
}

// MessageService handles live-chat messages written by customers, agents and the system.
type MessageService struct {
	sessions    *dao.SessionStore
	escalations *dao.EscalationStore
	messages    *dao.MessageStore
	router      MessageRouter
	log         zerolog.Logger
}

func NewMessageService(sessions *dao.SessionStore, escalations *dao.EscalationStore, messages *dao.MessageStore,
	router MessageRouter, log zerolog.Logger) *MessageService {
	return &MessageService{
		sessions:    sessions,
		escalations: escalations,
		messages:    messages,
		router:      router,
		log:         log.With().Str("component", "MessageService").Logger(),
	}
}

// Send stores a message and routes it to its escalation's room. actor is nil for customers;
// an authenticated agent writes as agent, or as system when asked to.
func (s *MessageService) Send(ctx context.Context, actor *Actor, in SendMessageInput) (*SendMessageResult, error) {
	msg := &model.ChatMessage{
		SessionID:    strings.TrimSpace(in.SessionID),
		EscalationID: strings.TrimSpace(in.EscalationID),
		Message:      strings.TrimSpace(in.Message),
		Attachments:  in.Attachments,
	}

	switch {
	case actor == nil:
		if in.SenderType != "" && in.SenderType != model.SenderCustomer {
			return nil, fmt.Errorf("%w: only agents may send as %q", model.ErrForbidden, in.SenderType)
		}
		msg.BusinessID = in.BusinessID
		msg.SenderType = model.SenderCustomer
	case in.SenderType == model.SenderSystem:
		msg.BusinessID = actor.BusinessID
		msg.SenderType = model.SenderSystem
		msg.SenderID = actor.AgentID
	default:
		msg.BusinessID = actor.BusinessID
		msg.SenderType = model.SenderAgent
		msg.SenderID = actor.AgentID
	}
	if msg.BusinessID == "" || msg.SessionID == "" {
		return nil, fmt.Errorf("%w: businessId and sessionId are required", model.ErrValidation)
	}
	if msg.Message == "" && len(msg.Attachments) == 0 {
		return nil, fmt.Errorf("%w: message or attachments are required", model.ErrValidation)
	}

	if _, err := s.sessions.Get(ctx, msg.BusinessID, msg.SessionID); err != nil {
		return nil, err
	}
	if msg.EscalationID != "" {
		e, err := s.escalations.ByID(ctx, msg.EscalationID)
		if err != nil {
			return nil, err
		}
		if e.BusinessID != msg.BusinessID || e.SessionID != msg.SessionID {
			return nil, fmt.Errorf("%w: escalation %s does not belong to session %s", model.ErrForbidden, e.ID, msg.SessionID)
		}
	}

	routed, err := s.router.SendChatMessage(ctx, msg)
	if err != nil {
		return nil, err
	}
	s.log.Debug().Str("session", msg.SessionID).Str("sender", string(msg.SenderType)).Bool("routed", routed).Msg("chat message sent")
	return &SendMessageResult{Message: msg, Routed: routed}, nil
}

// SetFeedback rates an AI-authored message good or bad, or clears the rating.
func (s *MessageService) SetFeedback(ctx context.Context, id string, f model.Feedback) (*model.ChatMessage, error) {
	switch f {
	case model.FeedbackGood, model.FeedbackBad, model.FeedbackUnset:
	default:
		return nil, fmt.Errorf("%w: feedback must be good, bad or empty", model.ErrValidation)
	}
	m, err := s.messages.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.SenderType != model.SenderAI {
		return nil, fmt.Errorf("%w: feedback is only accepted on AI messages", model.ErrValidation)
	}
	if err := s.messages.SetFeedback(ctx, m.ID, f); err != nil {
		return nil, fmt.Errorf("set feedback on %s: %w", m.ID, err)
	}
	m.Feedback = f
	return m, nil
}
