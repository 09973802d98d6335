package service

import (
	"context"

	"support-agent/internal/aiclient"
	"support-agent/internal/mailer"
	"support-agent/model"
)

// Generator produces reply text from a prompt.
type Generator interface {
	Generate(ctx context.Context, req aiclient.GenerateRequest) (string, error)
}

// EventPublisher emits escalation lifecycle events. Implementations must not block on failure.
type EventPublisher interface {
	Publish(ctx context.Context, event, key string, payload map[string]any)
}

type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// Broadcaster fans events out to real-time rooms.
type Broadcaster interface {
	EmitToEscalation(ctx context.Context, escalationID, typ string, payload any)
	Notify(ctx context.Context, businessID, typ string, payload any)
	BroadcastStatus(ctx context.Context, businessID, typ string, payload any)
	JoinAgent(ctx context.Context, businessID, agentID, escalationID string)
}

// MessageRouter persists a chat message and delivers it to its room.
type MessageRouter interface {
	SendChatMessage(ctx context.Context, msg *model.ChatMessage) (bool, error)
}

// Actor is the authenticated agent behind an agent-side call.
type Actor struct {
	AgentID    string
	BusinessID string
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, string, map[string]any) {}

type nopBroadcaster struct{}

func (nopBroadcaster) EmitToEscalation(context.Context, string, string, any) {}
func (nopBroadcaster) Notify(context.Context, string, string, any)           {}
func (nopBroadcaster) BroadcastStatus(context.Context, string, string, any)  {}
func (nopBroadcaster) JoinAgent(context.Context, string, string, string)     {}
