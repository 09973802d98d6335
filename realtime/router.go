package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"support-agent/dao"
	"support-agent/model"
)

// Router maps chat, status and notification concerns onto rooms and keeps agent
// reachability in the presence registry.
type Router struct {
	transport   Transport
	hub         *Hub
	presence    PresenceRegistry
	messages    *dao.MessageStore
	escalations *dao.EscalationStore
	nodeID      string
	log         zerolog.Logger
}

type RouterDeps struct {
	Transport   Transport
	Hub         *Hub
	Presence    PresenceRegistry
	Messages    *dao.MessageStore
	Escalations *dao.EscalationStore
	NodeID      string
}

func NewRouter(deps RouterDeps, log zerolog.Logger) *Router {
	transport := deps.Transport
	if transport == nil {
		transport = deps.Hub
	}
	presence := deps.Presence
	if presence == nil {
		presence = NewMemoryPresence()
	}
	return &Router{
		transport:   transport,
		hub:         deps.Hub,
		presence:    presence,
		messages:    deps.Messages,
		escalations: deps.Escalations,
		nodeID:      deps.NodeID,
		log:         log.With().Str("component", "Router").Logger(),
	}
}

func (r *Router) emit(ctx context.Context, room, typ string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		r.log.Error().Err(err).Str("room", room).Str("type", typ).Msg("encode payload")
		return
	}
	ev := Event{Room: room, Type: typ, Data: data, At: time.Now().UTC()}
	if err := r.transport.Publish(ctx, ev); err != nil {
		r.log.Error().Err(err).Str("room", room).Str("type", typ).Msg("publish failed")
	}
}

// SendChatMessage persists msg and then broadcasts it to its escalation's chat room.
// The room comes from msg.EscalationID or, failing that, from the escalation bound to the
// session. A message with no resolvable room is still stored; routed reports the broadcast.
func (r *Router) SendChatMessage(ctx context.Context, msg *model.ChatMessage) (routed bool, err error) {
	if err := validateChatMessage(msg); err != nil {
		return false, err
	}

	if msg.EscalationID == "" {
		e, err := r.escalations.ForSession(ctx, msg.BusinessID, msg.SessionID)
		switch {
		case err == nil:
			msg.EscalationID = e.ID
		case errors.Is(err, model.ErrNotFound):
		default:
			r.log.Warn().Err(err).Str("session", msg.SessionID).Msg("escalation lookup failed")
		}
	}

	if err := r.messages.Create(ctx, msg); err != nil {
		return false, fmt.Errorf("persist chat message: %w", err)
	}

	if msg.EscalationID == "" {
		r.log.Warn().Str("session", msg.SessionID).Str("message", msg.ID).
			Msg("no escalation bound to session, message stored but not broadcast")
		return false, nil
	}
	r.emit(ctx, ChatRoom(msg.EscalationID), EventChatMessage, msg)
	return true, nil
}

func validateChatMessage(msg *model.ChatMessage) error {
	switch {
	case msg == nil:
		return fmt.Errorf("%w: message is required", model.ErrValidation)
	case msg.BusinessID == "":
		return fmt.Errorf("%w: businessId is required", model.ErrValidation)
	case msg.SessionID == "":
		return fmt.Errorf("%w: sessionId is required", model.ErrValidation)
	case !msg.SenderType.Valid():
		return fmt.Errorf("%w: unknown senderType %q", model.ErrValidation, msg.SenderType)
	case strings.TrimSpace(msg.Message) == "" && len(msg.Attachments) == 0:
		return fmt.Errorf("%w: message or attachment is required", model.ErrValidation)
	}
	return nil
}

// EmitToEscalation sends an event to everyone in an escalation's chat room.
func (r *Router) EmitToEscalation(ctx context.Context, escalationID, typ string, payload any) {
	r.emit(ctx, ChatRoom(escalationID), typ, payload)
}

// Notify sends an event to a business's notification room.
func (r *Router) Notify(ctx context.Context, businessID, typ string, payload any) {
	r.emit(ctx, NotificationRoom(businessID), typ, payload)
}

// BroadcastStatus sends an event to a business's agent-status room.
func (r *Router) BroadcastStatus(ctx context.Context, businessID, typ string, payload any) {
	r.emit(ctx, StatusRoom(businessID), typ, payload)
}

// JoinAgent puts an agent's live stream into an escalation's chat room, on whichever
// node the stream is connected.
func (r *Router) JoinAgent(ctx context.Context, businessID, agentID, escalationID string) {
	conn, err := r.presence.Lookup(ctx, businessID, agentID)
	switch {
	case err != nil:
		r.log.Warn().Err(err).Str("agent", agentID).Msg("presence lookup failed")
	case conn == nil:
		r.log.Warn().Str("agent", agentID).Str("escalation", escalationID).Msg("agent has no live stream to join")
	default:
		r.log.Debug().Str("agent", agentID).Str("node", conn.NodeID).Str("escalation", escalationID).Msg("joining agent to chat room")
	}
	r.emit(ctx, AgentRoom(businessID, agentID), EventRoomJoined, roomJoin{Room: ChatRoom(escalationID)})
}

// RegisterAgent opens an agent stream subscribed to the business's status and notification
// rooms plus the agent's personal room, and records the connection in the registry.
func (r *Router) RegisterAgent(ctx context.Context, businessID, agentID string) (*Subscription, error) {
	sub := r.hub.Subscribe(StatusRoom(businessID), NotificationRoom(businessID), AgentRoom(businessID, agentID))
	conn := model.AgentConnection{
		BusinessID:  businessID,
		AgentID:     agentID,
		ConnID:      sub.ID,
		NodeID:      r.nodeID,
		ConnectedAt: time.Now().UTC(),
	}
	if err := r.presence.Register(ctx, conn); err != nil {
		if !errors.Is(err, dao.ErrStaleConnection) {
			r.hub.Unsubscribe(sub)
			return nil, fmt.Errorf("register agent %s: %w", agentID, err)
		}
		r.log.Warn().Str("agent", agentID).Msg("newer connection already registered")
	}
	r.BroadcastStatus(ctx, businessID, EventAgentOnline, conn)
	return sub, nil
}

// UnregisterAgent closes the stream and clears the registry entry it owns.
func (r *Router) UnregisterAgent(ctx context.Context, businessID, agentID string, sub *Subscription) {
	r.hub.Unsubscribe(sub)
	if err := r.presence.Unregister(ctx, businessID, agentID, sub.ID); err != nil {
		r.log.Error().Err(err).Str("agent", agentID).Msg("unregister agent")
	}
	r.BroadcastStatus(ctx, businessID, EventAgentOffline, map[string]string{"agentId": agentID})
}

// SubscribeSession opens a customer stream on the chat room of the session's escalation.
// The escalation must belong to businessID.
func (r *Router) SubscribeSession(ctx context.Context, businessID, sessionID string) (*Subscription, error) {
	e, err := r.escalations.ForSession(ctx, businessID, sessionID)
	if err != nil {
		return nil, err
	}
	return r.hub.Subscribe(ChatRoom(e.ID)), nil
}

func (r *Router) Unsubscribe(sub *Subscription) {
	r.hub.Unsubscribe(sub)
}

func (r *Router) OnlineAgents(ctx context.Context, businessID string) ([]model.AgentConnection, error) {
	return r.presence.Online(ctx, businessID)
}
