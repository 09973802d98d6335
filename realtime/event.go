package realtime

import (
	"context"
	"encoding/json"
	"time"
)

// Event types emitted to rooms.
const (
	EventChatMessage       = "chat_message"
	EventNewEscalation     = "new_escalation"
	EventEscalationUpdated = "escalation_updated"
	EventQueueUpdated      = "queue_updated"
	EventQueueAssigned     = "queue_assigned"
	EventAgentStatus       = "agent_status"
	EventAgentOnline       = "agent_online"
	EventAgentOffline      = "agent_offline"
	EventRoomJoined        = "room_joined"
)

// Event is the unit carried by every transport. Data is pre-encoded JSON so the
// same value can cross process boundaries unchanged.
type Event struct {
	Room string          `json:"room"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
	At   time.Time       `json:"at"`
}

// Transport delivers an event to every subscriber of ev.Room, wherever it is connected.
type Transport interface {
	Publish(ctx context.Context, ev Event) error
}

func ChatRoom(escalationID string) string       { return "chat_" + escalationID }
func StatusRoom(businessID string) string       { return "status_" + businessID }
func NotificationRoom(businessID string) string { return "notifications_" + businessID }

// AgentRoom is the personal room every agent stream joins on connect.
func AgentRoom(businessID, agentID string) string {
	return "agent_" + businessID + "_" + agentID
}

type roomJoin struct {
	Room string `json:"room"`
}
