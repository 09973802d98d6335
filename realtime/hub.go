package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Subscription is one live stream (an SSE connection) and the rooms it has joined.
type Subscription struct {
	ID     string
	events chan Event
	rooms  map[string]struct{}
}

func (s *Subscription) Events() <-chan Event { return s.events }

// Hub fans events out to the subscriptions of this process.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Subscription]struct{}
	subs   map[*Subscription]struct{}
	buffer int
	log    zerolog.Logger
}

func NewHub(buffer int, log zerolog.Logger) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		rooms:  make(map[string]map[*Subscription]struct{}),
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
		log:    log.With().Str("component", "Hub").Logger(),
	}
}

func (h *Hub) Subscribe(rooms ...string) *Subscription {
	sub := &Subscription{
		ID:     uuid.New().String(),
		events: make(chan Event, h.buffer),
		rooms:  make(map[string]struct{}),
	}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	for _, room := range rooms {
		h.join(sub, room)
	}
	h.mu.Unlock()
	return sub
}

func (h *Hub) Join(sub *Subscription, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; ok {
		h.join(sub, room)
	}
}

func (h *Hub) Leave(sub *Subscription, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leave(sub, room)
}

// Unsubscribe leaves every room and closes the event channel.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; !ok {
		return
	}
	for room := range sub.rooms {
		h.leave(sub, room)
	}
	delete(h.subs, sub)
	close(sub.events)
}

// Members reports how many local subscriptions are in room.
func (h *Hub) Members(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Publish delivers locally. It satisfies Transport for single-process deployments.
func (h *Hub) Publish(_ context.Context, ev Event) error {
	h.Deliver(ev)
	return nil
}

// Deliver hands ev to every local subscriber of ev.Room. A room_joined event first joins
// the receiving subscriptions to the room it names. Slow subscribers lose events rather
// than block the sender.
func (h *Hub) Deliver(ev Event) {
	if ev.Type == EventRoomJoined {
		var j roomJoin
		if err := json.Unmarshal(ev.Data, &j); err == nil && j.Room != "" {
			h.mu.Lock()
			for sub := range h.rooms[ev.Room] {
				h.join(sub, j.Room)
			}
			h.mu.Unlock()
		}
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.rooms[ev.Room] {
		select {
		case sub.events <- ev:
		default:
			h.log.Warn().Str("room", ev.Room).Str("subscription", sub.ID).Str("type", ev.Type).
				Msg("subscriber buffer full, event dropped")
		}
	}
}

func (h *Hub) join(sub *Subscription, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Subscription]struct{})
		h.rooms[room] = members
	}
	members[sub] = struct{}{}
	sub.rooms[room] = struct{}{}
}

func (h *Hub) leave(sub *Subscription, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, sub)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(sub.rooms, room)
}
