package service

import (
	"context"
	"sync"
	"time"

	"support-agent/dao"
	"support-agent/internal/mailer"
	"support-agent/model"
)

type recordedEvent struct {
	Kind   string
	Target string
	Type   string
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
	joins  []string
}

func (b *recordingBroadcaster) record(kind, target, typ string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{Kind: kind, Target: target, Type: typ})
}

func (b *recordingBroadcaster) EmitToEscalation(_ context.Context, escalationID, typ string, _ any) {
	b.record("emit", escalationID, typ)
}

func (b *recordingBroadcaster) Notify(_ context.Context, businessID, typ string, _ any) {
	b.record("notify", businessID, typ)
}

func (b *recordingBroadcaster) BroadcastStatus(_ context.Context, businessID, typ string, _ any) {
	b.record("status", businessID, typ)
}

func (b *recordingBroadcaster) JoinAgent(_ context.Context, _, agentID, escalationID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.joins = append(b.joins, agentID+"@"+escalationID)
}

func (b *recordingBroadcaster) has(kind, target, typ string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.events {
		if e.Kind == kind && e.Target == target && e.Type == typ {
			return true
		}
	}
	return false
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	keys   []string
}

func (p *recordingPublisher) Publish(_ context.Context, event, key string, _ map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	p.keys = append(p.keys, key)
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

type recordingMailer struct {
	sent chan mailer.Message
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{sent: make(chan mailer.Message, 4)}
}

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	m.sent <- msg
	return nil
}

// stepClock returns a time one second later on every call.
func stepClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

type storingRouter struct {
	store  *dao.MessageStore
	routed bool
	sent   []*model.ChatMessage
}

func (r *storingRouter) SendChatMessage(ctx context.Context, msg *model.ChatMessage) (bool, error) {
	if err := r.store.Create(ctx, msg); err != nil {
		return false, err
	}
	r.sent = append(r.sent, msg)
	return r.routed, nil
}
