package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"support-agent/dao"
	"support-agent/internal/events"
	"support-agent/model"
	"support-agent/realtime"
)

// maxClaimAttempts bounds how often TryAssign retries after losing a claim race.
const maxClaimAttempts = 5

// QueueService matches waiting escalations to available agents, strictly FIFO.
// Assignment is event driven: it runs on enqueue, when an agent becomes available
// and when a live chat completes.
type QueueService struct {
	queue       *dao.QueueStore
	agents      *dao.AgentStore
	escalations *dao.EscalationStore
	rt          Broadcaster
	events      EventPublisher
	now         func() time.Time
	log         zerolog.Logger
}

func NewQueueService(queue *dao.QueueStore, agents *dao.AgentStore, escalations *dao.EscalationStore,
	rt Broadcaster, pub EventPublisher, log zerolog.Logger) *QueueService {
	if rt == nil {
		rt = nopBroadcaster{}
	}
	if pub == nil {
		pub = nopPublisher{}
	}
	return &QueueService{
		queue:       queue,
		agents:      agents,
		escalations: escalations,
		rt:          rt,
		events:      pub,
		now:         func() time.Time { return time.Now().UTC() },
		log:         log.With().Str("component", "QueueService").Logger(),
	}
}

// Enqueue admits an escalation to its business queue. An escalation already holding a
// non-terminal entry gets that entry back.
func (s *QueueService) Enqueue(ctx context.Context, e *model.Escalation) (*model.QueueEntry, error) {
	existing, err := s.queue.Open(ctx, e.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	entry := &model.QueueEntry{
		BusinessID:   e.BusinessID,
		EscalationID: e.ID,
		Status:       model.QueueWaiting,
		RequestedAt:  s.now(),
	}
	if err := s.queue.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("enqueue escalation %s: %w", e.ID, err)
	}
	s.log.Info().Str("business", e.BusinessID).Str("escalation", e.ID).Msg("escalation queued")
	s.rt.Notify(ctx, e.BusinessID, realtime.EventQueueUpdated, entry)
	return entry, nil
}

// TryAssign pairs the oldest waiting entry with the longest idle available agent.
// It returns nil when either side is empty. A lost claim is retried a bounded number of times.
func (s *QueueService) TryAssign(ctx context.Context, businessID string) (*model.QueueEntry, error) {
	for attempt := 0; attempt < maxClaimAttempts; attempt++ {
		entry, err := s.queue.OldestWaiting(ctx, businessID)
		if errors.Is(err, model.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		agent, err := s.agents.FirstAvailable(ctx, businessID)
		if errors.Is(err, model.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		at := s.now()
		ok, err := s.queue.Assign(ctx, entry.ID, businessID, agent.AgentID, at)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.log.Debug().Str("entry", entry.ID).Str("agent", agent.AgentID).Int("attempt", attempt).Msg("claim lost, retrying")
			continue
		}

		entry.Status = model.QueueAssigned
		entry.AssignedAgentID = agent.AgentID
		entry.AssignedAt = &at
		s.afterAssign(ctx, entry)
		return entry, nil
	}
	s.log.Warn().Str("business", businessID).Msg("gave up assigning after repeated lost claims")
	return nil, nil
}

func (s *QueueService) afterAssign(ctx context.Context, entry *model.QueueEntry) {
	s.log.Info().
		Str("business", entry.BusinessID).
		Str("escalation", entry.EscalationID).
		Str("agent", entry.AssignedAgentID).
		Msg("queue entry assigned")

	activity := &model.EscalationActivity{
		EscalationID: entry.EscalationID,
		BusinessID:   entry.BusinessID,
		ActorID:      entry.AssignedAgentID,
		Type:         model.ActivityQueueAssigned,
		ToValue:      entry.AssignedAgentID,
	}
	if err := s.escalations.AddActivity(ctx, activity); err != nil {
		s.log.Error().Err(err).Str("escalation", entry.EscalationID).Msg("record assignment activity")
	}

	s.rt.JoinAgent(ctx, entry.BusinessID, entry.AssignedAgentID, entry.EscalationID)
	// the chat room includes the customer
	s.rt.EmitToEscalation(ctx, entry.EscalationID, realtime.EventQueueAssigned, map[string]any{
		"status":  entry.Status,
		"agentId": entry.AssignedAgentID,
	})
	s.rt.Notify(ctx, entry.BusinessID, realtime.EventQueueAssigned, entry)
	s.rt.BroadcastStatus(ctx, entry.BusinessID, realtime.EventAgentStatus, map[string]any{
		"agentId": entry.AssignedAgentID,
		"status":  model.AgentInChat,
	})
	s.events.Publish(ctx, events.QueueAssigned, entry.EscalationID, map[string]any{
		"businessId":   entry.BusinessID,
		"escalationId": entry.EscalationID,
		"agentId":      entry.AssignedAgentID,
	})
}

// SetAgentStatus records an agent's presence. Becoming available re-triggers assignment.
func (s *QueueService) SetAgentStatus(ctx context.Context, businessID, agentID string, status model.AgentStatus) (*model.AgentPresence, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown agent status %q", model.ErrValidation, status)
	}
	if agentID == "" || businessID == "" {
		return nil, fmt.Errorf("%w: agent and business are required", model.ErrValidation)
	}

	p, err := s.agents.SetStatus(ctx, businessID, agentID, status, s.now())
	if err != nil {
		return nil, err
	}
	s.rt.BroadcastStatus(ctx, businessID, realtime.EventAgentStatus, p)

	if status == model.AgentAvailable {
		if _, err := s.TryAssign(ctx, businessID); err != nil {
			s.log.Error().Err(err).Str("business", businessID).Msg("assignment after availability change")
		}
		if refreshed, err := s.agents.Get(ctx, businessID, agentID); err == nil {
			p = refreshed
		}
	}
	return p, nil
}

// Complete closes the open queue entry of an escalation. An assigned agent is released
// back to available, which re-triggers assignment for the business.
func (s *QueueService) Complete(ctx context.Context, escalationID string) (*model.QueueEntry, error) {
	prior, err := s.queue.Close(ctx, escalationID, s.now())
	if err != nil {
		return nil, err
	}
	s.rt.Notify(ctx, prior.BusinessID, realtime.EventQueueUpdated, map[string]any{
		"escalationId": escalationID,
		"closed":       true,
	})
	if prior.Status != model.QueueAssigned || prior.AssignedAgentID == "" {
		return prior, nil
	}

	s.events.Publish(ctx, events.QueueCompleted, escalationID, map[string]any{
		"businessId":   prior.BusinessID,
		"escalationId": escalationID,
		"agentId":      prior.AssignedAgentID,
	})
	if _, err := s.SetAgentStatus(ctx, prior.BusinessID, prior.AssignedAgentID, model.AgentAvailable); err != nil {
		s.log.Error().Err(err).Str("agent", prior.AssignedAgentID).Msg("release agent")
	}
	return prior, nil
}

func (s *QueueService) Waiting(ctx context.Context, businessID string) ([]model.QueueItem, error) {
	return s.queue.Waiting(ctx, businessID)
}

func (s *QueueService) Agents(ctx context.Context, businessID string) ([]model.AgentPresence, error) {
	return s.agents.List(ctx, businessID)
}
