package dao

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"support-agent/model"
)

// AgentStore persists per-(agent, business) availability. Writes are last-write-wins except
// for the conditional claim done by QueueStore.Assign.
type AgentStore struct {
	db *gorm.DB
}

func NewAgentStore(db *gorm.DB) *AgentStore {
	return &AgentStore{db: db}
}

func (s *AgentStore) SetStatus(ctx context.Context, businessID, agentID string, status model.AgentStatus, at time.Time) (*model.AgentPresence, error) {
	p := &model.AgentPresence{
		AgentID:      agentID,
		BusinessID:   businessID,
		Status:       status,
		LastActiveAt: at,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "agent_id"}, {Name: "business_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "last_active_at"}),
	}).Create(p).Error
	if err != nil {
		return nil, fmt.Errorf("set status of agent %s: %w", agentID, err)
	}
	return s.Get(ctx, businessID, agentID)
}

func (s *AgentStore) Get(ctx context.Context, businessID, agentID string) (*model.AgentPresence, error) {
	var p model.AgentPresence
	err := s.db.WithContext(ctx).
		Where("agent_id = ? AND business_id = ?", agentID, businessID).
		First(&p).Error
	if err != nil {
		return nil, wrapNotFound(err, "agent %s", agentID)
	}
	return &p, nil
}

// FirstAvailable picks the available agent that has been idle the longest.
func (s *AgentStore) FirstAvailable(ctx context.Context, businessID string) (*model.AgentPresence, error) {
	var p model.AgentPresence
	err := s.db.WithContext(ctx).
		Where("business_id = ? AND status = ?", businessID, model.AgentAvailable).
		Order("last_active_at ASC").
		First(&p).Error
	if err != nil {
		return nil, wrapNotFound(err, "available agent for %s", businessID)
	}
	return &p, nil
}

func (s *AgentStore) List(ctx context.Context, businessID string) ([]model.AgentPresence, error) {
	var items []model.AgentPresence
	err := s.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("agent_id ASC").
		Find(&items).Error
	return items, err
}
