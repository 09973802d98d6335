package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"support-agent/model"
)

var errClaimLost = errors.New("claim lost to a concurrent assignment")

type QueueStore struct {
	db *gorm.DB
}

func NewQueueStore(db *gorm.DB) *QueueStore {
	return &QueueStore{db: db}
}

var openQueueStatuses = []model.QueueStatus{model.QueueWaiting, model.QueueAssigned}

// Open returns the non-terminal entry of an escalation, if any.
func (s *QueueStore) Open(ctx context.Context, escalationID string) (*model.QueueEntry, error) {
	var q model.QueueEntry
	err := s.db.WithContext(ctx).
		Where("escalation_id = ? AND status IN ?", escalationID, openQueueStatuses).
		First(&q).Error
	if err != nil {
		return nil, wrapNotFound(err, "open queue entry for %s", escalationID)
	}
	return &q, nil
}

func (s *QueueStore) Create(ctx context.Context, q *model.QueueEntry) error {
	return s.db.WithContext(ctx).Create(q).Error
}

// OldestWaiting is the FIFO head of a business queue.
func (s *QueueStore) OldestWaiting(ctx context.Context, businessID string) (*model.QueueEntry, error) {
	var q model.QueueEntry
	err := s.db.WithContext(ctx).
		Where("business_id = ? AND status = ?", businessID, model.QueueWaiting).
		Order("requested_at ASC").
		First(&q).Error
	if err != nil {
		return nil, wrapNotFound(err, "waiting entry for %s", businessID)
	}
	return &q, nil
}

// Assign claims a waiting entry and an available agent in one transaction.
// Both updates are conditional on the current status; false means another caller won the race.
func (s *QueueStore) Assign(ctx context.Context, entryID, businessID, agentID string, at time.Time) (bool, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.QueueEntry{}).
			Where("id = ? AND status = ?", entryID, model.QueueWaiting).
			Updates(map[string]any{
				"status":            model.QueueAssigned,
				"assigned_agent_id": agentID,
				"assigned_at":       at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errClaimLost
		}

		res = tx.Model(&model.AgentPresence{}).
			Where("agent_id = ? AND business_id = ? AND status = ?", agentID, businessID, model.AgentAvailable).
			Updates(map[string]any{"status": model.AgentInChat, "last_active_at": at})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errClaimLost
		}
		return nil
	})
	if errors.Is(err, errClaimLost) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("assign queue entry %s: %w", entryID, err)
	}
	return true, nil
}

// Close moves the open entry of an escalation to its terminal state: completed when it had
// been assigned, cancelled when it was still waiting. It returns the entry as it was before.
func (s *QueueStore) Close(ctx context.Context, escalationID string, at time.Time) (*model.QueueEntry, error) {
	var closed *model.QueueEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var q model.QueueEntry
		err := tx.Where("escalation_id = ? AND status IN ?", escalationID, openQueueStatuses).
			First(&q).Error
		if err != nil {
			return err
		}
		next := model.QueueCancelled
		if q.Status == model.QueueAssigned {
			next = model.QueueCompleted
		}
		res := tx.Model(&model.QueueEntry{}).
			Where("id = ? AND status = ?", q.ID, q.Status).
			Updates(map[string]any{"status": next, "completed_at": at})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		closed = &q
		return nil
	})
	if err != nil {
		return nil, wrapNotFound(err, "close queue entry for %s", escalationID)
	}
	return closed, nil
}

// Waiting lists a business's waiting entries, oldest first, joined with their escalations.
func (s *QueueStore) Waiting(ctx context.Context, businessID string) ([]model.QueueItem, error) {
	var items []model.QueueItem
	err := s.db.WithContext(ctx).
		Table("queue_entries AS q").
		Select(`q.*, e.case_number, e.customer_name, e.customer_email, e.concern, e.session_id`).
		Joins("JOIN escalations AS e ON e.id = q.escalation_id").
		Where("q.business_id = ? AND q.status = ?", businessID, model.QueueWaiting).
		Order("q.requested_at ASC").
		Scan(&items).Error
	return items, err
}
