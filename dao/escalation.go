package dao

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"support-agent/model"
)

type EscalationStore struct {
	db *gorm.DB
}

func NewEscalationStore(db *gorm.DB) *EscalationStore {
	return &EscalationStore{db: db}
}

// Create inserts e. A case-number collision is reported as model.ErrConflict.
func (s *EscalationStore) Create(ctx context.Context, e *model.Escalation) error {
	err := s.db.WithContext(ctx).Create(e).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("case number %s: %w", e.CaseNumber, model.ErrConflict)
	}
	return err
}

func (s *EscalationStore) CaseNumberExists(ctx context.Context, caseNumber string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.Escalation{}).
		Where("case_number = ?", caseNumber).
		Count(&n).Error
	return n > 0, err
}

func (s *EscalationStore) ByID(ctx context.Context, id string) (*model.Escalation, error) {
	var e model.Escalation
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, wrapNotFound(err, "escalation %s", id)
	}
	return &e, nil
}

// ByCaseNumber is scoped by business even though case numbers are globally unique.
func (s *EscalationStore) ByCaseNumber(ctx context.Context, businessID, caseNumber string) (*model.Escalation, error) {
	var e model.Escalation
	err := s.db.WithContext(ctx).
		Where("business_id = ? AND case_number = ?", businessID, caseNumber).
		First(&e).Error
	if err != nil {
		return nil, wrapNotFound(err, "case %s", caseNumber)
	}
	return &e, nil
}

// ForSession returns the newest escalation of businessID bound to a session.
func (s *EscalationStore) ForSession(ctx context.Context, businessID, sessionID string) (*model.Escalation, error) {
	var e model.Escalation
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND business_id = ?", sessionID, businessID).
		Order("created_at DESC").
		First(&e).Error
	if err != nil {
		return nil, wrapNotFound(err, "escalation for session %s", sessionID)
	}
	return &e, nil
}

func (s *EscalationStore) Update(ctx context.Context, id string, changes map[string]any) error {
	res := s.db.WithContext(ctx).Model(&model.Escalation{}).Where("id = ?", id).Updates(changes)
	if res.Error != nil {
		return fmt.Errorf("update escalation %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("escalation %s: %w", id, model.ErrNotFound)
	}
	return nil
}

func (s *EscalationStore) AddActivity(ctx context.Context, a *model.EscalationActivity) error {
	return s.db.WithContext(ctx).Create(a).Error
}

func (s *EscalationStore) Activity(ctx context.Context, escalationID string) ([]model.EscalationActivity, error) {
	var items []model.EscalationActivity
	err := s.db.WithContext(ctx).
		Where("escalation_id = ?", escalationID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}
