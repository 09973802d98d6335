package dao

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"support-agent/model"
)

type MessageStore struct {
	db *gorm.DB
}

func NewMessageStore(db *gorm.DB) *MessageStore {
	return &MessageStore{db: db}
}

func (s *MessageStore) Create(ctx context.Context, m *model.ChatMessage) error {
	return s.db.WithContext(ctx).Create(m).Error
}

func (s *MessageStore) ByID(ctx context.Context, id string) (*model.ChatMessage, error) {
	var m model.ChatMessage
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, wrapNotFound(err, "message %s", id)
	}
	return &m, nil
}

// Recent returns up to limit of the newest messages of a session in chronological order.
func (s *MessageStore) Recent(ctx context.Context, sessionID string, limit int) ([]model.ChatMessage, error) {
	var items []model.ChatMessage
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("recent messages of %s: %w", sessionID, err)
	}
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items, nil
}

func (s *MessageStore) SetFeedback(ctx context.Context, id string, f model.Feedback) error {
	return s.db.WithContext(ctx).Model(&model.ChatMessage{}).
		Where("id = ?", id).
		Update("feedback", f).Error
}
