package dao

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"support-agent/model"
)

type KnowledgeStore struct {
	db *gorm.DB
}

func NewKnowledgeStore(db *gorm.DB) *KnowledgeStore {
	return &KnowledgeStore{db: db}
}

// Active loads every active knowledge item of one business across all four variants.
func (s *KnowledgeStore) Active(ctx context.Context, businessID string) ([]model.Knowledge, error) {
	scope := s.db.WithContext(ctx).Where("business_id = ? AND is_active = ?", businessID, true)

	var faqs []*model.FAQ
	if err := scope.Session(&gorm.Session{}).Find(&faqs).Error; err != nil {
		return nil, fmt.Errorf("load faqs: %w", err)
	}
	var products []*model.Product
	if err := scope.Session(&gorm.Session{}).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	var services []*model.Service
	if err := scope.Session(&gorm.Session{}).Find(&services).Error; err != nil {
		return nil, fmt.Errorf("load services: %w", err)
	}
	var policies []*model.Policy
	if err := scope.Session(&gorm.Session{}).Find(&policies).Error; err != nil {
		return nil, fmt.Errorf("load policies: %w", err)
	}

	out := make([]model.Knowledge, 0, len(faqs)+len(products)+len(services)+len(policies))
	for _, f := range faqs {
		out = append(out, f)
	}
	for _, p := range products {
		out = append(out, p)
	}
	for _, sv := range services {
		out = append(out, sv)
	}
	for _, p := range policies {
		out = append(out, p)
	}
	return out, nil
}

// Add stores a knowledge item of any variant.
func (s *KnowledgeStore) Add(ctx context.Context, item model.Knowledge) error {
	return s.db.WithContext(ctx).Create(item).Error
}
