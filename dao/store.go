package dao

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"support-agent/model"
)

// wrapNotFound turns gorm's missing-row error into model.ErrNotFound.
func wrapNotFound(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	what := fmt.Sprintf(format, args...)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, model.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

type BusinessStore struct {
	db *gorm.DB
}

func NewBusinessStore(db *gorm.DB) *BusinessStore {
	return &BusinessStore{db: db}
}

func (s *BusinessStore) BySlug(ctx context.Context, slug string) (*model.Business, error) {
	var b model.Business
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&b).Error; err != nil {
		return nil, wrapNotFound(err, "business %q", slug)
	}
	return &b, nil
}

func (s *BusinessStore) ByID(ctx context.Context, id string) (*model.Business, error) {
	var b model.Business
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, wrapNotFound(err, "business %s", id)
	}
	return &b, nil
}

func (s *BusinessStore) Create(ctx context.Context, b *model.Business) error {
	return s.db.WithContext(ctx).Create(b).Error
}

type SessionStore struct {
	db *gorm.DB
}

func NewSessionStore(db *gorm.DB) *SessionStore {
	return &SessionStore{db: db}
}

// Get returns the session only when it belongs to businessID.
func (s *SessionStore) Get(ctx context.Context, businessID, id string) (*model.Session, error) {
	var sess model.Session
	err := s.db.WithContext(ctx).
		Where("id = ? AND business_id = ?", id, businessID).
		First(&sess).Error
	if err != nil {
		return nil, wrapNotFound(err, "session %s", id)
	}
	return &sess, nil
}

func (s *SessionStore) Create(ctx context.Context, sess *model.Session) error {
	return s.db.WithContext(ctx).Create(sess).Error
}

// UpdateContact fills in contact fields that are set on c; empty values never erase stored ones.
// Only a session owned by businessID is touched.
func (s *SessionStore) UpdateContact(ctx context.Context, businessID, id string, c model.Session) error {
	changes := map[string]any{}
	if c.CustomerName != "" {
		changes["customer_name"] = c.CustomerName
	}
	if c.CustomerEmail != "" {
		changes["customer_email"] = c.CustomerEmail
	}
	if c.CustomerPhone != "" {
		changes["customer_phone"] = c.CustomerPhone
	}
	if len(changes) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(&model.Session{}).
		Where("id = ? AND business_id = ?", id, businessID).
		Updates(changes).Error
}

func (s *SessionStore) IncrementAttempts(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Model(&model.Session{}).
		Where("id = ?", id).
		UpdateColumn("escalation_attempts", gorm.Expr("escalation_attempts + ?", 1)).Error
}
