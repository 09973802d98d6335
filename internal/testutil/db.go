// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"support-agent/internal/database"
	"support-agent/model"
)

// DB opens a private in-memory SQLite database with the full schema.
func DB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := database.Open(context.Background(), "sqlite", dsn, 1, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// Business inserts a business with the given slug.
func Business(t *testing.T, db *gorm.DB, slug string, liveChat bool) *model.Business {
	t.Helper()
	b := &model.Business{Slug: slug, Name: "Acme " + slug, Email: slug + "@example.com", LiveChatEnabled: liveChat}
	require.NoError(t, db.Create(b).Error)
	return b
}

// Session inserts a session for the business.
func Session(t *testing.T, db *gorm.DB, businessID string) *model.Session {
	t.Helper()
	s := &model.Session{BusinessID: businessID}
	require.NoError(t, db.Create(s).Error)
	return s
}

// Escalation inserts a case with a fixed number and status.
func Escalation(t *testing.T, db *gorm.DB, businessID, sessionID, caseNumber string, status model.EscalationStatus) *model.Escalation {
	t.Helper()
	e := &model.Escalation{
		CaseNumber:    caseNumber,
		BusinessID:    businessID,
		SessionID:     sessionID,
		CustomerName:  "Dana Reyes",
		CustomerEmail: "dana@example.com",
		Status:        status,
	}
	require.NoError(t, db.Create(e).Error)
	return e
}
