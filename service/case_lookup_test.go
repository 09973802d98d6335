package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"support-agent/dao"
	"support-agent/internal/testutil"
	"support-agent/model"
)

func TestExtractCaseNumber(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"case 482910", "482910"},
		{"Case #ab12cd please", "AB12CD"},
		{"ticket number: 123456", "123456"},
		{"my reference is #778899", "778899"},
		{"I ordered on 482910", "482910"},
		{"order ABC12345XY never came", "ABC12345XY"},
		{"what's the status of my case", ""},
		{"ticket status please", ""},
		{"hello there", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractCaseNumber(tt.text))
		})
	}
}

func TestCaseLookup(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	biz := testutil.Business(t, db, "acme", true)
	other := testutil.Business(t, db, "globex", true)
	sess := testutil.Session(t, db, biz.ID)
	esc := testutil.Escalation(t, db, biz.ID, sess.ID, "482910", model.EscalationPending)

	lookup := NewCaseLookup(dao.NewEscalationStore(db))

	status, err := lookup.Status(ctx, biz.ID, "482910")
	require.NoError(t, err)
	assert.Equal(t, &model.CaseStatus{CaseNumber: "482910", Status: model.EscalationPending}, status)

	details, err := lookup.Details(ctx, biz.ID, "482910")
	require.NoError(t, err)
	assert.Equal(t, esc.ID, details.EscalationID)
	assert.Equal(t, sess.ID, details.SessionID)
	assert.Equal(t, "Dana Reyes", details.CustomerName)
	assert.Equal(t, "dana@example.com", details.CustomerEmail)

	_, err = lookup.Status(ctx, biz.ID, "999999")
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = lookup.Details(ctx, other.ID, "482910")
	assert.ErrorIs(t, err, model.ErrNotFound, "cases are scoped to their business")
}
