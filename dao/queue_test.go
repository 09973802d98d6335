package dao

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"support-agent/internal/testutil"
	"support-agent/model"
)

func TestQueueAssignIsConditional(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	biz := testutil.Business(t, db, "acme", true)
	sess := testutil.Session(t, db, biz.ID)
	esc := testutil.Escalation(t, db, biz.ID, sess.ID, "100001", model.EscalationEscalated)

	queue := NewQueueStore(db)
	agents := NewAgentStore(db)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	entry := &model.QueueEntry{BusinessID: biz.ID, EscalationID: esc.ID, Status: model.QueueWaiting, RequestedAt: at}
	require.NoError(t, queue.Create(ctx, entry))

	ok, err := queue.Assign(ctx, entry.ID, biz.ID, "agent-a", at)
	require.NoError(t, err)
	assert.False(t, ok, "an unknown agent cannot be claimed")
	open, err := queue.Open(ctx, esc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueWaiting, open.Status, "a failed claim rolls back the entry")

	_, err = agents.SetStatus(ctx, biz.ID, "agent-a", model.AgentAvailable, at)
	require.NoError(t, err)
	_, err = agents.SetStatus(ctx, biz.ID, "agent-b", model.AgentAvailable, at.Add(time.Second))
	require.NoError(t, err)

	ok, err = queue.Assign(ctx, entry.ID, biz.ID, "agent-a", at)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = queue.Assign(ctx, entry.ID, biz.ID, "agent-b", at)
	require.NoError(t, err)
	assert.False(t, ok, "an assigned entry cannot be claimed twice")

	p, err := agents.Get(ctx, biz.ID, "agent-b")
	require.NoError(t, err)
	assert.Equal(t, model.AgentAvailable, p.Status, "the losing agent stays available")

	p, err = agents.Get(ctx, biz.ID, "agent-a")
	require.NoError(t, err)
	assert.Equal(t, model.AgentInChat, p.Status)
}

func TestQueueOldestWaitingIsFIFO(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	biz := testutil.Business(t, db, "acme", true)
	sess := testutil.Session(t, db, biz.ID)
	queue := NewQueueStore(db)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	late := testutil.Escalation(t, db, biz.ID, sess.ID, "100002", model.EscalationEscalated)
	early := testutil.Escalation(t, db, biz.ID, sess.ID, "100001", model.EscalationEscalated)
	require.NoError(t, queue.Create(ctx, &model.QueueEntry{BusinessID: biz.ID, EscalationID: late.ID, Status: model.QueueWaiting, RequestedAt: base.Add(time.Minute)}))
	require.NoError(t, queue.Create(ctx, &model.QueueEntry{BusinessID: biz.ID, EscalationID: early.ID, Status: model.QueueWaiting, RequestedAt: base}))

	head, err := queue.OldestWaiting(ctx, biz.ID)
	require.NoError(t, err)
	assert.Equal(t, early.ID, head.EscalationID)

	items, err := queue.Waiting(ctx, biz.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "100001", items[0].CaseNumber)
	assert.Equal(t, "100002", items[1].CaseNumber)

	_, err = queue.OldestWaiting(ctx, "other-business")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestEscalationCreateDuplicateCaseNumber(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	biz := testutil.Business(t, db, "acme", true)
	store := NewEscalationStore(db)

	first := &model.Escalation{CaseNumber: "482910", BusinessID: biz.ID, CustomerName: "A", CustomerEmail: "a@example.com", Status: model.EscalationEscalated}
	require.NoError(t, store.Create(ctx, first))

	exists, err := store.CaseNumberExists(ctx, "482910")
	require.NoError(t, err)
	assert.True(t, exists)

	dup := &model.Escalation{CaseNumber: "482910", BusinessID: biz.ID, CustomerName: "B", CustomerEmail: "b@example.com", Status: model.EscalationEscalated}
	assert.ErrorIs(t, store.Create(ctx, dup), model.ErrConflict)
}
