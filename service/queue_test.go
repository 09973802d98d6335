package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"support-agent/dao"
	"support-agent/internal/events"
	"support-agent/internal/testutil"
	"support-agent/model"
	"support-agent/realtime"
)

type queueFixture struct {
	db  *gorm.DB
	biz *model.Business
	rt  *recordingBroadcaster
	pub *recordingPublisher
	svc *QueueService
}

func newQueueFixture(t *testing.T) *queueFixture {
	t.Helper()
	db := testutil.DB(t)
	f := &queueFixture{
		db:  db,
		biz: testutil.Business(t, db, "acme", true),
		rt:  &recordingBroadcaster{},
		pub: &recordingPublisher{},
	}
	f.svc = NewQueueService(dao.NewQueueStore(db), dao.NewAgentStore(db), dao.NewEscalationStore(db), f.rt, f.pub, zerolog.Nop())
	f.svc.now = stepClock()
	return f
}

func (f *queueFixture) escalation(t *testing.T, caseNumber string) *model.Escalation {
	t.Helper()
	sess := testutil.Session(t, f.db, f.biz.ID)
	return testutil.Escalation(t, f.db, f.biz.ID, sess.ID, caseNumber, model.EscalationEscalated)
}

func (f *queueFixture) agentStatus(t *testing.T, agentID string) model.AgentStatus {
	t.Helper()
	p, err := dao.NewAgentStore(f.db).Get(context.Background(), f.biz.ID, agentID)
	require.NoError(t, err)
	return p.Status
}

func TestQueueEnqueueIsIdempotent(t *testing.T) {
	f := newQueueFixture(t)
	ctx := context.Background()
	e := f.escalation(t, "100001")

	first, err := f.svc.Enqueue(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, model.QueueWaiting, first.Status)
	assert.True(t, f.rt.has("notify", f.biz.ID, realtime.EventQueueUpdated))

	again, err := f.svc.Enqueue(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	waiting, err := f.svc.Waiting(ctx, f.biz.ID)
	require.NoError(t, err)
	require.Len(t, waiting, 1)
	assert.Equal(t, "100001", waiting[0].CaseNumber)
	assert.Equal(t, "Dana Reyes", waiting[0].CustomerName)
}

func TestQueueTryAssignNeedsBothSides(t *testing.T) {
	f := newQueueFixture(t)
	ctx := context.Background()

	got, err := f.svc.TryAssign(ctx, f.biz.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "empty queue")

	_, err = f.svc.Enqueue(ctx, f.escalation(t, "100001"))
	require.NoError(t, err)
	got, err = f.svc.TryAssign(ctx, f.biz.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "no available agent")

	_, err = f.svc.SetAgentStatus(ctx, f.biz.ID, "agent-a", model.AgentAway)
	require.NoError(t, err)
	got, err = f.svc.TryAssign(ctx, f.biz.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "away agents are not assigned")
}

func TestQueueFIFOAssignment(t *testing.T) {
	f := newQueueFixture(t)
	ctx := context.Background()
	first := f.escalation(t, "100001")
	second := f.escalation(t, "100002")
	_, err := f.svc.Enqueue(ctx, first)
	require.NoError(t, err)
	_, err = f.svc.Enqueue(ctx, second)
	require.NoError(t, err)

	p, err := f.svc.SetAgentStatus(ctx, f.biz.ID, "agent-a", model.AgentAvailable)
	require.NoError(t, err)
	assert.Equal(t, model.AgentInChat, p.Status, "availability triggers assignment")

	entry, err := dao.NewQueueStore(f.db).Open(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueAssigned, entry.Status)
	assert.Equal(t, "agent-a", entry.AssignedAgentID)
	require.NotNil(t, entry.AssignedAt)

	waiting, err := f.svc.Waiting(ctx, f.biz.ID)
	require.NoError(t, err)
	require.Len(t, waiting, 1)
	assert.Equal(t, second.ID, waiting[0].EscalationID)

	assert.Contains(t, f.rt.joins, "agent-a@"+first.ID)
	assert.True(t, f.rt.has("emit", first.ID, realtime.EventQueueAssigned))
	assert.True(t, f.rt.has("notify", f.biz.ID, realtime.EventQueueAssigned))
	assert.True(t, f.rt.has("status", f.biz.ID, realtime.EventAgentStatus))
	assert.Contains(t, f.pub.names(), events.QueueAssigned)

	activity, err := dao.NewEscalationStore(f.db).Activity(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, activity, 1)
	assert.Equal(t, model.ActivityQueueAssigned, activity[0].Type)
	assert.Equal(t, "agent-a", activity[0].ToValue)

	_, err = f.svc.SetAgentStatus(ctx, f.biz.ID, "agent-b", model.AgentAvailable)
	require.NoError(t, err)
	entry, err = dao.NewQueueStore(f.db).Open(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "agent-b", entry.AssignedAgentID)
}

func TestQueueLongestIdleAgentFirst(t *testing.T) {
	f := newQueueFixture(t)
	ctx := context.Background()

	_, err := f.svc.SetAgentStatus(ctx, f.biz.ID, "agent-early", model.AgentAvailable)
	require.NoError(t, err)
	_, err = f.svc.SetAgentStatus(ctx, f.biz.ID, "agent-late", model.AgentAvailable)
	require.NoError(t, err)

	e := f.escalation(t, "100001")
	_, err = f.svc.Enqueue(ctx, e)
	require.NoError(t, err)
	entry, err := f.svc.TryAssign(ctx, f.biz.ID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "agent-early", entry.AssignedAgentID)
	assert.Equal(t, model.AgentAvailable, f.agentStatus(t, "agent-late"))
}

func TestQueueCompleteReleasesAgent(t *testing.T) {
	f := newQueueFixture(t)
	ctx := context.Background()
	first := f.escalation(t, "100001")
	second := f.escalation(t, "100002")
	_, err := f.svc.Enqueue(ctx, first)
	require.NoError(t, err)
	_, err = f.svc.SetAgentStatus(ctx, f.biz.ID, "agent-a", model.AgentAvailable)
	require.NoError(t, err)
	_, err = f.svc.Enqueue(ctx, second)
	require.NoError(t, err)

	prior, err := f.svc.Complete(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueAssigned, prior.Status)
	assert.Contains(t, f.pub.names(), events.QueueCompleted)

	_, err = dao.NewQueueStore(f.db).Open(ctx, first.ID)
	assert.ErrorIs(t, err, model.ErrNotFound, "completed entries are terminal")

	next, err := dao.NewQueueStore(f.db).Open(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueAssigned, next.Status, "the freed agent picks up the next case")
	assert.Equal(t, "agent-a", next.AssignedAgentID)

	_, err = f.svc.Complete(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AgentAvailable, f.agentStatus(t, "agent-a"))
}

func TestQueueCompleteWaitingEntryCancels(t *testing.T) {
	f := newQueueFixture(t)
	ctx := context.Background()
	e := f.escalation(t, "100001")
	_, err := f.svc.Enqueue(ctx, e)
	require.NoError(t, err)

	prior, err := f.svc.Complete(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueWaiting, prior.Status)
	assert.NotContains(t, f.pub.names(), events.QueueCompleted)

	var stored model.QueueEntry
	require.NoError(t, f.db.Where("escalation_id = ?", e.ID).First(&stored).Error)
	assert.Equal(t, model.QueueCancelled, stored.Status)
	assert.NotNil(t, stored.CompletedAt)

	_, err = f.svc.Complete(ctx, e.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestQueueSetAgentStatusValidation(t *testing.T) {
	f := newQueueFixture(t)
	ctx := context.Background()

	_, err := f.svc.SetAgentStatus(ctx, f.biz.ID, "agent-a", model.AgentStatus("sleeping"))
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = f.svc.SetAgentStatus(ctx, f.biz.ID, "", model.AgentOnline)
	assert.ErrorIs(t, err, model.ErrValidation)

	p, err := f.svc.SetAgentStatus(ctx, f.biz.ID, "agent-a", model.AgentOnline)
	require.NoError(t, err)
	assert.Equal(t, model.AgentOnline, p.Status)
	p, err = f.svc.SetAgentStatus(ctx, f.biz.ID, "agent-a", model.AgentAway)
	require.NoError(t, err)
	assert.Equal(t, model.AgentAway, p.Status)

	agents, err := f.svc.Agents(ctx, f.biz.ID)
	require.NoError(t, err)
	require.Len(t, agents, 1, "status changes update one presence row")
}
