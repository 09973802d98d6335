package realtime

import (
	"context"
	"sort"
	"sync"

	"support-agent/model"
)

// PresenceRegistry maps (business, agent) to the connection currently serving that agent.
// dao.RedisStore is the shared implementation; MemoryPresence serves single-node runs.
type PresenceRegistry interface {
	Register(ctx context.Context, conn model.AgentConnection) error
	Unregister(ctx context.Context, businessID, agentID, connID string) error
	Lookup(ctx context.Context, businessID, agentID string) (*model.AgentConnection, error)
	Online(ctx context.Context, businessID string) ([]model.AgentConnection, error)
}

type MemoryPresence struct {
	mu    sync.RWMutex
	conns map[string]map[string]model.AgentConnection
}

func NewMemoryPresence() *MemoryPresence {
	return &MemoryPresence{conns: make(map[string]map[string]model.AgentConnection)}
}

func (m *MemoryPresence) Register(_ context.Context, conn model.AgentConnection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	agents, ok := m.conns[conn.BusinessID]
	if !ok {
		agents = make(map[string]model.AgentConnection)
		m.conns[conn.BusinessID] = agents
	}
	if cur, ok := agents[conn.AgentID]; ok && cur.ConnectedAt.After(conn.ConnectedAt) {
		return nil
	}
	agents[conn.AgentID] = conn
	return nil
}

func (m *MemoryPresence) Unregister(_ context.Context, businessID, agentID, connID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	agents := m.conns[businessID]
	if cur, ok := agents[agentID]; ok && (connID == "" || cur.ConnID == connID) {
		delete(agents, agentID)
	}
	return nil
}

func (m *MemoryPresence) Lookup(_ context.Context, businessID, agentID string) (*model.AgentConnection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if cur, ok := m.conns[businessID][agentID]; ok {
		return &cur, nil
	}
	return nil, nil
}

func (m *MemoryPresence) Online(_ context.Context, businessID string) ([]model.AgentConnection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.AgentConnection, 0, len(m.conns[businessID]))
	for _, c := range m.conns[businessID] {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out, nil
}
