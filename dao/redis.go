package dao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"

	"support-agent/model"
)

var (
	ErrStaleConnection = errors.New("presence conflict: a newer connection is registered")
	ErrMaxRetries      = errors.New("max retries exceeded")
	ErrInvalidParam    = errors.New("invalid parameter")
)

// RedisStore keeps the agent connection map outside the process so every node can route to
// whichever node holds an agent's stream. One hash per business, field = agent id.
type RedisStore struct {
	client     *redis.Client
	keyPrefix  string
	ttl        time.Duration
	maxRetries int
}

func NewRedisStore(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "support-agent:"
	}
	return &RedisStore{
		client:     client,
		keyPrefix:  keyPrefix + "presence:",
		ttl:        ttl,
		maxRetries: 3,
	}
}

func (s *RedisStore) key(businessID string) string {
	return s.keyPrefix + businessID
}

// Register records conn unless a newer connection for the same agent is already stored.
func (s *RedisStore) Register(ctx context.Context, conn model.AgentConnection) error {
	if conn.BusinessID == "" || conn.AgentID == "" || conn.ConnID == "" {
		return fmt.Errorf("%w: business, agent and connection ids are required", ErrInvalidParam)
	}
	key := s.key(conn.BusinessID)

	return s.withRetry(ctx, key, func(tx *redis.Tx) error {
		current, err := s.read(ctx, tx, key, conn.AgentID)
		if err != nil {
			return err
		}
		if current != nil && current.ConnectedAt.After(conn.ConnectedAt) {
			return ErrStaleConnection
		}

		data, err := json.Marshal(conn)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, conn.AgentID, data)
			if s.ttl > 0 {
				pipe.Expire(ctx, key, s.ttl)
			}
			return nil
		})
		return err
	})
}

// Unregister removes the agent entry only while it still belongs to connID, so a late
// disconnect never erases a fresh reconnect.
func (s *RedisStore) Unregister(ctx context.Context, businessID, agentID, connID string) error {
	if businessID == "" || agentID == "" {
		return fmt.Errorf("%w: business and agent ids are required", ErrInvalidParam)
	}
	key := s.key(businessID)

	return s.withRetry(ctx, key, func(tx *redis.Tx) error {
		current, err := s.read(ctx, tx, key, agentID)
		if err != nil {
			return err
		}
		if current == nil || (connID != "" && current.ConnID != connID) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HDel(ctx, key, agentID)
			return nil
		})
		return err
	})
}

// Lookup returns nil, nil when the agent has no live connection.
func (s *RedisStore) Lookup(ctx context.Context, businessID, agentID string) (*model.AgentConnection, error) {
	data, err := s.client.HGet(ctx, s.key(businessID), agentID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var conn model.AgentConnection
	if err := json.Unmarshal(data, &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

func (s *RedisStore) Online(ctx context.Context, businessID string) ([]model.AgentConnection, error) {
	all, err := s.client.HGetAll(ctx, s.key(businessID)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]model.AgentConnection, 0, len(all))
	for _, raw := range all {
		var conn model.AgentConnection
		if err := json.Unmarshal([]byte(raw), &conn); err != nil {
			continue
		}
		out = append(out, conn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out, nil
}

func (s *RedisStore) read(ctx context.Context, tx *redis.Tx, key, agentID string) (*model.AgentConnection, error) {
	data, err := tx.HGet(ctx, key, agentID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var conn model.AgentConnection
	if err := json.Unmarshal(data, &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

// withRetry runs fn under WATCH on key and retries when the transaction lost a race.
func (s *RedisStore) withRetry(ctx context.Context, key string, fn func(tx *redis.Tx) error) error {
	var err error
	for i := 0; i <= s.maxRetries; i++ {
		err = s.client.Watch(ctx, fn, key)
		if !s.shouldRetry(err) {
			return err
		}
		if i < s.maxRetries {
			time.Sleep(time.Millisecond * time.Duration(10*(i+1)))
		}
	}
	return fmt.Errorf("%w for %s: %v", ErrMaxRetries, key, err)
}

// shouldRetry only retries optimistic-lock failures.
func (s *RedisStore) shouldRetry(err error) bool {
	return err != nil && errors.Is(err, redis.TxFailedErr)
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
