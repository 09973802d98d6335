package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// RedisBridge publishes events on one Redis channel and feeds everything received on it
// into the local hub, so a room spans every process subscribed to the channel.
type RedisBridge struct {
	client  *redis.Client
	channel string
	hub     *Hub
	log     zerolog.Logger
}

func NewRedisBridge(client *redis.Client, channel string, hub *Hub, log zerolog.Logger) *RedisBridge {
	if channel == "" {
		channel = "support-agent:events"
	}
	return &RedisBridge{
		client:  client,
		channel: channel,
		hub:     hub,
		log:     log.With().Str("component", "RedisBridge").Logger(),
	}
}

func (b *RedisBridge) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", ev.Room, err)
	}
	return nil
}

// Run relays channel messages to the hub until ctx is cancelled.
func (b *RedisBridge) Run(ctx context.Context) error {
	ps := b.client.Subscribe(ctx, b.channel)
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe %s: %w", b.channel, err)
	}
	b.log.Info().Str("channel", b.channel).Msg("relaying room events")

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.log.Warn().Err(err).Msg("undecodable event skipped")
				continue
			}
			b.hub.Deliver(ev)
		}
	}
}
