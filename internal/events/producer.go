package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Escalation lifecycle event names.
const (
	EscalationCreated       = "escalation.created"
	EscalationStatusChanged = "escalation.status_changed"
	EscalationOwnerChanged  = "escalation.owner_changed"
	QueueAssigned           = "queue.assigned"
	QueueCompleted          = "queue.completed"
)

const publishTimeout = 5 * time.Second

// Producer writes escalation events to Kafka. It is best effort: writes run in the
// background under their own deadline, and failures are logged and never reach the caller.
// Without brokers or a topic every method is a no-op.
type Producer struct {
	writer  *kafka.Writer
	topic   string
	timeout time.Duration
	wg      sync.WaitGroup
	log     zerolog.Logger
}

func NewProducer(brokers []string, topic string, log zerolog.Logger) *Producer {
	log = log.With().Str("component", "KafkaProducer").Logger()
	if len(brokers) == 0 || topic == "" {
		return &Producer{log: log}
	}
	return &Producer{
		topic:   topic,
		timeout: publishTimeout,
		log:     log,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: publishTimeout,
			MaxAttempts:  3,
		},
	}
}

// Publish sends event keyed by key so every event of one escalation lands on one partition.
// It returns at once; the write outlives a cancelled ctx but not the publish timeout.
func (p *Producer) Publish(ctx context.Context, event, key string, payload map[string]any) {
	if p == nil || p.writer == nil {
		return
	}
	msg := map[string]any{"event": event, "occurredAt": time.Now().UTC()}
	for k, v := range payload {
		msg[k] = v
	}
	body, err := json.Marshal(msg)
	if err != nil {
		p.log.Error().Err(err).Str("event", event).Msg("marshal event")
		return
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()
		if err := p.writer.WriteMessages(writeCtx, kafka.Message{Key: []byte(key), Value: body}); err != nil {
			p.log.Error().Err(err).Str("event", event).Msg("write event")
		}
	}()
}

// Close waits for in-flight writes, then closes the writer.
func (p *Producer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	p.wg.Wait()
	return p.writer.Close()
}

