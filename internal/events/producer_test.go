package events

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hangingTransport never answers; it only gives up when the request context ends.
type hangingTransport struct {
	calls chan bool
}

func (h *hangingTransport) RoundTrip(ctx context.Context, _ net.Addr, _ kafka.Request) (kafka.Response, error) {
	_, hasDeadline := ctx.Deadline()
	select {
	case h.calls <- hasDeadline:
	default:
	}
	<-ctx.Done()
	return nil, errors.New("broker did not answer")
}

func TestProducerWithoutBrokersIsNoop(t *testing.T) {
	p := NewProducer(nil, "support-escalations", zerolog.Nop())
	p.Publish(context.Background(), EscalationCreated, "esc-1", map[string]any{"caseNumber": "482910"})
	assert.NoError(t, p.Close())

	var nilProducer *Producer
	nilProducer.Publish(context.Background(), QueueAssigned, "esc-1", nil)
	assert.NoError(t, nilProducer.Close())
}

func TestProducerConfiguresWriter(t *testing.T) {
	p := NewProducer([]string{"kafka-1:9092", "kafka-2:9092"}, "support-escalations", zerolog.Nop())
	if assert.NotNil(t, p.writer) {
		assert.Equal(t, "support-escalations", p.writer.Topic)
		assert.Equal(t, publishTimeout, p.writer.WriteTimeout)
		assert.Equal(t, publishTimeout, p.timeout)
	}
	assert.NoError(t, p.Close())

	assert.Nil(t, NewProducer([]string{"kafka-1:9092"}, "", zerolog.Nop()).writer)
}

func TestProducerPublishDoesNotWaitForBroker(t *testing.T) {
	transport := &hangingTransport{calls: make(chan bool, 1)}
	p := NewProducer([]string{"kafka-1:9092"}, "support-escalations", zerolog.Nop())
	p.writer.Transport = transport
	p.timeout = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	p.Publish(ctx, EscalationStatusChanged, "esc-1", map[string]any{"to": "pending"})
	assert.Less(t, time.Since(start), 50*time.Millisecond, "publish returns before the broker answers")
	cancel()

	select {
	case hasDeadline := <-transport.calls:
		assert.True(t, hasDeadline, "the write runs under its own deadline")
	case <-time.After(2 * time.Second):
		t.Fatal("the write never reached the broker")
	}

	closed := make(chan error, 1)
	go func() { closed <- p.Close() }()
	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("close waited past the publish timeout")
	}
}
