package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	deadline bool
	err      error
}

func (c *recordingChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.exchange = exchange
	c.key = key
	c.msg = msg
	_, c.deadline = ctx.Deadline()
	return c.err
}

func TestPublishSendsJSONToQueue(t *testing.T) {
	ch := &recordingChannel{}
	p := NewAMQPPublisher(ch, "assignment_events", time.Second)

	err := p.Publish(context.Background(), "assignment:created", map[string]int{"id": 7})
	require.NoError(t, err)

	assert.Equal(t, "", ch.exchange)
	assert.Equal(t, "assignment_events", ch.key)
	assert.Equal(t, "assignment:created", ch.msg.Type)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.NotEmpty(t, ch.msg.MessageId)
	assert.True(t, ch.deadline)

	var body map[string]int
	require.NoError(t, json.Unmarshal(ch.msg.Body, &body))
	assert.Equal(t, 7, body["id"])
}

func TestPublishIgnoresCallerCancellation(t *testing.T) {
	ch := &recordingChannel{}
	p := NewAMQPPublisher(ch, "q", time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Publish(ctx, "assignment:deleted", struct{}{}))
	assert.Equal(t, "assignment:deleted", ch.msg.Type)
}

func TestPublishReturnsChannelError(t *testing.T) {
	ch := &recordingChannel{err: errors.New("channel closed")}
	p := NewAMQPPublisher(ch, "q", time.Second)

	assert.EqualError(t, p.Publish(context.Background(), "assignment:updated", struct{}{}), "channel closed")
}

func TestPublishRejectsUnencodablePayload(t *testing.T) {
	ch := &recordingChannel{}
	p := NewAMQPPublisher(ch, "q", time.Second)

	assert.Error(t, p.Publish(context.Background(), "assignment:created", make(chan int)))
	assert.Empty(t, ch.key)
}
