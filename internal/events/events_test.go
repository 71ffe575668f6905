package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type fakeReader struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		msg := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()

	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func TestNewBuildsKeyFromTypeAndSubject(t *testing.T) {
	e, err := New(PostCreated, 12, map[string]int64{"id": 12})
	require.NoError(t, err)
	assert.Equal(t, "post-created-12", e.Key)
	assert.JSONEq(t, `{"id":12}`, string(e.Payload))
	assert.False(t, e.OccurredAt.IsZero())
}

func TestKafkaPublisherWritesEnvelope(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}

	e, err := New(GroupMessageCreated, 11, map[string]string{"content": "hi"})
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), e))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "group_message-created-11", string(w.msgs[0].Key))
	assert.Equal(t, "group_message-created", string(w.msgs[0].Headers[0].Value))
	assert.Contains(t, string(w.msgs[0].Value), `"content":"hi"`)
}

func TestKafkaPublisherReturnsWriteError(t *testing.T) {
	p := &KafkaPublisher{writer: &fakeWriter{err: errors.New("broker down")}}

	e, err := New(PostLiked, 1, nil)
	require.NoError(t, err)
	assert.Error(t, p.Publish(context.Background(), e))
}

func TestConsumerDeliversToHandlersUntilCancelled(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}
	e, err := New(GroupJoined, 3, map[string]int64{"user_id": 7})
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), e))

	r := &fakeReader{msgs: append(w.msgs, kafka.Message{Key: []byte("junk"), Value: []byte("not json")})}
	received := make(chan Event, 2)
	c := &Consumer{reader: r, backoff: time.Millisecond, handlers: []Handler{
		func(_ context.Context, e Event) { received <- e },
	}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	select {
	case got := <-received:
		assert.Equal(t, GroupJoined, got.Type)
		var payload map[string]int64
		require.NoError(t, got.Decode(&payload))
		assert.Equal(t, int64(7), payload["user_id"])
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
	assert.True(t, r.closed)
	assert.Empty(t, received)
}

func TestLocalPublisherCallsSubscribers(t *testing.T) {
	var got []Type
	p := NewLocalPublisher(func(_ context.Context, e Event) { got = append(got, e.Type) })
	p.Subscribe(func(_ context.Context, e Event) { got = append(got, e.Type) })

	e, err := New(GroupDeleted, 4, nil)
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), e))

	assert.Equal(t, []Type{GroupDeleted, GroupDeleted}, got)
}
