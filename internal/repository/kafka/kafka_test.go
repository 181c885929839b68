package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/NordCoder/safecode-crm/internal/domain/notification"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestEmailEvents_PublishesJSON(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{w: w, topic: "crm.email.requested", log: zap.NewNop()}
	ev := NewEmailEventsKafka(p)

	req := notification.EmailRequest{To: "a@b.c", Subject: "s", Body: "b"}
	require.NoError(t, ev.PublishEmailRequested(context.Background(), "key-1", req))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("key-1"), w.msgs[0].Key)
	var got notification.EmailRequest
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, req, got)
}

func TestProducer_WriteErrorReturned(t *testing.T) {
	p := &Producer{w: &fakeWriter{err: errors.New("broker down")}, topic: "t", log: zap.NewNop()}
	err := p.PublishJSON(context.Background(), nil, map[string]int{"a": 1})
	require.Error(t, err)
}

func TestJSONHandler(t *testing.T) {
	var got notification.EmailRequest
	h := JSONHandler(func(_ context.Context, key []byte, m notification.EmailRequest) error {
		assert.Equal(t, "k", string(key))
		got = m
		return nil
	})

	require.NoError(t, h(context.Background(), []byte("k"), []byte(`{"to":"x@y.z","subject":"s","body":"b"}`)))
	assert.Equal(t, "x@y.z", got.To)

	require.Error(t, h(context.Background(), []byte("k"), []byte("not json")))
}

func TestHeaderCarrier(t *testing.T) {
	var hs []kafka.Header
	c := carrier(&hs)
	c.Set("traceparent", "00-abc")
	c.Set("traceparent", "00-def")
	c.Set("baggage", "k=v")

	require.Len(t, hs, 2)
	assert.Equal(t, "00-def", c.Get("traceparent"))
	assert.Equal(t, "", c.Get("missing"))
	assert.Equal(t, []string{"traceparent", "baggage"}, c.Keys())
}

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	fetchErrs []error
	committed []int64
	done      chan struct{}
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.fetchErrs) > 0 {
		err := f.fetchErrs[0]
		f.fetchErrs = f.fetchErrs[1:]
		f.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(f.queue) > 0 {
		m := f.queue[0]
		f.queue = f.queue[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()
	close(f.done)
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error { return nil }

func TestConsumer_CommitsOnlyHandledMessages(t *testing.T) {
	r := &fakeReader{
		queue: []kafka.Message{
			{Offset: 1, Value: []byte("ok")},
			{Offset: 2, Value: []byte("bad")},
			{Offset: 3, Value: []byte("ok")},
		},
		fetchErrs: []error{io.EOF, errors.New("leader moved")},
		done:      make(chan struct{}),
	}
	c := newConsumer(r, "t", "g", zap.NewNop())
	var slept []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) { slept = append(slept, d) }

	var seen []string
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.Consume(ctx, func(_ context.Context, _, value []byte) error {
			seen = append(seen, string(value))
			if string(value) == "bad" {
				return errors.New("boom")
			}
			return nil
		})
	}()

	<-r.done
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
	assert.Equal(t, []string{"ok", "bad", "ok"}, seen)
	assert.Equal(t, []int64{1, 3}, r.committed)
	assert.Len(t, slept, 2)
}
