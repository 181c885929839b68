//go:build integration

package kafka

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/NordCoder/safecode-crm/internal/domain/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func itBrokers(t *testing.T) []string {
	t.Helper()
	b := os.Getenv("IT_BOOTSTRAP")
	if b == "" {
		t.Skip("IT_BOOTSTRAP not set")
	}
	return []string{b}
}

func TestEmailEvents_RoundTrip(t *testing.T) {
	brokers := itBrokers(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	topic := fmt.Sprintf("it-email-%d", time.Now().UnixNano())
	require.NoError(t, EnsureTopic(ctx, brokers, TopicSpec{Name: topic}, zap.NewNop()))

	prod := NewProducer(brokers, topic).WithLogger(zap.NewNop())
	defer func() { _ = prod.Close() }()

	want := notification.EmailRequest{To: "anna@crm.dev", Subject: "Reminder", Body: "expires in 7 days"}
	require.NoError(t, NewEmailEventsKafka(prod).PublishEmailRequested(ctx, "k1", want))

	cons := NewConsumer(&ConsumerConfig{
		Brokers:       brokers,
		GroupID:       topic + "-g",
		Topic:         topic,
		FromBeginning: true,
		Logger:        zap.NewNop(),
	})
	defer func() { _ = cons.Close() }()

	got := make(chan notification.EmailRequest, 1)
	consCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		_ = cons.Consume(consCtx, JSONHandler(func(_ context.Context, key []byte, req notification.EmailRequest) error {
			assert.Equal(t, "k1", string(key))
			got <- req
			return nil
		}))
	}()

	select {
	case req := <-got:
		assert.Equal(t, want, req)
	case <-ctx.Done():
		t.Fatal("message not consumed")
	}
}
