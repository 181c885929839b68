package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/NordCoder/safecode-crm/internal/domain/notification"
	"github.com/NordCoder/safecode-crm/internal/obs/retry"
	kafkax "github.com/NordCoder/safecode-crm/internal/repository/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSender struct {
	failures int
	calls    int
	to       []string
}

func (f *fakeSender) Send(_ context.Context, to, _, _ string) error {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return errors.New("421 try later")
	}
	f.to = append(f.to, to)
	return nil
}

type fakeSub struct {
	values [][]byte
}

func (f *fakeSub) Consume(ctx context.Context, h kafkax.Handler) error {
	for _, v := range f.values {
		if err := h(ctx, nil, v); err != nil {
			return err
		}
	}
	return context.Canceled
}

func testPolicy() retry.Policy {
	return retry.Policy{Name: "test_smtp", Attempts: 3, Backoff: retry.ExpoJitter{}}
}

func TestHandler_RetriesTransientFailures(t *testing.T) {
	s := &fakeSender{failures: 2}
	h := &Handler{Out: s, Policy: testPolicy()}

	err := h.HandleEmailRequested(context.Background(), notification.EmailRequest{
		To: "buyer@crm.dev", Subject: "Reminder", Body: "expires soon",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, s.calls)
	assert.Equal(t, []string{"buyer@crm.dev"}, s.to)
}

func TestHandler_GivesUpAfterAttempts(t *testing.T) {
	s := &fakeSender{failures: 10}
	h := &Handler{Out: s, Policy: testPolicy()}

	err := h.HandleEmailRequested(context.Background(), notification.EmailRequest{To: "a@b.c", Subject: "s"})
	require.Error(t, err)
	assert.Equal(t, 3, s.calls)
}

func TestHandler_RejectsMalformed(t *testing.T) {
	s := &fakeSender{}
	h := &Handler{Out: s, Policy: testPolicy()}

	err := h.HandleEmailRequested(context.Background(), notification.EmailRequest{To: "not an address", Subject: "s"})
	require.ErrorIs(t, err, ErrBadRequest)

	err = h.HandleEmailRequested(context.Background(), notification.EmailRequest{To: "a@b.c"})
	require.ErrorIs(t, err, ErrBadRequest)
	assert.Zero(t, s.calls)
}

func TestController_SwallowsDeliveryFailures(t *testing.T) {
	s := &fakeSender{failures: 100}
	c := &Controller{
		Log: zap.NewNop(),
		Sub: &fakeSub{values: [][]byte{
			[]byte(`{"to":"a@b.c","subject":"s","body":"b"}`),
			[]byte(`{"to":"","subject":"s"}`),
		}},
		UC: &Handler{Out: s, Policy: testPolicy()},
	}
	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, 3, s.calls)
}

func TestBuildMessage(t *testing.T) {
	at := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	msg := string(buildMessage("noreply@crm.dev", "a@b.c", "Reminder", "hello", at))

	assert.True(t, strings.HasPrefix(msg, "From: noreply@crm.dev\r\nTo: a@b.c\r\n"))
	assert.Contains(t, msg, "Subject: Reminder\r\n")
	assert.Contains(t, msg, "Content-Type: text/plain; charset=utf-8\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\nhello\r\n"))
}

func TestHost(t *testing.T) {
	assert.Equal(t, "smtp.example.com", host("smtp.example.com:587"))
	assert.Equal(t, "localhost", host("localhost"))
}
