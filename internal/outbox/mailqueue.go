package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/NordCoder/safecode-crm/internal/domain/notification"
	"github.com/NordCoder/safecode-crm/internal/domain/outbox"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// MailQueue stores email requests as outbox rows for the relay to publish.
type MailQueue struct {
	repo outbox.Repository
}

func NewMailQueue(repo outbox.Repository) *MailQueue { return &MailQueue{repo: repo} }

var _ notification.MailQueue = (*MailQueue)(nil)

func (q *MailQueue) Enqueue(ctx context.Context, req notification.EmailRequest) error {
	if req.To == "" {
		return fmt.Errorf("enqueue email: empty recipient")
	}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal email request: %w", err)
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	return q.repo.Enqueue(ctx, outbox.Message{
		IdempotencyKey: uuid.NewString(),
		Kind:           outbox.KindEmailRequested,
		Data:           data,
		Status:         outbox.StatusCreated,
		Traceparent:    carrier.Get("traceparent"),
		Tracestate:     carrier.Get("tracestate"),
		Baggage:        carrier.Get("baggage"),
	})
}
