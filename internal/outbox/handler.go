package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domainkafka "github.com/NordCoder/safecode-crm/internal/domain/kafka"
	"github.com/NordCoder/safecode-crm/internal/domain/notification"
	"github.com/NordCoder/safecode-crm/internal/domain/outbox"
	"github.com/NordCoder/safecode-crm/internal/obs/retry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var (
	outboxHandlerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_handler_latency_seconds",
		Help:    "Latency of outbox handlers including retries.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	outboxHandlerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_handler_errors_total",
		Help: "Errors in outbox handlers (after retries).",
	}, []string{"kind"})
)

func instrument(kind string, h outbox.KindHandler, pol retry.Policy) outbox.KindHandler {
	tr := otel.Tracer("outbox.handler")
	if pol.Name == "" {
		pol.Name = "outbox_" + kind
	}
	return func(ctx context.Context, data []byte) error {
		ctx, span := tr.Start(ctx, "outbox.handle "+kind)
		defer span.End()

		start := time.Now()
		err := retry.Do(ctx, func() error { return h(ctx, data) }, pol)
		outboxHandlerLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			outboxHandlerErrors.WithLabelValues(kind).Inc()
		}
		return err
	}
}

// MakeGlobalOutboxHandler routes each outbox kind to its broker publication.
func MakeGlobalOutboxHandler(pub domainkafka.EmailEvents, pol retry.Policy) outbox.GlobalHandler {
	return func(kind outbox.Kind) (outbox.KindHandler, error) {
		switch kind {
		case outbox.KindEmailRequested:
			base := func(ctx context.Context, data []byte) error {
				var req notification.EmailRequest
				if err := json.Unmarshal(data, &req); err != nil {
					return retry.Permanent(fmt.Errorf("unmarshal email payload: %w", err))
				}
				return pub.PublishEmailRequested(ctx, req.To, req)
			}
			return instrument(kind.String(), base, pol), nil
		default:
			return nil, fmt.Errorf("unsupported outbox kind: %d", kind)
		}
	}
}
