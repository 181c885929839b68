package realtime

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var publishFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "realtime_publish_failures_total",
	Help: "Publishes that failed and were swallowed.",
})

// SafePublisher never lets a backend failure reach the caller.
type SafePublisher struct {
	next Publisher
	log  *zap.Logger
}

var _ Publisher = (*SafePublisher)(nil)

func NewSafePublisher(next Publisher, log *zap.Logger) *SafePublisher {
	if log == nil {
		log = zap.L()
	}
	return &SafePublisher{next: next, log: log.With(zap.String("component", "realtime.publisher"))}
}

// Publish always returns nil. Errors and panics from the backend are logged.
func (p *SafePublisher) Publish(ctx context.Context, group string, payload []byte) error {
	if err := p.try(ctx, group, payload); err != nil {
		publishFailures.Inc()
		p.log.Warn("realtime publish failed", zap.String("group", group), zap.Error(err))
	}
	return nil
}

func (p *SafePublisher) try(ctx context.Context, group string, payload []byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("publisher panic: %v", rec)
		}
	}()
	if p.next == nil {
		return nil
	}
	return p.next.Publish(ctx, group, payload)
}
