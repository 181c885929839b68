package notifier

import (
	"context"
	"errors"

	"github.com/NordCoder/safecode-crm/internal/domain/notification"
	"github.com/NordCoder/safecode-crm/internal/obs"
	kafkax "github.com/NordCoder/safecode-crm/internal/repository/kafka"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	mConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "email_notifier_messages_consumed_total",
		Help: "Email requests consumed.",
	})
	mSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "email_notifier_emails_sent_total",
		Help: "Emails sent.",
	})
	mErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "email_notifier_errors_total",
		Help: "Email requests dropped, by reason.",
	}, []string{"reason"})
)

type Subscriber interface {
	Consume(ctx context.Context, h kafkax.Handler) error
}

type Controller struct {
	Log *zap.Logger
	Sub Subscriber
	UC  *Handler
}

// Run consumes until ctx is done. A request that cannot be delivered is logged
// and committed so it does not block the partition.
func (c *Controller) Run(ctx context.Context) error {
	err := c.Sub.Consume(ctx, kafkax.JSONHandler(c.handle))
	if err != nil && !errors.Is(err, context.Canceled) {
		c.Log.Warn("kafka consume", zap.Error(err))
		return err
	}
	return nil
}

func (c *Controller) handle(ctx context.Context, _ []byte, req notification.EmailRequest) error {
	mConsumed.Inc()
	log := obs.WithTrace(ctx, c.Log).With(zap.String("to", req.To))

	if err := c.UC.HandleEmailRequested(ctx, req); err != nil {
		reason := "smtp"
		if errors.Is(err, ErrBadRequest) {
			reason = "bad_request"
		}
		mErrors.WithLabelValues(reason).Inc()
		log.Error("email dropped", zap.String("reason", reason), zap.Error(err))
		return nil
	}
	mSent.Inc()
	return nil
}
