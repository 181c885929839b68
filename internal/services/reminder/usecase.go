package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/NordCoder/safecode-crm/internal/domain/notification"
	"github.com/NordCoder/safecode-crm/internal/domain/purchase"
	"github.com/NordCoder/safecode-crm/internal/domain/user"
	"github.com/NordCoder/safecode-crm/internal/obs"
	"github.com/NordCoder/safecode-crm/internal/services/emitter"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultThresholds are the days-before-expiry on which purchasers are reminded.
var DefaultThresholds = []int{10, 7, 4, 1}

type Expiring interface {
	FetchExpiringOn(ctx context.Context, day time.Time, loc *time.Location) ([]*purchase.Purchase, error)
}

type Notifier interface {
	ServiceExpiring(ctx context.Context, p *purchase.Purchase, daysLeft int) error
}

type Result struct {
	Matched  int
	Notified int
	Emailed  int
	Errors   int
}

type Usecase struct {
	Purchases  Expiring
	Users      user.Directory
	Events     Notifier
	Mail       notification.MailQueue
	Thresholds []int
	Location   *time.Location
	Log        *zap.Logger

	tr trace.Tracer
}

func NewUC(purchases Expiring, users user.Directory, events Notifier, mail notification.MailQueue,
	thresholds []int, loc *time.Location, log *zap.Logger) *Usecase {
	if len(thresholds) == 0 {
		thresholds = DefaultThresholds
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Usecase{
		Purchases:  purchases,
		Users:      users,
		Events:     events,
		Mail:       mail,
		Thresholds: thresholds,
		Location:   loc,
		Log:        obs.Component(log, "reminder"),
		tr:         otel.Tracer("reminder.uc"),
	}
}

// Run reminds every purchase expiring exactly n days after today for each
// threshold n. Days that were missed are not caught up.
func (u *Usecase) Run(ctx context.Context, today time.Time) Result {
	l := today.In(u.Location)
	day := time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, u.Location)

	ctx, span := u.tr.Start(ctx, "reminder.run",
		trace.WithAttributes(attribute.String("day", day.Format(time.DateOnly))))
	defer span.End()

	var res Result
	for _, n := range u.Thresholds {
		target := day.AddDate(0, 0, n)
		due, err := u.Purchases.FetchExpiringOn(ctx, target, u.Location)
		if err != nil {
			res.Errors++
			span.RecordError(err)
			obs.WithTrace(ctx, u.Log).Error("fetch expiring purchases",
				zap.Int("days_left", n), zap.String("date", target.Format(time.DateOnly)), zap.Error(err))
			continue
		}
		res.Matched += len(due)

		for _, p := range due {
			if err := u.remind(ctx, p, n, &res); err != nil {
				res.Errors++
				obs.WithTrace(ctx, u.Log).Warn("reminder failed",
					zap.Int64("purchase_id", p.ID), zap.Int("days_left", n), zap.Error(err))
			}
		}
	}

	span.SetAttributes(
		attribute.Int("matched", res.Matched),
		attribute.Int("notified", res.Notified),
		attribute.Int("emailed", res.Emailed),
		attribute.Int("errors", res.Errors),
	)
	if res.Errors > 0 {
		span.SetStatus(codes.Error, "some reminders failed")
	}
	return res
}

func (u *Usecase) remind(ctx context.Context, p *purchase.Purchase, daysLeft int, res *Result) error {
	if err := u.Events.ServiceExpiring(ctx, p, daysLeft); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	res.Notified++

	buyer, err := u.Users.GetActive(ctx, p.UserID)
	if err != nil {
		return fmt.Errorf("load purchaser: %w", err)
	}
	if buyer.Email == "" {
		return nil
	}

	subject, body := emitter.ExpiryEmail(buyer, p.ServiceTitle, daysLeft)
	if err := u.Mail.Enqueue(ctx, notification.EmailRequest{To: buyer.Email, Subject: subject, Body: body}); err != nil {
		return fmt.Errorf("enqueue email: %w", err)
	}
	res.Emailed++
	return nil
}
