package reminder

import (
	"context"
	"time"

	"github.com/NordCoder/safecode-crm/internal/obs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	mMatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reminder_purchases_matched_total", Help: "Purchases found on a reminder threshold",
	})
	mNotified = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reminder_notifications_total", Help: "Expiry reminders stored and pushed",
	})
	mEmailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reminder_emails_enqueued_total", Help: "Expiry reminder emails queued",
	})
	mErr = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reminder_errors_total", Help: "Errors in reminder runs",
	})
	mRunDur = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "reminder_run_duration_seconds", Help: "Reminder run duration",
		Buckets: prometheus.DefBuckets,
	})
	mLastRun = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reminder_last_run_timestamp_seconds", Help: "Unix time of the last finished run",
	})
)

type Job interface {
	Run(ctx context.Context, today time.Time) Result
}

type Runner struct {
	Log        *zap.Logger
	UC         Job
	Schedule   Schedule
	RunOnStart bool

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

func New(log *zap.Logger, uc Job, sched Schedule, runOnStart bool) *Runner {
	return &Runner{
		Log:        obs.Component(log, "reminder.runner"),
		UC:         uc,
		Schedule:   sched,
		RunOnStart: runOnStart,
		now:        time.Now,
		after:      time.After,
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	start := r.now()
	res := r.UC.Run(ctx, start)

	mMatched.Add(float64(res.Matched))
	mNotified.Add(float64(res.Notified))
	mEmailed.Add(float64(res.Emailed))
	mErr.Add(float64(res.Errors))
	mRunDur.Observe(time.Since(start).Seconds())
	mLastRun.SetToCurrentTime()

	r.Log.Info("reminder run finished",
		zap.String("day", r.Schedule.Day(start).Format(time.DateOnly)),
		zap.Int("matched", res.Matched),
		zap.Int("notified", res.Notified),
		zap.Int("emailed", res.Emailed),
		zap.Int("errors", res.Errors),
	)
}

// Run sleeps until each trigger and runs the job once per day.
func (r *Runner) Run(ctx context.Context) error {
	if r.RunOnStart {
		r.runOnce(ctx)
	}

	for {
		next := r.Schedule.Next(r.now())
		r.Log.Debug("next reminder run", zap.Time("at", next))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.after(next.Sub(r.now())):
			r.runOnce(ctx)
		}
	}
}
