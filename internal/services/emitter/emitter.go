// Package emitter turns domain events into stored notifications and realtime
// pushes. Nothing here fails the mutation that triggered it.
package emitter

import (
	"context"
	"fmt"
	"time"

	"github.com/NordCoder/safecode-crm/internal/domain/notification"
	"github.com/NordCoder/safecode-crm/internal/domain/user"
	"github.com/NordCoder/safecode-crm/internal/domain/workobject"
	"github.com/NordCoder/safecode-crm/internal/obs"
	"github.com/NordCoder/safecode-crm/internal/realtime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	mNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "emitter_notifications_total",
		Help: "Notifications handled by the emitter, by verb and outcome.",
	}, []string{"verb", "result"})
	mEmitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "emitter_event_duration_seconds",
		Help:    "Time to fan one domain event out to all recipients.",
		Buckets: prometheus.DefBuckets,
	}, []string{"verb"})
)

type Emitter struct {
	store   notification.Repo
	users   user.Directory
	objects workobject.Reader
	pub     realtime.Publisher
	mail    notification.MailQueue
	log     *zap.Logger
	tr      trace.Tracer
}

func New(
	store notification.Repo,
	users user.Directory,
	objects workobject.Reader,
	pub realtime.Publisher,
	mail notification.MailQueue,
	log *zap.Logger,
) *Emitter {
	return &Emitter{
		store:   store,
		users:   users,
		objects: objects,
		pub:     pub,
		mail:    mail,
		log:     obs.Component(log, "emitter"),
		tr:      otel.Tracer("services.emitter"),
	}
}

// event is one rendered notification addressed to a set of recipients.
type event struct {
	verb     notification.Verb
	category notification.Category
	message  string
	actor    *user.User
	object   *workobject.WorkObject
	target   notification.Target
}

// deliver stores one row per recipient and pushes it. It returns how many rows
// were stored; failures are logged per recipient.
func (e *Emitter) deliver(ctx context.Context, ev event, recipients []int64) int {
	start := time.Now()
	defer func() { mEmitDuration.WithLabelValues(string(ev.verb)).Observe(time.Since(start).Seconds()) }()

	log := obs.WithTrace(ctx, e.log).With(zap.String("verb", string(ev.verb)))
	stored := 0
	for _, rid := range recipients {
		n := &notification.Notification{
			RecipientID: rid,
			Verb:        ev.verb,
			Message:     ev.message,
			Category:    ev.category,
		}
		if ev.actor != nil {
			n.ActorID = &ev.actor.ID
		}
		if ev.object != nil {
			n.ObjectID = &ev.object.ID
		}
		if ev.target != nil {
			ref := ev.target.Ref()
			n.Target = &ref
		}

		if err := e.store.Create(ctx, n); err != nil {
			mNotifications.WithLabelValues(string(ev.verb), "store_error").Inc()
			log.Error("store notification", zap.Int64("recipient_id", rid), zap.Error(err))
			continue
		}
		stored++
		mNotifications.WithLabelValues(string(ev.verb), "stored").Inc()

		e.push(ctx, log, rid, view(n, ev))
	}
	return stored
}

func (e *Emitter) push(ctx context.Context, log *zap.Logger, recipientID int64, v *notification.View) {
	if e.pub == nil {
		return
	}
	frame, err := v.Frame()
	if err != nil {
		log.Error("encode frame", zap.Int64("notification_id", v.ID), zap.Error(err))
		return
	}
	if err := e.pub.Publish(ctx, realtime.GroupName(recipientID), frame); err != nil {
		mNotifications.WithLabelValues(string(v.Verb), "publish_error").Inc()
		log.Warn("publish notification", zap.Int64("recipient_id", recipientID), zap.Error(err))
	}
}

func (e *Emitter) email(ctx context.Context, to, subject, body string) bool {
	if e.mail == nil || to == "" {
		return false
	}
	if err := e.mail.Enqueue(ctx, notification.EmailRequest{To: to, Subject: subject, Body: body}); err != nil {
		obs.WithTrace(ctx, e.log).Warn("enqueue email", zap.String("to", to), zap.Error(err))
		return false
	}
	return true
}

// start opens the event span on a context detached from the caller's
// cancellation: the mutation has already committed, so its rows must be stored
// even when the request that made it is gone. Each query keeps its own timeout.
func (e *Emitter) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return e.tr.Start(context.WithoutCancel(ctx), "emitter."+name, trace.WithAttributes(attrs...))
}

// activeUser returns nil when the user is missing or inactive.
func (e *Emitter) activeUser(ctx context.Context, id int64) *user.User {
	u, err := e.users.GetActive(ctx, id)
	if err != nil {
		obs.WithTrace(ctx, e.log).Debug("skip inactive user", zap.Int64("user_id", id), zap.Error(err))
		return nil
	}
	return u
}

func (e *Emitter) administrators(ctx context.Context) []*user.User {
	admins, err := e.users.ListActiveByRole(ctx, user.RoleAdministrator)
	if err != nil {
		obs.WithTrace(ctx, e.log).Error("list administrators", zap.Error(err))
		return nil
	}
	return admins
}

// displayName renders a person for message text even when the lookup failed.
func displayName(u *user.User, id int64) string {
	if u == nil {
		return fmt.Sprintf("#%d", id)
	}
	return u.DisplayName()
}

func view(n *notification.Notification, ev event) *notification.View {
	v := &notification.View{
		ID:        n.ID,
		Verb:      n.Verb,
		Message:   n.Message,
		Target:    ev.target,
		Category:  n.Category,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
	if ev.actor != nil {
		v.Actor = &notification.Person{
			ID:        ev.actor.ID,
			FirstName: ev.actor.FirstName,
			LastName:  ev.actor.LastName,
			Email:     ev.actor.Email,
		}
	}
	if ev.object != nil {
		v.RelatedObject = &notification.ObjectSummary{ID: ev.object.ID, Name: ev.object.Name}
	}
	return v
}

// recipientSet keeps insertion order and drops duplicates.
type recipientSet struct {
	ids  []int64
	seen map[int64]struct{}
}

func newRecipientSet() *recipientSet {
	return &recipientSet{seen: make(map[int64]struct{})}
}

func (s *recipientSet) add(id int64) {
	if _, ok := s.seen[id]; ok {
		return
	}
	s.seen[id] = struct{}{}
	s.ids = append(s.ids, id)
}

func (s *recipientSet) exclude(id int64) {
	if _, ok := s.seen[id]; !ok {
		return
	}
	delete(s.seen, id)
	out := s.ids[:0]
	for _, x := range s.ids {
		if x != id {
			out = append(out, x)
		}
	}
	s.ids = out
}
