package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NordCoder/safecode-crm/internal/domain/notification"
	"github.com/NordCoder/safecode-crm/internal/domain/purchase"
	"github.com/NordCoder/safecode-crm/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func moscow(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)
	return loc
}

type fakePurchases struct {
	byDay map[string][]*purchase.Purchase
	fail  map[string]bool
	asked []string
}

func (f *fakePurchases) FetchExpiringOn(_ context.Context, day time.Time, _ *time.Location) ([]*purchase.Purchase, error) {
	key := day.Format(time.DateOnly)
	f.asked = append(f.asked, key)
	if f.fail[key] {
		return nil, errors.New("db down")
	}
	return f.byDay[key], nil
}

type fakeUsers map[int64]*user.User

func (f fakeUsers) GetActive(_ context.Context, id int64) (*user.User, error) {
	if u, ok := f[id]; ok && u.IsActive {
		return u, nil
	}
	return nil, errors.New("not found")
}

func (f fakeUsers) ListActiveByRole(context.Context, user.Role) ([]*user.User, error) {
	return nil, nil
}

type reminded struct {
	purchaseID int64
	days       int
}

type fakeNotifier struct {
	calls []reminded
	fail  map[int64]bool
}

func (f *fakeNotifier) ServiceExpiring(_ context.Context, p *purchase.Purchase, days int) error {
	if f.fail[p.ID] {
		return errors.New("not stored")
	}
	f.calls = append(f.calls, reminded{p.ID, days})
	return nil
}

type fakeMail struct {
	sent []notification.EmailRequest
	err  error
}

func (f *fakeMail) Enqueue(_ context.Context, req notification.EmailRequest) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, req)
	return nil
}

func TestSchedule_Next(t *testing.T) {
	loc := moscow(t)
	s, err := ParseSchedule("08:00", "Europe/Moscow")
	require.NoError(t, err)

	before := time.Date(2026, 3, 1, 7, 59, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 3, 1, 8, 0, 0, 0, loc), s.Next(before))

	at := time.Date(2026, 3, 1, 8, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 3, 2, 8, 0, 0, 0, loc), s.Next(at))

	// 06:00 UTC is 09:00 in Moscow, already past today's trigger.
	utc := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 2, 8, 0, 0, 0, loc), s.Next(utc))

	_, err = ParseSchedule("8am", "Europe/Moscow")
	assert.Error(t, err)
	_, err = ParseSchedule("08:00", "Mars/Olympus")
	assert.Error(t, err)
}

func TestSchedule_DayUsesScheduleZone(t *testing.T) {
	s, err := ParseSchedule("08:00", "Europe/Moscow")
	require.NoError(t, err)

	// 22:30 UTC on Mar 1 is already Mar 2 in Moscow.
	late := time.Date(2026, 3, 1, 22, 30, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-02", s.Day(late).Format(time.DateOnly))
}

func newUC(t *testing.T, p *fakePurchases, n *fakeNotifier, m *fakeMail) *Usecase {
	users := fakeUsers{
		1: {ID: 1, FirstName: "Anna", Email: "anna@crm.dev", IsActive: true},
		2: {ID: 2, FirstName: "Boris", IsActive: true},
	}
	return NewUC(p, users, n, m, nil, moscow(t), zap.NewNop())
}

func TestUsecase_MatchesExactThresholdDays(t *testing.T) {
	loc := moscow(t)
	today := time.Date(2026, 3, 1, 8, 0, 0, 0, loc)

	p := &fakePurchases{byDay: map[string][]*purchase.Purchase{
		"2026-03-08": {{ID: 70, UserID: 1, ServiceTitle: "Audit"}},
		"2026-03-07": {{ID: 60, UserID: 1, ServiceTitle: "Six"}},
		"2026-03-09": {{ID: 80, UserID: 1, ServiceTitle: "Eight"}},
	}}
	n := &fakeNotifier{}
	m := &fakeMail{}

	res := newUC(t, p, n, m).Run(context.Background(), today)

	assert.Equal(t, []string{"2026-03-11", "2026-03-08", "2026-03-05", "2026-03-02"}, p.asked)
	assert.Equal(t, Result{Matched: 1, Notified: 1, Emailed: 1}, res)
	assert.Equal(t, []reminded{{70, 7}}, n.calls)
	require.Len(t, m.sent, 1)
	assert.Equal(t, "anna@crm.dev", m.sent[0].To)
	assert.Equal(t, "Reminder: service term expiring", m.sent[0].Subject)
	assert.Contains(t, m.sent[0].Body, "Service 'Audit' expires in 7 days")
}

func TestUsecase_TodayIsTakenInScheduleZone(t *testing.T) {
	// 22:30 UTC on Feb 28 is Mar 1 in Moscow.
	today := time.Date(2026, 2, 28, 22, 30, 0, 0, time.UTC)
	p := &fakePurchases{}

	newUC(t, p, &fakeNotifier{}, &fakeMail{}).Run(context.Background(), today)

	require.NotEmpty(t, p.asked)
	assert.Equal(t, "2026-03-11", p.asked[0])
}

func TestUsecase_ErrorsAreCountedAndLoopContinues(t *testing.T) {
	loc := moscow(t)
	today := time.Date(2026, 3, 1, 8, 0, 0, 0, loc)

	p := &fakePurchases{
		byDay: map[string][]*purchase.Purchase{
			"2026-03-08": {
				{ID: 1, UserID: 1, ServiceTitle: "Broken"},
				{ID: 2, UserID: 2, ServiceTitle: "No email"},
				{ID: 3, UserID: 1, ServiceTitle: "Fine"},
			},
			"2026-03-02": {{ID: 4, UserID: 1, ServiceTitle: "Tomorrow"}},
		},
		fail: map[string]bool{"2026-03-11": true},
	}
	n := &fakeNotifier{fail: map[int64]bool{1: true}}
	m := &fakeMail{}

	res := newUC(t, p, n, m).Run(context.Background(), today)

	assert.Equal(t, Result{Matched: 4, Notified: 3, Emailed: 2, Errors: 2}, res)
	assert.Equal(t, []reminded{{2, 7}, {3, 7}, {4, 1}}, n.calls)
	assert.Len(t, m.sent, 2)
}

func TestUsecase_MailFailureCounted(t *testing.T) {
	loc := moscow(t)
	p := &fakePurchases{byDay: map[string][]*purchase.Purchase{
		"2026-03-05": {{ID: 9, UserID: 1, ServiceTitle: "Audit"}},
	}}
	m := &fakeMail{err: errors.New("outbox down")}

	res := newUC(t, p, &fakeNotifier{}, m).Run(context.Background(), time.Date(2026, 3, 1, 8, 0, 0, 0, loc))

	assert.Equal(t, Result{Matched: 1, Notified: 1, Errors: 1}, res)
}

type countingJob struct {
	mu   sync.Mutex
	days []time.Time
	ran  chan struct{}
}

func (j *countingJob) Run(_ context.Context, today time.Time) Result {
	j.mu.Lock()
	j.days = append(j.days, today)
	j.mu.Unlock()
	j.ran <- struct{}{}
	return Result{Matched: 1, Notified: 1}
}

func TestRunner_RunOnStartThenStopsOnCancel(t *testing.T) {
	s, err := ParseSchedule("08:00", "Europe/Moscow")
	require.NoError(t, err)
	job := &countingJob{ran: make(chan struct{}, 1)}
	r := New(zap.NewNop(), job, s, true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	select {
	case <-job.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run on start")
	}
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
	assert.Len(t, job.days, 1)
}

func TestRunner_SleepsUntilTrigger(t *testing.T) {
	loc := moscow(t)
	s, err := ParseSchedule("08:00", "Europe/Moscow")
	require.NoError(t, err)

	job := &countingJob{ran: make(chan struct{}, 1)}
	r := New(zap.NewNop(), job, s, false)
	now := time.Date(2026, 3, 1, 7, 0, 0, 0, loc)
	r.now = func() time.Time { return now }

	fire := make(chan time.Time)
	waits := make(chan time.Duration, 4)
	r.after = func(d time.Duration) <-chan time.Time {
		waits <- d
		return fire
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	assert.Equal(t, time.Hour, <-waits)
	fire <- now
	<-job.ran
	<-waits

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	require.Len(t, job.days, 1)
	assert.Equal(t, now, job.days[0])
}
