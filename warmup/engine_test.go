package warmup

import (
	"context"
	"testing"
	"time"

	"mailwarm/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func gormModel(id uint) gorm.Model { return gorm.Model{ID: id} }

// fakeClock returns a fixed time and records requested sleeps instead of
// blocking.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time        { return c.now }
func (c *fakeClock) Sleep(d time.Duration) { c.sleeps = append(c.sleeps, d) }

// scriptedRand replays queued draws so probability branches are deterministic.
// Exhausted queues return zero.
type scriptedRand struct {
	floats []float64
	ints   []int
}

func (r *scriptedRand) Float64() float64 {
	if len(r.floats) == 0 {
		return 0
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *scriptedRand) Intn(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0] % n
	r.ints = r.ints[1:]
	return v
}

type stubSchedules struct {
	days   map[int]*models.WarmupSchedule
	maxDay int
}

func (s *stubSchedules) GetDay(_ context.Context, day int) (*models.WarmupSchedule, error) {
	return s.days[day], nil
}

func (s *stubSchedules) MaxDay(_ context.Context) (int, error) {
	return s.maxDay, nil
}

type stubExecutions struct {
	byDate    map[string]*models.WarmupExecution
	firstDate *time.Time
	nextID    uint
	updates   int
}

func dateKey(t time.Time) string { return t.Format("2006-01-02") }

func (s *stubExecutions) FindByDate(_ context.Context, date time.Time) (*models.WarmupExecution, error) {
	return s.byDate[dateKey(date)], nil
}

func (s *stubExecutions) FirstDate(_ context.Context) (*time.Time, error) {
	return s.firstDate, nil
}

func (s *stubExecutions) Create(_ context.Context, execution *models.WarmupExecution) error {
	s.nextID++
	execution.ID = s.nextID
	s.byDate[dateKey(execution.Date)] = execution
	if s.firstDate == nil {
		d := execution.Date
		s.firstDate = &d
	}
	return nil
}

func (s *stubExecutions) Update(_ context.Context, execution *models.WarmupExecution) error {
	s.updates++
	s.byDate[dateKey(execution.Date)] = execution
	return nil
}

type stubEmails struct {
	created []*models.Email
	updated []*models.Email
	due     []models.Email
	nextID  uint
}

func (s *stubEmails) Create(_ context.Context, email *models.Email) error {
	s.nextID++
	email.ID = s.nextID
	s.created = append(s.created, email)
	return nil
}

func (s *stubEmails) Update(_ context.Context, email *models.Email) error {
	s.updated = append(s.updated, email)
	return nil
}

func (s *stubEmails) FindPendingDue(_ context.Context, _ time.Time, limit int) ([]models.Email, error) {
	if limit < len(s.due) {
		return s.due[:limit], nil
	}
	return s.due, nil
}

type stubStats struct {
	deltas map[string]models.StatDelta
}

func (s *stubStats) IncrementDaily(_ context.Context, date time.Time, delta models.StatDelta) error {
	prev := s.deltas[dateKey(date)]
	prev.Sent += delta.Sent
	prev.Inbox += delta.Inbox
	prev.Spam += delta.Spam
	prev.Unknown += delta.Unknown
	prev.Failed += delta.Failed
	prev.Bounced += delta.Bounced
	s.deltas[dateKey(date)] = prev
	return nil
}

type stubContent struct{}

func (stubContent) Generate(_ context.Context, contentType string) (string, string) {
	return "Subject " + contentType, "Body " + contentType
}

type stubDispatcher struct {
	send  func(sender, recipient string) (string, error)
	calls int
}

func (d *stubDispatcher) Send(_ context.Context, sender, recipient, _, _ string) (string, error) {
	d.calls++
	if d.send != nil {
		return d.send(sender, recipient)
	}
	return "msg-id", nil
}

type stubVerifier struct {
	check func(mailbox, subject string) (string, error)
}

func (v *stubVerifier) Check(_ context.Context, mailbox, _ string, _ time.Time, subject string) (string, error) {
	if v.check != nil {
		return v.check(mailbox, subject)
	}
	return models.DeliveryInbox, nil
}

type stubSimulator struct {
	readCalls []string
	moveCalls []string
	readErr   error
	moveErr   error
}

func (s *stubSimulator) MarkAsRead(_ context.Context, _, _, subject string) error {
	s.readCalls = append(s.readCalls, subject)
	return s.readErr
}

func (s *stubSimulator) MoveToFolder(_ context.Context, _, _, folder, _ string) error {
	s.moveCalls = append(s.moveCalls, folder)
	return s.moveErr
}

type stubCredentials struct {
	passwords map[string]string
}

func (s *stubCredentials) IMAPPassword(_ context.Context, mailbox string) (string, bool) {
	password, ok := s.passwords[mailbox]
	return password, ok
}

// testFixture bundles an engine with every injected double for inspection.
type testFixture struct {
	engine      *Engine
	clock       *fakeClock
	rand        *scriptedRand
	schedules   *stubSchedules
	executions  *stubExecutions
	emails      *stubEmails
	stats       *stubStats
	dispatcher  *stubDispatcher
	verifier    *stubVerifier
	simulator   *stubSimulator
	credentials *stubCredentials
}

func newTestFixture(opts Options) *testFixture {
	f := &testFixture{
		clock:      &fakeClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)},
		rand:       &scriptedRand{},
		schedules:  &stubSchedules{days: map[int]*models.WarmupSchedule{}},
		executions: &stubExecutions{byDate: map[string]*models.WarmupExecution{}},
		emails:     &stubEmails{},
		stats:      &stubStats{deltas: map[string]models.StatDelta{}},
		dispatcher: &stubDispatcher{},
		verifier:   &stubVerifier{},
		simulator:  &stubSimulator{},
		credentials: &stubCredentials{passwords: map[string]string{
			"inbox1@warm.test": "secret",
			"inbox2@warm.test": "secret",
		}},
	}

	if opts.Senders == nil {
		opts.Senders = []string{"sender@warm.test"}
	}
	if opts.Recipients == nil {
		opts.Recipients = []string{"inbox1@warm.test", "inbox2@warm.test"}
	}

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	f.engine = NewEngine(Deps{
		Schedules:   f.schedules,
		Executions:  f.executions,
		Emails:      f.emails,
		Stats:       f.stats,
		Content:     stubContent{},
		Dispatcher:  f.dispatcher,
		Verifier:    f.verifier,
		Simulator:   f.simulator,
		Credentials: f.credentials,
		Clock:       f.clock,
		Rand:        f.rand,
		Logger:      logger,
	}, opts)
	return f
}

func (f *testFixture) planDay(day, target int, enabled bool) {
	f.schedules.days[day] = &models.WarmupSchedule{
		Model:        gormModel(uint(day)),
		Day:          day,
		TargetEmails: target,
		Enabled:      enabled,
	}
	if day > f.schedules.maxDay {
		f.schedules.maxDay = day
	}
}

func TestPacingDelayWithinBounds(t *testing.T) {
	f := newTestFixture(Options{
		MinSendDelay: 2 * time.Second,
		MaxSendDelay: 5 * time.Second,
	})
	f.rand.floats = []float64{0, 0.5, 0.999}

	assert.Equal(t, 2*time.Second, f.engine.pacingDelay())
	assert.Equal(t, 2*time.Second+1500*time.Millisecond, f.engine.pacingDelay())

	d := f.engine.pacingDelay()
	assert.GreaterOrEqual(t, d, 2*time.Second)
	assert.Less(t, d, 5*time.Second)
}

func TestPacingDelayDegenerateRange(t *testing.T) {
	f := newTestFixture(Options{
		MinSendDelay: 3 * time.Second,
		MaxSendDelay: 3 * time.Second,
	})
	assert.Equal(t, 3*time.Second, f.engine.pacingDelay())
	assert.Empty(t, f.rand.floats, "equal bounds must not consume randomness")
}
