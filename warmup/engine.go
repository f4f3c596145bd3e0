package warmup

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"mailwarm/models"

	"github.com/sirupsen/logrus"
)

// Content types rotated across warmup sends
var contentTypes = []string{"transactional", "newsletter", "personal", "mixed"}

// Behavior simulation policy. Independent draws, applied only to inbox
// placements: 70% chance of acting at all, then 80% mark-as-read and 30%
// move-to-folder.
const (
	behaviorActProbability  = 0.7
	markAsReadProbability   = 0.8
	moveToFolderProbability = 0.3
)

var behaviorFolders = []string{"Archive", "Important", "Work"}

// Clock supplies time to the engine so tests can run without wall-clock sleeps
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now().UTC() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock returns a Clock backed by the wall clock
func SystemClock() Clock { return systemClock{} }

// Rand is the seedable randomness source behind pacing delays, address
// selection and behavior draws. *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// NewRand returns a Rand seeded from the current time
func NewRand() Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// ContentGenerator produces subject and body for a warmup email. It never
// fails: implementations fall back to canned templates.
type ContentGenerator interface {
	Generate(ctx context.Context, contentType string) (subject, body string)
}

// Dispatcher submits one email to the outbound relay
type Dispatcher interface {
	Send(ctx context.Context, sender, recipient, subject, body string) (messageID string, err error)
}

// Verifier inspects a recipient mailbox and reports where a message landed.
// The subject plus the sent-after timestamp locate the message, since
// relay-level message IDs may not survive into the mailbox.
type Verifier interface {
	Check(ctx context.Context, mailbox, password string, sentAfter time.Time, subject string) (placement string, err error)
}

// BehaviorSimulator performs human-like mailbox actions on delivered emails
type BehaviorSimulator interface {
	MarkAsRead(ctx context.Context, mailbox, password, subject string) error
	MoveToFolder(ctx context.Context, mailbox, password, folder, subject string) error
}

// CredentialSource resolves the IMAP password for a recipient mailbox
type CredentialSource interface {
	IMAPPassword(ctx context.Context, mailbox string) (password string, ok bool)
}

// ScheduleStore reads the warmup ramp plan
type ScheduleStore interface {
	GetDay(ctx context.Context, day int) (*models.WarmupSchedule, error)
	MaxDay(ctx context.Context) (int, error)
}

// ExecutionStore persists the one-row-per-date batch ledger
type ExecutionStore interface {
	FindByDate(ctx context.Context, date time.Time) (*models.WarmupExecution, error)
	FirstDate(ctx context.Context) (*time.Time, error)
	Create(ctx context.Context, execution *models.WarmupExecution) error
	Update(ctx context.Context, execution *models.WarmupExecution) error
}

// EmailStore persists dispatched emails and selects due checks
type EmailStore interface {
	Create(ctx context.Context, email *models.Email) error
	Update(ctx context.Context, email *models.Email) error
	FindPendingDue(ctx context.Context, now time.Time, limit int) ([]models.Email, error)
}

// StatStore applies incremental daily counter updates
type StatStore interface {
	IncrementDaily(ctx context.Context, date time.Time, delta models.StatDelta) error
}

// Options configures engine behavior
type Options struct {
	Senders    []string
	Recipients []string

	// Randomized pacing between sends within a batch
	MinSendDelay time.Duration
	MaxSendDelay time.Duration

	// How long after dispatch a delivery check becomes due
	CheckDelay time.Duration

	// Default cap on messages processed per check sweep
	CheckBatchLimit int

	// When a previous batch crashed mid-run (execution row without
	// completed_at), resume the remainder instead of forfeiting the day
	ResumeIncomplete bool
}

// Deps bundles the engine's injected collaborators
type Deps struct {
	Schedules  ScheduleStore
	Executions ExecutionStore
	Emails     EmailStore
	Stats      StatStore

	Content     ContentGenerator
	Dispatcher  Dispatcher
	Verifier    Verifier
	Simulator   BehaviorSimulator
	Credentials CredentialSource

	Clock  Clock
	Rand   Rand
	Logger *logrus.Logger
}

// Engine is the warmup orchestration core. It owns no timers: an external
// trigger calls RunDailyBatch and RunPendingChecks, and the engine serializes
// those entry points (plus manual sends) behind one mutex so the shared daily
// Statistic row is never double-booked.
type Engine struct {
	mu   sync.Mutex
	deps Deps
	opts Options
	log  *logrus.Logger
}

// NewEngine constructs the engine. Clock, Rand and Logger default when unset.
func NewEngine(deps Deps, opts Options) *Engine {
	if deps.Clock == nil {
		deps.Clock = SystemClock()
	}
	if deps.Rand == nil {
		deps.Rand = NewRand()
	}
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}
	if opts.CheckBatchLimit <= 0 {
		opts.CheckBatchLimit = 50
	}
	return &Engine{
		deps: deps,
		opts: opts,
		log:  deps.Logger,
	}
}

// BatchStatus describes the outcome of a daily batch invocation
type BatchStatus string

const (
	// StatusCompleted means the batch ran and finished on this invocation
	StatusCompleted BatchStatus = "completed"
	// StatusAlreadyCompleted is the idempotency short-circuit for retriggers
	StatusAlreadyCompleted BatchStatus = "already_completed"
	// StatusSkippedDisabled means the plan day exists but is disabled
	StatusSkippedDisabled BatchStatus = "skipped_disabled"
	// StatusNoPlan means no plan row covers the resolved day
	StatusNoPlan BatchStatus = "no_plan"
	// StatusPlanComplete means the ramp plan is exhausted
	StatusPlanComplete BatchStatus = "plan_complete"
	// StatusForfeited means a crashed batch was closed out without resuming
	StatusForfeited BatchStatus = "forfeited"
)

// ExecutionResult summarizes one daily batch invocation
type ExecutionResult struct {
	Date        time.Time   `json:"date"`
	Day         int         `json:"day"`
	Status      BatchStatus `json:"status"`
	TargetCount int         `json:"target_count"`
	SentCount   int         `json:"sent_count"`
	FailedCount int         `json:"failed_count"`
}

// CheckResult summarizes one pending-check sweep
type CheckResult struct {
	Checked int `json:"checked"`
}

// SendOutcome is the per-message result of a manual send
type SendOutcome struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// ManualSendResult summarizes a manual out-of-schedule send
type ManualSendResult struct {
	SentCount  int           `json:"sent_count"`
	TotalCount int           `json:"total_count"`
	Results    []SendOutcome `json:"results"`
}

// pacingDelay draws a uniformly random inter-send wait
func (e *Engine) pacingDelay() time.Duration {
	min, max := e.opts.MinSendDelay, e.opts.MaxSendDelay
	if max <= min {
		return min
	}
	return min + time.Duration(e.deps.Rand.Float64()*float64(max-min))
}

func (e *Engine) pick(list []string) string {
	return list[e.deps.Rand.Intn(len(list))]
}
