// Package poller drives a transcription job from submission to a terminal state by
// checking its status on a fixed interval with a bounded number of attempts.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/codebuildervaibhav/skill-dashboard/internal/apperr"
	"github.com/codebuildervaibhav/skill-dashboard/internal/conversation"
	"github.com/codebuildervaibhav/skill-dashboard/internal/logging"
	"github.com/codebuildervaibhav/skill-dashboard/internal/metrics"
	"github.com/codebuildervaibhav/skill-dashboard/internal/types"
)

// Defaults: 40 checks 3 seconds apart is roughly two minutes.
const (
	DefaultInterval    = 3 * time.Second
	DefaultMaxAttempts = 40
)

// State of a controller.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StatePolling    State = "polling"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

func (s State) terminal() bool {
	return s == StateCompleted || s == StateFailed
}

var (
	// ErrClosed is returned by Start and Watch after Close.
	ErrClosed = errors.New("poller: controller closed")
	// ErrBusy is returned when a job is already being submitted or watched.
	ErrBusy = errors.New("poller: job already in progress")
)

const (
	timeoutMessage = "Transcription timed out"
	failedMessage  = "Transcription failed"
)

// Source submits jobs and reports their status.
type Source interface {
	Submit(ctx context.Context, upload *conversation.Upload) (*conversation.SubmitResult, error)
	Status(ctx context.Context, jobID string) (*conversation.StatusResult, error)
}

// Snapshot is a point-in-time copy of the controller's state.
type Snapshot struct {
	State       State       `json:"state"`
	JobID       string      `json:"transcript_id,omitempty"`
	Attempts    int         `json:"attempts"`
	Status      string      `json:"status,omitempty"`
	Transcript  string      `json:"transcript,omitempty"`
	Diarization string      `json:"diarization,omitempty"`
	Error       string      `json:"error,omitempty"`
	Code        apperr.Code `json:"code,omitempty"`
	Disposed    bool        `json:"-"`
}

// Options configure a controller. Zero values select the defaults.
type Options struct {
	Interval    time.Duration
	MaxAttempts int
	Clock       Clock
	// OnChange is called after every state change, outside the controller's lock.
	OnChange func(Snapshot)
}

// Controller is a single-job polling state machine. The ticker is the only thing
// that drives status checks; once it is stopped no further check starts.
type Controller struct {
	source      Source
	clock       Clock
	interval    time.Duration
	maxAttempts int
	onChange    func(Snapshot)
	metrics     *metrics.Metrics
	logger      zerolog.Logger

	mu          sync.Mutex
	state       State
	jobID       string
	attempts    int
	status      string
	transcript  string
	diarization string
	errMsg      string
	code        apperr.Code
	disposed    bool
	ticker      Ticker
	cancel      context.CancelFunc
	done        chan struct{}
}

// New creates an idle controller.
func New(source Source, opts Options) *Controller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	return &Controller{
		source:      source,
		clock:       opts.Clock,
		interval:    opts.Interval,
		maxAttempts: opts.MaxAttempts,
		onChange:    opts.OnChange,
		metrics:     metrics.DefaultMetrics,
		logger:      logging.WithComponent("poller"),
		state:       StateIdle,
		done:        make(chan struct{}),
	}
}

// Start submits the upload and, on success, begins polling the new job. A failed
// submission moves the controller to failed and is also returned.
func (c *Controller) Start(ctx context.Context, upload *conversation.Upload) error {
	c.mu.Lock()
	if err := c.beginLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.state = StateSubmitting
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	res, err := c.source.Submit(ctx, upload)

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		c.failLocked(err)
		snap = c.snapshotLocked()
		c.mu.Unlock()
		c.notify(snap)
		return err
	}
	c.startPollingLocked(res.JobID, res.Status)
	snap = c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
	return nil
}

// Watch begins polling a job that was submitted elsewhere.
func (c *Controller) Watch(jobID string) error {
	if jobID == "" {
		return apperr.BadRequest("Missing transcript id")
	}

	c.mu.Lock()
	if err := c.beginLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.startPollingLocked(jobID, "")
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
	return nil
}

// Close stops the ticker for good. A status check already in flight has its
// context cancelled and its result is dropped. Close is idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return
	}
	c.disposed = true
	c.stopLocked()
	c.closeDoneLocked()
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Done is closed when the current job reaches a terminal state or the controller
// is closed.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// beginLocked resets the controller for a new job.
func (c *Controller) beginLocked() error {
	if c.disposed {
		return ErrClosed
	}
	if c.state == StateSubmitting || c.state == StatePolling {
		return ErrBusy
	}
	if c.state.terminal() {
		c.done = make(chan struct{})
	}
	c.jobID = ""
	c.attempts = 0
	c.status = ""
	c.transcript = ""
	c.diarization = ""
	c.errMsg = ""
	c.code = ""
	return nil
}

func (c *Controller) startPollingLocked(jobID, status string) {
	ctx, cancel := context.WithCancel(context.Background())
	ticker := c.clock.NewTicker(c.interval)

	c.state = StatePolling
	c.jobID = jobID
	c.status = status
	c.ticker = ticker
	c.cancel = cancel

	c.logger.Debug().Str("transcript_id", jobID).Dur("interval", c.interval).Int("max_attempts", c.maxAttempts).Msg("Polling started")
	go c.loop(ctx, ticker)
}

func (c *Controller) loop(ctx context.Context, ticker Ticker) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if !c.tick(ctx) {
				return
			}
		}
	}
}

// tick performs one attempt. It reports whether polling should continue.
func (c *Controller) tick(ctx context.Context) bool {
	c.mu.Lock()
	if c.disposed || c.state != StatePolling {
		c.mu.Unlock()
		return false
	}
	c.attempts++
	if c.attempts > c.maxAttempts {
		c.errMsg = timeoutMessage
		c.code = apperr.CodeTimeout
		c.finishLocked(StateFailed)
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.logger.Warn().Str("transcript_id", snap.JobID).Int("attempts", c.maxAttempts).Msg("Polling budget exhausted")
		c.notify(snap)
		return false
	}
	jobID := c.jobID
	c.mu.Unlock()

	res, err := c.source.Status(ctx, jobID)

	c.mu.Lock()
	if c.disposed || ctx.Err() != nil {
		c.mu.Unlock()
		return false
	}

	keepGoing := false
	switch {
	case err != nil:
		c.failLocked(err)
	case res.Status == types.StatusCompleted:
		c.status = res.Status
		c.transcript = res.Transcript
		c.diarization = res.Diarization
		c.finishLocked(StateCompleted)
	case res.Status == types.StatusError:
		c.status = res.Status
		c.errMsg = res.Error
		if c.errMsg == "" {
			c.errMsg = failedMessage
		}
		c.code = apperr.CodeUpstreamUnavailable
		c.finishLocked(StateFailed)
	default:
		c.status = res.Status
		keepGoing = true
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return keepGoing
}

func (c *Controller) failLocked(err error) {
	appErr := apperr.As(err)
	c.errMsg = appErr.Message
	if appErr.Code == apperr.CodeInternal {
		c.errMsg = err.Error()
	}
	c.code = appErr.Code
	c.logger.Warn().Err(err).Str("transcript_id", c.jobID).Msg("Job failed")
	c.finishLocked(StateFailed)
}

func (c *Controller) finishLocked(state State) {
	c.state = state
	c.stopLocked()
	c.closeDoneLocked()
	c.metrics.PollSessions.WithLabelValues(string(state)).Inc()
}

func (c *Controller) stopLocked() {
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) closeDoneLocked() {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:       c.state,
		JobID:       c.jobID,
		Attempts:    c.attempts,
		Status:      c.status,
		Transcript:  c.transcript,
		Diarization: c.diarization,
		Error:       c.errMsg,
		Code:        c.code,
		Disposed:    c.disposed,
	}
}

func (c *Controller) notify(s Snapshot) {
	if c.onChange != nil {
		c.onChange(s)
	}
}
