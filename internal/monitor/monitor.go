// Package monitor tracks a server-owned asynchronous training job by
// polling its status until it completes, fails, disappears, or stalls.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cashops/atmctl/internal/common"
	"github.com/cashops/atmctl/internal/model"
	"github.com/cashops/atmctl/internal/service"
)

// State is the monitor's view of the job lifecycle.
type State int

const (
	// Idle means no job is being polled.
	Idle State = iota
	// Polling means a job is active and being checked on a timer.
	Polling
	// Completed means the job finished and results are stored.
	Completed
	// Failed means the server reported a terminal failure.
	Failed
	// Stalled means the job stopped advancing within the liveness bounds.
	Stalled
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Polling:
		return "polling"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Stalled:
		return "stalled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Snapshot is one observation delivered to the owner. Job is the last
// status the server reported, nil until the first successful poll.
type Snapshot struct {
	Job   *model.TrainingJob
	Err   error
	State State
	ATMID int
}

// Config tunes the polling loop. Zero values use the defaults: poll every
// 1.5s, declare a stall after 5 minutes of runtime with 3 minutes of
// frozen progress.
type Config struct {
	Now                func() time.Time
	OnUpdate           func(Snapshot)
	Interval           time.Duration
	StallAfter         time.Duration
	ProgressStallAfter time.Duration
}

const (
	defaultInterval           = 1500 * time.Millisecond
	defaultStallAfter         = 5 * time.Minute
	defaultProgressStallAfter = 3 * time.Minute
)

// session owns one polling run. All exit paths (stop, completed, failed,
// job disappeared, stalled) funnel into its teardown.
type session struct {
	cancel   context.CancelFunc
	wake     chan struct{}
	done     chan struct{}
	teardown sync.Once
}

func (s *session) end() {
	s.teardown.Do(s.cancel)
}

// Monitor polls one ATM's training job. The polling loop is a single
// goroutine, so status requests never overlap; ticks and wake events feed
// the same transition logic.
type Monitor struct {
	svc      service.TrainingService
	store    service.Storage
	logger   *slog.Logger
	cfg      Config
	sess     *session
	job      *model.TrainingJob
	err      error
	start    time.Time
	lastTick time.Time

	lastProgress int
	atmID        int
	state        State
	mu           sync.Mutex
}

// New creates a monitor. store may be nil to skip run logging.
func New(svc service.TrainingService, store service.Storage, cfg Config) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.StallAfter <= 0 {
		cfg.StallAfter = defaultStallAfter
	}
	if cfg.ProgressStallAfter <= 0 {
		cfg.ProgressStallAfter = defaultProgressStallAfter
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Monitor{
		svc:    svc,
		store:  store,
		cfg:    cfg,
		state:  Idle,
		logger: slog.Default().With("component", "monitor"),
	}
}

// SetOnUpdate installs the snapshot callback. Call it before the first
// Start or Attach; it is not synchronized against a running loop.
func (m *Monitor) SetOnUpdate(fn func(Snapshot)) {
	m.cfg.OnUpdate = fn
}

// State returns the current state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Snapshot returns the current observation.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{State: m.state, ATMID: m.atmID, Job: m.job, Err: m.err}
}

// Start requests training for atmID and begins polling. It is an error to
// start while a poll loop is already active.
func (m *Monitor) Start(ctx context.Context, atmID int, models []string) error {
	m.mu.Lock()
	if m.state == Polling {
		m.mu.Unlock()
		return fmt.Errorf("already polling training for ATM %d", m.atmID)
	}
	m.mu.Unlock()

	if err := m.svc.StartTraining(ctx, atmID, models); err != nil {
		return err
	}

	m.begin(ctx, atmID)
	return nil
}

// Attach begins polling an already-running job without starting a new one,
// for reattaching to a job started elsewhere.
func (m *Monitor) Attach(ctx context.Context, atmID int) error {
	m.mu.Lock()
	if m.state == Polling {
		m.mu.Unlock()
		return fmt.Errorf("already polling training for ATM %d", m.atmID)
	}
	m.mu.Unlock()

	m.begin(ctx, atmID)
	return nil
}

func (m *Monitor) begin(ctx context.Context, atmID int) {
	loopCtx, cancel := context.WithCancel(ctx)
	sess := &session{
		cancel: cancel,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	now := m.cfg.Now()

	m.mu.Lock()
	m.sess = sess
	m.atmID = atmID
	m.state = Polling
	m.job = nil
	m.err = nil
	m.start = now
	m.lastTick = now
	m.lastProgress = -1
	m.mu.Unlock()

	m.notify()

	go m.loop(loopCtx, sess, atmID)
}

// Stop tears the poll loop down unconditionally and waits for it to
// finish, so no status request is issued after Stop returns. Safe to call
// in any state and from any owner exit path; a monitor left Polling when
// its owner goes away would otherwise keep a recurring background task
// alive. Must not be called from inside OnUpdate.
func (m *Monitor) Stop() {
	m.mu.Lock()
	sess := m.sess
	wasPolling := m.state == Polling
	if wasPolling {
		m.state = Idle
	}
	m.mu.Unlock()

	if sess != nil {
		sess.end()
		<-sess.done
	}
	if wasPolling {
		m.notify()
	}
}

// Wake triggers one immediate out-of-cycle poll, on top of the regular
// ticker. Used when the host regains focus so the status reflects reality
// without waiting for the next tick. A no-op unless polling.
func (m *Monitor) Wake() {
	m.mu.Lock()
	sess := m.sess
	polling := m.state == Polling
	m.mu.Unlock()

	if !polling || sess == nil {
		return
	}
	select {
	case sess.wake <- struct{}{}:
	default:
	}
}

func (m *Monitor) loop(ctx context.Context, sess *session, atmID int) {
	defer close(sess.done)
	defer sess.end()

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	if done := m.poll(ctx, atmID); done {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-sess.wake:
		}

		if done := m.poll(ctx, atmID); done {
			return
		}
	}
}

// poll issues one status request and applies the state transition
// function. It reports whether the loop should end.
func (m *Monitor) poll(ctx context.Context, atmID int) bool {
	job, err := m.svc.TrainingStatus(ctx, atmID)

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return true
		}
		if errors.Is(err, common.ErrNoActiveJob) {
			// Nothing to poll. Not a failure.
			m.transition(Idle, nil, nil)
			return true
		}
		// Transient errors are swallowed; the next tick retries.
		m.logger.Debug("Status poll failed, will retry", "atm_id", atmID, "error", err)
		return false
	}

	now := m.cfg.Now()

	m.mu.Lock()
	if job.Progress != m.lastProgress {
		m.lastProgress = job.Progress
		m.lastTick = now
	}
	start := m.start
	lastTick := m.lastTick
	m.mu.Unlock()

	if job.Status.Terminal() {
		if job.Status == model.TrainingFailed {
			jobErr := fmt.Errorf("training failed: %s", job.Error)
			m.transition(Failed, job, jobErr)
		} else {
			m.transition(Completed, job, nil)
		}
		m.recordRun(job)
		return true
	}

	switch job.Status {
	case model.TrainingPending, model.TrainingRunning:
		if now.Sub(start) > m.cfg.StallAfter &&
			now.Sub(lastTick) > m.cfg.ProgressStallAfter &&
			job.Progress < 100 {
			stallErr := fmt.Errorf("%w: no progress past %d%% for %s; check the training backend",
				common.ErrTrainingStalled, job.Progress, m.cfg.ProgressStallAfter)
			m.transition(Stalled, job, stallErr)
			m.recordRun(job)
			return true
		}
		m.progressed(job)
		return false
	default:
		m.logger.Warn("Unknown training status", "status", job.Status)
		return false
	}
}

// transition moves to a new state exactly once per session and notifies
// the owner. Terminal transitions also tear the session down.
func (m *Monitor) transition(to State, job *model.TrainingJob, err error) {
	m.mu.Lock()
	if m.state != Polling {
		m.mu.Unlock()
		return
	}
	m.state = to
	if job != nil {
		m.job = job
	}
	m.err = err
	sess := m.sess
	m.mu.Unlock()

	if sess != nil {
		sess.end()
	}

	m.logger.Info("Training monitor transition", "state", to.String(), "error", err)
	m.notify()
}

// progressed records a non-terminal observation and notifies the owner.
func (m *Monitor) progressed(job *model.TrainingJob) {
	m.mu.Lock()
	if m.state != Polling {
		m.mu.Unlock()
		return
	}
	m.job = job
	m.mu.Unlock()

	m.notify()
}

func (m *Monitor) notify() {
	if m.cfg.OnUpdate == nil {
		return
	}
	m.cfg.OnUpdate(m.Snapshot())
}

// recordRun appends a terminal outcome to the local run log.
func (m *Monitor) recordRun(job *model.TrainingJob) {
	if m.store == nil || job == nil {
		return
	}

	var status model.TrainingStatus
	var runErr string
	switch m.State() {
	case Completed:
		status = model.TrainingCompleted
	case Failed:
		status = model.TrainingFailed
		runErr = job.Error
	case Stalled:
		status = model.TrainingFailed
		runErr = "stalled: " + common.ErrTrainingStalled.Error()
	default:
		return
	}

	metrics := ""
	if len(job.Results) > 0 {
		if encoded, err := json.Marshal(job.Results); err == nil {
			metrics = string(encoded)
		}
	}

	m.mu.Lock()
	start := m.start
	m.mu.Unlock()

	run := &service.TrainingRun{
		ATMID:      job.ATMID,
		Models:     strings.Join(job.Models, ","),
		Status:     status,
		Progress:   job.Progress,
		Error:      runErr,
		Metrics:    metrics,
		StartedAt:  start,
		FinishedAt: m.cfg.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.store.RecordRun(ctx, run); err != nil {
		m.logger.Warn("Failed to record training run", "error", err)
	}
}

// RegenerateAndStart regenerates synthetic data and, only on success,
// chains into training with the default model set. A failed regeneration
// never starts training.
func (m *Monitor) RegenerateAndStart(ctx context.Context, atmID, days int, force bool) (*model.GenerateResult, error) {
	result, err := m.svc.GenerateData(ctx, atmID, days, force)
	if err != nil {
		return nil, fmt.Errorf("data regeneration failed, training not started: %w", err)
	}

	if err := m.Start(ctx, atmID, model.DefaultTrainingModels); err != nil {
		return result, err
	}
	return result, nil
}
