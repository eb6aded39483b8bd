package monitor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cashops/atmctl/internal/common"
	"github.com/cashops/atmctl/internal/model"
	"github.com/cashops/atmctl/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTraining scripts a sequence of status responses. Once the script is
// exhausted the last entry repeats.
type fakeTraining struct {
	startErr    error
	generateErr error
	script      []statusReply
	mu          sync.Mutex
	statusCalls int
	startCalls  int
	genCalls    int
}

type statusReply struct {
	job *model.TrainingJob
	err error
}

func (f *fakeTraining) StartTraining(_ context.Context, _ int, _ []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	return f.startErr
}

func (f *fakeTraining) TrainingStatus(_ context.Context, atmID int) (*model.TrainingJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	idx := f.statusCalls
	f.statusCalls++
	if idx >= len(f.script) {
		idx = len(f.script) - 1
	}
	reply := f.script[idx]
	if reply.err != nil {
		return nil, reply.err
	}
	job := *reply.job
	job.ATMID = atmID
	return &job, nil
}

func (f *fakeTraining) GenerateData(_ context.Context, atmID, days int, _ bool) (*model.GenerateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.genCalls++
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	return &model.GenerateResult{ATMID: atmID, Days: days, TotalTransactions: 100}, nil
}

func (f *fakeTraining) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls
}

func running(progress int) statusReply {
	return statusReply{job: &model.TrainingJob{Status: model.TrainingRunning, Progress: progress, Models: []string{"arima", "lstm"}}}
}

// recorder collects snapshots and terminal states.
type recorder struct {
	mu        sync.Mutex
	snapshots []Snapshot
}

func (r *recorder) record(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, s)
}

func (r *recorder) terminalCount(state State) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.snapshots {
		if s.State == state {
			n++
		}
	}
	return n
}

func waitForState(t *testing.T, m *Monitor, want State) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if m.State() == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for state %s, still %s", want, m.State())
		case <-time.After(2 * time.Millisecond):
		}
	}
}

func fastConfig(rec *recorder) Config {
	cfg := Config{
		Interval:           3 * time.Millisecond,
		StallAfter:         60 * time.Millisecond,
		ProgressStallAfter: 40 * time.Millisecond,
	}
	if rec != nil {
		cfg.OnUpdate = rec.record
	}
	return cfg
}

func TestMonitor_CompletesExactlyOnce(t *testing.T) {
	svc := &fakeTraining{script: []statusReply{
		running(10),
		running(40),
		running(80),
		{job: &model.TrainingJob{
			Status:   model.TrainingCompleted,
			Progress: 100,
			Models:   []string{"arima", "lstm"},
			Results: map[string]model.ModelMetrics{
				"arima": {MAE: 1200.5, RMSE: 1800.2, MAPE: 4.1},
			},
		}},
	}}
	rec := &recorder{}
	m := New(svc, nil, fastConfig(rec))

	require.NoError(t, m.Start(context.Background(), 1, nil))
	waitForState(t, m, Completed)

	callsAtCompletion := svc.calls()
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, callsAtCompletion, svc.calls(), "timer must be inert after completion")
	assert.Equal(t, 1, rec.terminalCount(Completed), "exactly one completion notification")

	snap := m.Snapshot()
	require.NotNil(t, snap.Job)
	assert.Contains(t, snap.Job.Results, "arima")
	assert.NoError(t, snap.Err)
}

func TestMonitor_FrozenProgressStalls(t *testing.T) {
	svc := &fakeTraining{script: []statusReply{running(40)}}
	rec := &recorder{}
	m := New(svc, nil, fastConfig(rec))

	require.NoError(t, m.Start(context.Background(), 2, nil))
	waitForState(t, m, Stalled)

	callsAtStall := svc.calls()
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, callsAtStall, svc.calls(), "polling must cease after a stall")
	assert.Equal(t, 1, rec.terminalCount(Stalled))

	snap := m.Snapshot()
	assert.ErrorIs(t, snap.Err, common.ErrTrainingStalled)
	require.NotNil(t, snap.Job)
	assert.Equal(t, 40, snap.Job.Progress)
}

func TestMonitor_AdvancingProgressDoesNotStall(t *testing.T) {
	// Progress keeps moving, so the frozen-progress bound never trips even
	// though total runtime exceeds StallAfter.
	script := make([]statusReply, 0, 100)
	for p := 0; p < 100; p++ {
		script = append(script, running(p))
	}
	svc := &fakeTraining{script: script}
	m := New(svc, nil, Config{
		Interval:           2 * time.Millisecond,
		StallAfter:         20 * time.Millisecond,
		ProgressStallAfter: 50 * time.Millisecond,
	})

	require.NoError(t, m.Start(context.Background(), 1, nil))
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, Polling, m.State())
	m.Stop()
}

func TestMonitor_StopHaltsPolling(t *testing.T) {
	svc := &fakeTraining{script: []statusReply{running(10)}}
	m := New(svc, nil, fastConfig(nil))

	require.NoError(t, m.Start(context.Background(), 1, nil))
	time.Sleep(15 * time.Millisecond)

	m.Stop()
	callsAtStop := svc.calls()
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, callsAtStop, svc.calls(), "zero network calls after Stop")
	assert.Equal(t, Idle, m.State())
}

func TestMonitor_JobNotFoundGoesIdle(t *testing.T) {
	svc := &fakeTraining{script: []statusReply{
		running(10),
		{err: common.ErrNoActiveJob},
	}}
	m := New(svc, nil, fastConfig(nil))

	require.NoError(t, m.Start(context.Background(), 1, nil))
	waitForState(t, m, Idle)

	snap := m.Snapshot()
	assert.NoError(t, snap.Err, "a vanished job is not a failure")

	calls := svc.calls()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, svc.calls())
}

func TestMonitor_TransientErrorsAreSwallowed(t *testing.T) {
	svc := &fakeTraining{script: []statusReply{
		running(10),
		{err: fmt.Errorf("%w: connection refused", common.ErrAPIConnection)},
		{err: fmt.Errorf("%w: connection refused", common.ErrAPIConnection)},
		running(50),
		{job: &model.TrainingJob{Status: model.TrainingCompleted, Progress: 100}},
	}}
	m := New(svc, nil, fastConfig(nil))

	require.NoError(t, m.Start(context.Background(), 1, nil))
	waitForState(t, m, Completed)

	assert.GreaterOrEqual(t, svc.calls(), 5, "polling must continue through transient errors")
}

func TestMonitor_ServerFailureIsTerminal(t *testing.T) {
	svc := &fakeTraining{script: []statusReply{
		running(30),
		{job: &model.TrainingJob{Status: model.TrainingFailed, Progress: 30, Error: "LSTM diverged"}},
	}}
	rec := &recorder{}
	m := New(svc, nil, fastConfig(rec))

	require.NoError(t, m.Start(context.Background(), 1, nil))
	waitForState(t, m, Failed)

	snap := m.Snapshot()
	require.Error(t, snap.Err)
	assert.Contains(t, snap.Err.Error(), "LSTM diverged")
	assert.Equal(t, 1, rec.terminalCount(Failed))
}

func TestMonitor_WakeTriggersImmediatePoll(t *testing.T) {
	svc := &fakeTraining{script: []statusReply{running(10)}}
	m := New(svc, nil, Config{
		// An interval long enough that only Wake can cause a second poll
		// within the test window.
		Interval: 10 * time.Second,
	})

	require.NoError(t, m.Start(context.Background(), 1, nil))
	time.Sleep(10 * time.Millisecond)
	initial := svc.calls()

	m.Wake()
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, initial+1, svc.calls(), "wake must issue one out-of-cycle poll")
	assert.Equal(t, Polling, m.State(), "wake never replaces the timer or ends polling")
	m.Stop()
}

func TestMonitor_WakeWhileIdleIsNoop(t *testing.T) {
	svc := &fakeTraining{script: []statusReply{running(10)}}
	m := New(svc, nil, fastConfig(nil))

	m.Wake()
	assert.Equal(t, 0, svc.calls())
}

func TestMonitor_StartWhilePollingFails(t *testing.T) {
	svc := &fakeTraining{script: []statusReply{running(10)}}
	m := New(svc, nil, fastConfig(nil))

	require.NoError(t, m.Start(context.Background(), 1, nil))
	defer m.Stop()

	err := m.Start(context.Background(), 2, nil)
	assert.Error(t, err)
}

func TestMonitor_RegenerateFailureBlocksTraining(t *testing.T) {
	svc := &fakeTraining{
		script:      []statusReply{running(10)},
		generateErr: fmt.Errorf("backend error (500): generator crashed"),
	}
	m := New(svc, nil, fastConfig(nil))

	_, err := m.RegenerateAndStart(context.Background(), 1, 90, false)

	require.Error(t, err)
	assert.Equal(t, 0, svc.startCalls, "training must not start when regeneration fails")
	assert.Equal(t, Idle, m.State())
}

func TestMonitor_RegenerateSuccessChainsTraining(t *testing.T) {
	svc := &fakeTraining{script: []statusReply{
		{job: &model.TrainingJob{Status: model.TrainingCompleted, Progress: 100}},
	}}
	m := New(svc, nil, fastConfig(nil))

	result, err := m.RegenerateAndStart(context.Background(), 3, 60, true)
	require.NoError(t, err)

	assert.Equal(t, 100, result.TotalTransactions)
	assert.Equal(t, 1, svc.startCalls)
	waitForState(t, m, Completed)
}

// memoryRuns implements just enough of service.Storage to capture run log
// writes.
type memoryRuns struct {
	mu   sync.Mutex
	runs []service.TrainingRun
}

func (s *memoryRuns) SavePreset(context.Context, string, string) error { return nil }
func (s *memoryRuns) GetPreset(context.Context, string) (*service.FilterPreset, error) {
	return nil, common.ErrNotFound
}
func (s *memoryRuns) ListPresets(context.Context) ([]service.FilterPreset, error) { return nil, nil }
func (s *memoryRuns) DeletePreset(context.Context, string) error                  { return nil }
func (s *memoryRuns) Migrate(context.Context) error                               { return nil }
func (s *memoryRuns) Close() error                                                { return nil }

func (s *memoryRuns) RecordRun(_ context.Context, run *service.TrainingRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, *run)
	return nil
}

func (s *memoryRuns) ListRuns(context.Context, int, int) ([]service.TrainingRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs, nil
}

func TestMonitor_RecordsTerminalRuns(t *testing.T) {
	svc := &fakeTraining{script: []statusReply{
		running(50),
		{job: &model.TrainingJob{
			Status:   model.TrainingCompleted,
			Progress: 100,
			Models:   []string{"arima"},
			Results:  map[string]model.ModelMetrics{"arima": {MAE: 900}},
		}},
	}}
	store := &memoryRuns{}
	m := New(svc, store, fastConfig(nil))

	require.NoError(t, m.Start(context.Background(), 7, []string{"arima"}))
	waitForState(t, m, Completed)

	// The run log write happens in the poll goroutine right after the
	// transition; give it a moment.
	time.Sleep(20 * time.Millisecond)

	runs, err := store.ListRuns(context.Background(), 7, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 7, runs[0].ATMID)
	assert.Equal(t, model.TrainingCompleted, runs[0].Status)
	assert.Contains(t, runs[0].Metrics, "MAE")
}
