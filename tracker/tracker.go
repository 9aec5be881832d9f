package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goWallet/gateway"
)

// CongestionReason is the failure reason recorded when the attempt ceiling
// is reached.
const CongestionReason = "network congestion"

var (
	// ErrPolicyFailure marks a job failed by the attempt ceiling rather than
	// by the gateway.
	ErrPolicyFailure = errors.New("attempt ceiling reached")
	// ErrNotTracked is returned for a job id that is not being tracked.
	ErrNotTracked = errors.New("job is not tracked")
	// ErrCancelled is returned by Wait when the job was detached before it
	// reached a terminal status.
	ErrCancelled = errors.New("job tracking cancelled")
)

// Checker performs one status check.
type Checker interface {
	CheckJobStatus(ctx context.Context, jobID string) (gateway.StatusReport, error)
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, jobID string) (gateway.StatusReport, error)

func (f CheckerFunc) CheckJobStatus(ctx context.Context, jobID string) (gateway.StatusReport, error) {
	return f(ctx, jobID)
}

// Config tunes a Tracker. Zero values take the defaults.
type Config struct {
	Interval    time.Duration
	MaxAttempts int
	// Timer returns a channel that fires after d. Defaults to time.After.
	Timer func(d time.Duration) <-chan time.Time
	// Observer receives a snapshot after every applied check. Calls are
	// serialized and never made for a detached job. It must not call back
	// into CancelAll, Quiesce or Close.
	Observer func(Snapshot)
	Logger   *slog.Logger
	Now      func() time.Time
}

// Snapshot is a copy of a tracked job's record.
type Snapshot struct {
	JobID           string
	Status          gateway.JobStatus
	Attempts        int
	MaxAttempts     int
	TransactionHash string
	FailureReason   string
	// LastTransportError is the most recent check that failed to reach the
	// gateway. It does not make the job terminal.
	LastTransportError string
	// Err classifies a Failed job: gateway.ErrUnknownJob, ErrPolicyFailure,
	// or nil for a gateway-reported failure.
	Err       error
	UpdatedAt time.Time
}

// Terminal reports whether the job has finished.
func (s Snapshot) Terminal() bool { return s.Status.Terminal() }

// Progress renders attempts against the ceiling, for example "2/5".
func (s Snapshot) Progress() string {
	return fmt.Sprintf("%d/%d", s.Attempts, s.MaxAttempts)
}

type job struct {
	snap     Snapshot
	relevant atomic.Bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// Tracker owns every job being polled for one client.
type Tracker struct {
	cfg     Config
	checker Checker

	mu   sync.Mutex
	jobs map[string]*job
	wg   sync.WaitGroup

	// notifyMu is held across the relevance check and the Observer call.
	notifyMu sync.Mutex
}

func New(cfg Config, checker Checker) *Tracker {
	if cfg.Interval <= 0 {
		cfg.Interval = 3 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Timer == nil {
		cfg.Timer = time.After
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Tracker{
		cfg:     cfg,
		checker: checker,
		jobs:    make(map[string]*job),
	}
}

// Track starts polling jobID and returns its initial Pending snapshot.
// Tracking an id twice returns the existing record.
func (t *Tracker) Track(jobID string) Snapshot {
	t.mu.Lock()
	if existing, ok := t.jobs[jobID]; ok {
		snap := existing.snap
		t.mu.Unlock()
		return snap
	}

	ctx, cancel := context.WithCancel(context.Background())
	j := &job{
		snap: Snapshot{
			JobID:       jobID,
			Status:      gateway.JobPending,
			MaxAttempts: t.cfg.MaxAttempts,
			UpdatedAt:   t.cfg.Now(),
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	j.relevant.Store(true)
	t.jobs[jobID] = j
	snap := j.snap
	t.wg.Add(1)
	t.mu.Unlock()

	go t.run(ctx, j)
	return snap
}

// Get returns the latest snapshot for jobID.
func (t *Tracker) Get(jobID string) (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j, ok := t.jobs[jobID]
	if !ok {
		return Snapshot{}, false
	}
	return j.snap, true
}

// Wait blocks until jobID is terminal, detached, or ctx is done.
func (t *Tracker) Wait(ctx context.Context, jobID string) (Snapshot, error) {
	t.mu.Lock()
	j, ok := t.jobs[jobID]
	t.mu.Unlock()
	if !ok {
		return Snapshot{}, ErrNotTracked
	}

	select {
	case <-j.done:
	case <-ctx.Done():
		return t.snapshot(j), ctx.Err()
	}
	if !j.relevant.Load() {
		return t.snapshot(j), ErrCancelled
	}
	return t.snapshot(j), nil
}

// CancelAll detaches and stops every tracked job. It returns the number of
// jobs that were still polling.
func (t *Tracker) CancelAll() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	active := 0
	for id, j := range t.jobs {
		if !j.snap.Terminal() {
			active++
		}
		j.relevant.Store(false)
		j.cancel()
		delete(t.jobs, id)
	}
	return active
}

// Quiesce waits for an Observer call in flight to return. After CancelAll
// followed by Quiesce, no snapshot of a detached job is observed.
func (t *Tracker) Quiesce() {
	t.notifyMu.Lock()
	t.notifyMu.Unlock()
}

// Close cancels every job and waits for their goroutines to exit.
func (t *Tracker) Close() {
	t.CancelAll()
	t.wg.Wait()
}

func (t *Tracker) snapshot(j *job) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return j.snap
}

func (t *Tracker) run(ctx context.Context, j *job) {
	defer t.wg.Done()
	defer close(j.done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.cfg.Timer(t.cfg.Interval):
		}
		if !j.relevant.Load() {
			return
		}

		report, err := t.checker.CheckJobStatus(ctx, j.snap.JobID)
		if ctx.Err() != nil {
			return
		}

		snap, ok := t.apply(j, report, err)
		if !ok {
			return
		}
		t.notify(j, snap)
		if snap.Terminal() {
			return
		}
	}
}

func (t *Tracker) notify(j *job, snap Snapshot) {
	if t.cfg.Observer == nil {
		return
	}
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()
	if !j.relevant.Load() {
		return
	}
	t.cfg.Observer(snap)
}

// apply folds one check into j. It returns false when j is no longer
// relevant, in which case nothing was changed.
func (t *Tracker) apply(j *job, report gateway.StatusReport, err error) (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !j.relevant.Load() || j.snap.Terminal() {
		return Snapshot{}, false
	}

	s := &j.snap
	s.Attempts++
	s.UpdatedAt = t.cfg.Now()

	if err == nil {
		err = report.Validate()
	}
	if err == nil && report.JobID != "" && report.JobID != s.JobID {
		err = fmt.Errorf("%w: report for job %s", gateway.ErrMalformedResponse, report.JobID)
	}

	switch {
	case errors.Is(err, gateway.ErrUnknownJob):
		s.Status = gateway.JobFailed
		s.FailureReason = gateway.ErrUnknownJob.Error()
		s.Err = gateway.ErrUnknownJob
		return *s, true
	case err != nil:
		s.LastTransportError = err.Error()
		t.cfg.Logger.Debug("job status check failed",
			slog.String("job_id", s.JobID),
			slog.Int("attempt", s.Attempts),
			slog.String("error", err.Error()),
		)
	case report.Status == gateway.JobSucceeded:
		s.Status = gateway.JobSucceeded
		s.TransactionHash = report.TransactionHash
		s.LastTransportError = ""
		return *s, true
	case report.Status == gateway.JobFailed:
		s.Status = gateway.JobFailed
		s.FailureReason = report.FailureReason
		if s.FailureReason == "" {
			s.FailureReason = "transfer failed"
		}
		s.LastTransportError = ""
		return *s, true
	default:
		if report.Status > s.Status {
			s.Status = report.Status
		}
		s.LastTransportError = ""
	}

	if s.Attempts >= s.MaxAttempts {
		s.Status = gateway.JobFailed
		s.FailureReason = CongestionReason
		s.Err = ErrPolicyFailure
	}
	return *s, true
}
