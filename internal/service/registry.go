package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/gridport/internal/domain"
	"github.com/timmy/gridport/internal/logger"
)

// RunStatus is the lifecycle state of a registered import run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// RunState is a point-in-time view of one run, safe to hand to a handler.
type RunState struct {
	RunID      string                  `json:"run_id"`
	Status     RunStatus               `json:"status"`
	Progress   domain.ProgressSnapshot `json:"progress"`
	Result     *domain.ImportResult    `json:"result,omitempty"`
	Error      string                  `json:"error,omitempty"`
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at,omitempty"`
}

type runEntry struct {
	state  RunState
	cancel context.CancelFunc
}

// Registry tracks in-flight and finished import runs so progress can be
// polled across requests. Entries are kept until explicitly removed or the
// process exits; runs are session-scoped work, not durable history.
type Registry struct {
	mu     sync.RWMutex
	runs   map[string]*runEntry
	svc    *ImportService
	logger *logger.Logger
}

// NewRegistry creates a run registry over the given service.
func NewRegistry(svc *ImportService, log *logger.Logger) *Registry {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Registry{
		runs:   make(map[string]*runEntry),
		svc:    svc,
		logger: log,
	}
}

// Start launches req as a background run and returns its run ID
// immediately. Progress lands in the registry via the engine's sink; the
// request's own sink, if any, still receives every snapshot.
func (r *Registry) Start(req *RunRequest) string {
	runID := uuid.New().String()
	ctx, cancel := context.WithCancel(context.Background())
	ctx = r.logger.WithFields(logger.Fields{
		logger.FieldRunID:     runID,
		logger.FieldComponent: "import",
	}).WithContext(ctx)

	r.mu.Lock()
	r.runs[runID] = &runEntry{
		state:  RunState{RunID: runID, Status: RunStatusRunning, StartedAt: time.Now()},
		cancel: cancel,
	}
	r.mu.Unlock()

	// The caller keeps ownership of req; the registry runs its own copy
	// with a wrapped sink.
	callerSink := req.Sink
	runReq := *req
	runReq.Sink = func(snapshot domain.ProgressSnapshot) {
		r.mu.Lock()
		if entry, ok := r.runs[runID]; ok {
			entry.state.Progress = snapshot
		}
		r.mu.Unlock()
		if callerSink != nil {
			callerSink(snapshot)
		}
	}

	go func() {
		defer cancel()
		result, err := r.svc.Run(ctx, &runReq)
		r.finish(runID, result, err)
	}()

	return runID
}

// finish records the terminal state of a run.
func (r *Registry) finish(runID string, result *domain.ImportResult, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.runs[runID]
	if !ok {
		return
	}
	entry.state.FinishedAt = time.Now()
	switch {
	case err == nil:
		entry.state.Status = RunStatusCompleted
		entry.state.Result = result
	case errors.Is(err, domain.ErrImportCancelled):
		entry.state.Status = RunStatusCancelled
		entry.state.Error = err.Error()
	default:
		entry.state.Status = RunStatusFailed
		entry.state.Error = err.Error()
	}
}

// Get returns a copy of the run state.
func (r *Registry) Get(runID string) (RunState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.runs[runID]
	if !ok {
		return RunState{}, false
	}
	return entry.state, true
}

// Cancel signals a running import to stop. Cancelling a finished or unknown
// run is a no-op.
func (r *Registry) Cancel(runID string) bool {
	r.mu.RLock()
	entry, ok := r.runs[runID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	entry.cancel()
	return true
}

// Remove drops a finished run from the registry.
func (r *Registry) Remove(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.runs, runID)
}
