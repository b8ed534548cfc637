package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/m-mizutani/lifesync/pkg/usecase/regenerate"
	"github.com/m-mizutani/lifesync/pkg/utils/logging"
)

// JobStatus is the snapshot of the regeneration job returned to clients
type JobStatus struct {
	Running    bool               `json:"running"`
	Current    int                `json:"current"`
	Total      int                `json:"total"`
	Label      string             `json:"label"`
	StartedAt  *time.Time         `json:"startedAt,omitempty"`
	FinishedAt *time.Time         `json:"finishedAt,omitempty"`
	Report     *regenerate.Report `json:"report,omitempty"`
	Error      string             `json:"error,omitempty"`
}

type regenerateRequest struct {
	Days  int    `json:"days"`
	Style string `json:"style"`
}

// regenerateJob allows at most one pipeline run per process
type regenerateJob struct {
	regen  *regenerate.UseCase
	mu     sync.Mutex
	status JobStatus
	done   chan struct{}
}

func newRegenerateJob(regen *regenerate.UseCase) *regenerateJob {
	return &regenerateJob{regen: regen}
}

func (j *regenerateJob) snapshot() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

func (j *regenerateJob) start(ctx context.Context, input regenerate.Input) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Running {
		return false
	}

	now := time.Now()
	j.status = JobStatus{Running: true, StartedAt: &now}
	j.done = make(chan struct{})

	input.OnProgress = func(current, total int, label string) {
		j.mu.Lock()
		defer j.mu.Unlock()
		j.status.Current, j.status.Total, j.status.Label = current, total, label
	}

	go j.run(ctx, input, j.done)
	return true
}

func (j *regenerateJob) run(ctx context.Context, input regenerate.Input, done chan struct{}) {
	defer close(done)

	report, err := j.regen.Run(ctx, input)

	j.mu.Lock()
	defer j.mu.Unlock()
	finished := time.Now()
	j.status.Running = false
	j.status.FinishedAt = &finished
	j.status.Report = report

	switch {
	case errors.Is(err, regenerate.ErrNoCandidates):
		j.status.Label = "nothing to regenerate"
	case err != nil:
		j.status.Error = err.Error()
		logging.From(ctx).Error("regeneration job failed", "error", err)
	default:
		j.status.Label = "done"
	}
}

// wait blocks until the current run, if any, has finished
func (j *regenerateJob) wait() {
	j.mu.Lock()
	done := j.done
	j.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *Server) startRegenerate(w http.ResponseWriter, r *http.Request) {
	var req regenerateRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	if req.Days < 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "days must not be negative"})
		return
	}

	ctx := logging.With(s.jobCtx, logging.From(r.Context()))
	input := regenerate.Input{Days: req.Days, TargetStyle: req.Style}
	if !s.job.start(ctx, input) {
		writeJSON(w, http.StatusConflict, s.job.snapshot())
		return
	}
	writeJSON(w, http.StatusAccepted, s.job.snapshot())
}

func (s *Server) regenerateStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.job.snapshot())
}

// Wait blocks until a running regeneration job has finished
func (s *Server) Wait() {
	s.job.wait()
}

// Shutdown cancels a running regeneration job and waits for it to stop.
// Jobs started afterwards fail immediately.
func (s *Server) Shutdown() {
	s.cancelJobs()
	s.job.wait()
}
