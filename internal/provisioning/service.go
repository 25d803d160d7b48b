package provisioning

import (
	"context"
	"time"

	"github.com/aevon-lab/tenantflow/internal/core/workflow"
	"github.com/google/uuid"
)

// Result is the caller-facing summary of a run.
type Result struct {
	RunID              string                       `json:"run_id"`
	OrgID              string                       `json:"org_id,omitempty"`
	Domain             string                       `json:"domain,omitempty"`
	DNSConfigured      bool                         `json:"dns_configured"`
	DNSSkipped         bool                         `json:"dns_skipped"`
	InvitationsSent    int                          `json:"invitations_sent"`
	Status             string                       `json:"status"`
	Step               workflow.Step                `json:"step"`
	FailedStep         workflow.Step                `json:"failed_step,omitempty"`
	Steps              []workflow.Step              `json:"steps"`
	Errors             []string                     `json:"errors"`
	CompensationErrors []string                     `json:"compensation_errors"`
	InvitationFailures []workflow.InvitationFailure `json:"invitation_failures"`
}

// Result status values beyond the run statuses.
const ResultCancelled = "cancelled"

// Done reports whether the run has finished.
func (r Result) Done() bool {
	return r.Status != string(workflow.StatusRunning) && r.Status != string(workflow.StatusCompensating)
}

// ResultOf summarises run.
func ResultOf(run *workflow.Run) Result {
	status := string(run.Status)
	if run.Status == workflow.StatusFailed && run.CancelRequested {
		status = ResultCancelled
	}
	r := Result{
		RunID:              run.ID,
		OrgID:              run.State.OrgID,
		Domain:             run.State.Domain,
		DNSConfigured:      run.State.DNSConfigured,
		DNSSkipped:         run.State.DNSSkipped,
		InvitationsSent:    run.State.SentCount,
		Status:             status,
		Step:               run.Step,
		FailedStep:         run.FailedStep,
		Steps:              append([]workflow.Step{}, run.State.Steps...),
		Errors:             append([]string{}, run.State.Errors...),
		CompensationErrors: append([]string{}, run.State.CompensationErrors...),
		InvitationFailures: append([]workflow.InvitationFailure{}, run.State.InvitationFailures...),
	}
	return r
}

// Service is the saga entry point.
type Service struct {
	store        workflow.Store
	engine       *Engine
	scheduler    *Scheduler
	pollInterval time.Duration
}

// NewService creates the entry point. scheduler may be nil when runs are
// advanced elsewhere.
func NewService(store workflow.Store, engine *Engine, scheduler *Scheduler) *Service {
	return &Service{
		store:        store,
		engine:       engine,
		scheduler:    scheduler,
		pollInterval: 200 * time.Millisecond,
	}
}

// RunHandle refers to a started run.
type RunHandle struct {
	ID  string
	svc *Service
}

// Start validates params and persists a new run; the scheduler executes it.
func (s *Service) Start(ctx context.Context, params workflow.Params) (*RunHandle, error) {
	run, err := s.engine.NewRun(uuid.NewString(), params)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, run); err != nil {
		return nil, err
	}
	s.wake()
	return &RunHandle{ID: run.ID, svc: s}, nil
}

// Handle returns a handle for an existing run id.
func (s *Service) Handle(id string) *RunHandle {
	return &RunHandle{ID: id, svc: s}
}

// Result returns the current summary of a run.
func (s *Service) Result(ctx context.Context, id string) (Result, error) {
	run, err := s.store.Get(ctx, id)
	if err != nil {
		return Result{}, err
	}
	return ResultOf(run), nil
}

// Cancel asks a run to stop and compensate. Cancelling a finished run is a no-op.
func (s *Service) Cancel(ctx context.Context, id string) error {
	if err := s.store.RequestCancel(ctx, id, s.engine.now()); err != nil {
		return err
	}
	s.wake()
	return nil
}

func (s *Service) wake() {
	if s.scheduler != nil {
		s.scheduler.Wake()
	}
}

// Wait blocks until the run finishes or ctx ends. A failed or cancelled run is
// reported through Result.Status, not the error.
func (h *RunHandle) Wait(ctx context.Context) (Result, error) {
	ticker := time.NewTicker(h.svc.pollInterval)
	defer ticker.Stop()

	for {
		res, err := h.svc.Result(ctx, h.ID)
		if err != nil {
			return Result{}, err
		}
		if res.Done() {
			return res, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return res, ctx.Err()
		}
	}
}

// Cancel cancels this run.
func (h *RunHandle) Cancel(ctx context.Context) error {
	return h.svc.Cancel(ctx, h.ID)
}
