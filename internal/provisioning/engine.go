// Package provisioning runs the tenant provisioning saga: an explicit state
// machine persisted as a workflow run and advanced one step at a time by a
// polling scheduler, with compensation in reverse order on failure.
package provisioning

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aevon-lab/tenantflow/internal/core/storage"
	"github.com/aevon-lab/tenantflow/internal/core/workflow"
)

// Config tunes retries and invitations.
type Config struct {
	StepRetry         RetryPolicy
	DNSVerifyRetry    RetryPolicy
	CompensationRetry RetryPolicy
	EmailRetry        RetryPolicy
	InvitationTTL     time.Duration
	InvitationBaseURL string
}

// DefaultConfig returns the production retry budgets.
func DefaultConfig() Config {
	return Config{
		StepRetry:         RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second},
		DNSVerifyRetry:    RetryPolicy{MaxAttempts: 7, BaseDelay: 10 * time.Second, MaxDelay: 300 * time.Second},
		CompensationRetry: RetryPolicy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 5 * time.Second},
		EmailRetry:        RetryPolicy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 5 * time.Second},
		InvitationTTL:     7 * 24 * time.Hour,
		InvitationBaseURL: "https://app.example.com/invitations/accept",
	}
}

// Dependencies are the engine's collaborators. DNS and Mailer may be nil:
// without DNS every run skips the DNS steps, without a mailer every
// invitation is recorded as undelivered.
type Dependencies struct {
	Emitter  Emitter
	Reader   storage.ProjectionReader
	DNS      DNSProvider
	Verifier Verifier
	Mailer   Mailer
}

// Engine executes single transitions of a run.
type Engine struct {
	act *activities
	cfg Config
	now func() time.Time
}

// NewEngine creates an engine. now may be nil for wall-clock time.
func NewEngine(deps Dependencies, cfg Config, now func() time.Time) (*Engine, error) {
	if deps.Emitter == nil {
		return nil, fmt.Errorf("provisioning: emitter is required")
	}
	if deps.Reader == nil {
		return nil, fmt.Errorf("provisioning: projection reader is required")
	}
	if deps.DNS != nil && deps.Verifier == nil {
		return nil, fmt.Errorf("provisioning: a dns provider needs a verifier")
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{
		act: &activities{
			emitter:  deps.Emitter,
			reader:   deps.Reader,
			dns:      deps.DNS,
			verifier: deps.Verifier,
			mailer:   deps.Mailer,
			cfg:      cfg,
			now:      now,
		},
		cfg: cfg,
		now: now,
	}, nil
}

// NewRun builds the initial record for params, due immediately.
func (e *Engine) NewRun(id string, params workflow.Params) (*workflow.Run, error) {
	params, err := normalizeParams(params)
	if err != nil {
		return nil, err
	}
	now := e.now()
	return &workflow.Run{
		ID:            id,
		Step:          workflow.StepStarted,
		Status:        workflow.StatusRunning,
		Params:        params,
		State:         workflow.State{Steps: []workflow.Step{workflow.StepStarted}},
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

type transition struct {
	to     workflow.Step
	policy RetryPolicy
	run    func(ctx context.Context, run *workflow.Run) error
}

// next picks the forward transition out of run's current step.
func (e *Engine) next(run *workflow.Run) (transition, bool) {
	switch run.Step {
	case workflow.StepStarted:
		return transition{workflow.StepOrganizationCreated, e.cfg.StepRetry, e.act.createOrganization}, true
	case workflow.StepOrganizationCreated:
		if run.Params.Subdomain == "" || e.act.dns == nil {
			return transition{workflow.StepDNSSkipped, e.cfg.StepRetry, skipDNS}, true
		}
		return transition{workflow.StepDNSConfigured, e.cfg.StepRetry, e.act.configureDNS}, true
	case workflow.StepDNSConfigured:
		return transition{workflow.StepDNSVerified, e.cfg.DNSVerifyRetry, e.act.verifyDNS}, true
	case workflow.StepDNSSkipped, workflow.StepDNSVerified:
		return transition{workflow.StepInvitationsGenerated, e.cfg.StepRetry, e.act.generateInvitations}, true
	case workflow.StepInvitationsGenerated:
		return transition{workflow.StepInvitationsSent, e.cfg.StepRetry, e.act.sendInvitations}, true
	case workflow.StepInvitationsSent:
		return transition{workflow.StepActivated, e.cfg.StepRetry, e.act.activate}, true
	}
	return transition{}, false
}

func skipDNS(ctx context.Context, run *workflow.Run) error {
	run.State.DNSSkipped = true
	return nil
}

// Advance performs exactly one transition on run in place: the next forward
// step, a retry bookkeeping update, or the whole compensation pass. The caller
// persists the result.
func (e *Engine) Advance(ctx context.Context, run *workflow.Run) {
	if run.Terminal() {
		return
	}
	now := e.now()
	run.UpdatedAt = now

	if run.Status == workflow.StatusRunning && run.CancelRequested {
		slog.Info("[Saga] Cancellation requested, compensating", "run_id", run.ID, "step", run.Step)
		run.Status = workflow.StatusCompensating
		run.FailedStep = run.Step
		run.State.Errors = append(run.State.Errors, fmt.Sprintf("cancelled after step %s", run.Step))
	}
	if run.Status == workflow.StatusCompensating {
		e.compensate(ctx, run)
		return
	}

	t, ok := e.next(run)
	if !ok {
		e.fail(run, run.Step, fmt.Errorf("no transition out of step %q", run.Step))
		return
	}

	err := t.run(ctx, run)
	if err == nil {
		run.Step = t.to
		run.State.Steps = append(run.State.Steps, t.to)
		run.Attempt = 0
		run.LastError = ""
		run.NextAttemptAt = now
		if t.to == workflow.StepActivated {
			run.Status = workflow.StatusCompleted
		}
		slog.Info("[Saga] Step completed", "run_id", run.ID, "step", t.to)
		return
	}

	run.LastError = err.Error()
	if ctx.Err() != nil {
		// Interrupted, not failed: the attempt does not count.
		run.NextAttemptAt = now
		return
	}

	run.Attempt++
	if IsPermanent(err) || run.Attempt >= t.policy.attempts() {
		e.fail(run, t.to, err)
		return
	}

	delay := t.policy.Delay(run.Attempt)
	run.NextAttemptAt = now.Add(delay)
	slog.Warn("[Saga] Step failed, will retry",
		"run_id", run.ID,
		"step", t.to,
		"attempt", run.Attempt,
		"max_attempts", t.policy.attempts(),
		"retry_in", delay,
		"error", err)
}

func (e *Engine) fail(run *workflow.Run, step workflow.Step, err error) {
	slog.Error("[Saga] Step failed terminally, compensating",
		"run_id", run.ID,
		"step", step,
		"attempts", run.Attempt,
		"error", err)
	run.Status = workflow.StatusCompensating
	run.FailedStep = step
	run.State.Errors = append(run.State.Errors, fmt.Sprintf("%s: %v", step, err))
	run.NextAttemptAt = e.now()
}

// compensate undoes completed forward steps in reverse order. Every
// compensation is attempted; failures are collected, not returned.
func (e *Engine) compensate(ctx context.Context, run *workflow.Run) {
	reason := fmt.Sprintf("provisioning run %s failed at %s", run.ID, run.FailedStep)
	if run.CancelRequested {
		reason = fmt.Sprintf("provisioning run %s cancelled", run.ID)
	}

	record := func(err error) {
		if err == nil {
			return
		}
		slog.Error("[Saga] Compensation failed", "run_id", run.ID, "error", err)
		run.State.CompensationErrors = append(run.State.CompensationErrors, err.Error())
	}

	orgCreated := run.State.OrgCreated
	before := run.State

	if len(run.State.Invitations) > 0 {
		for _, err := range e.act.revokeInvitations(ctx, run, reason) {
			record(err)
		}
	}

	if orgCreated {
		err := e.act.deactivateOrganization(ctx, run, reason)
		record(err)
		if err == nil {
			run.State.OrgCreated = false
		}
	}

	if run.State.DNSRecordID != "" {
		err := e.act.removeDNSRecord(ctx, run)
		record(err)
		if err == nil {
			run.State.DNSConfigured = false
			run.State.DNSRecordID = ""
		}
	}

	if orgCreated {
		record(e.act.removeProvisionalData(ctx, run))
	}

	if ctx.Err() != nil {
		// Interrupted mid-pass; every compensation is repeatable, so run the pass again later.
		run.State = before
		run.NextAttemptAt = e.now()
		return
	}

	run.Step = workflow.StepFailed
	run.Status = workflow.StatusFailed
	run.NextAttemptAt = e.now()
	slog.Info("[Saga] Compensation finished",
		"run_id", run.ID,
		"failed_step", run.FailedStep,
		"compensation_errors", len(run.State.CompensationErrors))
}
