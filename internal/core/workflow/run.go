// Package workflow holds the durable record of a tenant provisioning run:
// which step it has reached, what each completed step produced, and the
// retry bookkeeping the scheduler needs to resume it after a restart.
package workflow

import (
	"context"
	"errors"
	"time"
)

// ErrStaleRun is returned by Store.Save when the run changed since it was loaded.
var ErrStaleRun = errors.New("workflow run was modified concurrently")

// Step is the last durably completed point of a run.
type Step string

const (
	StepStarted              Step = "started"
	StepOrganizationCreated  Step = "organization_created"
	StepDNSConfigured        Step = "dns_configured"
	StepDNSSkipped           Step = "dns_skipped"
	StepDNSVerified          Step = "dns_verified"
	StepInvitationsGenerated Step = "invitations_generated"
	StepInvitationsSent      Step = "invitations_sent"
	StepActivated            Step = "activated"
	StepFailed               Step = "failed"
)

// Status is the coarse lifecycle of a run.
type Status string

const (
	StatusRunning      Status = "running"
	StatusCompensating Status = "compensating"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

// Contact is a provisional organization contact.
type Contact struct {
	Label     string `json:"label"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Title     string `json:"title,omitempty"`
}

// Address is a provisional organization address.
type Address struct {
	Label   string `json:"label"`
	Street1 string `json:"street1"`
	Street2 string `json:"street2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country,omitempty"`
}

// Phone is a provisional organization phone number.
type Phone struct {
	Label     string `json:"label"`
	Number    string `json:"number"`
	Extension string `json:"extension,omitempty"`
	Type      string `json:"type,omitempty"`
}

// InvitedUser is one person to invite into the new organization.
type InvitedUser struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// Params is the immutable input of a run.
type Params struct {
	OrganizationName string        `json:"organization_name"`
	OrganizationType string        `json:"organization_type"`
	Subdomain        string        `json:"subdomain,omitempty"`
	Timezone         string        `json:"timezone,omitempty"`
	Contacts         []Contact     `json:"contacts,omitempty"`
	Addresses        []Address     `json:"addresses,omitempty"`
	Phones           []Phone       `json:"phones,omitempty"`
	Users            []InvitedUser `json:"users,omitempty"`
}

// Invitation is a generated invitation retained for sending and compensation.
type Invitation struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      string    `json:"role"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// InvitationFailure records one undelivered invitation.
type InvitationFailure struct {
	Email string `json:"email"`
	Error string `json:"error"`
}

// DNSAudit records which resolvers agreed when DNS was verified.
type DNSAudit struct {
	Resolvers []string `json:"resolvers"`
	Addresses []string `json:"addresses"`
}

// State is everything the completed steps produced.
type State struct {
	OrgID       string       `json:"org_id,omitempty"`
	Domain      string       `json:"domain,omitempty"`
	DNSRecordID string       `json:"dns_record_id,omitempty"`
	Invitations []Invitation `json:"invitations,omitempty"`

	OrgCreated      bool `json:"org_created"`
	DNSConfigured   bool `json:"dns_configured"`
	DNSSkipped      bool `json:"dns_skipped"`
	DNSVerified     bool `json:"dns_verified"`
	InvitationsSent bool `json:"invitations_sent"`

	SentCount          int                 `json:"sent_count"`
	InvitationFailures []InvitationFailure `json:"invitation_failures,omitempty"`
	Verification       *DNSAudit           `json:"verification,omitempty"`

	// Steps lists every forward step completed, in order.
	Steps []Step `json:"steps,omitempty"`

	Errors             []string `json:"errors,omitempty"`
	CompensationErrors []string `json:"compensation_errors,omitempty"`
}

// Run is the persisted saga record.
type Run struct {
	ID     string `json:"id"`
	Step   Step   `json:"step"`
	Status Status `json:"status"`
	Params Params `json:"params"`
	State  State  `json:"state"`

	// Attempt counts failed attempts of the step currently being executed.
	Attempt         int       `json:"attempt"`
	NextAttemptAt   time.Time `json:"next_attempt_at"`
	CancelRequested bool      `json:"cancel_requested"`
	FailedStep      Step      `json:"failed_step,omitempty"`
	LastError       string    `json:"last_error,omitempty"`

	// Version guards Save against lost updates.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Terminal reports whether the run has finished, successfully or not.
func (r *Run) Terminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// Store persists runs.
type Store interface {
	Create(ctx context.Context, run *Run) error
	Get(ctx context.Context, id string) (*Run, error)

	// Save writes run if its Version still matches, then increments Version.
	// Returns ErrStaleRun otherwise.
	Save(ctx context.Context, run *Run) error

	// ClaimRunnable leases up to limit non-terminal runs due at now by pushing their
	// NextAttemptAt to now+lease, so concurrent schedulers do not advance the same run.
	ClaimRunnable(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*Run, error)

	// RequestCancel flags a run for compensation and makes it due immediately.
	RequestCancel(ctx context.Context, id string, now time.Time) error

	// PurgeTerminal deletes finished runs last updated before cutoff.
	PurgeTerminal(ctx context.Context, cutoff time.Time) (int64, error)
}
