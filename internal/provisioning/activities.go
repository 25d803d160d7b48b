package provisioning

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"strings"
	"time"

	v1 "github.com/aevon-lab/tenantflow/internal/api/v1"
	"github.com/aevon-lab/tenantflow/internal/core/eventdata"
	"github.com/aevon-lab/tenantflow/internal/core/storage"
	"github.com/aevon-lab/tenantflow/internal/core/workflow"
	"github.com/aevon-lab/tenantflow/internal/dispatch"
	"github.com/aevon-lab/tenantflow/internal/projection"
	"github.com/google/uuid"
)

var (
	organizationNamespace = uuid.MustParse("6f1c3d0e-8a4b-5c2d-9e7f-1a2b3c4d5e6f")
	invitationNamespace   = uuid.MustParse("0b7e9a54-2c1d-5f3e-8a6b-7c8d9e0f1a2b")
	eventNamespace        = uuid.MustParse("c4a2e8f6-3b5d-5e7a-9c1b-2d4f6a8c0e1b")
)

const tokenBytes = 32

var invitationEmail = template.Must(template.New("invitation").Parse(
	`<p>Hi {{.FirstName}},</p>
<p>You have been invited to join <strong>{{.Organization}}</strong> as {{.Role}}.</p>
<p><a href="{{.Link}}">Accept your invitation</a></p>
<p>This link expires on {{.Expires}}.</p>`))

// activities are the side-effecting units the engine sequences. Each one is
// safe to repeat: events carry deterministic ids and providers are asked to
// ensure, not blindly create.
type activities struct {
	emitter  Emitter
	reader   storage.ProjectionReader
	dns      DNSProvider
	verifier Verifier
	mailer   Mailer
	cfg      Config
	now      func() time.Time
}

// organizationID derives the organization id from its natural key, so two
// attempts for the same tenant address the same stream.
func organizationID(p workflow.Params) string {
	key := "name:" + strings.ToLower(p.OrganizationName)
	if p.Subdomain != "" {
		key = "subdomain:" + p.Subdomain
	}
	return uuid.NewSHA1(organizationNamespace, []byte(key)).String()
}

// invitationID is stable per run and recipient.
func invitationID(runID, email string) string {
	return uuid.NewSHA1(invitationNamespace, []byte(runID+"/"+strings.ToLower(email))).String()
}

func eventID(streamID string, action projection.Action) string {
	return uuid.NewSHA1(eventNamespace, []byte(streamID+"/"+string(action))).String()
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// toPayload converts v into the JSON-shaped map events carry.
func toPayload(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *activities) emit(ctx context.Context, run *workflow.Run, category projection.Category, streamID string, action projection.Action, id string, data interface{}) (*v1.Event, error) {
	payload, err := toPayload(data)
	if err != nil {
		return nil, Permanent(fmt.Errorf("encode %s: %w", action, err))
	}
	evt := &v1.Event{
		ID:         id,
		StreamID:   streamID,
		StreamType: string(category),
		EventType:  string(action),
		EventData:  payload,
		EventMetadata: map[string]interface{}{
			"source":          "provisioning",
			"run_id":          run.ID,
			"organization_id": run.State.OrgID,
		},
		CreatedAt: a.now(),
	}
	if err := a.emitter.Emit(ctx, evt); err != nil {
		if dispatch.IsFatal(err) {
			return nil, Permanent(err)
		}
		return nil, err
	}
	return evt, nil
}

func (a *activities) createOrganization(ctx context.Context, run *workflow.Run) error {
	p := run.Params
	orgID := organizationID(p)

	if p.Subdomain != "" {
		taken, err := a.reader.Find(ctx, storage.TableOrganizations, storage.Row{"subdomain": p.Subdomain}, 1)
		if err != nil {
			return fmt.Errorf("look up subdomain %s: %w", p.Subdomain, err)
		}
		if len(taken) > 0 && taken[0]["id"] != orgID {
			return Permanent(fmt.Errorf("subdomain %s is already used by organization %v", p.Subdomain, taken[0]["id"]))
		}
	}

	existing, err := a.reader.Get(ctx, storage.TableOrganizations, storage.Row{"id": orgID})
	switch {
	case err == nil:
		if existing["status"] != projection.OrgStatusProvisioning {
			return Permanent(fmt.Errorf("organization %s already exists with status %v", orgID, existing["status"]))
		}
		slog.Info("[Saga] Organization already created, continuing", "run_id", run.ID, "org_id", orgID)
	case errors.Is(err, storage.ErrNotFound):
	default:
		return fmt.Errorf("look up organization %s: %w", orgID, err)
	}

	run.State.OrgID = orgID
	_, err = a.emit(ctx, run, projection.CategoryOrganization, orgID, projection.ActionOrganizationCreated,
		eventID(orgID, projection.ActionOrganizationCreated),
		map[string]interface{}{
			"name":      p.OrganizationName,
			"type":      p.OrganizationType,
			"subdomain": p.Subdomain,
			"timezone":  p.Timezone,
			"contacts":  p.Contacts,
			"addresses": p.Addresses,
			"phones":    p.Phones,
		})
	if err != nil {
		return err
	}
	run.State.OrgCreated = true
	return nil
}

func (a *activities) configureDNS(ctx context.Context, run *workflow.Run) error {
	rec, err := a.dns.EnsureRecord(ctx, run.Params.Subdomain)
	if err != nil {
		return fmt.Errorf("configure dns for %s: %w", run.Params.Subdomain, err)
	}
	// Recorded before the event so a failure below still gets the record compensated.
	run.State.DNSRecordID = rec.ID
	run.State.Domain = rec.Domain

	_, err = a.emit(ctx, run, projection.CategoryOrganization, run.State.OrgID, projection.ActionOrganizationDNSConfigured,
		eventID(run.ID, projection.ActionOrganizationDNSConfigured),
		map[string]interface{}{"dns_record_id": rec.ID, "domain": rec.Domain})
	if err != nil {
		return err
	}
	run.State.DNSConfigured = true
	return nil
}

func (a *activities) verifyDNS(ctx context.Context, run *workflow.Run) error {
	result, err := a.verifier.Verify(ctx, run.State.Domain)
	if err != nil {
		return err
	}

	audit := &workflow.DNSAudit{Resolvers: result.Agreeing, Addresses: result.Addresses}
	_, err = a.emit(ctx, run, projection.CategoryOrganization, run.State.OrgID, projection.ActionOrganizationDNSVerified,
		eventID(run.ID, projection.ActionOrganizationDNSVerified),
		map[string]interface{}{"resolvers": audit.Resolvers, "addresses": audit.Addresses})
	if err != nil {
		return err
	}
	run.State.Verification = audit
	run.State.DNSVerified = true
	return nil
}

// generateInvitations records each invitation in run state as soon as its event
// is stored, so compensation revokes it even when a later recipient fails.
func (a *activities) generateInvitations(ctx context.Context, run *workflow.Run) error {
	expires := a.now().Add(a.cfg.InvitationTTL).Truncate(time.Second)

	for _, u := range run.Params.Users {
		token, err := newToken()
		if err != nil {
			return fmt.Errorf("generate invitation token: %w", err)
		}
		inv := workflow.Invitation{
			ID:        invitationID(run.ID, u.Email),
			Email:     u.Email,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Role:      u.Role,
			Token:     token,
			ExpiresAt: expires,
		}

		evt, err := a.emit(ctx, run, projection.CategoryInvitation, inv.ID, projection.ActionInvitationCreated,
			eventID(inv.ID, projection.ActionInvitationCreated),
			map[string]interface{}{
				"organization_id": run.State.OrgID,
				"email":           inv.Email,
				"first_name":      inv.FirstName,
				"last_name":       inv.LastName,
				"role":            inv.Role,
				"token":           inv.Token,
				"expires_at":      inv.ExpiresAt,
			})
		if err != nil {
			return fmt.Errorf("invitation for %s: %w", u.Email, err)
		}

		// A repeated step gets the stored event back; keep its token and expiry.
		stored := eventdata.Payload(evt.EventData)
		inv.Token = stored.TextOr("token", inv.Token)
		inv.ExpiresAt = stored.Time("expires_at", inv.ExpiresAt)
		recordInvitation(&run.State, inv)
	}
	return nil
}

func recordInvitation(state *workflow.State, inv workflow.Invitation) {
	for i := range state.Invitations {
		if state.Invitations[i].ID == inv.ID {
			state.Invitations[i] = inv
			return
		}
	}
	state.Invitations = append(state.Invitations, inv)
}

// sendInvitations is best-effort: every recipient is tried and failures are
// recorded, never returned.
func (a *activities) sendInvitations(ctx context.Context, run *workflow.Run) error {
	run.State.SentCount = 0
	run.State.InvitationFailures = nil

	for _, inv := range run.State.Invitations {
		err := a.sendInvitation(ctx, run, inv)
		if err != nil {
			slog.Warn("[Saga] Invitation not delivered",
				"run_id", run.ID,
				"email", inv.Email,
				"error", err)
			run.State.InvitationFailures = append(run.State.InvitationFailures, workflow.InvitationFailure{
				Email: inv.Email,
				Error: err.Error(),
			})
			run.State.Errors = append(run.State.Errors, fmt.Sprintf("invitation to %s not sent: %v", inv.Email, err))
			continue
		}
		run.State.SentCount++
	}

	run.State.InvitationsSent = true
	return nil
}

func (a *activities) sendInvitation(ctx context.Context, run *workflow.Run, inv workflow.Invitation) error {
	if a.mailer == nil {
		return errors.New("email provider is not configured")
	}

	body, err := a.invitationBody(run, inv)
	if err != nil {
		return err
	}
	email := Email{
		To:      inv.Email,
		Subject: fmt.Sprintf("You're invited to %s", run.Params.OrganizationName),
		HTML:    body,
		Tags:    map[string]string{"run_id": run.ID, "kind": "invitation"},
	}

	return a.cfg.EmailRetry.retry(ctx, func() error {
		id, err := a.mailer.Send(ctx, email)
		if err != nil {
			return err
		}
		slog.Info("[Saga] Invitation sent", "run_id", run.ID, "email", inv.Email, "message_id", id)
		return nil
	})
}

func (a *activities) invitationBody(run *workflow.Run, inv workflow.Invitation) (string, error) {
	link := a.cfg.InvitationBaseURL
	sep := "?"
	if strings.Contains(link, "?") {
		sep = "&"
	}
	link += sep + url.Values{"token": {inv.Token}}.Encode()

	var buf bytes.Buffer
	err := invitationEmail.Execute(&buf, map[string]string{
		"FirstName":    inv.FirstName,
		"Organization": run.Params.OrganizationName,
		"Role":         inv.Role,
		"Link":         link,
		"Expires":      inv.ExpiresAt.Format("January 2, 2006"),
	})
	if err != nil {
		return "", Permanent(fmt.Errorf("render invitation email: %w", err))
	}
	return buf.String(), nil
}

func (a *activities) activate(ctx context.Context, run *workflow.Run) error {
	_, err := a.emit(ctx, run, projection.CategoryOrganization, run.State.OrgID, projection.ActionOrganizationActivated,
		eventID(run.ID, projection.ActionOrganizationActivated),
		map[string]interface{}{"activated_at": a.now()})
	return err
}

// Compensations.

func (a *activities) revokeInvitations(ctx context.Context, run *workflow.Run, reason string) []error {
	var errs []error
	for _, inv := range run.State.Invitations {
		err := a.cfg.CompensationRetry.retry(ctx, func() error {
			_, err := a.emit(ctx, run, projection.CategoryInvitation, inv.ID, projection.ActionInvitationRevoked,
				eventID(inv.ID, projection.ActionInvitationRevoked),
				map[string]interface{}{"reason": reason})
			return err
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("revoke invitation %s: %w", inv.Email, err))
		}
	}
	return errs
}

func (a *activities) deactivateOrganization(ctx context.Context, run *workflow.Run, reason string) error {
	err := a.cfg.CompensationRetry.retry(ctx, func() error {
		_, err := a.emit(ctx, run, projection.CategoryOrganization, run.State.OrgID, projection.ActionOrganizationDeactivated,
			eventID(run.ID, projection.ActionOrganizationDeactivated),
			map[string]interface{}{"reason": reason})
		return err
	})
	if err != nil {
		return fmt.Errorf("deactivate organization %s: %w", run.State.OrgID, err)
	}
	return nil
}

func (a *activities) removeDNSRecord(ctx context.Context, run *workflow.Run) error {
	err := a.cfg.CompensationRetry.retry(ctx, func() error {
		if a.dns == nil {
			return Permanent(errors.New("dns provider is not configured"))
		}
		return a.dns.DeleteRecord(ctx, run.State.DNSRecordID)
	})
	if err != nil {
		return fmt.Errorf("remove dns record %s: %w", run.State.DNSRecordID, err)
	}

	if run.State.DNSConfigured {
		err = a.cfg.CompensationRetry.retry(ctx, func() error {
			_, err := a.emit(ctx, run, projection.CategoryOrganization, run.State.OrgID, projection.ActionOrganizationDNSRemoved,
				eventID(run.ID, projection.ActionOrganizationDNSRemoved),
				map[string]interface{}{"dns_record_id": run.State.DNSRecordID})
			return err
		})
		if err != nil {
			return fmt.Errorf("record dns removal: %w", err)
		}
	}
	return nil
}

func (a *activities) removeProvisionalData(ctx context.Context, run *workflow.Run) error {
	err := a.cfg.CompensationRetry.retry(ctx, func() error {
		_, err := a.emit(ctx, run, projection.CategoryOrganization, run.State.OrgID, projection.ActionOrganizationProvisionalDataRemoved,
			eventID(run.ID, projection.ActionOrganizationProvisionalDataRemoved),
			map[string]interface{}{})
		return err
	})
	if err != nil {
		return fmt.Errorf("remove provisional data of %s: %w", run.State.OrgID, err)
	}
	return nil
}
