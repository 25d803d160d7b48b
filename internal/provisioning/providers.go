package provisioning

import (
	"context"

	v1 "github.com/aevon-lab/tenantflow/internal/api/v1"
	"github.com/aevon-lab/tenantflow/internal/dnsquorum"
	"github.com/aevon-lab/tenantflow/internal/provider/cloudflare"
	"github.com/aevon-lab/tenantflow/internal/provider/resend"
)

// Emitter appends an event and applies it to the projections. Re-emitting an
// event id that is already stored must not fail.
type Emitter interface {
	Emit(ctx context.Context, evt *v1.Event) error
}

// DNSRecord is a provider-side record owned by one tenant.
type DNSRecord struct {
	ID     string
	Domain string
}

// DNSProvider creates and removes a tenant's DNS record.
type DNSProvider interface {
	// EnsureRecord creates the record for subdomain or returns the existing one.
	EnsureRecord(ctx context.Context, subdomain string) (DNSRecord, error)
	DeleteRecord(ctx context.Context, recordID string) error
}

// Verifier checks DNS propagation.
type Verifier interface {
	Verify(ctx context.Context, domain string) (dnsquorum.Verification, error)
}

// Email is one outgoing message.
type Email struct {
	To      string
	Subject string
	HTML    string
	Tags    map[string]string
}

// Mailer sends one email and returns the provider's message id.
type Mailer interface {
	Send(ctx context.Context, email Email) (string, error)
}

type cloudflareDNS struct {
	client *cloudflare.Client
}

// NewCloudflareDNS adapts a Cloudflare client to DNSProvider.
func NewCloudflareDNS(client *cloudflare.Client) DNSProvider {
	return &cloudflareDNS{client: client}
}

func (c *cloudflareDNS) EnsureRecord(ctx context.Context, subdomain string) (DNSRecord, error) {
	rec, err := c.client.EnsureRecord(ctx, subdomain)
	if err != nil {
		return DNSRecord{}, err
	}
	return DNSRecord{ID: rec.ID, Domain: rec.Name}, nil
}

func (c *cloudflareDNS) DeleteRecord(ctx context.Context, recordID string) error {
	return c.client.DeleteRecord(ctx, recordID)
}

type resendMailer struct {
	client *resend.Client
}

// NewResendMailer adapts a Resend client to Mailer.
func NewResendMailer(client *resend.Client) Mailer {
	return &resendMailer{client: client}
}

func (r *resendMailer) Send(ctx context.Context, email Email) (string, error) {
	return r.client.Send(ctx, resend.Message{
		To:      email.To,
		Subject: email.Subject,
		HTML:    email.HTML,
		Tags:    email.Tags,
	})
}
