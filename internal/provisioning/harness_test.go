package provisioning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aevon-lab/tenantflow/internal/core/storage"
	"github.com/aevon-lab/tenantflow/internal/core/storage/memory"
	"github.com/aevon-lab/tenantflow/internal/core/workflow"
	"github.com/aevon-lab/tenantflow/internal/dispatch"
	"github.com/aevon-lab/tenantflow/internal/dnsquorum"
	"github.com/aevon-lab/tenantflow/internal/ingestion"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeDNS struct {
	mu        sync.Mutex
	records   map[string]string // id -> domain
	creates   int
	deleteErr error
}

func (f *fakeDNS) EnsureRecord(ctx context.Context, subdomain string) (DNSRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := "rec-" + subdomain
	if _, ok := f.records[id]; !ok {
		f.creates++
		f.records[id] = subdomain + ".example.com"
	}
	return DNSRecord{ID: id, Domain: f.records[id]}, nil
}

func (f *fakeDNS) DeleteRecord(ctx context.Context, recordID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.records, recordID)
	return nil
}

func (f *fakeDNS) has(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.records[id]
	return ok
}

type fakeVerifier struct {
	mu         sync.Mutex
	propagated bool
	calls      int
}

func (f *fakeVerifier) Verify(ctx context.Context, domain string) (dnsquorum.Verification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.propagated {
		return dnsquorum.Verification{
			Domain:    domain,
			Quorum:    2,
			Agreeing:  []string{"1.1.1.1:53", "8.8.8.8:53"},
			Addresses: []string{"203.0.113.10"},
		}, nil
	}
	v := dnsquorum.Verification{
		Domain:   domain,
		Quorum:   2,
		Agreeing: []string{"1.1.1.1:53"},
		Failing: []dnsquorum.ResolverFailure{
			{Resolver: "8.8.8.8:53", Reason: "no A, AAAA or CNAME record"},
			{Resolver: "9.9.9.9:53", Reason: "i/o timeout"},
		},
	}
	return v, &dnsquorum.NotPropagatedError{Verification: v}
}

type fakeMailer struct {
	mu       sync.Mutex
	sent     []Email
	attempts map[string]int
	reject   map[string]bool
}

func (f *fakeMailer) Send(ctx context.Context, email Email) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[email.To]++
	if f.reject[email.To] {
		return "", errors.New("mailbox unavailable")
	}
	f.sent = append(f.sent, email)
	return fmt.Sprintf("msg-%d", len(f.sent)), nil
}

type harness struct {
	clock     *fakeClock
	events    *memory.Store
	runs      *memory.RunStore
	dns       *fakeDNS
	verifier  *fakeVerifier
	mailer    *fakeMailer
	engine    *Engine
	scheduler *Scheduler
	service   *Service
}

func testConfig() Config {
	return Config{
		StepRetry:         RetryPolicy{MaxAttempts: 3},
		DNSVerifyRetry:    RetryPolicy{MaxAttempts: 7, BaseDelay: 10 * time.Second, MaxDelay: 300 * time.Second},
		CompensationRetry: RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
		EmailRetry:        RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
		InvitationTTL:     72 * time.Hour,
		InvitationBaseURL: "https://app.example.com/accept",
	}
}

func newHarness(t *testing.T, configure ...func(*Config)) *harness {
	t.Helper()

	h := &harness{
		clock:    &fakeClock{now: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)},
		events:   memory.NewStore(),
		runs:     memory.NewRunStore(),
		dns:      &fakeDNS{records: make(map[string]string)},
		verifier: &fakeVerifier{propagated: true},
		mailer:   &fakeMailer{attempts: make(map[string]int), reject: make(map[string]bool)},
	}

	cfg := testConfig()
	for _, fn := range configure {
		fn(&cfg)
	}

	emitter := ingestion.NewService(h.events, dispatch.NewDispatcher(h.events, nil), 1)
	engine, err := NewEngine(Dependencies{
		Emitter:  emitter,
		Reader:   h.events.Reader(),
		DNS:      h.dns,
		Verifier: h.verifier,
		Mailer:   h.mailer,
	}, cfg, h.clock.Now)
	require.NoError(t, err)

	h.engine = engine
	h.scheduler = NewScheduler(h.runs, engine, SchedulerOptions{PollInterval: 10 * time.Millisecond, BatchSize: 5})
	h.service = NewService(h.runs, engine, h.scheduler)
	return h
}

func (h *harness) start(t *testing.T, params workflow.Params) string {
	t.Helper()
	handle, err := h.service.Start(context.Background(), params)
	require.NoError(t, err)
	return handle.ID
}

func (h *harness) run(t *testing.T, id string) *workflow.Run {
	t.Helper()
	run, err := h.runs.Get(context.Background(), id)
	require.NoError(t, err)
	return run
}

func (h *harness) result(t *testing.T, id string) Result {
	t.Helper()
	res, err := h.service.Result(context.Background(), id)
	require.NoError(t, err)
	return res
}

func (h *harness) row(t *testing.T, table string, id string) storage.Row {
	t.Helper()
	row, err := h.events.Reader().Get(context.Background(), table, storage.Row{"id": id})
	require.NoError(t, err)
	return row
}

func acmeParams() workflow.Params {
	return workflow.Params{
		OrganizationName: "Acme Health",
		OrganizationType: "provider",
		Subdomain:        "acme",
		Timezone:         "America/New_York",
		Contacts: []workflow.Contact{
			{Label: "billing", FirstName: "Ada", LastName: "Lovelace", Email: "ada@acme.test"},
		},
		Addresses: []workflow.Address{
			{Street1: "1 Main St", City: "Springfield", State: "IL", ZipCode: "62701"},
		},
		Phones: []workflow.Phone{{Number: "555-0100"}},
		Users: []workflow.InvitedUser{
			{Email: "Alice@Acme.test", FirstName: "Alice", LastName: "Admin", Role: "admin"},
			{Email: "bob@acme.test", FirstName: "Bob", LastName: "Builder"},
		},
	}
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
