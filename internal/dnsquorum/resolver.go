package dnsquorum

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// Resolver answers whether a domain resolves, returning the addresses or
// canonical names it saw. An empty answer means the record is not visible yet.
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, domain string) ([]string, error)
}

// DNSResolver queries one recursive resolver over the DNS wire protocol.
// Each instance owns its client so one slow resolver never shares state with another.
type DNSResolver struct {
	addr   string
	client *dns.Client
}

// NewDNSResolver creates a resolver for addr ("1.1.1.1" or "1.1.1.1:53").
func NewDNSResolver(addr string, timeout time.Duration) *DNSResolver {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "53")
	}
	return &DNSResolver{
		addr: addr,
		client: &dns.Client{
			Net:     "udp",
			Timeout: timeout,
		},
	}
}

func (r *DNSResolver) Name() string {
	return r.addr
}

// Resolve asks for A, then AAAA. CNAME records in either answer count.
func (r *DNSResolver) Resolve(ctx context.Context, domain string) ([]string, error) {
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		records, err := r.query(ctx, domain, qtype)
		if err != nil {
			return nil, err
		}
		if len(records) > 0 {
			return records, nil
		}
	}
	return nil, nil
}

func (r *DNSResolver) query(ctx context.Context, domain string, qtype uint16) ([]string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), qtype)
	msg.RecursionDesired = true

	in, _, err := r.client.ExchangeContext(ctx, msg, r.addr)
	if err != nil {
		return nil, fmt.Errorf("query %s %s: %w", dns.TypeToString[qtype], domain, err)
	}

	switch in.Rcode {
	case dns.RcodeSuccess, dns.RcodeNameError:
	default:
		return nil, fmt.Errorf("query %s %s: rcode %s", dns.TypeToString[qtype], domain, dns.RcodeToString[in.Rcode])
	}

	var records []string
	for _, rr := range in.Answer {
		switch v := rr.(type) {
		case *dns.A:
			records = append(records, v.A.String())
		case *dns.AAAA:
			records = append(records, v.AAAA.String())
		case *dns.CNAME:
			records = append(records, strings.TrimSuffix(v.Target, "."))
		}
	}
	return records, nil
}
