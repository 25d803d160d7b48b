// Package dnsquorum decides whether a DNS record has propagated by asking several
// independent resolvers and requiring a quorum of them to see it.
package dnsquorum

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultTimeout = 5 * time.Second
	DefaultQuorum  = 2
)

// DefaultResolvers are three unrelated public recursive resolvers.
var DefaultResolvers = []string{"1.1.1.1:53", "8.8.8.8:53", "9.9.9.9:53"}

// ErrNotPropagated is wrapped by NotPropagatedError.
var ErrNotPropagated = errors.New("dns record not propagated")

// ResolverFailure is one resolver that did not see the record.
type ResolverFailure struct {
	Resolver string `json:"resolver"`
	Reason   string `json:"reason"`
}

// Verification is the tally of one Verify call.
type Verification struct {
	Domain    string            `json:"domain"`
	Quorum    int               `json:"quorum"`
	Agreeing  []string          `json:"agreeing"`
	Failing   []ResolverFailure `json:"failing,omitempty"`
	Addresses []string          `json:"addresses,omitempty"`
}

// Reached reports whether enough resolvers agreed.
func (v Verification) Reached() bool {
	return len(v.Agreeing) >= v.Quorum
}

// NotPropagatedError is returned when fewer than Quorum resolvers saw the record.
type NotPropagatedError struct {
	Verification Verification
}

func (e *NotPropagatedError) Error() string {
	reasons := make([]string, 0, len(e.Verification.Failing))
	for _, f := range e.Verification.Failing {
		reasons = append(reasons, f.Resolver+": "+f.Reason)
	}
	return fmt.Sprintf("%s: %s seen by %d of %d resolvers (need %d) [%s]",
		ErrNotPropagated,
		e.Verification.Domain,
		len(e.Verification.Agreeing),
		len(e.Verification.Agreeing)+len(e.Verification.Failing),
		e.Verification.Quorum,
		strings.Join(reasons, "; "))
}

func (e *NotPropagatedError) Unwrap() error {
	return ErrNotPropagated
}

// Verifier runs quorum checks.
type Verifier struct {
	resolvers []Resolver
	quorum    int
	timeout   time.Duration
}

// NewVerifier creates a verifier over resolvers. quorum must be between 1 and
// len(resolvers); timeout bounds each resolver's query.
func NewVerifier(resolvers []Resolver, quorum int, timeout time.Duration) (*Verifier, error) {
	if len(resolvers) == 0 {
		return nil, fmt.Errorf("dnsquorum: at least one resolver is required")
	}
	if quorum < 1 || quorum > len(resolvers) {
		return nil, fmt.Errorf("dnsquorum: quorum %d out of range 1..%d", quorum, len(resolvers))
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Verifier{resolvers: resolvers, quorum: quorum, timeout: timeout}, nil
}

// New builds a verifier over wire-protocol resolvers at addrs.
func New(addrs []string, quorum int, timeout time.Duration) (*Verifier, error) {
	if len(addrs) == 0 {
		addrs = DefaultResolvers
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	resolvers := make([]Resolver, 0, len(addrs))
	for _, addr := range addrs {
		resolvers = append(resolvers, NewDNSResolver(addr, timeout))
	}
	return NewVerifier(resolvers, quorum, timeout)
}

type outcome struct {
	records []string
	err     error
}

// Verify queries every resolver in parallel. A resolver that errors, times out
// or returns no A/AAAA/CNAME record counts as a "no". Returns *NotPropagatedError
// when the quorum is not reached, or ctx.Err() if ctx ended first.
func (v *Verifier) Verify(ctx context.Context, domain string) (Verification, error) {
	domain = strings.TrimSuffix(strings.TrimSpace(domain), ".")
	if domain == "" {
		return Verification{}, fmt.Errorf("dnsquorum: domain is required")
	}

	outcomes := make([]outcome, len(v.resolvers))

	var g errgroup.Group
	for i, r := range v.resolvers {
		g.Go(func() error {
			qctx, cancel := context.WithTimeout(ctx, v.timeout)
			defer cancel()

			records, err := r.Resolve(qctx, domain)
			if err == nil && qctx.Err() != nil {
				err = qctx.Err()
			}
			outcomes[i] = outcome{records: records, err: err}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Verification{}, err
	}

	result := Verification{Domain: domain, Quorum: v.quorum}
	seen := make(map[string]struct{})
	for i, o := range outcomes {
		name := v.resolvers[i].Name()
		switch {
		case o.err != nil:
			result.Failing = append(result.Failing, ResolverFailure{Resolver: name, Reason: o.err.Error()})
		case len(o.records) == 0:
			result.Failing = append(result.Failing, ResolverFailure{Resolver: name, Reason: "no A, AAAA or CNAME record"})
		default:
			result.Agreeing = append(result.Agreeing, name)
			for _, rec := range o.records {
				if _, dup := seen[rec]; !dup {
					seen[rec] = struct{}{}
					result.Addresses = append(result.Addresses, rec)
				}
			}
		}
	}
	sort.Strings(result.Addresses)

	slog.Debug("[DNSQuorum] Verification finished",
		"domain", domain,
		"agreeing", len(result.Agreeing),
		"failing", len(result.Failing),
		"quorum", v.quorum)

	if !result.Reached() {
		return result, &NotPropagatedError{Verification: result}
	}
	return result, nil
}
