package provisioning

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/aevon-lab/tenantflow/internal/core/workflow"
)

// ErrInvalidParams is wrapped by every parameter validation failure.
var ErrInvalidParams = errors.New("invalid provisioning parameters")

// subdomainPattern is a single lower-case DNS label.
var subdomainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

const defaultRole = "member"

// normalizeParams trims, lower-cases keys and checks params, returning the cleaned copy.
func normalizeParams(p workflow.Params) (workflow.Params, error) {
	p.OrganizationName = strings.TrimSpace(p.OrganizationName)
	if p.OrganizationName == "" {
		return p, fmt.Errorf("%w: organization_name is required", ErrInvalidParams)
	}
	p.OrganizationType = strings.TrimSpace(p.OrganizationType)

	p.Subdomain = strings.ToLower(strings.TrimSpace(p.Subdomain))
	if p.Subdomain != "" && !subdomainPattern.MatchString(p.Subdomain) {
		return p, fmt.Errorf("%w: subdomain %q is not a valid DNS label", ErrInvalidParams, p.Subdomain)
	}

	p.Timezone = strings.TrimSpace(p.Timezone)
	if p.Timezone != "" {
		if _, err := time.LoadLocation(p.Timezone); err != nil {
			return p, fmt.Errorf("%w: unknown timezone %q", ErrInvalidParams, p.Timezone)
		}
	}

	for i := range p.Contacts {
		if p.Contacts[i].Label == "" {
			p.Contacts[i].Label = "primary"
		}
	}
	for i := range p.Addresses {
		if p.Addresses[i].Label == "" {
			p.Addresses[i].Label = "primary"
		}
	}
	for i := range p.Phones {
		if p.Phones[i].Label == "" {
			p.Phones[i].Label = "primary"
		}
	}

	seen := make(map[string]struct{}, len(p.Users))
	for i := range p.Users {
		u := &p.Users[i]
		addr, err := mail.ParseAddress(strings.TrimSpace(u.Email))
		if err != nil {
			return p, fmt.Errorf("%w: users[%d].email %q: %v", ErrInvalidParams, i, u.Email, err)
		}
		u.Email = strings.ToLower(addr.Address)
		if _, dup := seen[u.Email]; dup {
			return p, fmt.Errorf("%w: %s is invited twice", ErrInvalidParams, u.Email)
		}
		seen[u.Email] = struct{}{}

		u.Role = strings.TrimSpace(u.Role)
		if u.Role == "" {
			u.Role = defaultRole
		}
	}
	return p, nil
}
