// Package cloudflare manages the per-tenant DNS records in the Cloudflare zone
// that hosts the base domain.
package cloudflare

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	cf "github.com/cloudflare/cloudflare-go"
	"golang.org/x/sync/singleflight"
)

// ErrZoneNotFound is returned when the token cannot see the base domain's zone.
var ErrZoneNotFound = errors.New("cloudflare zone not found")

// Config describes the zone and the record shape.
type Config struct {
	APIToken   string
	BaseDomain string // zone name, e.g. "example.com"
	Target     string // CNAME target every tenant record points at
	Proxied    bool
	TTL        int    // 1 means automatic
	BaseURL    string // API endpoint override, empty for the public API
}

// Record is a DNS record owned by one tenant.
type Record struct {
	ID   string
	Name string
}

// Client creates and removes tenant CNAME records.
type Client struct {
	api  *cf.API
	cfg  Config
	mu   sync.RWMutex
	zone string

	zoneGroup singleflight.Group // Dedupe concurrent zone lookups
}

// New creates a client. The zone id is resolved lazily on first use.
func New(cfg Config) (*Client, error) {
	if cfg.APIToken == "" {
		return nil, fmt.Errorf("cloudflare: api token is required")
	}
	if cfg.BaseDomain == "" {
		return nil, fmt.Errorf("cloudflare: base domain is required")
	}
	if cfg.Target == "" {
		return nil, fmt.Errorf("cloudflare: record target is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 1
	}

	var opts []cf.Option
	if cfg.BaseURL != "" {
		opts = append(opts, cf.BaseURL(cfg.BaseURL))
	}
	api, err := cf.NewWithAPIToken(cfg.APIToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("cloudflare: %w", err)
	}
	return &Client{api: api, cfg: cfg}, nil
}

// FQDN returns the record name for a subdomain label.
func (c *Client) FQDN(subdomain string) string {
	return strings.ToLower(subdomain) + "." + c.cfg.BaseDomain
}

// EnsureRecord creates the CNAME for subdomain, or returns the existing one so
// a repeated call does not create a second record.
func (c *Client) EnsureRecord(ctx context.Context, subdomain string) (Record, error) {
	zoneID, err := c.zoneID(ctx)
	if err != nil {
		return Record{}, err
	}
	rc := cf.ZoneIdentifier(zoneID)
	name := c.FQDN(subdomain)

	existing, _, err := c.api.ListDNSRecords(ctx, rc, cf.ListDNSRecordsParams{Type: "CNAME", Name: name})
	if err != nil {
		return Record{}, fmt.Errorf("cloudflare: list records for %s: %w", name, err)
	}
	for _, r := range existing {
		if strings.EqualFold(r.Name, name) {
			slog.Info("[Cloudflare] Record already exists", "name", name, "record_id", r.ID)
			return Record{ID: r.ID, Name: r.Name}, nil
		}
	}

	proxied := c.cfg.Proxied
	created, err := c.api.CreateDNSRecord(ctx, rc, cf.CreateDNSRecordParams{
		Type:    "CNAME",
		Name:    name,
		Content: c.cfg.Target,
		TTL:     c.cfg.TTL,
		Proxied: &proxied,
		Comment: "managed by tenantflow",
	})
	if err != nil {
		return Record{}, fmt.Errorf("cloudflare: create record %s: %w", name, err)
	}

	slog.Info("[Cloudflare] Record created", "name", name, "record_id", created.ID, "proxied", proxied)
	return Record{ID: created.ID, Name: name}, nil
}

// DeleteRecord removes a record. A record that is already gone is not an error.
func (c *Client) DeleteRecord(ctx context.Context, recordID string) error {
	if recordID == "" {
		return nil
	}
	zoneID, err := c.zoneID(ctx)
	if err != nil {
		return err
	}

	err = c.api.DeleteDNSRecord(ctx, cf.ZoneIdentifier(zoneID), recordID)
	var notFound *cf.NotFoundError
	if errors.As(err, &notFound) {
		slog.Info("[Cloudflare] Record already removed", "record_id", recordID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("cloudflare: delete record %s: %w", recordID, err)
	}

	slog.Info("[Cloudflare] Record deleted", "record_id", recordID)
	return nil
}

func (c *Client) zoneID(ctx context.Context) (string, error) {
	c.mu.RLock()
	if c.zone != "" {
		defer c.mu.RUnlock()
		return c.zone, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.zoneGroup.Do(c.cfg.BaseDomain, func() (interface{}, error) {
		zones, err := c.api.ListZones(ctx, c.cfg.BaseDomain)
		if err != nil {
			return "", fmt.Errorf("cloudflare: list zones: %w", err)
		}
		for _, z := range zones {
			if strings.EqualFold(z.Name, c.cfg.BaseDomain) {
				c.mu.Lock()
				c.zone = z.ID
				c.mu.Unlock()
				return z.ID, nil
			}
		}
		return "", fmt.Errorf("%w: %s", ErrZoneNotFound, c.cfg.BaseDomain)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}
