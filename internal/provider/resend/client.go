// Package resend sends transactional email through the Resend API.
package resend

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/resend/resend-go/v2"
)

// Config holds the sender identity and credentials.
type Config struct {
	APIKey  string
	From    string
	BaseURL string // API endpoint override, empty for the public API
}

// Message is one outgoing email with a single recipient.
type Message struct {
	To      string
	Subject string
	HTML    string
	Tags    map[string]string
}

// Client wraps the Resend SDK.
type Client struct {
	sdk  *resend.Client
	from string
}

func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("resend: api key is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("resend: from address is required")
	}

	sdk := resend.NewClient(cfg.APIKey)
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("resend: invalid base url: %w", err)
		}
		sdk.BaseURL = u
	}
	return &Client{sdk: sdk, from: cfg.From}, nil
}

// Send delivers msg and returns the provider's message id.
func (c *Client) Send(ctx context.Context, msg Message) (string, error) {
	req := &resend.SendEmailRequest{
		From:    c.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	}
	for name, value := range msg.Tags {
		req.Tags = append(req.Tags, resend.Tag{Name: name, Value: value})
	}

	sent, err := c.sdk.Emails.SendWithContext(ctx, req)
	if err != nil {
		return "", fmt.Errorf("resend: send to %s: %w", msg.To, err)
	}

	slog.Debug("[Resend] Email sent", "to", msg.To, "message_id", sent.Id)
	return sent.Id, nil
}
