// Package notify tells interested readers that projections changed. Delivery is
// best-effort: the projection is already committed when a notification is sent.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	v1 "github.com/aevon-lab/tenantflow/internal/api/v1"
	"github.com/redis/go-redis/v9"
)

// Change is the message published for each applied event.
type Change struct {
	EventID       string `json:"event_id"`
	StreamType    string `json:"stream_type"`
	StreamID      string `json:"stream_id"`
	EventType     string `json:"event_type"`
	StreamVersion int64  `json:"stream_version"`
}

// ChangeOf builds the notification for evt.
func ChangeOf(evt *v1.Event) Change {
	return Change{
		EventID:       evt.ID,
		StreamType:    evt.StreamType,
		StreamID:      evt.StreamID,
		EventType:     evt.EventType,
		StreamVersion: evt.StreamVersion,
	}
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Publish(ctx context.Context, evt *v1.Event) error { return nil }

// RedisPublisher publishes Change messages on one Redis channel.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
	timeout time.Duration
}

// NewRedisPublisher wraps an existing client.
func NewRedisPublisher(client redis.UniversalClient, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel, timeout: 2 * time.Second}
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr, channel string) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	slog.Info("[Notify] Redis publisher connected", "addr", addr, "channel", channel)
	return NewRedisPublisher(client, channel), nil
}

func (p *RedisPublisher) Publish(ctx context.Context, evt *v1.Event) error {
	payload, err := json.Marshal(ChangeOf(evt))
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.channel, err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
