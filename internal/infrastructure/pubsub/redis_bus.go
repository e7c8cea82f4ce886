// Package pubsub fans identity invalidations out across kyc-gate instances.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"kyc-gate/internal/domain"
	"kyc-gate/internal/infrastructure/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the Redis channel carrying invalidations.
const DefaultChannel = "kyc-gate:identity:invalidate"

// RedisBus implements domain.InvalidationPublisher using Redis Pub/Sub.
type RedisBus struct {
	client  *redis.Client
	channel string
	origin  string
	logger  *slog.Logger
}

// NewRedisBus creates a bus on an existing client.
func NewRedisBus(client *redis.Client, channel string, logger *slog.Logger) *RedisBus {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBus{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  logger,
	}
}

// NewRedisBusWithURL creates a bus from a Redis URL.
func NewRedisBusWithURL(url, channel string, logger *slog.Logger) (*RedisBus, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisBus(redis.NewClient(opts), channel, logger), nil
}

// Origin identifies this instance on the bus.
func (b *RedisBus) Origin() string {
	return b.origin
}

// Close closes the Redis connection.
func (b *RedisBus) Close() error {
	return b.client.Close()
}

// Ping checks if Redis is available.
func (b *RedisBus) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// PublishInvalidation publishes inv to every other instance.
func (b *RedisBus) PublishInvalidation(ctx context.Context, inv domain.Invalidation) error {
	inv.Origin = b.origin
	payload, err := json.Marshal(inv)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// Run subscribes to the channel and applies remote invalidations to sink
// until ctx is cancelled. Messages published by this instance are skipped.
func (b *RedisBus) Run(ctx context.Context, sink domain.InvalidationSink) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	b.logger.InfoContext(ctx, "subscribed to invalidation channel", "channel", b.channel, "origin", b.origin)

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			b.handle(ctx, msg.Payload, sink)
		}
	}
}

func (b *RedisBus) handle(ctx context.Context, payload string, sink domain.InvalidationSink) {
	var inv domain.Invalidation
	if err := json.Unmarshal([]byte(payload), &inv); err != nil {
		b.logger.WarnContext(ctx, "discarding malformed invalidation", "error", err)
		return
	}
	if inv.Origin == b.origin {
		return
	}
	if err := inv.Validate(); err != nil {
		b.logger.WarnContext(ctx, "discarding invalid invalidation", "error", err)
		return
	}

	sink.Apply(inv)
	metrics.RecordInvalidation("remote")
	b.logger.DebugContext(ctx, "applied remote invalidation", "kind", inv.Kind, "origin", inv.Origin)
}
