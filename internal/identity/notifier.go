package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultChangeChannel is the pub/sub channel for wallet changes.
const DefaultChangeChannel = "legitify:wallet:changes"

// RedisNotifier broadcasts wallet changes over Redis pub/sub and applies
// changes published by other replicas.
type RedisNotifier struct {
	client  redis.UniversalClient
	channel string
	origin  string
	logger  *slog.Logger
}

func NewRedisNotifier(client redis.UniversalClient, channel string, logger *slog.Logger) *RedisNotifier {
	if channel == "" {
		channel = DefaultChangeChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisNotifier{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  logger,
	}
}

// PublishChange implements ChangePublisher.
func (n *RedisNotifier) PublishChange(ctx context.Context, change Change) error {
	change.Origin = n.origin
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("encode wallet change: %w", err)
	}
	return n.client.Publish(ctx, n.channel, payload).Err()
}

// Subscribe applies changes from other replicas until ctx is cancelled.
// Changes published by this notifier are skipped.
func (n *RedisNotifier) Subscribe(ctx context.Context, apply func(context.Context, Change) error) error {
	sub := n.client.Subscribe(ctx, n.channel)
	defer sub.Close() //nolint:errcheck // best-effort on shutdown

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", n.channel, err)
	}

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			n.handle(ctx, msg.Payload, apply)
		}
	}
}

func (n *RedisNotifier) handle(ctx context.Context, payload string, apply func(context.Context, Change) error) {
	var change Change
	if err := json.Unmarshal([]byte(payload), &change); err != nil {
		n.logger.WarnContext(ctx, "discarding malformed wallet change", "error", err)
		return
	}
	if change.Origin == n.origin {
		return
	}
	if err := apply(ctx, change); err != nil {
		n.logger.ErrorContext(ctx, "failed to apply wallet change",
			"org", change.Org,
			"label", change.Label,
			"error", err,
		)
	}
}
