package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/okorelov/profile-auth/internal/core/port"
	"github.com/okorelov/profile-auth/internal/repository"
)

// TokenVersionConsumer updates the local token version cache when revocation
// events from other instances are observed. Without it a sibling instance
// would keep honoring revoked access tokens until the cache TTL ran out.
type TokenVersionConsumer struct {
	cache  port.TokenVersionCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewTokenVersionConsumer constructs a consumer that hydrates the token
// version cache from tokens.revoked events.
func NewTokenVersionConsumer(cache port.TokenVersionCache, ttl time.Duration, logger *zap.Logger) *TokenVersionConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenVersionConsumer{cache: cache, ttl: ttl, logger: logger}
}

type tokensRevokedPayload struct {
	AccountID    string    `json:"account_id"`
	TokenVersion int64     `json:"token_version"`
	RevokedAt    time.Time `json:"revoked_at"`
	Reason       string    `json:"reason"`
}

type tokensRevokedEnvelope struct {
	EventID   string               `json:"event_id"`
	EventType string               `json:"event_type"`
	AccountID string               `json:"account_id"`
	Payload   tokensRevokedPayload `json:"payload"`
}

// HandleMessage decodes a Kafka message and applies it to the cache.
func (c *TokenVersionConsumer) HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	if msg == nil {
		return fmt.Errorf("message is nil")
	}

	var envelope tokensRevokedEnvelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		return fmt.Errorf("decode tokens revoked event: %w", err)
	}

	return c.HandleEvent(ctx, envelope.Payload)
}

// HandleEvent applies the revocation to the cache. Setting the new version
// (rather than deleting) keeps the next verification off the primary store.
func (c *TokenVersionConsumer) HandleEvent(ctx context.Context, payload tokensRevokedPayload) error {
	if c.cache == nil {
		return nil
	}
	if payload.AccountID == "" {
		return fmt.Errorf("account id is required")
	}

	ttl := c.ttl
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}

	if err := c.cache.SetTokenVersion(ctx, payload.AccountID, payload.TokenVersion, ttl); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		c.logger.Warn("failed to hydrate token version cache", zap.String("account_id", payload.AccountID), zap.Error(err))
		return fmt.Errorf("cache token version: %w", err)
	}

	return nil
}

// ConsumerGroupHandler adapts TokenVersionConsumer to sarama.ConsumerGroupHandler.
type ConsumerGroupHandler struct {
	consumer *TokenVersionConsumer
	logger   *zap.Logger
}

// NewConsumerGroupHandler wraps the consumer for use with a sarama consumer group.
func NewConsumerGroupHandler(consumer *TokenVersionConsumer, logger *zap.Logger) *ConsumerGroupHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsumerGroupHandler{consumer: consumer, logger: logger}
}

func (h *ConsumerGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *ConsumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim processes messages until the session ends. Decode failures are
// logged and skipped; stalling the partition on one bad message helps nobody.
func (h *ConsumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if err := h.consumer.HandleMessage(session.Context(), msg); err != nil {
			h.logger.Warn("token version message dropped",
				zap.String("topic", msg.Topic),
				zap.Int32("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}
		session.MarkMessage(msg, "")
	}
	return nil
}

// RunTokenVersionConsumer joins the consumer group and processes revocation
// events until the context is canceled.
func RunTokenVersionConsumer(ctx context.Context, brokers []string, group, topic string, handler *ConsumerGroupHandler, logger *zap.Logger) error {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_5_0_0
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest

	consumerGroup, err := sarama.NewConsumerGroup(brokers, group, saramaConfig)
	if err != nil {
		return fmt.Errorf("create kafka consumer group: %w", err)
	}
	defer consumerGroup.Close()

	for {
		if err := consumerGroup.Consume(ctx, []string{topic}, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			logger.Error("consumer group session failed", zap.Error(err))
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}
