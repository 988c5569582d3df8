package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/okorelov/profile-auth/internal/core/domain"
	"github.com/okorelov/profile-auth/internal/core/port"
	"github.com/okorelov/profile-auth/internal/infra/config"
)

const schemaVersion = "1.0"

// Event types published by this service. The token-version consumer on other
// instances subscribes to the tokens.revoked topic.
const (
	EventTypeAccountRegistered      = "account.registered"
	EventTypePasswordChanged        = "account.password.changed"
	EventTypePasswordResetRequested = "account.password.reset_requested"
	EventTypeAccountLocked          = "account.locked"
	EventTypeTokensRevoked          = "account.tokens.revoked"
)

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	AccountID string           `json:"account_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, accountID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		AccountID: accountID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Key:   sarama.StringEncoder(accountID),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishAccountRegistered publishes account.registered events.
func (p *EventPublisher) PublishAccountRegistered(ctx context.Context, event domain.AccountRegisteredEvent) error {
	payload := struct {
		AccountID          string         `json:"account_id"`
		Email              string         `json:"email"`
		RegisteredAt       time.Time      `json:"registered_at"`
		RegistrationMethod string         `json:"registration_method"`
		Metadata           map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:          event.AccountID,
		Email:              event.Email,
		RegisteredAt:       event.RegisteredAt.UTC(),
		RegistrationMethod: event.RegistrationMethod,
		Metadata:           event.Metadata,
	}

	return p.publish(ctx, event.EventID, EventTypeAccountRegistered, event.AccountID, event.RegisteredAt, payload)
}

// PublishPasswordChanged publishes account.password.changed events.
func (p *EventPublisher) PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error {
	payload := struct {
		AccountID string         `json:"account_id"`
		ChangedAt time.Time      `json:"changed_at"`
		ChangedBy string         `json:"changed_by"`
		Reason    string         `json:"reason"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		AccountID: event.AccountID,
		ChangedAt: event.ChangedAt.UTC(),
		ChangedBy: event.ChangedBy,
		Reason:    event.Reason,
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, EventTypePasswordChanged, event.AccountID, event.ChangedAt, payload)
}

// PublishPasswordResetRequested publishes account.password.reset_requested
// events. Only the masked destination rides along; the raw token never enters
// the bus.
func (p *EventPublisher) PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error {
	payload := struct {
		AccountID         string         `json:"account_id"`
		RequestedAt       time.Time      `json:"requested_at"`
		MaskedDestination string         `json:"masked_destination,omitempty"`
		ExpiresAt         time.Time      `json:"expires_at"`
		Metadata          map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:         event.AccountID,
		RequestedAt:       event.RequestedAt.UTC(),
		MaskedDestination: event.MaskedDestination,
		ExpiresAt:         event.ExpiresAt.UTC(),
		Metadata:          event.Metadata,
	}

	return p.publish(ctx, event.EventID, EventTypePasswordResetRequested, event.AccountID, event.RequestedAt, payload)
}

// PublishAccountLocked publishes account.locked events.
func (p *EventPublisher) PublishAccountLocked(ctx context.Context, event domain.AccountLockedEvent) error {
	payload := struct {
		AccountID      string         `json:"account_id"`
		LockedAt       time.Time      `json:"locked_at"`
		LockedUntil    time.Time      `json:"locked_until"`
		FailedAttempts int            `json:"failed_attempts"`
		Metadata       map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:      event.AccountID,
		LockedAt:       event.LockedAt.UTC(),
		LockedUntil:    event.LockedUntil.UTC(),
		FailedAttempts: event.FailedAttempts,
		Metadata:       event.Metadata,
	}

	return p.publish(ctx, event.EventID, EventTypeAccountLocked, event.AccountID, event.LockedAt, payload)
}

// PublishTokensRevoked publishes account.tokens.revoked events.
func (p *EventPublisher) PublishTokensRevoked(ctx context.Context, event domain.TokensRevokedEvent) error {
	payload := struct {
		AccountID    string         `json:"account_id"`
		TokenVersion int64          `json:"token_version"`
		RevokedAt    time.Time      `json:"revoked_at"`
		Reason       string         `json:"reason"`
		Metadata     map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:    event.AccountID,
		TokenVersion: event.TokenVersion,
		RevokedAt:    event.RevokedAt.UTC(),
		Reason:       event.Reason,
		Metadata:     event.Metadata,
	}

	return p.publish(ctx, event.EventID, EventTypeTokensRevoked, event.AccountID, event.RevokedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
