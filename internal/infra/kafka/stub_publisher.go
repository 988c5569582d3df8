package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/okorelov/profile-auth/internal/core/domain"
	"github.com/okorelov/profile-auth/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, accountID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("account_id", accountID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishAccountRegistered logs account.registered events.
func (p *StubPublisher) PublishAccountRegistered(_ context.Context, event domain.AccountRegisteredEvent) error {
	payload := map[string]any{
		"account_id":          event.AccountID,
		"email":               event.Email,
		"registered_at":       event.RegisteredAt,
		"registration_method": event.RegistrationMethod,
		"metadata":            event.Metadata,
	}
	p.logEvent(EventTypeAccountRegistered, event.AccountID, event.RegisteredAt, payload)
	return nil
}

// PublishPasswordChanged logs account.password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	payload := map[string]any{
		"account_id": event.AccountID,
		"changed_at": event.ChangedAt,
		"changed_by": event.ChangedBy,
		"reason":     event.Reason,
		"metadata":   event.Metadata,
	}
	p.logEvent(EventTypePasswordChanged, event.AccountID, event.ChangedAt, payload)
	return nil
}

// PublishPasswordResetRequested logs account.password.reset_requested events.
func (p *StubPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	payload := map[string]any{
		"account_id":         event.AccountID,
		"requested_at":       event.RequestedAt,
		"masked_destination": event.MaskedDestination,
		"expires_at":         event.ExpiresAt,
		"metadata":           event.Metadata,
	}
	p.logEvent(EventTypePasswordResetRequested, event.AccountID, event.RequestedAt, payload)
	return nil
}

// PublishAccountLocked logs account.locked events.
func (p *StubPublisher) PublishAccountLocked(_ context.Context, event domain.AccountLockedEvent) error {
	payload := map[string]any{
		"account_id":      event.AccountID,
		"locked_at":       event.LockedAt,
		"locked_until":    event.LockedUntil,
		"failed_attempts": event.FailedAttempts,
		"metadata":        event.Metadata,
	}
	p.logEvent(EventTypeAccountLocked, event.AccountID, event.LockedAt, payload)
	return nil
}

// PublishTokensRevoked logs account.tokens.revoked events.
func (p *StubPublisher) PublishTokensRevoked(_ context.Context, event domain.TokensRevokedEvent) error {
	payload := map[string]any{
		"account_id":    event.AccountID,
		"token_version": event.TokenVersion,
		"revoked_at":    event.RevokedAt,
		"reason":        event.Reason,
		"metadata":      event.Metadata,
	}
	p.logEvent(EventTypeTokensRevoked, event.AccountID, event.RevokedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
