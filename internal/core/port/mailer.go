package port

import (
	"context"
	"time"
)

// Mailer delivers authentication emails. The reset link embeds the raw token
// and the account id; the stored hash never leaves the service.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to string, accountID string, rawToken string, expiresAt time.Time) error
}
