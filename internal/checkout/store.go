package checkout

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mdnaeem95/hbbtool-sub002/pkg/db/models"
)

// SessionStore persists checkout sessions. The durable GORM implementation is
// the default; a Redis implementation backs ephemeral deployments. Expiry is
// evaluated lazily by callers via the session's ExpiresAt; stores may also
// drop expired rows on their own (Redis TTL does).
//
// Consume flips a pending session to completed exactly once. Implementations
// must make that flip a compare-and-swap so two completions racing on the
// same token cannot both succeed. The tx handle binds the flip into the
// caller's transaction where the backing store supports it; stores outside
// that transaction ignore it.
type SessionStore interface {
	Create(ctx context.Context, session *models.CheckoutSession) error
	Get(ctx context.Context, token string) (*models.CheckoutSession, error)
	Consume(ctx context.Context, tx *gorm.DB, token string, orderID uuid.UUID) error
	MarkExpired(ctx context.Context, token string) error
}
