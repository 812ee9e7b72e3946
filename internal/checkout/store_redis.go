package checkout

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mdnaeem95/hbbtool-sub002/pkg/db/models"
	pkgerrors "github.com/mdnaeem95/hbbtool-sub002/pkg/errors"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/redis"
)

type redisStore struct {
	client *redis.Client
}

// NewRedisStore builds the ephemeral session store. The session rides the
// key's native TTL, so expired sessions vanish instead of lingering as rows.
// Consumption cannot join the order transaction here; the delete itself is
// the atomic claim.
func NewRedisStore(client *redis.Client) SessionStore {
	return &redisStore{client: client}
}

func (s *redisStore) Create(ctx context.Context, session *models.CheckoutSession) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "session expiry must be in the future")
	}
	ok, err := s.client.SetNX(ctx, s.client.SessionKey(session.Token), payload, ttl)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "session token collision")
	}
	return nil
}

func (s *redisStore) Get(ctx context.Context, token string) (*models.CheckoutSession, error) {
	raw, err := s.client.Get(ctx, s.client.SessionKey(token))
	if err != nil {
		if stdErrors.Is(err, redis.Nil) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found")
		}
		return nil, err
	}
	var session models.CheckoutSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decoding checkout session")
	}
	return &session, nil
}

func (s *redisStore) Consume(ctx context.Context, _ *gorm.DB, token string, _ uuid.UUID) error {
	count, err := s.client.DelCount(ctx, s.client.SessionKey(token))
	if err != nil {
		return err
	}
	if count == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "checkout session already completed")
	}
	return nil
}

func (s *redisStore) MarkExpired(ctx context.Context, token string) error {
	return s.client.Del(ctx, s.client.SessionKey(token))
}
