package checkout

import (
	"context"
	stdErrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mdnaeem95/hbbtool-sub002/pkg/db/models"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/enums"
	pkgerrors "github.com/mdnaeem95/hbbtool-sub002/pkg/errors"
)

type gormStore struct {
	db *gorm.DB
}

// NewGormStore builds the durable session store.
func NewGormStore(db *gorm.DB) SessionStore {
	return &gormStore{db: db}
}

func (s *gormStore) Create(ctx context.Context, session *models.CheckoutSession) error {
	return s.db.WithContext(ctx).Create(session).Error
}

func (s *gormStore) Get(ctx context.Context, token string) (*models.CheckoutSession, error) {
	var session models.CheckoutSession
	err := s.db.WithContext(ctx).Where("token = ?", token).First(&session).Error
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found")
		}
		return nil, err
	}
	return &session, nil
}

// Consume is a CAS on the session row: only a still-pending row flips to
// completed. Zero rows affected means another completion got there first.
func (s *gormStore) Consume(ctx context.Context, tx *gorm.DB, token string, orderID uuid.UUID) error {
	conn := s.db
	if tx != nil {
		conn = tx
	}
	res := conn.WithContext(ctx).Model(&models.CheckoutSession{}).
		Where("token = ? AND status = ?", token, enums.SessionStatusPending).
		Updates(map[string]any{
			"status":   enums.SessionStatusCompleted,
			"order_id": orderID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "checkout session already completed")
	}
	return nil
}

func (s *gormStore) MarkExpired(ctx context.Context, token string) error {
	return s.db.WithContext(ctx).Model(&models.CheckoutSession{}).
		Where("token = ? AND status = ?", token, enums.SessionStatusPending).
		Update("status", enums.SessionStatusExpired).Error
}
