package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mdnaeem95/hbbtool-sub002/internal/notifications"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/db/models"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/enums"
	pkgerrors "github.com/mdnaeem95/hbbtool-sub002/pkg/errors"
)

// Service exposes merchant-facing order operations: retrieval, audit trail
// and status transitions.
type Service interface {
	GetForMerchant(ctx context.Context, orderID, merchantID uuid.UUID) (*models.Order, error)
	ListEvents(ctx context.Context, orderID, merchantID uuid.UUID) ([]models.OrderEvent, error)
	UpdateStatus(ctx context.Context, orderID, merchantID uuid.UUID, target enums.OrderStatus, reason *string) (*models.Order, error)
}

type service struct {
	tx    txRunner
	repo  Repository
	sink  notifications.Sink
	nowFn func() time.Time
}

// NewService builds the orders service.
func NewService(tx txRunner, repo Repository, sink notifications.Sink) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if sink == nil {
		return nil, fmt.Errorf("notification sink required")
	}
	return &service{tx: tx, repo: repo, sink: sink, nowFn: time.Now}, nil
}

func (s *service) GetForMerchant(ctx context.Context, orderID, merchantID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil || merchantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and merchant id required")
	}
	return s.repo.FindByIDForMerchant(ctx, orderID, merchantID)
}

func (s *service) ListEvents(ctx context.Context, orderID, merchantID uuid.UUID) ([]models.OrderEvent, error) {
	if _, err := s.GetForMerchant(ctx, orderID, merchantID); err != nil {
		return nil, err
	}
	return s.repo.ListEvents(ctx, orderID)
}

// UpdateStatus applies one transition for the owning merchant. The lookup,
// legality check, stamp, restock and audit event share one transaction.
func (s *service) UpdateStatus(ctx context.Context, orderID, merchantID uuid.UUID, target enums.OrderStatus, reason *string) (*models.Order, error) {
	if orderID == uuid.Nil || merchantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and merchant id required")
	}
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	var order *models.Order
	var previous enums.OrderStatus
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = repo.FindByIDForMerchant(ctx, orderID, merchantID)
		if err != nil {
			return err
		}
		previous = order.Status
		return ApplyTransition(ctx, tx, order, TransitionInput{
			Target: target,
			Reason: reason,
			Actor:  enums.ActorRoleMerchant,
		}, s.nowFn())
	})
	if err != nil {
		return nil, err
	}

	s.sink.Publish(ctx, notifications.Event{
		Type:       notifications.EventOrderStatusChanged,
		MerchantID: order.MerchantID,
		OrderID:    order.ID,
		Payload: map[string]any{
			"from": previous.String(),
			"to":   target.String(),
		},
	})
	return order, nil
}
