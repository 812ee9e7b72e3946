package merchants

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mdnaeem95/hbbtool-sub002/pkg/db/models"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/enums"
	pkgerrors "github.com/mdnaeem95/hbbtool-sub002/pkg/errors"
)

// Service answers merchant availability and capability questions for the
// checkout and order paths.
type Service interface {
	GetActive(ctx context.Context, id uuid.UUID) (*models.Merchant, error)
}

type service struct {
	repo Repository
}

// NewService builds the merchants service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("merchants repository required")
	}
	return &service{repo: repo}, nil
}

// GetActive loads a merchant and hides inactive or deleted ones. An inactive
// merchant is indistinguishable from an absent one to callers.
func (s *service) GetActive(ctx context.Context, id uuid.UUID) (*models.Merchant, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant id required")
	}
	merchant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !merchant.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "merchant not found")
	}
	return merchant, nil
}

// RequireCapability rejects a delivery method the merchant has disabled.
func RequireCapability(merchant *models.Merchant, method enums.DeliveryMethod) error {
	switch method {
	case enums.DeliveryMethodDelivery:
		if !merchant.DeliveryEnabled {
			return pkgerrors.New(pkgerrors.CodePrecondition, "delivery is not available for this merchant")
		}
	case enums.DeliveryMethodPickup:
		if !merchant.PickupEnabled {
			return pkgerrors.New(pkgerrors.CodePrecondition, "pickup is not available for this merchant")
		}
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery method")
	}
	return nil
}
