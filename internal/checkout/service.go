package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mdnaeem95/hbbtool-sub002/internal/merchants"
	"github.com/mdnaeem95/hbbtool-sub002/internal/pricing"
	"github.com/mdnaeem95/hbbtool-sub002/internal/products"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/db/models"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/enums"
	pkgerrors "github.com/mdnaeem95/hbbtool-sub002/pkg/errors"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/metrics"
)

// ItemInput is one requested cart line.
type ItemInput struct {
	ProductID uuid.UUID
	Qty       int
	Notes     *string
}

// CreateInput carries everything needed to open a session. The delivery
// method is fixed here; completion only re-validates it.
type CreateInput struct {
	MerchantID     uuid.UUID
	DeliveryMethod enums.DeliveryMethod
	PostalCode     string
	Items          []ItemInput
}

// PaymentDisplay is the merchant's manual-transfer display info, returned so
// the customer can annotate the payment with the reference.
type PaymentDisplay struct {
	PayNowName   string
	PayNowNumber string
}

// CreateResult is the session snapshot handed back to the customer.
type CreateResult struct {
	Session        *models.CheckoutSession
	PaymentDisplay PaymentDisplay
	ETAMinutes     int
}

// Service opens, quotes and reads checkout sessions.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*CreateResult, error)
	Get(ctx context.Context, token string) (*models.CheckoutSession, error)
	QuoteDeliveryFee(ctx context.Context, merchantID uuid.UUID, postalCode string) (*pricing.FeeQuote, error)
}

type service struct {
	store          SessionStore
	merchantSvc    merchants.Service
	productRepo    products.Repository
	metrics        *metrics.CheckoutMetrics
	sessionTTL     time.Duration
	baseETAMinutes int
	nowFn          func() time.Time
}

// NewService builds the checkout session service.
func NewService(
	store SessionStore,
	merchantSvc merchants.Service,
	productRepo products.Repository,
	checkoutMetrics *metrics.CheckoutMetrics,
	sessionTTL time.Duration,
	baseETAMinutes int,
) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("session store required")
	}
	if merchantSvc == nil {
		return nil, fmt.Errorf("merchants service required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if sessionTTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &service{
		store:          store,
		merchantSvc:    merchantSvc,
		productRepo:    productRepo,
		metrics:        checkoutMetrics,
		sessionTTL:     sessionTTL,
		baseETAMinutes: baseETAMinutes,
		nowFn:          time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
	}
	if !input.DeliveryMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery method")
	}
	if input.DeliveryMethod == enums.DeliveryMethodDelivery && input.PostalCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "postal code required for delivery")
	}

	merchant, err := s.merchantSvc.GetActive(ctx, input.MerchantID)
	if err != nil {
		return nil, err
	}
	if err := merchants.RequireCapability(merchant, input.DeliveryMethod); err != nil {
		return nil, err
	}

	lines, err := s.lockLines(ctx, merchant.ID, input.Items)
	if err != nil {
		return nil, err
	}

	quote, err := pricing.Compute(pricing.MerchantTerms{
		DeliveryFeeCents:  merchant.DeliveryFeeCents,
		MinimumOrderCents: merchant.MinimumOrderCents,
		PostalCode:        merchant.PostalCode,
	}, input.DeliveryMethod, input.PostalCode, s.baseETAMinutes, lines)
	if err != nil {
		return nil, err
	}

	token, err := NewSessionToken()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating session token")
	}
	reference, err := NewPaymentReference()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating payment reference")
	}

	now := s.nowFn().UTC()
	session := &models.CheckoutSession{
		Token:            token,
		MerchantID:       merchant.ID,
		DeliveryMethod:   input.DeliveryMethod,
		Items:            make([]models.SessionItem, 0, len(quote.Lines)),
		SubtotalCents:    quote.SubtotalCents,
		DeliveryFeeCents: quote.DeliveryFeeCents,
		TotalCents:       quote.TotalCents,
		PaymentReference: reference,
		Status:           enums.SessionStatusPending,
		ExpiresAt:        now.Add(s.sessionTTL),
	}
	if input.PostalCode != "" {
		postal := input.PostalCode
		session.PostalCode = &postal
	}
	for _, line := range quote.Lines {
		session.Items = append(session.Items, models.SessionItem{
			ProductID:      line.ProductID,
			Name:           line.Name,
			UnitPriceCents: line.UnitPriceCents,
			Qty:            line.Qty,
			Notes:          line.Notes,
		})
	}

	if err := s.store.Create(ctx, session); err != nil {
		return nil, err
	}
	s.metrics.IncSessionCreated(session.DeliveryMethod.String())

	return &CreateResult{
		Session: session,
		PaymentDisplay: PaymentDisplay{
			PayNowName:   merchant.PayNowName,
			PayNowNumber: merchant.PayNowNumber,
		},
		ETAMinutes: quote.ETAMinutes,
	}, nil
}

// lockLines validates the requested products and locks their current prices
// into pricing inputs. Stock is soft-checked only; the hard guard runs at
// completion.
func (s *service) lockLines(ctx context.Context, merchantID uuid.UUID, items []ItemInput) ([]pricing.LineInput, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if item.Qty < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
		}
		ids = append(ids, item.ProductID)
	}

	found, err := s.productRepo.FindByIDs(ctx, merchantID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*models.Product, len(found))
	for i := range found {
		byID[found[i].ID] = &found[i]
	}

	lines := make([]pricing.LineInput, 0, len(items))
	for _, item := range items {
		product, ok := byID[item.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		if !product.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available: "+product.Name)
		}
		if product.TrackInventory && product.InventoryCount < item.Qty {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "insufficient stock for "+product.Name)
		}
		lines = append(lines, pricing.LineInput{
			ProductID:      product.ID,
			Name:           product.Name,
			UnitPriceCents: product.PriceCents,
			Qty:            item.Qty,
			Notes:          item.Notes,
		})
	}
	return lines, nil
}

// Get returns the session or NotFound once it has passed its expiry. Expiry
// is evaluated lazily here; an expired session behaves as absent.
func (s *service) Get(ctx context.Context, token string) (*models.CheckoutSession, error) {
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session token required")
	}
	session, err := s.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if session.Status != enums.SessionStatusPending || session.Expired(s.nowFn()) {
		if session.Status == enums.SessionStatusPending {
			s.metrics.IncExpiredSessionRead()
			_ = s.store.MarkExpired(ctx, token)
		}
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found")
	}
	return session, nil
}

// QuoteDeliveryFee quotes the surcharged fee and rough ETA for a postal code.
func (s *service) QuoteDeliveryFee(ctx context.Context, merchantID uuid.UUID, postalCode string) (*pricing.FeeQuote, error) {
	if postalCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "postal code required")
	}
	merchant, err := s.merchantSvc.GetActive(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	if err := merchants.RequireCapability(merchant, enums.DeliveryMethodDelivery); err != nil {
		return nil, err
	}
	quote := pricing.DeliveryFee(merchant.DeliveryFeeCents, merchant.PostalCode, postalCode, s.baseETAMinutes)
	return &quote, nil
}
