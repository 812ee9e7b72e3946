package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mdnaeem95/hbbtool-sub002/internal/checkout"
	"github.com/mdnaeem95/hbbtool-sub002/internal/merchants"
	"github.com/mdnaeem95/hbbtool-sub002/internal/notifications"
	"github.com/mdnaeem95/hbbtool-sub002/internal/products"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/db/models"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/enums"
	pkgerrors "github.com/mdnaeem95/hbbtool-sub002/pkg/errors"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/metrics"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ContactInfo is the customer identity snapshot stamped onto the order.
// Orders may be guest orders, so this is copied data, not a reference.
type ContactInfo struct {
	Name  string
	Phone string
	Email string
}

// CompleteInput carries everything needed to convert a session into an order.
type CompleteInput struct {
	Contact         ContactInfo
	DeliveryAddress *types.Address
	Notes           *string
}

// CompleteResult is the durable outcome handed back to the customer.
type CompleteResult struct {
	OrderID          uuid.UUID
	OrderNumber      string
	TotalCents       int
	EstimatedReadyAt time.Time
}

// Factory converts a checkout session into a durable order exactly once.
type Factory interface {
	Complete(ctx context.Context, token string, input CompleteInput) (*CompleteResult, error)
}

type factory struct {
	tx          txRunner
	sessions    checkout.SessionStore
	merchantSvc merchants.Service
	repo        Repository
	metrics     *metrics.CheckoutMetrics
	sink        notifications.Sink
	nowFn       func() time.Time
}

// NewFactory builds the order factory.
func NewFactory(
	tx txRunner,
	sessions checkout.SessionStore,
	merchantSvc merchants.Service,
	repo Repository,
	checkoutMetrics *metrics.CheckoutMetrics,
	sink notifications.Sink,
) (Factory, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if merchantSvc == nil {
		return nil, fmt.Errorf("merchants service required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if sink == nil {
		return nil, fmt.Errorf("notification sink required")
	}
	return &factory{
		tx:          tx,
		sessions:    sessions,
		merchantSvc: merchantSvc,
		repo:        repo,
		metrics:     checkoutMetrics,
		sink:        sink,
		nowFn:       time.Now,
	}, nil
}

// Complete runs the whole conversion in one transaction: conditional
// inventory decrements, order + items + payment + audit event creation and
// the session's compare-and-swap consumption. Either all of it commits or
// none of it does.
func (f *factory) Complete(ctx context.Context, token string, input CompleteInput) (*CompleteResult, error) {
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session token required")
	}
	if input.Contact.Name == "" || input.Contact.Phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name and phone required")
	}

	session, err := f.sessions.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if session.Status != enums.SessionStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "checkout session already completed")
	}
	now := f.nowFn().UTC()
	if session.Expired(now) {
		_ = f.sessions.MarkExpired(ctx, token)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout session has expired")
	}

	merchant, err := f.merchantSvc.GetActive(ctx, session.MerchantID)
	if err != nil {
		return nil, err
	}
	if err := merchants.RequireCapability(merchant, session.DeliveryMethod); err != nil {
		return nil, err
	}
	if session.DeliveryMethod == enums.DeliveryMethodDelivery {
		if input.DeliveryAddress == nil || !input.DeliveryAddress.Valid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address required")
		}
	}

	orderNumber, err := NewOrderNumber(now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating order number")
	}
	estimatedReady := now.Add(time.Duration(merchant.PreparationMinutes) * time.Minute)

	var order *models.Order
	txStarted := time.Now()
	err = f.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := f.repo.WithTx(tx)

		requests := make([]products.InventoryRequest, 0, len(session.Items))
		for _, item := range session.Items {
			requests = append(requests, products.InventoryRequest{ProductID: item.ProductID, Qty: item.Qty})
		}
		if err := products.DecrementInventory(ctx, tx, requests); err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeValidation {
				f.metrics.IncOversellRejection()
			}
			return err
		}

		order = &models.Order{
			ID:               uuid.New(),
			OrderNumber:      orderNumber,
			MerchantID:       merchant.ID,
			CustomerName:     input.Contact.Name,
			CustomerPhone:    input.Contact.Phone,
			CustomerEmail:    input.Contact.Email,
			DeliveryMethod:   session.DeliveryMethod,
			DeliveryAddress:  input.DeliveryAddress,
			SubtotalCents:    session.SubtotalCents,
			DeliveryFeeCents: session.DeliveryFeeCents,
			TotalCents:       session.TotalCents,
			Status:           enums.OrderStatusPending,
			PaymentStatus:    enums.PaymentStatusPending,
			Notes:            input.Notes,
			Metadata:         types.JSONMap{"payment_reference": session.PaymentReference},
			EstimatedReadyAt: &estimatedReady,
		}
		if _, err := repo.Create(ctx, order); err != nil {
			return err
		}

		items := make([]models.OrderItem, 0, len(session.Items))
		for _, item := range session.Items {
			items = append(items, models.OrderItem{
				ID:             uuid.New(),
				OrderID:        order.ID,
				ProductID:      item.ProductID,
				ProductName:    item.Name,
				UnitPriceCents: item.UnitPriceCents,
				Qty:            item.Qty,
				TotalCents:     item.UnitPriceCents * item.Qty,
				Notes:          item.Notes,
			})
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return err
		}

		payment := &models.Payment{
			ID:               uuid.New(),
			OrderID:          order.ID,
			AmountCents:      order.TotalCents,
			Status:           enums.PaymentStatusPending,
			PaymentReference: session.PaymentReference,
		}
		if _, err := repo.CreatePayment(ctx, payment); err != nil {
			return err
		}

		event := &models.OrderEvent{
			ID:      uuid.New(),
			OrderID: order.ID,
			Event:   "order_created",
			Actor:   enums.ActorRoleCustomer.String(),
			Payload: map[string]any{
				"order_number": orderNumber,
				"total_cents":  order.TotalCents,
				"session":      token,
			},
		}
		if err := repo.CreateEvent(ctx, event); err != nil {
			return err
		}

		return f.sessions.Consume(ctx, tx, token, order.ID)
	})
	if err != nil {
		return nil, err
	}

	f.metrics.ObserveCheckoutDuration(time.Since(txStarted))
	f.metrics.IncOrderCreated(order.DeliveryMethod.String())
	f.sink.Publish(ctx, notifications.Event{
		Type:       notifications.EventOrderCreated,
		MerchantID: order.MerchantID,
		OrderID:    order.ID,
		Payload:    map[string]any{"order_number": order.OrderNumber},
	})

	return &CompleteResult{
		OrderID:          order.ID,
		OrderNumber:      order.OrderNumber,
		TotalCents:       order.TotalCents,
		EstimatedReadyAt: estimatedReady,
	}, nil
}
