package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mdnaeem95/hbbtool-sub002/api/middleware"
	"github.com/mdnaeem95/hbbtool-sub002/api/responses"
	"github.com/mdnaeem95/hbbtool-sub002/api/validators"
	internalorders "github.com/mdnaeem95/hbbtool-sub002/internal/orders"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/db/models"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/enums"
	pkgerrors "github.com/mdnaeem95/hbbtool-sub002/pkg/errors"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/logger"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/types"
)

type orderItemResponse struct {
	ProductID      uuid.UUID `json:"product_id"`
	ProductName    string    `json:"product_name"`
	UnitPriceCents int       `json:"unit_price_cents"`
	Qty            int       `json:"qty"`
	TotalCents     int       `json:"total_cents"`
	Notes          *string   `json:"notes,omitempty"`
}

type orderResponse struct {
	ID               uuid.UUID           `json:"id"`
	OrderNumber      string              `json:"order_number"`
	MerchantID       uuid.UUID           `json:"merchant_id"`
	CustomerName     string              `json:"customer_name"`
	CustomerPhone    string              `json:"customer_phone"`
	CustomerEmail    string              `json:"customer_email,omitempty"`
	DeliveryMethod   string              `json:"delivery_method"`
	DeliveryAddress  *types.Address      `json:"delivery_address,omitempty"`
	SubtotalCents    int                 `json:"subtotal_cents"`
	DeliveryFeeCents int                 `json:"delivery_fee_cents"`
	DiscountCents    int                 `json:"discount_cents"`
	TaxCents         int                 `json:"tax_cents"`
	TotalCents       int                 `json:"total_cents"`
	Status           string              `json:"status"`
	PaymentStatus    string              `json:"payment_status"`
	Items            []orderItemResponse `json:"items"`
	EstimatedReadyAt *time.Time          `json:"estimated_ready_at,omitempty"`
	ConfirmedAt      *time.Time          `json:"confirmed_at,omitempty"`
	PreparedAt       *time.Time          `json:"prepared_at,omitempty"`
	ReadyAt          *time.Time          `json:"ready_at,omitempty"`
	DeliveredAt      *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt      *time.Time          `json:"cancelled_at,omitempty"`
	CompletedAt      *time.Time          `json:"completed_at,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
}

func newOrderResponse(order *models.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			UnitPriceCents: item.UnitPriceCents,
			Qty:            item.Qty,
			TotalCents:     item.TotalCents,
			Notes:          item.Notes,
		})
	}
	return orderResponse{
		ID:               order.ID,
		OrderNumber:      order.OrderNumber,
		MerchantID:       order.MerchantID,
		CustomerName:     order.CustomerName,
		CustomerPhone:    order.CustomerPhone,
		CustomerEmail:    order.CustomerEmail,
		DeliveryMethod:   order.DeliveryMethod.String(),
		DeliveryAddress:  order.DeliveryAddress,
		SubtotalCents:    order.SubtotalCents,
		DeliveryFeeCents: order.DeliveryFeeCents,
		DiscountCents:    order.DiscountCents,
		TaxCents:         order.TaxCents,
		TotalCents:       order.TotalCents,
		Status:           order.Status.String(),
		PaymentStatus:    order.PaymentStatus.String(),
		Items:            items,
		EstimatedReadyAt: order.EstimatedReadyAt,
		ConfirmedAt:      order.ConfirmedAt,
		PreparedAt:       order.PreparedAt,
		ReadyAt:          order.ReadyAt,
		DeliveredAt:      order.DeliveredAt,
		CancelledAt:      order.CancelledAt,
		CompletedAt:      order.CompletedAt,
		CreatedAt:        order.CreatedAt,
	}
}

func merchantScope(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	merchantID := middleware.MerchantIDFromContext(r.Context())
	if merchantID == uuid.Nil {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "merchant scope required")
	}
	orderID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "orderId")))
	if err != nil {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id")
	}
	return orderID, merchantID, nil
}

// GetOrder returns the full order detail for the owning merchant.
func GetOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, merchantID, err := merchantScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetForMerchant(r.Context(), orderID, merchantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

type updateStatusRequest struct {
	Status string  `json:"status" validate:"required"`
	Reason *string `json:"reason" validate:"omitempty,max=500"`
}

// UpdateOrderStatus applies one lifecycle transition.
func UpdateOrderStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, merchantID, err := merchantScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := enums.ParseOrderStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status"))
			return
		}

		order, err := svc.UpdateStatus(r.Context(), orderID, merchantID, target, req.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

type orderEventResponse struct {
	Event     string        `json:"event"`
	Actor     string        `json:"actor"`
	Payload   types.JSONMap `json:"payload,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// ListOrderEvents returns the append-only audit trail for an order.
func ListOrderEvents(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, merchantID, err := merchantScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		events, err := svc.ListEvents(r.Context(), orderID, merchantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]orderEventResponse, 0, len(events))
		for _, event := range events {
			out = append(out, orderEventResponse{
				Event:     event.Event,
				Actor:     event.Actor,
				Payload:   event.Payload,
				CreatedAt: event.CreatedAt,
			})
		}
		responses.WriteSuccess(w, out)
	}
}
