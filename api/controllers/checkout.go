package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mdnaeem95/hbbtool-sub002/api/responses"
	"github.com/mdnaeem95/hbbtool-sub002/api/validators"
	"github.com/mdnaeem95/hbbtool-sub002/internal/checkout"
	"github.com/mdnaeem95/hbbtool-sub002/internal/orders"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/db/models"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/enums"
	pkgerrors "github.com/mdnaeem95/hbbtool-sub002/pkg/errors"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/logger"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/types"
)

type createSessionRequest struct {
	MerchantID     string               `json:"merchant_id" validate:"required,uuid"`
	DeliveryMethod string               `json:"delivery_method" validate:"required,oneof=DELIVERY PICKUP"`
	PostalCode     string               `json:"postal_code" validate:"omitempty,len=6"`
	Items          []sessionItemRequest `json:"items" validate:"required,min=1,dive"`
}

type sessionItemRequest struct {
	ProductID string  `json:"product_id" validate:"required,uuid"`
	Qty       int     `json:"qty" validate:"required,min=1"`
	Notes     *string `json:"notes" validate:"omitempty,max=500"`
}

type sessionResponse struct {
	Token            string               `json:"token"`
	MerchantID       uuid.UUID            `json:"merchant_id"`
	DeliveryMethod   string               `json:"delivery_method"`
	Items            []models.SessionItem `json:"items"`
	SubtotalCents    int                  `json:"subtotal_cents"`
	DeliveryFeeCents int                  `json:"delivery_fee_cents"`
	TotalCents       int                  `json:"total_cents"`
	PaymentReference string               `json:"payment_reference"`
	ExpiresAt        time.Time            `json:"expires_at"`
	ETAMinutes       int                  `json:"eta_minutes,omitempty"`
	PayNowName       string               `json:"paynow_name,omitempty"`
	PayNowNumber     string               `json:"paynow_number,omitempty"`
}

func newSessionResponse(session *models.CheckoutSession) sessionResponse {
	return sessionResponse{
		Token:            session.Token,
		MerchantID:       session.MerchantID,
		DeliveryMethod:   session.DeliveryMethod.String(),
		Items:            session.Items,
		SubtotalCents:    session.SubtotalCents,
		DeliveryFeeCents: session.DeliveryFeeCents,
		TotalCents:       session.TotalCents,
		PaymentReference: session.PaymentReference,
		ExpiresAt:        session.ExpiresAt,
	}
}

// CreateSession opens a price-locked checkout session.
func CreateSession(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var req createSessionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		merchantID, err := uuid.Parse(req.MerchantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid merchant id"))
			return
		}
		method, err := enums.ParseDeliveryMethod(req.DeliveryMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery method"))
			return
		}

		items := make([]checkout.ItemInput, 0, len(req.Items))
		for _, item := range req.Items {
			productID, err := uuid.Parse(item.ProductID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id"))
				return
			}
			items = append(items, checkout.ItemInput{ProductID: productID, Qty: item.Qty, Notes: item.Notes})
		}

		result, err := svc.Create(r.Context(), checkout.CreateInput{
			MerchantID:     merchantID,
			DeliveryMethod: method,
			PostalCode:     strings.TrimSpace(req.PostalCode),
			Items:          items,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := newSessionResponse(result.Session)
		resp.ETAMinutes = result.ETAMinutes
		resp.PayNowName = result.PaymentDisplay.PayNowName
		resp.PayNowNumber = result.PaymentDisplay.PayNowNumber
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

// GetSession returns a pending session snapshot. An expired session reads as
// absent.
func GetSession(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		token := strings.TrimSpace(chi.URLParam(r, "token"))
		if token == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session token required"))
			return
		}

		session, err := svc.Get(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSessionResponse(session))
	}
}

// QuoteDeliveryFee returns the surcharged fee and rough ETA for a postal code.
func QuoteDeliveryFee(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		merchantID, err := uuid.Parse(strings.TrimSpace(r.URL.Query().Get("merchant_id")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid merchant id"))
			return
		}
		postal := strings.TrimSpace(r.URL.Query().Get("postal_code"))

		quote, err := svc.QuoteDeliveryFee(r.Context(), merchantID, postal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{
			"delivery_fee_cents": quote.FeeCents,
			"eta_minutes":        quote.ETAMinutes,
		})
	}
}

type completeSessionRequest struct {
	CustomerName    string          `json:"customer_name" validate:"required,max=200"`
	CustomerPhone   string          `json:"customer_phone" validate:"required,max=32"`
	CustomerEmail   string          `json:"customer_email" validate:"omitempty,email"`
	DeliveryAddress *addressRequest `json:"delivery_address" validate:"omitempty"`
	Notes           *string         `json:"notes" validate:"omitempty,max=1000"`
}

type addressRequest struct {
	Line1      string  `json:"line1" validate:"required,max=200"`
	Line2      *string `json:"line2" validate:"omitempty,max=200"`
	UnitNumber *string `json:"unit_number" validate:"omitempty,max=20"`
	PostalCode string  `json:"postal_code" validate:"required,len=6"`
	Notes      *string `json:"notes" validate:"omitempty,max=500"`
}

// CompleteSession converts a pending session into a durable order.
func CompleteSession(factory orders.Factory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if factory == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order factory unavailable"))
			return
		}

		token := strings.TrimSpace(chi.URLParam(r, "token"))
		if token == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session token required"))
			return
		}

		var req completeSessionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := orders.CompleteInput{
			Contact: orders.ContactInfo{
				Name:  strings.TrimSpace(req.CustomerName),
				Phone: strings.TrimSpace(req.CustomerPhone),
				Email: strings.TrimSpace(req.CustomerEmail),
			},
			Notes: req.Notes,
		}
		if req.DeliveryAddress != nil {
			input.DeliveryAddress = &types.Address{
				Line1:      req.DeliveryAddress.Line1,
				Line2:      req.DeliveryAddress.Line2,
				UnitNumber: req.DeliveryAddress.UnitNumber,
				PostalCode: req.DeliveryAddress.PostalCode,
				Notes:      req.DeliveryAddress.Notes,
			}
		}

		result, err := factory.Complete(r.Context(), token, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"order_id":           result.OrderID,
			"order_number":       result.OrderNumber,
			"total_cents":        result.TotalCents,
			"estimated_ready_at": result.EstimatedReadyAt,
		})
	}
}
