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
	"github.com/mdnaeem95/hbbtool-sub002/internal/payments"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/db/models"
	pkgerrors "github.com/mdnaeem95/hbbtool-sub002/pkg/errors"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/logger"
)

type uploadProofRequest struct {
	FileURL       string `json:"file_url" validate:"required,url,max=2000"`
	FileName      string `json:"file_name" validate:"required,max=255"`
	FileSizeBytes int64  `json:"file_size_bytes" validate:"required,min=1"`
	MimeType      string `json:"mime_type" validate:"required,max=100"`
}

type proofResponse struct {
	ID            uuid.UUID `json:"id"`
	PaymentID     uuid.UUID `json:"payment_id"`
	FileURL       string    `json:"file_url"`
	FileName      string    `json:"file_name"`
	FileSizeBytes int64     `json:"file_size_bytes"`
	MimeType      string    `json:"mime_type"`
	CreatedAt     time.Time `json:"created_at"`
	Message       string    `json:"message"`
}

// UploadPaymentProof records a proof-of-payment artifact for an order.
func UploadPaymentProof(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		orderID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "orderId")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}

		var req uploadProofRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := payments.ProofInput{
			FileURL:       req.FileURL,
			FileName:      req.FileName,
			FileSizeBytes: req.FileSizeBytes,
			MimeType:      req.MimeType,
		}
		if customerID := middleware.CustomerIDFromContext(r.Context()); customerID != uuid.Nil {
			input.UploadedBy = &customerID
		}

		proof, err := svc.UploadProof(r.Context(), orderID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, proofResponse{
			ID:            proof.ID,
			PaymentID:     proof.PaymentID,
			FileURL:       proof.FileURL,
			FileName:      proof.FileName,
			FileSizeBytes: proof.FileSizeBytes,
			MimeType:      proof.MimeType,
			CreatedAt:     proof.CreatedAt,
			Message:       "Payment proof uploaded. The merchant will verify your payment shortly.",
		})
	}
}

type verifyPaymentRequest struct {
	Verified bool    `json:"verified"`
	Notes    *string `json:"notes" validate:"omitempty,max=500"`
}

type paymentResponse struct {
	ID               uuid.UUID  `json:"id"`
	OrderID          uuid.UUID  `json:"order_id"`
	AmountCents      int        `json:"amount_cents"`
	Status           string     `json:"status"`
	PaymentReference string     `json:"payment_reference"`
	VerifiedAt       *time.Time `json:"verified_at,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
	Message          string     `json:"message"`
}

func newPaymentResponse(payment *models.Payment, message string) paymentResponse {
	return paymentResponse{
		ID:               payment.ID,
		OrderID:          payment.OrderID,
		AmountCents:      payment.AmountCents,
		Status:           payment.Status.String(),
		PaymentReference: payment.PaymentReference,
		VerifiedAt:       payment.VerifiedAt,
		Notes:            payment.Notes,
		Message:          message,
	}
}

// VerifyPayment applies the merchant's accept/reject decision.
func VerifyPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		merchantID := middleware.MerchantIDFromContext(r.Context())
		if merchantID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "merchant scope required"))
			return
		}
		paymentID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "paymentId")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment id"))
			return
		}

		var req verifyPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.Verify(r.Context(), paymentID, merchantID, payments.VerifyInput{
			Approve:    req.Verified,
			Reason:     req.Notes,
			VerifiedBy: merchantID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		message := "Payment verified and order confirmed."
		if !req.Verified {
			message = "Payment rejected. The customer can upload a new proof."
		}
		responses.WriteSuccess(w, newPaymentResponse(payment, message))
	}
}
