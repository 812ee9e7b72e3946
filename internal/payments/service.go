package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mdnaeem95/hbbtool-sub002/internal/notifications"
	"github.com/mdnaeem95/hbbtool-sub002/internal/orders"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/db/models"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/enums"
	pkgerrors "github.com/mdnaeem95/hbbtool-sub002/pkg/errors"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// allowedProofMimeTypes is the closed set of accepted proof uploads.
var allowedProofMimeTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// ProofInput describes an already-stored proof file. Upload to object
// storage happens upstream; this layer only records and validates metadata.
type ProofInput struct {
	FileURL       string
	FileName      string
	FileSizeBytes int64
	MimeType      string
	UploadedBy    *uuid.UUID
}

// VerifyInput is the merchant's verification decision.
type VerifyInput struct {
	Approve    bool
	Reason     *string
	VerifiedBy uuid.UUID
}

// Service runs the manual payment verification workflow.
type Service interface {
	UploadProof(ctx context.Context, orderID uuid.UUID, input ProofInput) (*models.PaymentProof, error)
	Verify(ctx context.Context, paymentID, merchantID uuid.UUID, input VerifyInput) (*models.Payment, error)
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
}

type service struct {
	tx           txRunner
	repo         Repository
	ordersRepo   orders.Repository
	sink         notifications.Sink
	metrics      *metrics.CheckoutMetrics
	maxProofs    int
	maxSizeBytes int64
	nowFn        func() time.Time
}

// NewService builds the payments service.
func NewService(
	tx txRunner,
	repo Repository,
	ordersRepo orders.Repository,
	sink notifications.Sink,
	checkoutMetrics *metrics.CheckoutMetrics,
	maxProofs int,
	maxSizeBytes int64,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if sink == nil {
		return nil, fmt.Errorf("notification sink required")
	}
	if maxProofs <= 0 {
		return nil, fmt.Errorf("max proofs must be positive")
	}
	if maxSizeBytes <= 0 {
		return nil, fmt.Errorf("max proof size must be positive")
	}
	return &service{
		tx:           tx,
		repo:         repo,
		ordersRepo:   ordersRepo,
		sink:         sink,
		metrics:      checkoutMetrics,
		maxProofs:    maxProofs,
		maxSizeBytes: maxSizeBytes,
		nowFn:        time.Now,
	}, nil
}

func (s *service) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	return s.repo.FindByOrderID(ctx, orderID)
}

// UploadProof records one proof-of-payment artifact. The first proof moves
// the payment to PROCESSING and becomes the primary proof. Proofs are
// append-only and capped; a verified payment accepts no further proofs.
func (s *service) UploadProof(ctx context.Context, orderID uuid.UUID, input ProofInput) (*models.PaymentProof, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.FileURL == "" || input.FileName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "proof file url and name required")
	}
	if input.FileSizeBytes <= 0 || input.FileSizeBytes > s.maxSizeBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("proof file size must be between 1 and %d bytes", s.maxSizeBytes))
	}
	if !allowedProofMimeTypes[input.MimeType] {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			"proof must be a JPEG, PNG, WebP or PDF file")
	}

	var proof *models.PaymentProof
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)

		var err error
		order, err = ordersRepo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		payment, err := repo.FindByOrderID(ctx, orderID)
		if err != nil {
			return err
		}
		if payment.Status == enums.PaymentStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeConflict, "payment already verified")
		}
		count, err := repo.CountProofs(ctx, payment.ID)
		if err != nil {
			return err
		}
		if count >= int64(s.maxProofs) {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("Maximum number of payment proofs (%d) already uploaded.", s.maxProofs))
		}

		proof = &models.PaymentProof{
			ID:            uuid.New(),
			PaymentID:     payment.ID,
			FileURL:       input.FileURL,
			FileName:      input.FileName,
			FileSizeBytes: input.FileSizeBytes,
			MimeType:      input.MimeType,
			UploadedBy:    input.UploadedBy,
		}
		if err := repo.CreateProof(ctx, proof); err != nil {
			return err
		}

		if payment.Status == enums.PaymentStatusPending {
			// A racing first upload keeps its primary proof; zero rows here
			// just means someone beat us to PROCESSING.
			rows, err := repo.UpdateFromStatus(ctx, payment.ID, enums.PaymentStatusPending, map[string]any{
				"status":           enums.PaymentStatusProcessing,
				"primary_proof_id": proof.ID,
			})
			if err != nil {
				return err
			}
			if rows > 0 {
				err = tx.WithContext(ctx).
					Model(&models.Order{}).
					Where("id = ?", order.ID).
					Update("payment_status", enums.PaymentStatusProcessing).Error
				if err != nil {
					return err
				}
			}
		}

		return ordersRepo.CreateEvent(ctx, &models.OrderEvent{
			ID:      uuid.New(),
			OrderID: order.ID,
			Event:   "payment_proof_uploaded",
			Actor:   enums.ActorRoleCustomer.String(),
			Payload: map[string]any{
				"proof_id":  proof.ID.String(),
				"file_name": proof.FileName,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.sink.Publish(ctx, notifications.Event{
		Type:       notifications.EventPaymentProofUploaded,
		MerchantID: order.MerchantID,
		OrderID:    order.ID,
		Payload:    map[string]any{"proof_id": proof.ID.String()},
	})
	return proof, nil
}

// Verify applies the merchant's decision. Approval completes the payment and
// confirms the order in the same transaction; rejection fails the payment
// and leaves the order where it stands so the customer can retry.
func (s *service) Verify(ctx context.Context, paymentID, merchantID uuid.UUID, input VerifyInput) (*models.Payment, error) {
	if paymentID == uuid.Nil || merchantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id and merchant id required")
	}
	if input.VerifiedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "verifier id required")
	}

	now := s.nowFn().UTC()
	var payment *models.Payment
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)

		var err error
		payment, err = repo.FindByID(ctx, paymentID)
		if err != nil {
			return err
		}
		// Ownership check routes through the order; a payment on a foreign
		// merchant's order reads as absent.
		order, err = ordersRepo.FindByIDForMerchant(ctx, payment.OrderID, merchantID)
		if err != nil {
			return err
		}
		if payment.Status == enums.PaymentStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeConflict, "payment already verified")
		}
		if order.Status == enums.OrderStatusCancelled || order.Status == enums.OrderStatusRefunded {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot verify payment for a %s order", order.Status))
		}

		if input.Approve {
			rows, err := repo.UpdateFromStatus(ctx, payment.ID, payment.Status, map[string]any{
				"status":      enums.PaymentStatusCompleted,
				"verified_by": input.VerifiedBy,
				"verified_at": now,
			})
			if err != nil {
				return err
			}
			if rows == 0 {
				return pkgerrors.New(pkgerrors.CodeConflict, "payment already verified")
			}
			payment.Status = enums.PaymentStatusCompleted
			payment.VerifiedBy = &input.VerifiedBy
			payment.VerifiedAt = &now

			err = tx.WithContext(ctx).
				Model(&models.Order{}).
				Where("id = ?", order.ID).
				Update("payment_status", enums.PaymentStatusCompleted).Error
			if err != nil {
				return err
			}
			order.PaymentStatus = enums.PaymentStatusCompleted

			// Payment confirmation is the event that grants CONFIRMED. An
			// order the merchant already moved forward keeps its status.
			if order.Status == enums.OrderStatusPending {
				if err := orders.ApplyTransition(ctx, tx, order, orders.TransitionInput{
					Target: enums.OrderStatusConfirmed,
					Actor:  enums.ActorRoleMerchant,
				}, now); err != nil {
					return err
				}
			}

			return ordersRepo.CreateEvent(ctx, &models.OrderEvent{
				ID:      uuid.New(),
				OrderID: order.ID,
				Event:   "payment_verified",
				Actor:   enums.ActorRoleMerchant.String(),
				Payload: map[string]any{"payment_id": payment.ID.String()},
			})
		}

		rows, err := repo.UpdateFromStatus(ctx, payment.ID, payment.Status, map[string]any{
			"status": enums.PaymentStatusFailed,
			"notes":  input.Reason,
		})
		if err != nil {
			return err
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "payment already verified")
		}
		payment.Status = enums.PaymentStatusFailed
		payment.Notes = input.Reason

		err = tx.WithContext(ctx).
			Model(&models.Order{}).
			Where("id = ?", order.ID).
			Update("payment_status", enums.PaymentStatusFailed).Error
		if err != nil {
			return err
		}
		order.PaymentStatus = enums.PaymentStatusFailed

		payload := map[string]any{"payment_id": payment.ID.String()}
		if input.Reason != nil {
			payload["reason"] = *input.Reason
		}
		return ordersRepo.CreateEvent(ctx, &models.OrderEvent{
			ID:      uuid.New(),
			OrderID: order.ID,
			Event:   "payment_rejected",
			Actor:   enums.ActorRoleMerchant.String(),
			Payload: payload,
		})
	})
	if err != nil {
		return nil, err
	}

	if input.Approve {
		s.metrics.IncPaymentVerified("approved")
		s.sink.Publish(ctx, notifications.Event{
			Type:       notifications.EventPaymentVerified,
			MerchantID: order.MerchantID,
			OrderID:    order.ID,
			Payload:    map[string]any{"payment_id": payment.ID.String()},
		})
	} else {
		s.metrics.IncPaymentVerified("rejected")
		s.sink.Publish(ctx, notifications.Event{
			Type:       notifications.EventPaymentRejected,
			MerchantID: order.MerchantID,
			OrderID:    order.ID,
			Payload:    map[string]any{"payment_id": payment.ID.String()},
		})
	}
	return payment, nil
}
