package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mdnaeem95/hbbtool-sub002/pkg/enums"
)

// Payment tracks the manual payment attached 1:1 to an order.
type Payment struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID          uuid.UUID           `gorm:"column:order_id;type:uuid;uniqueIndex;not null"`
	AmountCents      int                 `gorm:"column:amount_cents;not null"`
	Status           enums.PaymentStatus `gorm:"column:status;not null;default:'PENDING'"`
	PaymentReference string              `gorm:"column:payment_reference;not null"`
	PrimaryProofID   *uuid.UUID          `gorm:"column:primary_proof_id;type:uuid"`
	VerifiedBy       *uuid.UUID          `gorm:"column:verified_by;type:uuid"`
	VerifiedAt       *time.Time          `gorm:"column:verified_at"`
	Notes            *string             `gorm:"column:notes"`
	Proofs           []PaymentProof      `gorm:"foreignKey:PaymentID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
