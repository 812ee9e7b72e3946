package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mdnaeem95/hbbtool-sub002/pkg/enums"
	"github.com/mdnaeem95/hbbtool-sub002/pkg/types"
)

// Order is the durable record produced from exactly one checkout session.
// After creation it is mutated only by the status state machine and the
// payment verification workflow; it is never deleted.
type Order struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber      string               `gorm:"column:order_number;uniqueIndex;not null"`
	MerchantID       uuid.UUID            `gorm:"column:merchant_id;type:uuid;not null;index"`
	CustomerName     string               `gorm:"column:customer_name;not null"`
	CustomerPhone    string               `gorm:"column:customer_phone;not null;default:''"`
	CustomerEmail    string               `gorm:"column:customer_email;not null;default:''"`
	DeliveryMethod   enums.DeliveryMethod `gorm:"column:delivery_method;not null"`
	DeliveryAddress  *types.Address       `gorm:"column:delivery_address;type:jsonb;serializer:json"`
	SubtotalCents    int                  `gorm:"column:subtotal_cents;not null"`
	DeliveryFeeCents int                  `gorm:"column:delivery_fee_cents;not null;default:0"`
	DiscountCents    int                  `gorm:"column:discount_cents;not null;default:0"`
	TaxCents         int                  `gorm:"column:tax_cents;not null;default:0"`
	TotalCents       int                  `gorm:"column:total_cents;not null"`
	Status           enums.OrderStatus    `gorm:"column:status;not null;default:'PENDING'"`
	PaymentStatus    enums.PaymentStatus  `gorm:"column:payment_status;not null;default:'PENDING'"`
	Notes            *string              `gorm:"column:notes"`
	Metadata         types.JSONMap        `gorm:"column:metadata;type:jsonb"`
	EstimatedReadyAt *time.Time           `gorm:"column:estimated_ready_at"`
	ConfirmedAt      *time.Time           `gorm:"column:confirmed_at"`
	PreparedAt       *time.Time           `gorm:"column:prepared_at"`
	ReadyAt          *time.Time           `gorm:"column:ready_at"`
	DeliveredAt      *time.Time           `gorm:"column:delivered_at"`
	CancelledAt      *time.Time           `gorm:"column:cancelled_at"`
	CompletedAt      *time.Time           `gorm:"column:completed_at"`
	Items            []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payment          *Payment             `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
