package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mdnaeem95/hbbtool-sub002/pkg/enums"
)

// SessionItem is one line of the price-locked cart snapshot. Unit price is
// frozen at session creation and never re-read from the product row.
type SessionItem struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	UnitPriceCents int       `json:"unit_price_cents"`
	Qty            int       `json:"qty"`
	Notes          *string   `json:"notes,omitempty"`
}

// CheckoutSession is the time-boxed, price-locked cart snapshot. The token is
// the primary key and the only handle callers hold.
type CheckoutSession struct {
	Token            string               `gorm:"column:token;primaryKey"`
	MerchantID       uuid.UUID            `gorm:"column:merchant_id;type:uuid;not null;index"`
	DeliveryMethod   enums.DeliveryMethod `gorm:"column:delivery_method;not null"`
	PostalCode       *string              `gorm:"column:postal_code"`
	Items            []SessionItem        `gorm:"column:items;type:jsonb;serializer:json"`
	SubtotalCents    int                  `gorm:"column:subtotal_cents;not null"`
	DeliveryFeeCents int                  `gorm:"column:delivery_fee_cents;not null;default:0"`
	TotalCents       int                  `gorm:"column:total_cents;not null"`
	PaymentReference string               `gorm:"column:payment_reference;not null"`
	Status           enums.SessionStatus  `gorm:"column:status;not null;default:'pending'"`
	OrderID          *uuid.UUID           `gorm:"column:order_id;type:uuid"`
	ExpiresAt        time.Time            `gorm:"column:expires_at;not null"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// Expired reports whether the session TTL has elapsed at the given instant.
func (s CheckoutSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
