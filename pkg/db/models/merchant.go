package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Merchant is the seller profile this engine reads. Profile management lives
// in a separate service; here the row is read-mostly.
type Merchant struct {
	ID                 uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Name               string         `gorm:"column:name;not null"`
	Slug               string         `gorm:"column:slug;uniqueIndex;not null"`
	IsActive           bool           `gorm:"column:is_active;not null"`
	DeliveryEnabled    bool           `gorm:"column:delivery_enabled;not null"`
	PickupEnabled      bool           `gorm:"column:pickup_enabled;not null"`
	DeliveryFeeCents   int            `gorm:"column:delivery_fee_cents;not null;default:0"`
	MinimumOrderCents  int            `gorm:"column:minimum_order_cents;not null;default:0"`
	PreparationMinutes int            `gorm:"column:preparation_minutes;not null;default:60"`
	PostalCode         string         `gorm:"column:postal_code;not null;default:''"`
	PayNowName         string         `gorm:"column:paynow_name;not null;default:''"`
	PayNowNumber       string         `gorm:"column:paynow_number;not null;default:''"`
	CreatedAt          time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt          gorm.DeletedAt `gorm:"column:deleted_at;index"`
}
