package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is the merchant listing. The only write this engine performs is the
// conditional inventory decrement/release.
type Product struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	MerchantID     uuid.UUID      `gorm:"column:merchant_id;type:uuid;not null;index"`
	Name           string         `gorm:"column:name;not null"`
	PriceCents     int            `gorm:"column:price_cents;not null"`
	IsActive       bool           `gorm:"column:is_active;not null"`
	TrackInventory bool           `gorm:"column:track_inventory;not null"`
	InventoryCount int            `gorm:"column:inventory_count;not null;default:0"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt      gorm.DeletedAt `gorm:"column:deleted_at;index"`
}
