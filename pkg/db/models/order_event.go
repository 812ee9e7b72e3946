package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mdnaeem95/hbbtool-sub002/pkg/types"
)

// OrderEvent records a lifecycle fact about an order. Rows are append-only.
type OrderEvent struct {
	ID        uuid.UUID     `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID     `gorm:"column:order_id;type:uuid;not null;index"`
	Event     string        `gorm:"column:event;not null"`
	Actor     string        `gorm:"column:actor;not null"`
	Payload   types.JSONMap `gorm:"column:payload;type:jsonb"`
	CreatedAt time.Time     `gorm:"column:created_at;autoCreateTime"`
}
