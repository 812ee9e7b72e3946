package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentProof is a customer-submitted payment artifact. Append-only, capped
// per payment by the verification workflow.
type PaymentProof struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	PaymentID     uuid.UUID `gorm:"column:payment_id;type:uuid;not null;index"`
	FileURL       string    `gorm:"column:file_url;not null"`
	FileName      string    `gorm:"column:file_name;not null"`
	FileSizeBytes int64     `gorm:"column:file_size_bytes;not null"`
	MimeType      string    `gorm:"column:mime_type;not null"`
	UploadedBy    *uuid.UUID `gorm:"column:uploaded_by;type:uuid"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}
