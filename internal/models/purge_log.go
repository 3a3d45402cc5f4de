package models

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// PurgeReason records why an item left the recycle bin for good.
const (
	PurgeReasonManual  = "manual"
	PurgeReasonExpired = "expired"
)

// PurgeLog is written once per project or task that is permanently removed.
type PurgeLog struct {
	ID            uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	ItemID        uuid.UUID `json:"item_id" gorm:"type:uuid;not null;index"`
	ItemType      string    `json:"item_type" gorm:"not null"`
	UserID        uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	Reason        string    `json:"reason" gorm:"not null"`
	EvidenceFiles int       `json:"evidence_files"`
	PurgedAt      time.Time `json:"purged_at" gorm:"not null;index"`
}

func (PurgeLog) TableName() string {
	return "deleted_items"
}

func (p *PurgeLog) BeforeCreate(tx *gorm.DB) error {
	return ensureID(&p.ID)
}
