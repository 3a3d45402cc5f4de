package models

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// Evidence is a file attached to a task. FilePath is relative to the upload root.
type Evidence struct {
	ID         uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	TaskID     uuid.UUID `json:"task_id" gorm:"type:uuid;not null;index"`
	FilePath   string    `json:"file_path" gorm:"not null"`
	MimeType   string    `json:"mime_type"`
	UploadedAt time.Time `json:"uploaded_at" gorm:"autoCreateTime"`
}

func (Evidence) TableName() string {
	return "task_evidence"
}

func (e *Evidence) BeforeCreate(tx *gorm.DB) error {
	return ensureID(&e.ID)
}
