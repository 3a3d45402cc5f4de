package models

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type Task struct {
	ID            uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	ProjectID     uuid.UUID  `json:"project_id" gorm:"type:uuid;not null;index"`
	Description   string     `json:"description" gorm:"not null"`
	TargetDate    *Date      `json:"target_date" gorm:"type:date"`
	StartDate     *Date      `json:"start_date" gorm:"type:date"`
	Completed     bool       `json:"completed" gorm:"not null;default:false"`
	IsArchived    bool       `json:"is_archived" gorm:"not null;default:false"`
	ReportContent *string    `json:"report_content"`
	DeletedAt     *time.Time `json:"deleted_at" gorm:"index"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Evidence []Evidence `json:"evidence" gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	return ensureID(&t.ID)
}

func (t *Task) State() State {
	return stateOf(t.DeletedAt, t.IsArchived)
}

// IsOverdue reports whether an open task has passed its target date.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.Completed || t.TargetDate == nil {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return t.TargetDate.Time().Before(today)
}
