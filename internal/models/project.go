package models

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// Project groups tasks for one owner. DeletedAt is managed explicitly by the
// lifecycle engine rather than through gorm.DeletedAt, so that recycle-bin
// queries see deleted rows without Unscoped.
type Project struct {
	ID         uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	Title      string     `json:"title" gorm:"not null"`
	UserID     uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	CategoryID *uuid.UUID `json:"category_id" gorm:"type:uuid;index"`
	IsArchived bool       `json:"is_archived" gorm:"not null;default:false"`
	DeletedAt  *time.Time `json:"deleted_at" gorm:"index"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	Category *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL"`
	Tasks    []Task    `json:"tasks" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	return ensureID(&p.ID)
}

// State reports where the project sits in the lifecycle.
func (p *Project) State() State {
	return stateOf(p.DeletedAt, p.IsArchived)
}
