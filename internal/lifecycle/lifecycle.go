package lifecycle

import (
	"errors"
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// Lifecycle is implemented once per entity type. Every method runs inside a
// transaction opened by the Engine and verifies ownership before writing.
type Lifecycle interface {
	SoftDelete(tx *gorm.DB, owner, id uuid.UUID, now time.Time) error
	Restore(tx *gorm.DB, owner, id uuid.UUID) error
	SetArchived(tx *gorm.DB, owner, id uuid.UUID, archived bool) error
	PermanentDelete(tx *gorm.DB, owner, id uuid.UUID) (*Purged, error)

	// ExpiredIDs lists items deleted before cutoff, oldest first.
	ExpiredIDs(tx *gorm.DB, cutoff time.Time, limit int) ([]uuid.UUID, error)
	// PurgeExpired removes id only if it is still deleted before cutoff.
	// It returns nil when the item was restored or removed meanwhile.
	PurgeExpired(tx *gorm.DB, id uuid.UUID, cutoff time.Time) (*Purged, error)
}

// claimExpired locks a still-expired row for the rest of the transaction.
// A row restored or purged since it was listed matches nothing.
func claimExpired(tx *gorm.DB, model interface{}, id uuid.UUID, cutoff time.Time) (bool, error) {
	result := tx.Model(model).
		Where("id = ? AND deleted_at IS NOT NULL AND deleted_at < ?", id, cutoff).
		UpdateColumn("deleted_at", gorm.Expr("deleted_at"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
