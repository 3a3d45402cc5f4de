package repositories

import (
	"time"

	"github.com/estivenmendezr98/TAREAS/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type PurgeLogRepository interface {
	Record(db *gorm.DB, entry *models.PurgeLog) error
	ListForUser(db *gorm.DB, owner uuid.UUID, since time.Time) ([]models.PurgeLog, error)
}

type PurgeLogRepositoryImpl struct{}

func NewPurgeLogRepository() *PurgeLogRepositoryImpl {
	return &PurgeLogRepositoryImpl{}
}

func (r *PurgeLogRepositoryImpl) Record(db *gorm.DB, entry *models.PurgeLog) error {
	return db.Create(entry).Error
}

func (r *PurgeLogRepositoryImpl) ListForUser(db *gorm.DB, owner uuid.UUID, since time.Time) ([]models.PurgeLog, error) {
	entries := []models.PurgeLog{}
	err := db.Where("user_id = ? AND purged_at >= ?", owner, since).
		Order("purged_at DESC").
		Find(&entries).Error
	return entries, err
}
