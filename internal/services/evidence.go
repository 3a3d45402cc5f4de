package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/estivenmendezr98/TAREAS/internal/logger"
	"github.com/estivenmendezr98/TAREAS/internal/models"
	"github.com/estivenmendezr98/TAREAS/internal/repositories"
	"github.com/estivenmendezr98/TAREAS/internal/storage"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

var ErrNoFiles = errors.New("no files uploaded")

// FileStore is the part of storage.DiskStore evidence needs.
type FileStore interface {
	Save(ctx context.Context, originalName string, r io.Reader) (*storage.StoredFile, error)
	Remove(rel string) error
}

// Upload is one incoming file.
type Upload struct {
	Name string
	Open func() (io.ReadCloser, error)
}

type EvidenceService interface {
	UploadEvidence(ctx context.Context, db *gorm.DB, owner, taskID uuid.UUID, uploads []Upload) ([]models.Evidence, error)
	DeleteEvidence(db *gorm.DB, owner, id uuid.UUID) error
}

type EvidenceServiceImpl struct {
	tasks    repositories.TaskRepository
	evidence repositories.EvidenceRepository
	store    FileStore
	log      *logger.Logger
}

func NewEvidenceService(store FileStore, log *logger.Logger) *EvidenceServiceImpl {
	if log == nil {
		log = logger.Default()
	}
	return &EvidenceServiceImpl{
		tasks:    repositories.NewTaskRepository(),
		evidence: repositories.NewEvidenceRepository(),
		store:    store,
		log:      log,
	}
}

// UploadEvidence stores every file and records them in one transaction. If
// anything fails, files already written are removed again.
func (s *EvidenceServiceImpl) UploadEvidence(ctx context.Context, db *gorm.DB, owner, taskID uuid.UUID, uploads []Upload) ([]models.Evidence, error) {
	if len(uploads) == 0 {
		return nil, ErrNoFiles
	}
	if _, err := s.tasks.FindOwned(db, owner, taskID); err != nil {
		return nil, err
	}

	saved := make([]*storage.StoredFile, 0, len(uploads))
	cleanup := func() {
		for _, f := range saved {
			if err := s.store.Remove(f.Path); err != nil {
				s.log.Warn("failed to remove rejected upload", logger.F("path", f.Path), logger.Err(err))
			}
		}
	}

	for _, upload := range uploads {
		stored, err := s.save(ctx, upload)
		if err != nil {
			cleanup()
			return nil, err
		}
		saved = append(saved, stored)
	}

	records := make([]models.Evidence, 0, len(saved))
	err := db.Transaction(func(tx *gorm.DB) error {
		for _, f := range saved {
			record := models.Evidence{TaskID: taskID, FilePath: f.Path, MimeType: f.MimeType}
			if err := s.evidence.Create(tx, &record); err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		cleanup()
		return nil, err
	}
	return records, nil
}

func (s *EvidenceServiceImpl) save(ctx context.Context, upload Upload) (*storage.StoredFile, error) {
	f, err := upload.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %q: %w", upload.Name, err)
	}
	defer f.Close()
	return s.store.Save(ctx, upload.Name, f)
}

// DeleteEvidence removes the row, then the file. A leftover file is logged,
// not reported.
func (s *EvidenceServiceImpl) DeleteEvidence(db *gorm.DB, owner, id uuid.UUID) error {
	record, err := s.evidence.FindOwned(db, owner, id)
	if err != nil {
		return err
	}
	if err := s.evidence.Delete(db, record.ID); err != nil {
		return err
	}
	if err := s.store.Remove(record.FilePath); err != nil {
		s.log.Warn("failed to remove evidence file", logger.F("path", record.FilePath), logger.Err(err))
	}
	return nil
}
