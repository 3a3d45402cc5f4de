package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/estivenmendezr98/TAREAS/internal/logger"
	"github.com/estivenmendezr98/TAREAS/internal/models"
	"github.com/estivenmendezr98/TAREAS/internal/repositories"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// FileRemover deletes stored evidence files once their rows are gone.
type FileRemover interface {
	RemoveFiles(ctx context.Context, paths []string) error
}

// RecycleBin is the owner's view of soft-deleted items.
type RecycleBin struct {
	Projects []models.Project           `json:"projects"`
	Tasks    []repositories.DeletedTask `json:"tasks"`
}

// PurgeStats summarizes one PurgeExpired pass.
type PurgeStats struct {
	Type    EntityType
	Purged  int
	Skipped int
	Tasks   int
	Files   int
}

const defaultPurgeBatch = 500

type Engine struct {
	db        *gorm.DB
	handlers  map[EntityType]Lifecycle
	projects  repositories.ProjectRepository
	tasks     repositories.TaskRepository
	purgeLogs repositories.PurgeLogRepository
	files     FileRemover
	now       func() time.Time
	batch     int
	log       *logger.Logger
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithFileRemover(r FileRemover) Option {
	return func(e *Engine) { e.files = r }
}

func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithPurgeBatch sets how many expired items are fetched per query.
func WithPurgeBatch(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batch = n
		}
	}
}

func NewEngine(db *gorm.DB, opts ...Option) *Engine {
	projects := repositories.NewProjectRepository()
	tasks := repositories.NewTaskRepository()
	evidence := repositories.NewEvidenceRepository()

	e := &Engine{
		db: db,
		handlers: map[EntityType]Lifecycle{
			TypeProject: &projectLifecycle{projects: projects, evidence: evidence},
			TypeTask:    &taskLifecycle{tasks: tasks, evidence: evidence},
		},
		projects:  projects,
		tasks:     tasks,
		purgeLogs: repositories.NewPurgeLogRepository(),
		now:       func() time.Time { return time.Now() },
		batch:     defaultPurgeBatch,
		log:       logger.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) handler(t EntityType) (Lifecycle, error) {
	h, ok := e.handlers[t]
	if !ok {
		return nil, ErrInvalidType
	}
	return h, nil
}

func (e *Engine) clock() time.Time {
	return e.now().UTC()
}

// SoftDelete moves an owned item to the recycle bin. Deleting an item that is
// already there refreshes its timestamp.
func (e *Engine) SoftDelete(ctx context.Context, t EntityType, owner, id uuid.UUID) error {
	h, err := e.handler(t)
	if err != nil {
		return err
	}
	now := e.clock()
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return h.SoftDelete(tx, owner, id, now)
	})
}

// Restore returns an owned item to the active state.
func (e *Engine) Restore(ctx context.Context, t EntityType, owner, id uuid.UUID) error {
	h, err := e.handler(t)
	if err != nil {
		return err
	}
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return h.Restore(tx, owner, id)
	})
}

func (e *Engine) SetArchived(ctx context.Context, t EntityType, owner, id uuid.UUID, archived bool) error {
	h, err := e.handler(t)
	if err != nil {
		return err
	}
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return h.SetArchived(tx, owner, id, archived)
	})
}

// SetArchivedTx is SetArchived inside a transaction the caller already holds,
// so the flag commits or rolls back together with the caller's other writes.
func (e *Engine) SetArchivedTx(tx *gorm.DB, t EntityType, owner, id uuid.UUID, archived bool) error {
	h, err := e.handler(t)
	if err != nil {
		return err
	}
	return h.SetArchived(tx, owner, id, archived)
}

// PermanentDelete removes an owned item in any state together with its
// children. Evidence files are removed after the rows are committed.
func (e *Engine) PermanentDelete(ctx context.Context, t EntityType, owner, id uuid.UUID) error {
	h, err := e.handler(t)
	if err != nil {
		return err
	}

	var purged *Purged
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := h.PermanentDelete(tx, owner, id)
		if err != nil {
			return err
		}
		purged = p
		return e.record(tx, p, models.PurgeReasonManual)
	})
	if err != nil {
		return err
	}

	e.log.Info("item permanently deleted",
		logger.F("type", t),
		logger.F("id", id),
		logger.F("tasks", purged.Tasks),
		logger.F("files", len(purged.Files)),
	)
	e.removeFiles(ctx, purged.Files)
	return nil
}

// RecycleBin lists the owner's deleted projects and tasks, newest first.
func (e *Engine) RecycleBin(ctx context.Context, owner uuid.UUID) (*RecycleBin, error) {
	db := e.db.WithContext(ctx)
	projects, err := e.projects.ListDeleted(db, owner)
	if err != nil {
		return nil, fmt.Errorf("list deleted projects: %w", err)
	}
	tasks, err := e.tasks.ListDeleted(db, owner)
	if err != nil {
		return nil, fmt.Errorf("list deleted tasks: %w", err)
	}
	return &RecycleBin{Projects: projects, Tasks: tasks}, nil
}

// PurgeHistory lists the owner's permanently removed items from the last
// window, newest first.
func (e *Engine) PurgeHistory(ctx context.Context, owner uuid.UUID, window time.Duration) ([]models.PurgeLog, error) {
	entries, err := e.purgeLogs.ListForUser(e.db.WithContext(ctx), owner, e.clock().Add(-window))
	if err != nil {
		return nil, fmt.Errorf("list purge history: %w", err)
	}
	return entries, nil
}

// PurgeExpired permanently removes every item of type t deleted before
// cutoff, fetching candidates in batches until none are left. Each item is
// claimed and removed in its own transaction, so an item restored while the
// pass runs is skipped and one failure does not stop the rest. A failed item
// is not retried within the pass. The returned error joins every per-item
// failure.
func (e *Engine) PurgeExpired(ctx context.Context, t EntityType, cutoff time.Time) (PurgeStats, error) {
	stats := PurgeStats{Type: t}
	h, err := e.handler(t)
	if err != nil {
		return stats, err
	}

	cutoff = cutoff.UTC()
	db := e.db.WithContext(ctx)
	failed := make(map[uuid.UUID]bool)
	var errs []error

	for {
		// Failed rows stay expired, so widen the window past them.
		ids, err := h.ExpiredIDs(db, cutoff, e.batch+len(failed))
		if err != nil {
			errs = append(errs, fmt.Errorf("list expired %s items: %w", t, err))
			break
		}

		fresh := 0
		for _, id := range ids {
			if ctx.Err() != nil {
				return stats, errors.Join(append(errs, ctx.Err())...)
			}
			if failed[id] {
				continue
			}
			fresh++

			var purged *Purged
			err := db.Transaction(func(tx *gorm.DB) error {
				p, err := h.PurgeExpired(tx, id, cutoff)
				if err != nil || p == nil {
					return err
				}
				purged = p
				return e.record(tx, p, models.PurgeReasonExpired)
			})
			if err != nil {
				failed[id] = true
				errs = append(errs, fmt.Errorf("purge %s %s: %w", t, id, err))
				continue
			}
			if purged == nil {
				stats.Skipped++
				continue
			}

			stats.Purged++
			stats.Tasks += purged.Tasks
			stats.Files += len(purged.Files)
			e.removeFiles(ctx, purged.Files)
		}

		if fresh < e.batch {
			break
		}
	}

	return stats, errors.Join(errs...)
}

func (e *Engine) record(tx *gorm.DB, p *Purged, reason string) error {
	return e.purgeLogs.Record(tx, &models.PurgeLog{
		ItemID:        p.ID,
		ItemType:      p.Type.String(),
		UserID:        p.Owner,
		Reason:        reason,
		EvidenceFiles: len(p.Files),
		PurgedAt:      e.clock(),
	})
}

// removeFiles never fails the caller: the rows are already gone.
func (e *Engine) removeFiles(ctx context.Context, paths []string) {
	if len(paths) == 0 || e.files == nil {
		return
	}
	if err := e.files.RemoveFiles(context.WithoutCancel(ctx), paths); err != nil {
		e.log.Warn("evidence file cleanup failed", logger.Err(err), logger.F("files", len(paths)))
	}
}
