// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/estivenmendezr98/TAREAS/internal/database"
	"github.com/estivenmendezr98/TAREAS/internal/models"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated in-memory SQLite database closed with the test.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	pool, err := database.NewDatabasePool(&database.PoolConfig{
		Driver:   database.DriverSQLite,
		DSN:      ":memory:",
		LogLevel: logger.Silent,
	})
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	require.NoError(t, database.Migrate(pool.DB))
	return pool.DB
}

func CreateUser(t testing.TB, db *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{Username: username, Password: "x", Role: models.RoleUser}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func CreateProject(t testing.TB, db *gorm.DB, owner uuid.UUID, title string) models.Project {
	t.Helper()
	project := models.Project{UserID: owner, Title: title}
	require.NoError(t, db.Omit("Tasks", "Category").Create(&project).Error)
	return project
}

func CreateTask(t testing.TB, db *gorm.DB, projectID uuid.UUID, description string) models.Task {
	t.Helper()
	task := models.Task{ProjectID: projectID, Description: description}
	require.NoError(t, db.Omit("Evidence").Create(&task).Error)
	return task
}

func CreateEvidence(t testing.TB, db *gorm.DB, taskID uuid.UUID, path string) models.Evidence {
	t.Helper()
	evidence := models.Evidence{TaskID: taskID, FilePath: path, MimeType: "image/png"}
	require.NoError(t, db.Create(&evidence).Error)
	return evidence
}

// MarkDeleted backdates a soft delete.
func MarkDeleted(t testing.TB, db *gorm.DB, model interface{}, id uuid.UUID, at time.Time) {
	t.Helper()
	require.NoError(t, db.Model(model).Where("id = ?", id).Update("deleted_at", at.UTC()).Error)
}

// Clock is a settable time source.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

func NewClock(t time.Time) *Clock {
	return &Clock{current: t.UTC()}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	c.mu.Unlock()
}
