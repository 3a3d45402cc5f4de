package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/estivenmendezr98/TAREAS/internal/config"
	"github.com/estivenmendezr98/TAREAS/internal/database"
	"github.com/estivenmendezr98/TAREAS/internal/logger"
	"github.com/estivenmendezr98/TAREAS/internal/models"
	"github.com/estivenmendezr98/TAREAS/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"
)

// sqliteEnv points the configuration at a throwaway SQLite file and upload
// directory, with Redis disabled.
func sqliteEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_SQLITE_PATH", filepath.Join(dir, "tareas.db"))
	t.Setenv("UPLOAD_DIR", filepath.Join(dir, "uploads"))
	t.Setenv("REDIS_HOST", "")
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("LIFECYCLE_SWEEP_ON_START", "false")
	t.Setenv("CONFIG_FILE", "")
	return dir
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func openPool(t *testing.T, dir string) *database.DatabasePool {
	t.Helper()
	pool, err := database.NewDatabasePool(&database.PoolConfig{
		Driver:   database.DriverSQLite,
		DSN:      filepath.Join(dir, "tareas.db"),
		LogLevel: gormlogger.Silent,
	})
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	return pool
}

func TestMigrateCommand_CreatesSchemaAndAdmin(t *testing.T) {
	dir := sqliteEnv(t)

	out, err := runCommand(t, "migrate", "--log-level", "ERROR")
	require.NoError(t, err)
	assert.Contains(t, out, "migration complete")

	pool := openPool(t, dir)
	var admin models.User
	require.NoError(t, pool.DB.Where("username = ?", "admin").First(&admin).Error)
	assert.True(t, admin.IsAdmin())

	// A second run keeps the existing admin.
	_, err = runCommand(t, "migrate", "--log-level", "ERROR")
	require.NoError(t, err)
	var count int64
	pool.DB.Model(&models.User{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestSweepCommand_PurgesExpiredItems(t *testing.T) {
	dir := sqliteEnv(t)
	_, err := runCommand(t, "migrate", "--log-level", "ERROR")
	require.NoError(t, err)

	pool := openPool(t, dir)
	user := testutil.CreateUser(t, pool.DB, "ana")
	expired := testutil.CreateProject(t, pool.DB, user.ID, "Old")
	recent := testutil.CreateProject(t, pool.DB, user.ID, "Recent")
	testutil.MarkDeleted(t, pool.DB, &models.Project{}, expired.ID, time.Now().Add(-31*24*time.Hour))
	testutil.MarkDeleted(t, pool.DB, &models.Project{}, recent.ID, time.Now().Add(-29*24*time.Hour))

	out, err := runCommand(t, "sweep", "--log-level", "ERROR")
	require.NoError(t, err)
	assert.Contains(t, out, "purged 1 projects and 0 tasks")

	var remaining []models.Project
	require.NoError(t, pool.DB.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, recent.ID, remaining[0].ID)
}

func TestSweepCommand_RetentionOverride(t *testing.T) {
	dir := sqliteEnv(t)
	_, err := runCommand(t, "migrate", "--log-level", "ERROR")
	require.NoError(t, err)

	pool := openPool(t, dir)
	user := testutil.CreateUser(t, pool.DB, "ana")
	project := testutil.CreateProject(t, pool.DB, user.ID, "Week old")
	testutil.MarkDeleted(t, pool.DB, &models.Project{}, project.ID, time.Now().Add(-8*24*time.Hour))

	out, err := runCommand(t, "sweep", "--retention", "7d", "--log-level", "ERROR")
	require.NoError(t, err)
	assert.Contains(t, out, "purged 1 projects")

	_, err = runCommand(t, "sweep", "--retention", "someday", "--log-level", "ERROR")
	assert.Error(t, err)
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	sqliteEnv(t)
	t.Setenv("DB_DRIVER", "oracle")

	_, err := runCommand(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	return cfg
}

func getJSON(t *testing.T, app *App, path string) (int, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestNewApp_WithoutRedis(t *testing.T) {
	sqliteEnv(t)
	cfg := loadTestConfig(t)

	app, err := NewApp(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, app.Close()) })

	assert.Nil(t, app.Redis)
	assert.Nil(t, app.Worker)
	assert.NotNil(t, app.Limiter)

	app.Start(context.Background())

	code, body := getJSON(t, app, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["checks"], 1)

	code, body = getJSON(t, app, "/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "database")
	assert.Contains(t, body, "cache")
	assert.NotContains(t, body, "worker")
}

func TestNewApp_WithRedis(t *testing.T) {
	sqliteEnv(t)
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_HOST", mr.Host())
	t.Setenv("REDIS_PORT", mr.Port())
	cfg := loadTestConfig(t)

	app, err := NewApp(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, app.Close()) })

	require.NotNil(t, app.Redis)
	require.NotNil(t, app.Worker)

	app.Start(context.Background())

	code, body := getJSON(t, app, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["checks"], 2)

	code, body = getJSON(t, app, "/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "redis")
	assert.Contains(t, body, "worker")
}

func TestNewApp_LoginWithSeededAdmin(t *testing.T) {
	sqliteEnv(t)
	cfg := loadTestConfig(t)

	app, err := NewApp(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	body := bytes.NewBufferString(`{"username":"admin","password":"admin123"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/login", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "token")
}
