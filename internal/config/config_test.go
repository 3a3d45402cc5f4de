package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var allEnvVars = []string{
	"HOST", "PORT", "READ_TIMEOUT", "WRITE_TIMEOUT", "IDLE_TIMEOUT", "ENVIRONMENT", "CORS_ORIGINS",
	"DB_DRIVER", "DB_SQLITE_PATH", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSL_MODE",
	"DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME", "DB_CONN_MAX_IDLE_TIME",
	"REDIS_HOST", "REDIS_PORT", "REDIS_PASSWORD", "REDIS_DB", "REDIS_POOL_SIZE",
	"REDIS_MIN_IDLE_CONNS", "REDIS_MAX_RETRIES", "REDIS_DIAL_TIMEOUT", "REDIS_READ_TIMEOUT", "REDIS_WRITE_TIMEOUT",
	"WORKER_CONCURRENCY", "WORKER_MAX_TRIES", "WORKER_RETRY_DELAY", "WORKER_QUEUE",
	"JWT_SECRET", "JWT_ISSUER", "ACCESS_TOKEN_TTL", "BCRYPT_COST",
	"RATE_LIMIT_ENABLED", "RATE_LIMIT_RPM", "RATE_LIMIT_BURST", "RATE_LIMIT_CLEANUP",
	"LIFECYCLE_RETENTION", "LIFECYCLE_SWEEP_INTERVAL", "LIFECYCLE_SWEEP_LOCK_TTL", "LIFECYCLE_SWEEP_ON_START",
	"UPLOAD_DIR", "UPLOAD_MAX_MB", "UPLOAD_ALLOWED_TYPES", "LOG_LEVEL", "LOG_FORMAT",
	"ADMIN_USERNAME", "ADMIN_PASSWORD", "CONFIG_FILE",
}

func setEnvVars(vars map[string]string) {
	for k, v := range vars {
		os.Setenv(k, v)
	}
}

func clearEnvVars(vars []string) {
	for _, k := range vars {
		os.Unsetenv(k)
	}
}

func withEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	clearEnvVars(allEnvVars)
	setEnvVars(vars)
	t.Cleanup(func() { clearEnvVars(allEnvVars) })
}

func TestLoadConfig_Defaults(t *testing.T) {
	withEnv(t, nil)

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error with default config, got: %v", err)
	}

	if config.Server.Port != "3000" {
		t.Errorf("Expected default port '3000', got %s", config.Server.Port)
	}

	if config.Server.Environment != "development" {
		t.Errorf("Expected default environment 'development', got %s", config.Server.Environment)
	}

	if config.Database.Driver != "postgres" {
		t.Errorf("Expected default driver 'postgres', got %s", config.Database.Driver)
	}

	if config.Database.Name != "tareas" {
		t.Errorf("Expected default DB name 'tareas', got %s", config.Database.Name)
	}

	if config.RedisEnabled() {
		t.Error("Expected Redis to be disabled without REDIS_HOST")
	}

	if config.Lifecycle.Retention != 30*24*time.Hour {
		t.Errorf("Expected 30 day retention, got %v", config.Lifecycle.Retention)
	}

	if config.Lifecycle.SweepInterval != 24*time.Hour {
		t.Errorf("Expected 24h sweep interval, got %v", config.Lifecycle.SweepInterval)
	}

	if !config.Lifecycle.SweepOnStart {
		t.Error("Expected sweep on start to be enabled by default")
	}

	if config.Storage.UploadDir != "uploads" {
		t.Errorf("Expected upload dir 'uploads', got %s", config.Storage.UploadDir)
	}

	if config.Storage.MaxUploadSize != 50<<20 {
		t.Errorf("Expected 50MB upload limit, got %d", config.Storage.MaxUploadSize)
	}

	if len(config.Storage.AllowedTypes) != 2 {
		t.Errorf("Expected 2 default allowed types, got %v", config.Storage.AllowedTypes)
	}

	if config.Auth.AccessTokenTTL != 8*time.Hour {
		t.Errorf("Expected 8h access token TTL, got %v", config.Auth.AccessTokenTTL)
	}

	if !config.RateLimit.Enabled {
		t.Error("Expected rate limiting to be enabled by default")
	}
}

func TestLoadConfig_CustomEnvironment(t *testing.T) {
	withEnv(t, map[string]string{
		"PORT":                     "9000",
		"DB_DRIVER":                "sqlite",
		"DB_SQLITE_PATH":           "/tmp/tareas.db",
		"REDIS_HOST":               "redis.example.com",
		"REDIS_DB":                 "1",
		"WORKER_CONCURRENCY":       "8",
		"LIFECYCLE_RETENTION":      "168h",
		"LIFECYCLE_SWEEP_INTERVAL": "1h",
		"UPLOAD_ALLOWED_TYPES":     "image/png, image/jpeg",
		"CORS_ORIGINS":             "http://localhost:5173",
		"RATE_LIMIT_ENABLED":       "false",
	})

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error with custom config, got: %v", err)
	}

	if config.Server.Port != "9000" {
		t.Errorf("Expected port '9000', got %s", config.Server.Port)
	}

	if config.GetDatabaseDSN() != "/tmp/tareas.db" {
		t.Errorf("Expected sqlite DSN to be the file path, got %s", config.GetDatabaseDSN())
	}

	if !config.RedisEnabled() || config.GetRedisAddr() != "redis.example.com:6379" {
		t.Errorf("Expected Redis at redis.example.com:6379, got %s", config.GetRedisAddr())
	}

	if config.Worker.Concurrency != 8 {
		t.Errorf("Expected worker concurrency 8, got %d", config.Worker.Concurrency)
	}

	if config.Lifecycle.Retention != 7*24*time.Hour {
		t.Errorf("Expected 168h retention, got %v", config.Lifecycle.Retention)
	}

	if config.Lifecycle.SweepInterval != time.Hour {
		t.Errorf("Expected 1h sweep interval, got %v", config.Lifecycle.SweepInterval)
	}

	if len(config.Storage.AllowedTypes) != 2 || config.Storage.AllowedTypes[1] != "image/jpeg" {
		t.Errorf("Expected trimmed allowed types, got %v", config.Storage.AllowedTypes)
	}

	if len(config.Server.CORSOrigins) != 1 || config.Server.CORSOrigins[0] != "http://localhost:5173" {
		t.Errorf("Unexpected CORS origins %v", config.Server.CORSOrigins)
	}

	if config.RateLimit.Enabled {
		t.Error("Expected rate limiting to be disabled")
	}
}

func TestLoadConfig_FileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("lifecycle:\n  retention: 48h\nstorage:\n  upload_dir: /var/lib/tareas\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	withEnv(t, map[string]string{"CONFIG_FILE": path, "PORT": "4000"})

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if config.Lifecycle.Retention != 48*time.Hour {
		t.Errorf("Expected file retention 48h, got %v", config.Lifecycle.Retention)
	}

	if config.Storage.UploadDir != "/var/lib/tareas" {
		t.Errorf("Expected file upload dir, got %s", config.Storage.UploadDir)
	}

	if config.Server.Port != "4000" {
		t.Errorf("Expected env port to survive overlay, got %s", config.Server.Port)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	withEnv(t, map[string]string{"CONFIG_FILE": filepath.Join(t.TempDir(), "missing.yaml")})

	if _, err := LoadConfig(); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestLoadConfig_ProductionValidation(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		errorMsg string
	}{
		{
			name: "missing database password",
			envVars: map[string]string{
				"ENVIRONMENT":    "production",
				"JWT_SECRET":     "secure-jwt-secret",
				"ADMIN_PASSWORD": "s3cure",
			},
			errorMsg: "database password is required in production",
		},
		{
			name: "default jwt secret",
			envVars: map[string]string{
				"ENVIRONMENT":    "production",
				"DB_PASSWORD":    "secure-db-password",
				"ADMIN_PASSWORD": "s3cure",
			},
			errorMsg: "JWT secret must be set in production",
		},
		{
			name: "default admin password",
			envVars: map[string]string{
				"ENVIRONMENT": "production",
				"DB_PASSWORD": "secure-db-password",
				"JWT_SECRET":  "secure-jwt-secret",
			},
			errorMsg: "admin password must be set in production",
		},
		{
			name: "unsupported driver",
			envVars: map[string]string{
				"DB_DRIVER": "mysql",
			},
			errorMsg: `unsupported database driver "mysql"`,
		},
		{
			name: "zero retention",
			envVars: map[string]string{
				"LIFECYCLE_RETENTION": "0s",
			},
			errorMsg: "lifecycle retention must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withEnv(t, tt.envVars)

			_, err := LoadConfig()
			if err == nil {
				t.Fatalf("Expected error %q, got none", tt.errorMsg)
			}
			if err.Error() != tt.errorMsg {
				t.Errorf("Expected error %q, got %q", tt.errorMsg, err.Error())
			}
		})
	}
}

func TestLoadConfig_ProductionWithSQLite(t *testing.T) {
	withEnv(t, map[string]string{
		"ENVIRONMENT":    "production",
		"DB_DRIVER":      "sqlite",
		"JWT_SECRET":     "secure-jwt-secret",
		"ADMIN_PASSWORD": "s3cure",
	})

	if _, err := LoadConfig(); err != nil {
		t.Errorf("Expected sqlite production config without DB password to load, got: %v", err)
	}
}

func TestConfig_GetDatabaseDSN(t *testing.T) {
	config := &Config{
		Database: DatabaseConfig{
			Driver:   "postgres",
			Host:     "localhost",
			Port:     "5432",
			User:     "testuser",
			Password: "testpass",
			Name:     "testdb",
			SSLMode:  "require",
		},
	}

	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=require"
	if actual := config.GetDatabaseDSN(); actual != expected {
		t.Errorf("Expected DSN '%s', got '%s'", expected, actual)
	}
}

func TestConfig_GetServerAddr(t *testing.T) {
	config := &Config{Server: ServerConfig{Host: "0.0.0.0", Port: "9000"}}

	if actual := config.GetServerAddr(); actual != "0.0.0.0:9000" {
		t.Errorf("Expected server addr '0.0.0.0:9000', got '%s'", actual)
	}
}

func TestGetEnvAsBool(t *testing.T) {
	key := "TEST_BOOL_VAR"
	defaultValue := true

	testCases := []struct {
		value    string
		expected bool
	}{
		{"true", true},
		{"false", false},
		{"1", true},
		{"0", false},
		{"invalid", defaultValue},
	}

	for _, tc := range testCases {
		os.Setenv(key, tc.value)
		if result := getEnvAsBool(key, defaultValue); result != tc.expected {
			t.Errorf("For value '%s', expected %v, got %v", tc.value, tc.expected, result)
		}
	}

	os.Unsetenv(key)
}

func TestGetEnvAsDuration(t *testing.T) {
	key := "TEST_DURATION_VAR"
	defaultValue := 30 * time.Second

	os.Unsetenv(key)
	if result := getEnvAsDuration(key, defaultValue); result != defaultValue {
		t.Errorf("Expected default value %v, got %v", defaultValue, result)
	}

	os.Setenv(key, "5m")
	defer os.Unsetenv(key)

	if result := getEnvAsDuration(key, defaultValue); result != 5*time.Minute {
		t.Errorf("Expected env value 5m, got %v", result)
	}

	os.Setenv(key, "not-a-duration")
	if result := getEnvAsDuration(key, defaultValue); result != defaultValue {
		t.Errorf("Expected default value %v for invalid duration, got %v", defaultValue, result)
	}
}

func TestGetEnvAsSlice(t *testing.T) {
	key := "TEST_SLICE_VAR"
	defer os.Unsetenv(key)

	os.Setenv(key, " , ")
	if result := getEnvAsSlice(key, []string{"x"}); len(result) != 1 || result[0] != "x" {
		t.Errorf("Expected default for blank list, got %v", result)
	}

	os.Setenv(key, "a,b")
	if result := getEnvAsSlice(key, nil); len(result) != 2 {
		t.Errorf("Expected two entries, got %v", result)
	}
}

func BenchmarkLoadConfig(b *testing.B) {
	clearEnvVars(allEnvVars)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := LoadConfig(); err != nil {
			b.Fatalf("Failed to load config: %v", err)
		}
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "30d", want: 30 * 24 * time.Hour},
		{in: " 1d ", want: 24 * time.Hour},
		{in: "90m", want: 90 * time.Minute},
		{in: "720h", want: 720 * time.Hour},
		{in: "xd", wantErr: true},
		{in: "-2d", wantErr: true},
		{in: "soon", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseDuration(%q) expected error, got %v", tt.in, got)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseDuration(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}
