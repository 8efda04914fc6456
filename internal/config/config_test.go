package config

import (
	"context"
	"os"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	os.Setenv("JWT_SECRET", "test-secret-key-that-is-at-least-32-characters-long")
	os.Setenv("GOOGLE_CLIENT_ID", "test-client-id.apps.googleusercontent.com")
	os.Setenv("GOOGLE_CLIENT_SECRET", "test-client-secret")
	t.Cleanup(func() {
		os.Unsetenv("JWT_SECRET")
		os.Unsetenv("GOOGLE_CLIENT_ID")
		os.Unsetenv("GOOGLE_CLIENT_SECRET")
	})
}

func TestLoad(t *testing.T) {
	setRequiredEnv(t)

	ctx := context.Background()
	cfg, err := Load(ctx)
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	// Test default values
	if cfg.Server.Port != "8080" {
		t.Errorf("Expected Server.Port to be '8080', got '%s'", cfg.Server.Port)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Expected Server.Host to be '0.0.0.0', got '%s'", cfg.Server.Host)
	}

	if cfg.Server.ReadTimeout.Duration != 15*time.Second {
		t.Errorf("Expected Server.ReadTimeout to be 15s, got %v", cfg.Server.ReadTimeout.Duration)
	}

	if cfg.Postgres.Host != "localhost" {
		t.Errorf("Expected Postgres.Host to be 'localhost', got '%s'", cfg.Postgres.Host)
	}

	if cfg.Redis.Host != "localhost" {
		t.Errorf("Expected Redis.Host to be 'localhost', got '%s'", cfg.Redis.Host)
	}

	if cfg.Google.APITimeout.Duration != 15*time.Second {
		t.Errorf("Expected Google.APITimeout to be 15s, got %v", cfg.Google.APITimeout.Duration)
	}

	if cfg.Google.ReviewsLimit != 10 {
		t.Errorf("Expected Google.ReviewsLimit to be 10, got %d", cfg.Google.ReviewsLimit)
	}

	if cfg.Quota.DailyLimit != 10000 {
		t.Errorf("Expected Quota.DailyLimit to be 10000, got %d", cfg.Quota.DailyLimit)
	}

	if cfg.Quota.BurstWindow.Duration != 100*time.Second {
		t.Errorf("Expected Quota.BurstWindow to be 100s, got %v", cfg.Quota.BurstWindow.Duration)
	}

	if cfg.Quota.DefaultCooldown.Duration != 10*time.Minute {
		t.Errorf("Expected Quota.DefaultCooldown to be 10m, got %v", cfg.Quota.DefaultCooldown.Duration)
	}

	if cfg.Sync.PageSize != 50 {
		t.Errorf("Expected Sync.PageSize to be 50, got %d", cfg.Sync.PageSize)
	}

	if cfg.Sync.MaxRetries != 3 {
		t.Errorf("Expected Sync.MaxRetries to be 3, got %d", cfg.Sync.MaxRetries)
	}

	if cfg.Env != "development" {
		t.Errorf("Expected Env to be 'development', got '%s'", cfg.Env)
	}

	if len(cfg.CORS.AllowedOrigins) == 0 {
		t.Error("Expected CORS.AllowedOrigins to have at least one value")
	}
}

func TestLoadWithCustomValues(t *testing.T) {
	setRequiredEnv(t)
	os.Setenv("SERVER_PORT", "9090")
	os.Setenv("POSTGRES_HOST", "postgres.example.com")
	os.Setenv("QUOTA_DAILY_LIMIT", "500")
	os.Setenv("GOOGLE_RATE_WINDOW", "30s")
	os.Setenv("ENV", "production")
	defer func() {
		os.Unsetenv("SERVER_PORT")
		os.Unsetenv("POSTGRES_HOST")
		os.Unsetenv("QUOTA_DAILY_LIMIT")
		os.Unsetenv("GOOGLE_RATE_WINDOW")
		os.Unsetenv("ENV")
	}()

	ctx := context.Background()
	cfg, err := Load(ctx)
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Expected Server.Port to be '9090', got '%s'", cfg.Server.Port)
	}

	if cfg.Postgres.Host != "postgres.example.com" {
		t.Errorf("Expected Postgres.Host to be 'postgres.example.com', got '%s'", cfg.Postgres.Host)
	}

	if cfg.Quota.DailyLimit != 500 {
		t.Errorf("Expected Quota.DailyLimit to be 500, got %d", cfg.Quota.DailyLimit)
	}

	if cfg.Google.RateWindow.Duration != 30*time.Second {
		t.Errorf("Expected Google.RateWindow to be 30s, got %v", cfg.Google.RateWindow.Duration)
	}

	if cfg.Env != "production" {
		t.Errorf("Expected Env to be 'production', got '%s'", cfg.Env)
	}
}

func TestLoadWithoutJWTSecret(t *testing.T) {
	os.Unsetenv("JWT_SECRET")
	os.Setenv("GOOGLE_CLIENT_ID", "test-client-id")
	os.Setenv("GOOGLE_CLIENT_SECRET", "test-client-secret")
	defer func() {
		os.Unsetenv("GOOGLE_CLIENT_ID")
		os.Unsetenv("GOOGLE_CLIENT_SECRET")
	}()

	ctx := context.Background()
	_, err := Load(ctx)
	if err == nil {
		t.Error("Expected error when JWT_SECRET is not set")
	}
}

func TestLoadWithShortJWTSecret(t *testing.T) {
	setRequiredEnv(t)
	os.Setenv("JWT_SECRET", "short")

	ctx := context.Background()
	_, err := Load(ctx)
	if err == nil {
		t.Error("Expected error when JWT_SECRET is too short")
	}
}

func TestLoadWithInvalidPageSize(t *testing.T) {
	setRequiredEnv(t)
	os.Setenv("SYNC_PAGE_SIZE", "100")
	defer os.Unsetenv("SYNC_PAGE_SIZE")

	ctx := context.Background()
	_, err := Load(ctx)
	if err == nil {
		t.Error("Expected error when SYNC_PAGE_SIZE exceeds the upstream cap")
	}
}

func TestPostgresDSN(t *testing.T) {
	pg := PostgresConfig{
		Host:     "localhost",
		Port:     "5432",
		User:     "test_user",
		Password: "test_password",
		DBName:   "test_db",
		SSLMode:  "disable",
	}

	dsn := pg.DSN()
	expected := "host=localhost port=5432 user=test_user password=test_password dbname=test_db sslmode=disable"
	if dsn != expected {
		t.Errorf("Expected DSN to be '%s', got '%s'", expected, dsn)
	}
}

func TestRedisAddress(t *testing.T) {
	redis := RedisConfig{
		Host: "localhost",
		Port: "6379",
	}

	addr := redis.Address()
	expected := "localhost:6379"
	if addr != expected {
		t.Errorf("Expected Address to be '%s', got '%s'", expected, addr)
	}
}
