package config

import (
	"os"
	"testing"
	"time"
)

func setRequiredEnvVars(t *testing.T) {
	t.Helper()
	t.Setenv("PROVIDER_CLIENT_ID", "test-client-id")
	t.Setenv("PROVIDER_SECRET", "test-secret")
	t.Setenv("ENCRYPTION_KEY", "01234567890123456789012345678901") // 32 bytes
}

func TestLoad_Success(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Provider.ClientID != "test-client-id" {
		t.Errorf("Provider.ClientID = %q, want %q", cfg.Provider.ClientID, "test-client-id")
	}
	if cfg.Provider.Environment != "sandbox" {
		t.Errorf("Provider.Environment = %q, want %q", cfg.Provider.Environment, "sandbox")
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, want %q", cfg.Server.Port, "8080")
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, 5432)
	}
	if cfg.Sync.WindowDays != 90 {
		t.Errorf("Sync.WindowDays = %d, want 90", cfg.Sync.WindowDays)
	}
	if cfg.Sync.RetryAttempts != 3 {
		t.Errorf("Sync.RetryAttempts = %d, want 3", cfg.Sync.RetryAttempts)
	}
	if cfg.Sync.RetryDelay != 3*time.Second {
		t.Errorf("Sync.RetryDelay = %v, want 3s", cfg.Sync.RetryDelay)
	}
}

func TestLoad_MissingProviderCredentials(t *testing.T) {
	t.Setenv("PROVIDER_CLIENT_ID", "")
	t.Setenv("PROVIDER_SECRET", "")
	t.Setenv("ENCRYPTION_KEY", "01234567890123456789012345678901")
	os.Unsetenv("PROVIDER_CLIENT_ID")
	os.Unsetenv("PROVIDER_SECRET")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for missing provider credentials, got nil")
	}
}

func TestLoad_InvalidProviderEnvironment(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("PROVIDER_ENV", "staging")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for invalid PROVIDER_ENV, got nil")
	}
}

func TestLoad_InvalidEncryptionKeyLength(t *testing.T) {
	t.Setenv("PROVIDER_CLIENT_ID", "test-client-id")
	t.Setenv("PROVIDER_SECRET", "test-secret")
	t.Setenv("ENCRYPTION_KEY", "too-short")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for invalid ENCRYPTION_KEY length, got nil")
	}
}

func TestLoad_MissingEncryptionKey(t *testing.T) {
	t.Setenv("PROVIDER_CLIENT_ID", "test-client-id")
	t.Setenv("PROVIDER_SECRET", "test-secret")
	t.Setenv("ENCRYPTION_KEY", "")
	os.Unsetenv("ENCRYPTION_KEY")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for missing ENCRYPTION_KEY, got nil")
	}
}

func TestLoad_InvalidDBPort(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("DB_PORT", "not-a-number")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for invalid DB_PORT, got nil")
	}
}

func TestLoad_InvalidSyncRetryDelay(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("SYNC_RETRY_DELAY", "three seconds")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for invalid SYNC_RETRY_DELAY, got nil")
	}
}

func TestLoad_TLSValidation(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("TLS_ENABLED", "true")
	t.Setenv("TLS_CERT_PATH", "")
	t.Setenv("TLS_KEY_PATH", "")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for TLS enabled without cert/key, got nil")
	}
}

func TestLoad_AllowedHosts(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("ALLOWED_HOSTS", "api.example.com, example.com ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	want := []string{"api.example.com", "example.com"}
	if len(cfg.Server.AllowedHosts) != len(want) {
		t.Fatalf("AllowedHosts = %v, want %v", cfg.Server.AllowedHosts, want)
	}
	for i := range want {
		if cfg.Server.AllowedHosts[i] != want[i] {
			t.Errorf("AllowedHosts[%d] = %q, want %q", i, cfg.Server.AllowedHosts[i], want[i])
		}
	}
}

func TestConnectionString(t *testing.T) {
	c := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "svc",
		Password: "pw",
		DBName:   "ledger",
		SSLMode:  "require",
	}

	got := c.ConnectionString()
	want := "host=db.internal port=5433 user=svc password=pw dbname=ledger sslmode=require"
	if got != want {
		t.Errorf("ConnectionString() = %q, want %q", got, want)
	}
}
