package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

// cleanupEnv unsets every variable Load reads
func cleanupEnv() {
	for _, key := range GetEnvVars() {
		_ = os.Unsetenv(key)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	cleanupEnv()
	defer cleanupEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("Expected default port 8000, got %s", cfg.Port)
	}
	if cfg.Address != "127.0.0.1" {
		t.Errorf("Expected default address 127.0.0.1, got %s", cfg.Address)
	}
	if cfg.Env != EnvDevelopment {
		t.Errorf("Expected default env dev, got %s", cfg.Env)
	}
	if cfg.LogDir != "logs" {
		t.Errorf("Expected default log dir logs, got %q", cfg.LogDir)
	}
	if cfg.MetricsNamespace != "app" {
		t.Errorf("Expected default namespace app, got %s", cfg.MetricsNamespace)
	}
	if cfg.MetricsPath != "/metrics" {
		t.Errorf("Expected default metrics path /metrics, got %s", cfg.MetricsPath)
	}
	if cfg.MetricsBuckets != nil {
		t.Errorf("Expected default buckets, got %v", cfg.MetricsBuckets)
	}
	if cfg.DigestInterval != 15*time.Minute {
		t.Errorf("Expected default digest interval 15m, got %s", cfg.DigestInterval)
	}
}

func TestLoadValidConfig(t *testing.T) {
	cleanupEnv()
	_ = os.Setenv("PORT", "8002")
	_ = os.Setenv("ADDRESS", "0.0.0.0")
	_ = os.Setenv("ENV", "PROD")
	_ = os.Setenv("LOG_DIR", "")
	_ = os.Setenv("METRICS_NAMESPACE", "orders_api")
	_ = os.Setenv("METRICS_PATH", "/internal/metrics")
	_ = os.Setenv("METRICS_BUCKETS", "0.01, 0.1, 1")
	_ = os.Setenv("DIGEST_INTERVAL", "0")
	_ = os.Setenv("RATE_LIMIT_RATE", "10.5")
	defer cleanupEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8002" {
		t.Errorf("Expected port 8002, got %s", cfg.Port)
	}
	if cfg.Env != EnvProduction {
		t.Errorf("Expected env prod, got %s", cfg.Env)
	}
	if cfg.LogDir != "" {
		t.Errorf("Expected file logging disabled, got %q", cfg.LogDir)
	}
	if cfg.MetricsNamespace != "orders_api" {
		t.Errorf("Expected namespace orders_api, got %s", cfg.MetricsNamespace)
	}
	if cfg.MetricsPath != "/internal/metrics" {
		t.Errorf("Expected metrics path /internal/metrics, got %s", cfg.MetricsPath)
	}
	if len(cfg.MetricsBuckets) != 3 || cfg.MetricsBuckets[2] != 1 {
		t.Errorf("Expected buckets [0.01 0.1 1], got %v", cfg.MetricsBuckets)
	}
	if cfg.DigestInterval != 0 {
		t.Errorf("Expected digest disabled, got %s", cfg.DigestInterval)
	}
	if cfg.RateLimitRate != 10.5 {
		t.Errorf("Expected rate 10.5, got %v", cfg.RateLimitRate)
	}
}

func TestLoadInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"non numeric port", "PORT", "abc", "PORT"},
		{"privileged port", "PORT", "80", "PORT"},
		{"public address", "ADDRESS", "8.8.8.8", "ADDRESS"},
		{"unknown env", "ENV", "qa", "ENV"},
		{"unknown log level", "LOG_LEVEL", "loud", "LOG_LEVEL"},
		{"dashed namespace", "METRICS_NAMESPACE", "orders-api", "METRICS_NAMESPACE"},
		{"relative metrics path", "METRICS_PATH", "metrics", "METRICS_PATH"},
		{"unsorted buckets", "METRICS_BUCKETS", "0.5,0.1", "METRICS_BUCKETS"},
		{"bad bucket", "METRICS_BUCKETS", "fast", "METRICS_BUCKETS"},
		{"short digest", "DIGEST_INTERVAL", "10s", "DIGEST_INTERVAL"},
		{"bad digest", "DIGEST_INTERVAL", "often", "DIGEST_INTERVAL"},
		{"zero rate", "RATE_LIMIT_RATE", "0", "RATE_LIMIT_RATE"},
		{"negative capacity", "RATE_LIMIT_CAPACITY", "-5", "RATE_LIMIT_CAPACITY"},
		{"huge body limit", "MAX_REQUEST_BODY", "209715200", "MAX_REQUEST_BODY"},
		{"long retention", "LOG_RETENTION_WEEKS", "60", "LOG_RETENTION_WEEKS"},
		{"tiny log file", "MAX_LOG_FILE_SIZE", "1024", "MAX_LOG_FILE_SIZE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanupEnv()
			defer cleanupEnv()
			_ = os.Setenv(tt.key, tt.value)

			_, err := Load()
			if err == nil {
				t.Fatalf("Expected error for %s=%s", tt.key, tt.value)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error mentioning %s, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseEnvironment(t *testing.T) {
	tests := []struct {
		input    string
		expected Environment
		wantErr  bool
	}{
		{"dev", EnvDevelopment, false},
		{"Staging", EnvStaging, false},
		{"prod", EnvProduction, false},
		{"test", EnvTest, false},
		{"", "", true},
		{"production", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			env, err := ParseEnvironment(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if env != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, env)
			}
		})
	}
}

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		address string
		wantErr bool
	}{
		{"localhost", false},
		{"127.0.0.1", false},
		{"10.0.0.5", false},
		{"0.0.0.0", false},
		{"::1", false},
		{"", true},
		{"example.com", true},
		{"1.1.1.1", true},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			if err := validateAddress(tt.address); (err != nil) != tt.wantErr {
				t.Errorf("Expected error %v for %q, got %v", tt.wantErr, tt.address, err)
			}
		})
	}
}

func TestParseBuckets(t *testing.T) {
	buckets, err := parseBuckets(" ")
	if err != nil || buckets != nil {
		t.Errorf("Expected nil buckets for blank input, got %v, %v", buckets, err)
	}

	buckets, err = parseBuckets("0.005,0.05 ,0.5")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(buckets) != 3 || buckets[0] != 0.005 || buckets[2] != 0.5 {
		t.Errorf("Expected [0.005 0.05 0.5], got %v", buckets)
	}

	if _, err := parseBuckets("0.1,0.1"); err == nil {
		t.Error("Expected error for duplicate bounds")
	}
}

func TestLoadDotEnv(t *testing.T) {
	cleanupEnv()
	defer cleanupEnv()

	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory: %v", err)
	}
	defer os.Chdir(wd)

	if err := LoadDotEnv(); err != nil {
		t.Fatalf("Expected no error without .env, got %v", err)
	}

	if err := os.WriteFile(".env", []byte("METRICS_NAMESPACE=from_file\nPORT=9001\n"), 0o644); err != nil {
		t.Fatalf("Failed to write .env: %v", err)
	}
	_ = os.Setenv("PORT", "9002")

	if err := LoadDotEnv(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if got := os.Getenv("METRICS_NAMESPACE"); got != "from_file" {
		t.Errorf("Expected namespace from .env, got %q", got)
	}
	if got := os.Getenv("PORT"); got != "9002" {
		t.Errorf("Expected existing PORT to win, got %q", got)
	}
}

func TestReloadDotEnvOverridesEnvironment(t *testing.T) {
	cleanupEnv()
	defer cleanupEnv()

	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory: %v", err)
	}
	defer os.Chdir(wd)

	if err := ReloadDotEnv(); err != nil {
		t.Fatalf("Expected no error without .env, got %v", err)
	}

	if err := os.WriteFile(".env", []byte("METRICS_NAMESPACE=first\n"), 0o644); err != nil {
		t.Fatalf("Failed to write .env: %v", err)
	}
	if err := LoadDotEnv(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if err := os.WriteFile(".env", []byte("METRICS_NAMESPACE=second\n"), 0o644); err != nil {
		t.Fatalf("Failed to write .env: %v", err)
	}
	if err := LoadDotEnv(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got := os.Getenv("METRICS_NAMESPACE"); got != "first" {
		t.Fatalf("Expected LoadDotEnv to keep first, got %q", got)
	}

	if err := ReloadDotEnv(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got := os.Getenv("METRICS_NAMESPACE"); got != "second" {
		t.Errorf("Expected ReloadDotEnv to apply second, got %q", got)
	}
}
