package config

import (
	"os"
	"testing"
	"time"
)

// TestGetEnv tests the getEnv helper function
func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns env value when set",
			key:          "TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when env not set",
			key:          "TEST_VAR_NOT_SET",
			defaultValue: "default",
			envValue:     "",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvDuration tests the getEnvDuration helper function
func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue time.Duration
		envValue     string
		want         time.Duration
	}{
		{
			name:         "parses valid duration",
			key:          "TEST_DURATION",
			defaultValue: time.Minute,
			envValue:     "48h",
			want:         48 * time.Hour,
		},
		{
			name:         "falls back on invalid duration",
			key:          "TEST_DURATION",
			defaultValue: time.Minute,
			envValue:     "not-a-duration",
			want:         time.Minute,
		},
		{
			name:         "falls back when unset",
			key:          "TEST_DURATION_NOT_SET",
			defaultValue: time.Minute,
			envValue:     "",
			want:         time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			got := getEnvDuration(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestLoadConfigDefaults tests that LoadConfig applies sane defaults
func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %v, want 8080", cfg.Server.Port)
	}
	if cfg.Server.HealthPort != "9090" {
		t.Errorf("Server.HealthPort = %v, want 9090", cfg.Server.HealthPort)
	}
	if cfg.Invitations.DefaultTTL != 7*24*time.Hour {
		t.Errorf("Invitations.DefaultTTL = %v, want 168h", cfg.Invitations.DefaultTTL)
	}
	if cfg.Invitations.RetentionGrace != 30*24*time.Hour {
		t.Errorf("Invitations.RetentionGrace = %v, want 720h", cfg.Invitations.RetentionGrace)
	}
	if cfg.Redis.Enabled() {
		t.Error("Redis.Enabled() = true, want false with no addr configured")
	}
}

// TestValidate tests configuration validation
func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "default config is valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "empty port",
			mutate:  func(c *Config) { c.Server.Port = "" },
			wantErr: true,
		},
		{
			name:    "port collision with health port",
			mutate:  func(c *Config) { c.Server.HealthPort = c.Server.Port },
			wantErr: true,
		},
		{
			name:    "empty postgres URL",
			mutate:  func(c *Config) { c.Database.URL = "" },
			wantErr: true,
		},
		{
			name:    "idle conns above max conns",
			mutate:  func(c *Config) { c.Database.MaxIdleConns = c.Database.MaxOpenConns + 1 },
			wantErr: true,
		},
		{
			name:    "non-positive invitation TTL",
			mutate:  func(c *Config) { c.Invitations.DefaultTTL = 0 },
			wantErr: true,
		},
		{
			name:    "otel enabled without endpoint",
			mutate:  func(c *Config) { c.Observability.OTelEnabled = true; c.Observability.OTelEndpoint = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
