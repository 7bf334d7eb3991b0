package config

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

func writeConfigFile(t *testing.T, cfg map[string]interface{}) string {
	t.Helper()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("Failed to marshal config fixture: %v", err)
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("Failed to write config fixture: %v", err)
	}
	return path
}

func validFixture() map[string]interface{} {
	return map[string]interface{}{
		"database": map[string]interface{}{
			"postgres": map[string]interface{}{
				"host":     "localhost",
				"port":     5432,
				"database": "donorhub",
				"user":     "donorhub",
				"password": "secret",
			},
			"redis": map[string]interface{}{
				"host": "localhost",
				"port": 6379,
			},
		},
		"auth": map[string]interface{}{
			"jwt_secret": "test-secret",
		},
	}
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfigFile(t, validFixture())

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Database.Postgres.Host != "localhost" {
		t.Errorf("Expected postgres host localhost, got %s", cfg.Database.Postgres.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default server port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Rewards.BasePoints != 100 {
		t.Errorf("Expected default base points 100, got %d", cfg.Rewards.BasePoints)
	}
	if cfg.Rewards.EligibilityDays != 90 {
		t.Errorf("Expected default eligibility days 90, got %d", cfg.Rewards.EligibilityDays)
	}
	if cfg.Matching.CriticalRadiusMeters != 100000 {
		t.Errorf("Expected critical radius 100000, got %f", cfg.Matching.CriticalRadiusMeters)
	}
	if cfg.Matching.DefaultRadiusMeters != 50000 {
		t.Errorf("Expected default radius 50000, got %f", cfg.Matching.DefaultRadiusMeters)
	}
}

func TestLoadMissingRequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]interface{})
	}{
		{"missing postgres host", func(m map[string]interface{}) {
			m["database"].(map[string]interface{})["postgres"].(map[string]interface{})["host"] = ""
		}},
		{"missing jwt secret", func(m map[string]interface{}) {
			m["auth"].(map[string]interface{})["jwt_secret"] = ""
		}},
		{"missing redis host", func(m map[string]interface{}) {
			m["database"].(map[string]interface{})["redis"].(map[string]interface{})["host"] = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixture := validFixture()
			tt.mutate(fixture)
			path := writeConfigFile(t, fixture)

			if _, err := Load(path); err == nil {
				t.Error("Expected validation error but got nil")
			}
		})
	}
}

func TestLoadInvalidRadiusOrdering(t *testing.T) {
	fixture := validFixture()
	fixture["matching"] = map[string]interface{}{
		"critical_radius_meters": 1000,
		"default_radius_meters":  50000,
	}
	path := writeConfigFile(t, fixture)

	if _, err := Load(path); err == nil {
		t.Error("Expected error for critical radius below default radius")
	}
}

func TestEnvOverride(t *testing.T) {
	path := writeConfigFile(t, validFixture())
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected env override port 9090, got %d", cfg.Server.Port)
	}
}
