package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chartes/dicotopo/pkg/explorer"
	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("missing config must not fail: %v", err)
	}

	settings := cfg.Settings()
	if settings.MapEnabled || settings.CardEnabled {
		t.Errorf("features should be disabled by default, got %+v", settings)
	}
	if settings.PlacenameEndpoint != "" {
		t.Errorf("expected empty endpoint, got %q", settings.PlacenameEndpoint)
	}
	if cfg.Explorer.PermalinkPrefix != DefaultPermalinkPrefix {
		t.Errorf("expected default permalink prefix, got %q", cfg.Explorer.PermalinkPrefix)
	}
	if cfg.Addr() != "localhost:8080" {
		t.Errorf("unexpected default address %q", cfg.Addr())
	}
	if cfg.Web.SessionTTL.Duration != 30*time.Minute {
		t.Errorf("unexpected default session ttl %v", cfg.Web.SessionTTL)
	}
}

func TestLoadSampleConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, configTemplate))
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}

	want := explorer.Settings{
		PlacenameEndpoint: "https://dicotopo.cths.fr/api/1.0/placenames/ID_PLACEHOLDER",
		MapEnabled:        true,
		CardEnabled:       true,
	}
	if diff := cmp.Diff(want, cfg.Settings()); diff != "" {
		t.Errorf("settings mismatch (-want +got):\n%s", diff)
	}
	if cfg.Backend.PageSize != 200 || cfg.Backend.Timeout.Duration != 10*time.Second {
		t.Errorf("unexpected backend config: %+v", cfg.Backend)
	}
	if cfg.Explorer.TrustDescriptions {
		t.Error("sample must not trust descriptions")
	}
}

func TestBooleanishFlags(t *testing.T) {
	tests := []struct {
		name    string
		content string
		mapOn   bool
		cardOn  bool
	}{
		{name: "booleans", content: "[explorer]\nenable_map = true\nenable_card = false\n", mapOn: true},
		{name: "strings", content: "[explorer]\nenable_map = \"yes\"\nenable_card = \"on\"\n", mapOn: true, cardOn: true},
		{name: "unrecognised strings", content: "[explorer]\nenable_map = \"maybe\"\nenable_card = \"\"\n"},
		{name: "absent", content: "[explorer]\nplacename_endpoint = \"x\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeConfig(t, tt.content))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			s := cfg.Settings()
			if s.MapEnabled != tt.mapOn || s.CardEnabled != tt.cardOn {
				t.Errorf("got map=%v card=%v, want map=%v card=%v", s.MapEnabled, s.CardEnabled, tt.mapOn, tt.cardOn)
			}
		})
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	if _, err := LoadConfig(writeConfig(t, "[explorer\n")); err == nil {
		t.Fatal("expected error for invalid TOML")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvPlacenameEndpoint: "http://localhost/api/placenames/ID_PLACEHOLDER",
		EnvEnableMap:         "1",
		EnvEnableCard:        "false",
		EnvPort:              "9090",
		EnvHost:              "",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := GetDefaultConfig()
	cfg.Explorer.EnableCard = true
	cfg.ApplyEnv(lookup)

	if cfg.Explorer.PlacenameEndpoint != env[EnvPlacenameEndpoint] {
		t.Errorf("endpoint not overridden: %q", cfg.Explorer.PlacenameEndpoint)
	}
	if !bool(cfg.Explorer.EnableMap) || bool(cfg.Explorer.EnableCard) {
		t.Errorf("flags not overridden: map=%v card=%v", cfg.Explorer.EnableMap, cfg.Explorer.EnableCard)
	}
	if cfg.Addr() != "localhost:9090" {
		t.Errorf("unexpected address %q", cfg.Addr())
	}
}

func TestLoadDotEnv(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing dotenv must be ignored: %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("DICOTOPO_TEST_DOTENV=loaded\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("DICOTOPO_TEST_DOTENV") })

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if got := os.Getenv("DICOTOPO_TEST_DOTENV"); got != "loaded" {
		t.Errorf("expected variable from dotenv, got %q", got)
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := GetDefaultConfig()
	cfg.Explorer.EnableMap = true
	cfg.Explorer.PlacenameEndpoint = "https://x/ID_PLACEHOLDER"

	if err := cfg.SaveConfig(path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if diff := cmp.Diff(cfg.Settings(), loaded.Settings()); diff != "" {
		t.Errorf("settings changed after save (-want +got):\n%s", diff)
	}
}
