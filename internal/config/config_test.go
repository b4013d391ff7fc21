package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestConfigRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := &Config{
		Version:      "1",
		APIBaseURL:   "https://crm.example.com",
		APIToken:     "secret-token",
		SupervisorID: "SUP-042",
		LocationCmd:  "termux-location -p gps",
	}
	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	got, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if got.APIBaseURL != cfg.APIBaseURL || got.APIToken != cfg.APIToken {
		t.Errorf("loaded = %+v, want %+v", got, cfg)
	}

	path, _ := ConfigPath()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat config: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config mode = %o, want 0600", info.Mode().Perm())
	}
}

func TestLoadConfigMissing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("LoadConfig should fail when no config exists")
	}
}

func TestLoadConfigInvalidJSON(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".ronda")
	os.MkdirAll(dir, 0755)
	os.WriteFile(filepath.Join(dir, "config.json"), []byte("{broken"), 0600)

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("LoadConfig should reject invalid JSON")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "complete with location command",
			cfg:     Config{APIBaseURL: "https://crm.example.com", LocationCmd: "gpspipe -w -n 1"},
			wantErr: false,
		},
		{
			name:    "complete with static coordinate",
			cfg:     Config{APIBaseURL: "https://crm.example.com", StaticLat: 40.4, StaticLng: -3.7},
			wantErr: false,
		},
		{
			name:    "missing base url",
			cfg:     Config{LocationCmd: "gpspipe -w -n 1"},
			wantErr: true,
		},
		{
			name:    "no location source",
			cfg:     Config{APIBaseURL: "https://crm.example.com"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOmitEmptyFields(t *testing.T) {
	data, err := json.Marshal(&Config{Version: "1", APIBaseURL: "https://crm.example.com"})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	for _, absent := range []string{"api_token", "location_cmd", "static_lat"} {
		if jsonHasKey(data, absent) {
			t.Errorf("unset field %s should be omitted", absent)
		}
	}
}

func jsonHasKey(data []byte, key string) bool {
	var m map[string]any
	json.Unmarshal(data, &m)
	_, ok := m[key]
	return ok
}
