package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidate_ReportsEverySection(t *testing.T) {
	cfg := Default()
	cfg.Kitchen.Name = ""
	cfg.Forecast.Alpha = 0
	cfg.Inventory.ServiceLevel = 1
	cfg.Metrics.Enabled = true
	cfg.Metrics.ListenAddr = "nope"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"kitchen: name is required", "forecast: alpha", "inventory: service_level", "metrics: invalid listen_addr"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestValidate_Timezone(t *testing.T) {
	cfg := Default()
	cfg.Kitchen.Timezone = "Mars/Olympus_Mons"
	if err := cfg.Validate(); err == nil {
		t.Error("expected invalid timezone error")
	}

	cfg.Kitchen.Timezone = ""
	if got := cfg.Kitchen.Location(); got.String() != "UTC" {
		t.Errorf("Location() = %s, want UTC", got)
	}
}

func TestDecode_OverridesDefaults(t *testing.T) {
	input := `
[kitchen]
name = "Harbor Hospital"
default_site = "north"

[forecast]
alpha = 0.5

[planning]
apply_issuance = true
`
	cfg, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cfg.Kitchen.Name != "Harbor Hospital" || cfg.Kitchen.DefaultSite != "north" {
		t.Errorf("kitchen = %+v", cfg.Kitchen)
	}
	if cfg.Forecast.Alpha != 0.5 {
		t.Errorf("alpha = %v, want 0.5", cfg.Forecast.Alpha)
	}
	if !cfg.Planning.ApplyIssuance {
		t.Error("apply_issuance not decoded")
	}
	// Untouched settings keep their defaults.
	if cfg.Forecast.ZScore != 1.96 {
		t.Errorf("z_score = %v, want default 1.96", cfg.Forecast.ZScore)
	}
	if cfg.Planning.HorizonDays != 7 {
		t.Errorf("horizon_days = %d, want 7", cfg.Planning.HorizonDays)
	}
}

func TestDecode_RejectsUnknownKeys(t *testing.T) {
	_, err := Decode(strings.NewReader("[forecast]\nalpah = 0.4\n"))
	if err == nil {
		t.Fatal("expected unknown key error")
	}
	if !strings.Contains(err.Error(), "forecast.alpah") {
		t.Errorf("error %q does not name the key", err)
	}
}

func TestDecode_RejectsInvalidValues(t *testing.T) {
	_, err := Decode(strings.NewReader("[planning]\nworkers = 0\n"))
	if err == nil || !strings.Contains(err.Error(), "workers must be positive") {
		t.Errorf("err = %v", err)
	}
}

func TestLoad_ExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	if err := os.WriteFile(path, []byte("[production]\nbuffer_minutes = 30\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, got, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != path {
		t.Errorf("path = %s, want %s", got, path)
	}
	if cfg.Production.BufferMinutes != 30 {
		t.Errorf("buffer_minutes = %d, want 30", cfg.Production.BufferMinutes)
	}
}

func TestLoad_ExplicitPathError(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "missing.toml"), true)
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected *LoadError, got %v", err)
	}
}

func TestLoad_XDGAndDefaults(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Chdir(t.TempDir())

	if _, _, err := Load("", false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	cfg, path, err := Load("", true)
	if err != nil {
		t.Fatalf("Load with defaults: %v", err)
	}
	want := filepath.Join(xdg, AppDir, DefaultConfigFileName)
	if path != want {
		t.Errorf("default written to %s, want %s", path, want)
	}
	if cfg.Kitchen.Name != Default().Kitchen.Name {
		t.Errorf("kitchen name = %q", cfg.Kitchen.Name)
	}

	// The written file round-trips through Load.
	again, path2, err := Load("", false)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if path2 != want || again.Planning.Workers != cfg.Planning.Workers {
		t.Errorf("reload = %s %+v", path2, again.Planning)
	}
	if ConfigPath("") != want {
		t.Errorf("ConfigPath = %s", ConfigPath(""))
	}
}

func TestBackupDir_NextToAbsoluteDatabase(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Database.Path = filepath.Join(dir, "data", "galley.db")

	got, err := BackupDir(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(dir, "data", "backups") {
		t.Errorf("BackupDir = %s", got)
	}
	if info, err := os.Stat(got); err != nil || !info.IsDir() {
		t.Errorf("backup dir not created: %v", err)
	}
}
