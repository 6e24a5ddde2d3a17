package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("LINE_CHANNEL_ACCESS_TOKEN", "line-token")
	t.Setenv("LINE_USER_ID", "U123")
	t.Setenv("GOOGLE_SHEETS_CREDENTIALS", `{"type":"service_account"}`)
	t.Setenv("GOOGLE_SHEET_ID", "sheet-1")
	t.Setenv("FINMIND_TOKEN", "fm-token")
}

func TestLoad_DefaultsAndEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STOCK_LIST", "2330:台積電, 6770:力積電,2409")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(cfg.Symbols) != 3 || cfg.Symbols[1].Name != "力積電" || cfg.Symbols[2].DisplayName() != "2409" {
		t.Errorf("symbols = %+v", cfg.Symbols)
	}
	if cfg.Store.KeepDays != 400 || cfg.Store.SheetName != "Sheet1" {
		t.Errorf("store defaults = %+v", cfg.Store)
	}
	if cfg.Store.RateLimit.Attempts != 6 || cfg.Store.RateLimit.MaxDelay != time.Minute {
		t.Errorf("rate limit defaults = %+v", cfg.Store.RateLimit)
	}
	if len(cfg.Source.Tiers) != 4 || cfg.Source.Tiers[3] != "yahoo:latest" {
		t.Errorf("tiers = %v", cfg.Source.Tiers)
	}
	if cfg.Session.PriorCloseAt != "13:30" || cfg.Backfill.Pause != time.Minute {
		t.Errorf("session/backfill defaults wrong: %+v %+v", cfg.Session, cfg.Backfill)
	}
	if _, err := cfg.Location(); err != nil {
		t.Errorf("location: %v", err)
	}
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	setRequiredEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
symbols:
  - id: "2344"
    name: 華邦電
store:
  keep_days: 120
advisory:
  mode: threshold
backfill:
  pause: 5s
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Symbols[0].ID != "2344" || cfg.Store.KeepDays != 120 || cfg.Advisory.Mode != "threshold" {
		t.Errorf("yaml not applied: %+v", cfg)
	}
	if cfg.Backfill.Pause != 5*time.Second {
		t.Errorf("pause = %v", cfg.Backfill.Pause)
	}
}

func TestValidate_Missing(t *testing.T) {
	for _, k := range []string{"LINE_CHANNEL_ACCESS_TOKEN", "LINE_USER_ID", "GOOGLE_SHEETS_CREDENTIALS", "GOOGLE_SHEET_ID", "FINMIND_TOKEN"} {
		t.Setenv(k, "")
	}
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	err = cfg.Validate()
	var missing *MissingError
	if !errors.As(err, &missing) {
		t.Fatalf("expected *MissingError, got %v", err)
	}
	joined := strings.Join(missing.Fields, ",")
	for _, want := range []string{"line.channel_token", "line.user_id", "finmind.token", "store.sheet_id", "store.credentials"} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing fields %q do not mention %s", joined, want)
		}
	}
}

func TestValidate_SQLiteBackendNeedsNoSheet(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GOOGLE_SHEETS_CREDENTIALS", "")
	t.Setenv("GOOGLE_SHEET_ID", "")
	t.Setenv("STORE_BACKEND", "sqlite")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("sqlite backend should not require sheet credentials: %v", err)
	}
}

func TestValidate_Invalid(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ADVISORY_MODE", "blend")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	err = cfg.Validate()
	var missing *MissingError
	if err == nil || errors.As(err, &missing) {
		t.Errorf("expected invalid-value error, got %v", err)
	}
}

func TestClockAt(t *testing.T) {
	m, err := ClockAt("13:30")
	if err != nil || m != 13*60+30 {
		t.Errorf("got %d, %v", m, err)
	}
	if _, err := ClockAt("25:00"); err == nil {
		t.Error("expected error")
	}
}
