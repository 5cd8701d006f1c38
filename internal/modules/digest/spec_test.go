package digest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yungbote/policylens-backend/internal/modules/digest/periods"
)

func TestLoadSpecEmbeddedDefaults(t *testing.T) {
	t.Setenv(digestSpecEnv, "")
	s, err := LoadSpec(nil)
	if err != nil {
		t.Fatalf("LoadSpec: %v", err)
	}
	if s.Terms.GapYears != 2 || s.Terms.OpenTailYears != 1 {
		t.Fatalf("term tunables: %+v", s.Terms)
	}
	if s.Granularity() != periods.Quarter {
		t.Fatalf("granularity: %s", s.Granularity())
	}
	if s.Topics.MaxShow != 3 {
		t.Fatalf("max_show: %d", s.Topics.MaxShow)
	}
	if s.Pacing.Mode != "fixed" || s.Pacing.Interval != 2*time.Second {
		t.Fatalf("pacing: %+v", s.Pacing)
	}
}

func TestLoadSpecEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "digest.yaml")
	override := `spec: digest
version: 2
terms:
  gap_years: 4
  open_tail_years: 2
periods:
  granularity: month
topics:
  max_show: 2
  top_tags: 6
pacing:
  mode: token_bucket
  calls_per_minute: 10
  burst: 2
`
	if err := os.WriteFile(path, []byte(override), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}
	t.Setenv(digestSpecEnv, path)

	s, err := LoadSpec(nil)
	if err != nil {
		t.Fatalf("LoadSpec: %v", err)
	}
	if s.Terms.GapYears != 4 || s.Granularity() != periods.Month || s.Pacing.Mode != "token_bucket" {
		t.Fatalf("override not applied: %+v", s)
	}
}

func TestLoadSpecRejectsInvalidOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "digest.yaml")
	bad := `spec: digest
version: 1
terms:
  gap_years: 0
periods:
  granularity: quarter
topics:
  max_show: 3
  top_tags: 5
pacing:
  mode: fixed
`
	if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}
	t.Setenv(digestSpecEnv, path)

	if _, err := LoadSpec(nil); err == nil {
		t.Fatalf("invalid spec must fail closed")
	}
}

func TestLoadSpecMissingOverrideFallsBack(t *testing.T) {
	t.Setenv(digestSpecEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	s, err := LoadSpec(nil)
	if err != nil {
		t.Fatalf("LoadSpec: %v", err)
	}
	if s.Terms.GapYears != 2 {
		t.Fatalf("fallback not applied: %+v", s.Terms)
	}
}
