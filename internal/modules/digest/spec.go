package digest

import (
	"embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/policylens-backend/internal/modules/digest/periods"
	"github.com/yungbote/policylens-backend/internal/platform/logger"
	"github.com/yungbote/policylens-backend/internal/platform/pacing"
)

const digestSpecEnv = "DIGEST_SPEC_YAML"

//go:embed digest.yaml
var digestSpecFS embed.FS

// Spec carries the run tunables for digest computation. It is loaded from the
// embedded digest.yaml, or from the file named by DIGEST_SPEC_YAML when set,
// and validated before use. One Spec is loaded per process and passed down
// explicitly.
type Spec struct {
	Spec    string `yaml:"spec"`
	Version int    `yaml:"version"`

	Terms struct {
		GapYears      int `yaml:"gap_years"`
		OpenTailYears int `yaml:"open_tail_years"`
	} `yaml:"terms"`

	Periods struct {
		Granularity string `yaml:"granularity"`
	} `yaml:"periods"`

	Topics struct {
		MaxShow int `yaml:"max_show"`
		TopTags int `yaml:"top_tags"`
	} `yaml:"topics"`

	Pacing struct {
		Mode           string        `yaml:"mode"`
		Interval       time.Duration `yaml:"interval"`
		CallsPerMinute int           `yaml:"calls_per_minute"`
		Burst          int           `yaml:"burst"`
	} `yaml:"pacing"`
}

func fallbackSpec() Spec {
	var s Spec
	s.Spec = "digest"
	s.Version = 1
	s.Terms.GapYears = 2
	s.Terms.OpenTailYears = 1
	s.Periods.Granularity = string(periods.Quarter)
	s.Topics.MaxShow = 3
	s.Topics.TopTags = 5
	s.Pacing.Mode = "fixed"
	s.Pacing.Interval = 2 * time.Second
	s.Pacing.CallsPerMinute = 30
	s.Pacing.Burst = 1
	return s
}

// LoadSpec reads and validates the digest spec. A missing or invalid override
// file is logged and falls back to the embedded spec; an invalid embedded spec
// is a programming error and fails closed.
func LoadSpec(log *logger.Logger) (Spec, error) {
	data, source, err := readSpec()
	if err != nil {
		if log != nil {
			log.Warn("digest spec load failed; using built-in defaults", "error", err)
		}
		return fallbackSpec(), nil
	}

	var s Spec
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Spec{}, fmt.Errorf("parse digest spec (%s): %w", source, err)
	}
	if err := s.validate(); err != nil {
		return Spec{}, fmt.Errorf("invalid digest spec (%s): %w", source, err)
	}
	if log != nil {
		log.Debug("digest spec loaded", "source", source, "version", s.Version)
	}
	return s, nil
}

func readSpec() ([]byte, string, error) {
	if path := strings.TrimSpace(os.Getenv(digestSpecEnv)); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("read %s: %w", path, err)
		}
		return data, path, nil
	}
	data, err := digestSpecFS.ReadFile("digest.yaml")
	if err != nil {
		return nil, "", err
	}
	return data, "embedded", nil
}

func (s *Spec) validate() error {
	if s.Spec != "digest" {
		return fmt.Errorf("unexpected spec name %q", s.Spec)
	}
	if s.Terms.GapYears < 1 {
		return fmt.Errorf("terms.gap_years must be >= 1")
	}
	if s.Terms.OpenTailYears < 0 {
		return fmt.Errorf("terms.open_tail_years must be >= 0")
	}
	if _, err := periods.ParseGranularity(s.Periods.Granularity); err != nil {
		return err
	}
	if s.Topics.MaxShow < 1 {
		return fmt.Errorf("topics.max_show must be >= 1")
	}
	if s.Topics.TopTags < s.Topics.MaxShow {
		return fmt.Errorf("topics.top_tags must be >= topics.max_show")
	}
	switch s.Pacing.Mode {
	case "fixed":
		if s.Pacing.Interval < 0 {
			return fmt.Errorf("pacing.interval must be >= 0")
		}
	case "token_bucket":
		if s.Pacing.CallsPerMinute < 1 {
			return fmt.Errorf("pacing.calls_per_minute must be >= 1")
		}
	default:
		return fmt.Errorf("unknown pacing.mode %q", s.Pacing.Mode)
	}
	return nil
}

// Granularity returns the validated period granularity.
func (s Spec) Granularity() periods.Granularity {
	g, err := periods.ParseGranularity(s.Periods.Granularity)
	if err != nil {
		return periods.Quarter
	}
	return g
}

// NewPacer builds the configured pacer for narrative calls.
func (s Spec) NewPacer() pacing.Pacer {
	if s.Pacing.Mode == "token_bucket" {
		return pacing.NewTokenBucket(s.Pacing.CallsPerMinute, s.Pacing.Burst)
	}
	return pacing.NewFixedInterval(s.Pacing.Interval)
}
