package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungbote/policylens-backend/internal/domain/digests"
	"github.com/yungbote/policylens-backend/internal/platform/logger"
	"github.com/yungbote/policylens-backend/internal/platform/openai"
)

// NarrativeService produces the model-written prose for one digest entry.
// Responses are requested against a strict JSON schema and validated after
// decode; anything malformed or incomplete fails that entry, never the run.
type NarrativeService interface {
	TermNarrative(ctx context.Context, in TermNarrativeInput) (*digests.Narrative, string, error)
	PeriodNarrative(ctx context.Context, in PeriodNarrativeInput) (*digests.Narrative, string, error)
	ThemeNarrative(ctx context.Context, in ThemeNarrativeInput) (*digests.Narrative, string, error)
}

type TermNarrativeInput struct {
	OfficialName string
	StartYear    int
	EndYear      int
	Open         bool
	OrderCount   int
	ThemeProse   string
	HelpedProse  string
	HurtProse    string
}

type PeriodNarrativeInput struct {
	PeriodLabel   string
	OfficialNames []string
	Transition    bool
	OrderCount    int
	ThemeProse    string
}

type ThemeNarrativeInput struct {
	ThemeName  string
	Year       int
	OrderCount int
}

type narrativeService struct {
	log *logger.Logger
	ai  openai.Client
}

func NewNarrativeService(baseLog *logger.Logger, ai openai.Client) NarrativeService {
	return &narrativeService{
		log: baseLog.With("service", "NarrativeService"),
		ai:  ai,
	}
}

const narrativeSystemPrompt = "You summarize executive policy activity for a public-facing digest. " +
	"Write neutral, factual prose grounded only in the statistics you are given. " +
	"Do not speculate about motives and do not evaluate whether policies were good or bad."

func narrativeSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"headline", "summary", "impact"},
		"properties": map[string]any{
			"headline": map[string]any{
				"type":        "string",
				"description": "One short neutral headline, under 12 words.",
			},
			"summary": map[string]any{
				"type":        "string",
				"description": "Two to three sentences summarizing the activity volume and dominant themes.",
			},
			"impact": map[string]any{
				"type":        "string",
				"description": "One sentence on which populations the activity most affected.",
			},
		},
	}
}

func (s *narrativeService) TermNarrative(ctx context.Context, in TermNarrativeInput) (*digests.Narrative, string, error) {
	endLabel := fmt.Sprintf("%d", in.EndYear)
	if in.Open {
		endLabel = "present"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Official: %s\n", in.OfficialName)
	fmt.Fprintf(&b, "Term: %d to %s\n", in.StartYear, endLabel)
	fmt.Fprintf(&b, "Orders signed in this term: %d\n", in.OrderCount)
	fmt.Fprintf(&b, "Dominant themes: %s\n", in.ThemeProse)
	if in.HelpedProse != "" {
		fmt.Fprintf(&b, "Populations most helped (by tag frequency): %s\n", in.HelpedProse)
	}
	if in.HurtProse != "" {
		fmt.Fprintf(&b, "Populations most burdened (by tag frequency): %s\n", in.HurtProse)
	}
	b.WriteString("Write the digest entry for this term.")
	return s.generate(ctx, "term_digest_entry", b.String())
}

func (s *narrativeService) PeriodNarrative(ctx context.Context, in PeriodNarrativeInput) (*digests.Narrative, string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Period: %s\n", in.PeriodLabel)
	fmt.Fprintf(&b, "Orders signed in this period: %d\n", in.OrderCount)
	fmt.Fprintf(&b, "Issuing officials, in order of first order: %s\n", strings.Join(in.OfficialNames, ", "))
	if in.Transition {
		b.WriteString("This period spans a transition between officials; mention the handover.\n")
	}
	fmt.Fprintf(&b, "Dominant themes: %s\n", in.ThemeProse)
	b.WriteString("Write the digest entry for this period.")
	return s.generate(ctx, "period_digest_entry", b.String())
}

func (s *narrativeService) ThemeNarrative(ctx context.Context, in ThemeNarrativeInput) (*digests.Narrative, string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Theme: %s\n", in.ThemeName)
	fmt.Fprintf(&b, "Year: %d\n", in.Year)
	fmt.Fprintf(&b, "Orders tagged with this theme in this year: %d\n", in.OrderCount)
	b.WriteString("Write the digest entry for this theme-year.")
	return s.generate(ctx, "theme_digest_entry", b.String())
}

func (s *narrativeService) generate(ctx context.Context, schemaName string, user string) (*digests.Narrative, string, error) {
	if s.ai == nil {
		return nil, "", fmt.Errorf("narrative model is not configured")
	}
	out, err := s.ai.GenerateJSON(ctx, narrativeSystemPrompt, user, schemaName, narrativeSchema())
	if err != nil {
		return nil, "", fmt.Errorf("narrative generation failed: %w", err)
	}
	n, err := decodeNarrative(out)
	if err != nil {
		return nil, "", err
	}
	return n, s.ai.Model(), nil
}

// decodeNarrative round-trips the schema output into the typed Narrative and
// rejects anything the schema should have made impossible.
func decodeNarrative(out map[string]any) (*digests.Narrative, error) {
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("narrative response not serializable: %w", err)
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()
	var n digests.Narrative
	if err := dec.Decode(&n); err != nil {
		return nil, fmt.Errorf("narrative response does not match schema: %w", err)
	}
	if strings.TrimSpace(n.Headline) == "" || strings.TrimSpace(n.Summary) == "" || strings.TrimSpace(n.Impact) == "" {
		return nil, fmt.Errorf("narrative response has empty fields")
	}
	return &n, nil
}
