package merge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
)

var testNow = func() time.Time { return time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC) }

func periodEntry(t *testing.T, period string, count int) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"period":      period,
		"granularity": "quarter",
		"order_count": count,
		// extra field exercised by the byte-preservation contract
		"note": "hand written " + period,
	})
	if err != nil {
		t.Fatalf("marshal entry: %v", err)
	}
	return raw
}

func staticCandidate(t *testing.T, period string, count int) Candidate {
	t.Helper()
	raw := periodEntry(t, period, count)
	return Candidate{
		Key: period,
		Generate: func(context.Context) (json.RawMessage, error) {
			return raw, nil
		},
	}
}

func TestRunInsertsAndSortsCanonically(t *testing.T) {
	out, outcome, changed, err := Run(context.Background(), Collection{}, Periods(), PolicySkip,
		[]Candidate{
			staticCandidate(t, "2024-Q4", 2),
			staticCandidate(t, "2025-Q2", 5),
			staticCandidate(t, "2025-Q1", 3),
		}, nil, testNow, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !changed || outcome.Generated != 3 {
		t.Fatalf("outcome: %+v changed=%v", outcome, changed)
	}
	keys := entryKeys(t, Periods(), out.Entries)
	want := []string{"2025-Q2", "2025-Q1", "2024-Q4"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("canonical order: want %v got %v", want, keys)
		}
	}
	if !out.GeneratedAt.Equal(testNow().UTC()) {
		t.Fatalf("generated_at not refreshed: %s", out.GeneratedAt)
	}
}

func TestRunSkipsExistingKeys(t *testing.T) {
	existing := Collection{
		Entries:     []json.RawMessage{periodEntry(t, "2025-Q1", 3)},
		GeneratedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	generateCalls := 0
	cand := Candidate{
		Key: "2025-Q1",
		Generate: func(context.Context) (json.RawMessage, error) {
			generateCalls++
			return periodEntry(t, "2025-Q1", 99), nil
		},
	}

	out, outcome, changed, err := Run(context.Background(), existing, Periods(), PolicySkip, []Candidate{cand}, nil, testNow, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if generateCalls != 0 {
		t.Fatalf("skip policy must not regenerate, called %d times", generateCalls)
	}
	if changed {
		t.Fatalf("no-op run must report unchanged")
	}
	if outcome.Skipped != 1 || outcome.Kept != 1 {
		t.Fatalf("outcome: %+v", outcome)
	}
	if !out.GeneratedAt.Equal(existing.GeneratedAt) {
		t.Fatalf("generated_at must not move on a no-op run")
	}
	if !bytes.Equal(out.Entries[0], existing.Entries[0]) {
		t.Fatalf("skipped entry must be byte-identical")
	}
}

func TestRunForceReplacesWholeEntry(t *testing.T) {
	existing := Collection{Entries: []json.RawMessage{periodEntry(t, "2025-Q1", 3)}}
	out, outcome, changed, err := Run(context.Background(), existing, Periods(), PolicyForce,
		[]Candidate{staticCandidate(t, "2025-Q1", 42)}, nil, testNow, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !changed || outcome.Generated != 1 {
		t.Fatalf("outcome: %+v", outcome)
	}
	if len(out.Entries) != 1 {
		t.Fatalf("replacement must not append, got %d entries", len(out.Entries))
	}
	var p struct {
		OrderCount int `json:"order_count"`
	}
	if err := json.Unmarshal(out.Entries[0], &p); err != nil || p.OrderCount != 42 {
		t.Fatalf("entry not replaced: %s", out.Entries[0])
	}
}

func TestRunScopeIsolationKeepsOtherYearsByteIdentical(t *testing.T) {
	older := periodEntry(t, "2024-Q3", 7)
	existing := Collection{Entries: []json.RawMessage{older, periodEntry(t, "2025-Q1", 1)}}

	out, _, _, err := Run(context.Background(), existing, Periods(), PolicyForce,
		[]Candidate{staticCandidate(t, "2025-Q1", 2), staticCandidate(t, "2025-Q2", 4)}, nil, testNow, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	keys := entryKeys(t, Periods(), out.Entries)
	found := false
	for i, k := range keys {
		if k == "2024-Q3" {
			found = true
			if !bytes.Equal(out.Entries[i], older) {
				t.Fatalf("out-of-scope entry mutated:\nwas %s\nnow %s", older, out.Entries[i])
			}
		}
	}
	if !found {
		t.Fatalf("out-of-scope entry dropped: %v", keys)
	}
}

func TestRunIdempotence(t *testing.T) {
	cands := []Candidate{
		staticCandidate(t, "2025-Q1", 3),
		staticCandidate(t, "2025-Q2", 5),
	}
	first, _, _, err := Run(context.Background(), Collection{}, Periods(), PolicySkip, cands, nil, testNow, nil)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, outcome, changed, err := Run(context.Background(), first, Periods(), PolicySkip, cands, nil, testNow, nil)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if changed || outcome.Generated != 0 {
		t.Fatalf("second run must be a no-op, outcome=%+v", outcome)
	}
	if len(second.Entries) != len(first.Entries) {
		t.Fatalf("entry count drifted: %d vs %d", len(first.Entries), len(second.Entries))
	}
	for i := range first.Entries {
		if !bytes.Equal(first.Entries[i], second.Entries[i]) {
			t.Fatalf("entry %d changed across idempotent reruns", i)
		}
	}
}

func TestRunGeneratorFailureContinues(t *testing.T) {
	existingQ1 := periodEntry(t, "2025-Q1", 3)
	existing := Collection{Entries: []json.RawMessage{existingQ1}}

	cands := []Candidate{
		{Key: "2025-Q1", Generate: func(context.Context) (json.RawMessage, error) {
			return nil, errors.New("narrative service unavailable")
		}},
		staticCandidate(t, "2025-Q2", 4),
	}

	out, outcome, changed, err := Run(context.Background(), existing, Periods(), PolicyForce, cands, nil, testNow, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Failed != 1 || outcome.Generated != 1 {
		t.Fatalf("outcome: %+v", outcome)
	}
	if !changed {
		t.Fatalf("successful sibling key should still mark the run changed")
	}
	keys := entryKeys(t, Periods(), out.Entries)
	if len(keys) != 2 {
		t.Fatalf("entries: want 2 got %v", keys)
	}
	// The failed key keeps its previous entry untouched.
	for i, k := range keys {
		if k == "2025-Q1" && !bytes.Equal(out.Entries[i], existingQ1) {
			t.Fatalf("failed key's existing entry was disturbed")
		}
	}
}

func TestRunRejectsEntryWithWrongKey(t *testing.T) {
	cand := Candidate{
		Key: "2025-Q1",
		Generate: func(context.Context) (json.RawMessage, error) {
			return periodEntry(t, "2025-Q2", 1), nil
		},
	}
	out, outcome, _, err := Run(context.Background(), Collection{}, Periods(), PolicySkip, []Candidate{cand}, nil, testNow, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Failed != 1 || len(out.Entries) != 0 {
		t.Fatalf("mismatched key must count as failure: %+v entries=%d", outcome, len(out.Entries))
	}
}

func TestDecodeMalformedTreatedAsEmpty(t *testing.T) {
	c := Decode([]byte("{not json"), nil)
	if len(c.Entries) != 0 {
		t.Fatalf("malformed document should decode empty")
	}
	c = Decode(nil, nil)
	if len(c.Entries) != 0 {
		t.Fatalf("missing document should decode empty")
	}
}

func TestScopeMatches(t *testing.T) {
	officialID := uuid.New()
	tagID := uuid.New()
	year := 2025
	period := "2025-Q1"

	termRaw, _ := json.Marshal(map[string]any{"official_id": officialID, "start_year": 2025})
	periodRaw, _ := json.Marshal(map[string]any{"period": period})
	themeRaw, _ := json.Marshal(map[string]any{"tag_id": tagID, "year": 2024, "order_count": 3})

	if !(Scope{OfficialID: &officialID}).Matches(termRaw) {
		t.Fatalf("official scope should match term entry")
	}
	if (Scope{Year: &year}).Matches(themeRaw) {
		t.Fatalf("2025 scope must not match 2024 theme entry")
	}
	if !(Scope{Year: &year}).Matches(periodRaw) {
		t.Fatalf("year scope should match period entry via its key")
	}
	if !(Scope{}).Matches(themeRaw) {
		t.Fatalf("empty scope matches everything")
	}
	other := uuid.New()
	if (Scope{TagID: &other}).Matches(themeRaw) {
		t.Fatalf("different tag must not match")
	}
}

func TestTermAndThemeKinds(t *testing.T) {
	officialID := uuid.New()
	tagID := uuid.New()

	termRaw, _ := json.Marshal(map[string]any{
		"official_id": officialID, "official_slug": "smith", "start_year": 2021,
	})
	key, err := Terms().KeyOf(termRaw)
	if err != nil {
		t.Fatalf("term key: %v", err)
	}
	if key != fmt.Sprintf("%s:2021", officialID) {
		t.Fatalf("term key: got %s", key)
	}

	themeRaw, _ := json.Marshal(map[string]any{"tag_id": tagID, "year": 2024, "order_count": 9})
	key, err = Themes().KeyOf(themeRaw)
	if err != nil {
		t.Fatalf("theme key: %v", err)
	}
	if key != fmt.Sprintf("%s:2024", tagID) {
		t.Fatalf("theme key: got %s", key)
	}

	if _, err := Terms().KeyOf(json.RawMessage(`{}`)); err == nil {
		t.Fatalf("keyless term entry should error")
	}
}

func TestThemeCanonicalOrder(t *testing.T) {
	mk := func(tagID uuid.UUID, year, count int) json.RawMessage {
		raw, _ := json.Marshal(map[string]any{"tag_id": tagID, "year": year, "order_count": count})
		return raw
	}
	lowTag := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	highTag := uuid.MustParse("00000000-0000-0000-0000-000000000002")

	entries := []json.RawMessage{
		mk(highTag, 2025, 3),
		mk(highTag, 2024, 5),
		mk(lowTag, 2024, 5),
		mk(lowTag, 2025, 9),
	}
	kind := Themes()
	sort.SliceStable(entries, func(i, j int) bool { return kind.Less(entries[i], entries[j]) })

	keys := entryKeys(t, kind, entries)
	// count desc, then year desc, then tag id asc
	expect := []string{
		fmt.Sprintf("%s:2025", lowTag),
		fmt.Sprintf("%s:2024", lowTag),
		fmt.Sprintf("%s:2024", highTag),
		fmt.Sprintf("%s:2025", highTag),
	}
	for i := range expect {
		if keys[i] != expect[i] {
			t.Fatalf("canonical theme order: want %v got %v", expect, keys)
		}
	}
}

func entryKeys(t *testing.T, kind Kind, entries []json.RawMessage) []string {
	t.Helper()
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		k, err := kind.KeyOf(e)
		if err != nil {
			t.Fatalf("key extraction: %v", err)
		}
		out = append(out, k)
	}
	return out
}
