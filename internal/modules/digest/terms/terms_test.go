package terms

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/policylens-backend/internal/domain/orders"
)

func orderAt(officialID uuid.UUID, ts time.Time) orders.Order {
	return orders.Order{ID: uuid.New(), OfficialID: officialID, SignedAt: ts}
}

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func fixedNow(y int) func() time.Time {
	return func() time.Time { return date(y, 7, 1) }
}

func TestFromOrdersGapSegmentation(t *testing.T) {
	officialID := uuid.New()
	var ords []orders.Order
	for _, y := range []int{2001, 2002, 2003, 2006, 2007} {
		ords = append(ords, orderAt(officialID, date(y, 3, 15)))
	}

	got := FromOrders(ords, Config{GapYears: 2, OpenTailYears: 1, Now: fixedNow(2007)})
	if len(got) != 2 {
		t.Fatalf("terms: want 2 got %d (%+v)", len(got), got)
	}
	if got[0].StartYear != 2001 || got[0].EndYear != 2004 || got[0].Open {
		t.Fatalf("first term: want 2001-2004 closed, got %+v", got[0])
	}
	if got[1].StartYear != 2006 || !got[1].Open || got[1].EndYear != OpenEndYear {
		t.Fatalf("second term: want 2006-open, got %+v", got[1])
	}
}

func TestFromOrdersStaleTailCloses(t *testing.T) {
	officialID := uuid.New()
	ords := []orders.Order{
		orderAt(officialID, date(2018, 1, 10)),
		orderAt(officialID, date(2019, 5, 2)),
	}
	got := FromOrders(ords, Config{Now: fixedNow(2025)})
	if len(got) != 1 {
		t.Fatalf("terms: want 1 got %d", len(got))
	}
	if got[0].Open || got[0].EndYear != 2020 {
		t.Fatalf("stale tail should close at 2020, got %+v", got[0])
	}
}

func TestFromOrdersSingleYearNeverSplits(t *testing.T) {
	officialID := uuid.New()
	var ords []orders.Order
	for m := 1; m <= 12; m++ {
		ords = append(ords, orderAt(officialID, date(2024, m, 1)))
	}
	got := FromOrders(ords, Config{Now: fixedNow(2025)})
	if len(got) != 1 {
		t.Fatalf("single-year records split into %d terms", len(got))
	}
}

func TestFromOrdersEmptyInput(t *testing.T) {
	if got := FromOrders(nil, Config{}); got != nil {
		t.Fatalf("empty input: want nil got %+v", got)
	}
}

func TestFromIntervalsOpenEndUsesSentinel(t *testing.T) {
	officialID := uuid.New()
	end := date(2021, 1, 20)
	got, err := FromIntervals([]Interval{
		{OfficialID: officialID, Start: date(2017, 1, 20), End: &end},
		{OfficialID: officialID, Start: date(2025, 1, 20)},
	})
	if err != nil {
		t.Fatalf("FromIntervals: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("terms: want 2 got %d", len(got))
	}
	if got[0].StartYear != 2017 || got[0].EndYear != 2021 || got[0].Open {
		t.Fatalf("closed term: got %+v", got[0])
	}
	if got[1].StartYear != 2025 || got[1].EndYear != OpenEndYear || !got[1].Open {
		t.Fatalf("open term: got %+v", got[1])
	}
}

func TestFromIntervalsRejectsOverlap(t *testing.T) {
	officialID := uuid.New()
	endA := date(2021, 1, 20)
	_, err := FromIntervals([]Interval{
		{OfficialID: officialID, Start: date(2017, 1, 20), End: &endA},
		{OfficialID: officialID, Start: date(2020, 6, 1)},
	})
	if err == nil {
		t.Fatalf("expected overlap error")
	}
}

func TestFromIntervalsRejectsEndBeforeStart(t *testing.T) {
	officialID := uuid.New()
	end := date(2016, 1, 1)
	_, err := FromIntervals([]Interval{
		{OfficialID: officialID, Start: date(2017, 1, 20), End: &end},
	})
	if err == nil {
		t.Fatalf("expected end-before-start error")
	}
}

func TestDetectAssignsEveryCoveredOrderExactlyOnce(t *testing.T) {
	officialID := uuid.New()
	endA := date(2021, 1, 20)
	intervals := []Interval{
		{OfficialID: officialID, Start: date(2017, 1, 20), End: &endA},
		{OfficialID: officialID, Start: date(2025, 1, 20)},
	}
	ords := []orders.Order{
		orderAt(officialID, date(2017, 2, 1)),
		orderAt(officialID, date(2021, 1, 10)), // inside first interval (half-open)
		orderAt(officialID, date(2025, 3, 3)),
	}

	byOfficial, grouped, unassigned, err := Detect(ords, intervals, Config{Now: fixedNow(2025)})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(unassigned) != 0 {
		t.Fatalf("unassigned: want 0 got %d", len(unassigned))
	}
	if len(byOfficial[officialID]) != 2 {
		t.Fatalf("terms: want 2 got %d", len(byOfficial[officialID]))
	}
	total := 0
	for _, g := range grouped {
		total += len(g)
	}
	if total != len(ords) {
		t.Fatalf("assignment total: want %d got %d", len(ords), total)
	}
	first := Key{OfficialID: officialID, StartYear: 2017}
	if len(grouped[first]) != 2 {
		t.Fatalf("first term orders: want 2 got %d", len(grouped[first]))
	}
}

func TestDetectReportsOrdersOutsideIntervals(t *testing.T) {
	officialID := uuid.New()
	end := date(2021, 1, 20)
	intervals := []Interval{{OfficialID: officialID, Start: date(2017, 1, 20), End: &end}}
	ords := []orders.Order{
		orderAt(officialID, date(2016, 5, 5)),
		orderAt(officialID, date(2018, 5, 5)),
	}
	_, grouped, unassigned, err := Detect(ords, intervals, Config{Now: fixedNow(2025)})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(unassigned) != 1 {
		t.Fatalf("unassigned: want 1 got %d", len(unassigned))
	}
	if len(grouped[Key{OfficialID: officialID, StartYear: 2017}]) != 1 {
		t.Fatalf("grouped: want 1 order in 2017 term")
	}
}

func TestDetectSkipsIntervalsWithoutOrders(t *testing.T) {
	officialID := uuid.New()
	endA := date(2021, 1, 20)
	intervals := []Interval{
		{OfficialID: officialID, Start: date(2017, 1, 20), End: &endA},
		{OfficialID: officialID, Start: date(2025, 1, 20)},
	}
	ords := []orders.Order{orderAt(officialID, date(2018, 1, 1))}
	byOfficial, _, _, err := Detect(ords, intervals, Config{Now: fixedNow(2025)})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(byOfficial[officialID]) != 1 {
		t.Fatalf("empty interval should not emit a term, got %+v", byOfficial[officialID])
	}
}
