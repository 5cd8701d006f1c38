package topics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/policylens-backend/internal/domain/digests"
	"github.com/yungbote/policylens-backend/internal/domain/orders"
	"github.com/yungbote/policylens-backend/internal/domain/registry"
)

// EmptyProse is rendered when a group carries no countable tags.
const EmptyProse = "a range of policy areas"

// TagCount is a ranked tag frequency within one order group.
type TagCount struct {
	ID    uuid.UUID
	Slug  string
	Name  string
	Count int
}

// Extractor selects which tag-id array of an order to count.
type Extractor func(o orders.Order) []uuid.UUID

func Themes(o orders.Order) []uuid.UUID            { return o.Themes() }
func PopulationsHelped(o orders.Order) []uuid.UUID { return o.PopulationsHelped() }
func PopulationsHurt(o orders.Order) []uuid.UUID   { return o.PopulationsHurt() }

// Count tallies tag occurrences across the group and resolves display names
// through the registry snapshot. The result is sorted by count descending;
// ties break by first-occurrence order across the order sequence, never by map
// iteration order. Tags missing from the snapshot are counted under their raw
// id so a stale taxonomy is visible instead of silently shrinking counts.
func Count(ords []orders.Order, snapshot *registry.Snapshot, extract Extractor) []TagCount {
	counts := map[uuid.UUID]*TagCount{}
	var firstSeen []uuid.UUID

	for _, o := range ords {
		for _, id := range extract(o) {
			tc, ok := counts[id]
			if !ok {
				tc = &TagCount{ID: id}
				if tag, found := snapshot.Tag(id); found {
					tc.Slug = tag.Slug
					tc.Name = tag.DisplayName
				} else {
					tc.Slug = id.String()
					tc.Name = id.String()
				}
				counts[id] = tc
				firstSeen = append(firstSeen, id)
			}
			tc.Count++
		}
	}

	out := make([]TagCount, 0, len(firstSeen))
	for _, id := range firstSeen {
		out = append(out, *counts[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// Stats converts ranked counts to the persisted digest form, truncated to max.
func Stats(counts []TagCount, max int) []digests.TagStat {
	if max > 0 && len(counts) > max {
		counts = counts[:max]
	}
	out := make([]digests.TagStat, 0, len(counts))
	for _, c := range counts {
		out = append(out, digests.TagStat{TagID: c.ID, Slug: c.Slug, Name: c.Name, Count: c.Count})
	}
	return out
}

// Prose renders the top tags as a natural-language list, showing at most
// maxShow names and folding the remainder into "and N other(s)". Slug-style
// names render with hyphens as spaces.
func Prose(counts []TagCount, maxShow int) string {
	if len(counts) == 0 {
		return EmptyProse
	}
	if maxShow <= 0 {
		maxShow = 3
	}

	shown := counts
	rest := 0
	if len(counts) > maxShow {
		shown = counts[:maxShow]
		rest = len(counts) - maxShow
	}

	names := make([]string, 0, len(shown))
	for _, c := range shown {
		names = append(names, displayName(c))
	}

	var list string
	switch len(names) {
	case 1:
		list = names[0]
	case 2:
		list = names[0] + " and " + names[1]
	default:
		list = strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
	}

	if rest == 0 {
		return list
	}
	if rest == 1 {
		return list + ", and 1 other"
	}
	return fmt.Sprintf("%s, and %d others", list, rest)
}

func displayName(c TagCount) string {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = strings.TrimSpace(c.Slug)
	}
	return strings.ReplaceAll(name, "-", " ")
}
