package orders_sync

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/policylens-backend/internal/domain"
	"github.com/yungbote/policylens-backend/internal/domain/orders"
	"github.com/yungbote/policylens-backend/internal/domain/registry"
	jobrt "github.com/yungbote/policylens-backend/internal/jobs/runtime"
	"github.com/yungbote/policylens-backend/internal/pkg/dbctx"
	"github.com/yungbote/policylens-backend/internal/platform/fedreg"
)

// defaultSyncStart is used for the first sync against an empty orders table.
var defaultSyncStart = time.Date(1993, 1, 1, 0, 0, 0, 0, time.UTC)

// syncOverlap re-fetches a trailing window so late feed corrections to
// already-ingested documents are picked up. The upsert keeps this idempotent.
const syncOverlap = 7 * 24 * time.Hour

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	ctx := jc.Ctx
	dbc := dbctx.Context{Ctx: ctx}

	since := defaultSyncStart
	latest, err := p.orders.LatestSignedAt(dbc)
	if err != nil {
		jc.Fail("cursor", err)
		return nil
	}
	if latest != nil {
		since = latest.Add(-syncOverlap)
	}

	jc.Progress("fetch", 10, fmt.Sprintf("Fetching orders signed since %s", since.Format("2006-01-02")))
	docs, err := p.feed.FetchSince(ctx, since)
	if err != nil {
		jc.Fail("fetch", err)
		return nil
	}
	if len(docs) == 0 {
		jc.Succeed("done", map[string]any{"fetched": 0, "upserted": 0})
		return nil
	}

	jc.Progress("resolve", 40, fmt.Sprintf("Resolving officials for %d documents", len(docs)))
	snap, err := p.registry.Snapshot(ctx)
	if err != nil {
		jc.Fail("resolve", err)
		return nil
	}

	officialIDs, created, err := p.resolveOfficials(ctx, snap, docs)
	if err != nil {
		jc.Fail("resolve", err)
		return nil
	}
	if created > 0 {
		// New officials invalidate the cached snapshot and need a reload so
		// the rows below reference real ids.
		p.registry.Invalidate(ctx)
		if snap, err = p.registry.Snapshot(ctx); err != nil {
			jc.Fail("resolve", err)
			return nil
		}
	}

	jc.Progress("upsert", 70, "Tagging and upserting orders")
	rows := make([]*types.Order, 0, len(docs))
	for _, d := range docs {
		officialID, ok := officialIDs[officialNameKey(d.OfficialName)]
		if !ok {
			p.log.Warn("Skipping document with unresolvable official",
				"document_number", d.DocumentNumber, "official_name", d.OfficialName)
			continue
		}
		rows = append(rows, p.orderRow(snap, d, officialID))
	}

	upserted, err := p.orders.UpsertByExternalID(dbc, rows)
	if err != nil {
		jc.Fail("upsert", err)
		return nil
	}

	jc.Succeed("done", map[string]any{
		"fetched":           len(docs),
		"upserted":          upserted,
		"officials_created": created,
	})
	return nil
}

// resolveOfficials maps each distinct feed official name to a registry
// official id, creating officials that are not yet known.
func (p *Pipeline) resolveOfficials(ctx context.Context, snap *registry.Snapshot, docs []fedreg.Document) (map[string]uuid.UUID, int, error) {
	byName := map[string]uuid.UUID{}
	for _, o := range snap.Officials() {
		byName[officialNameKey(o.FullName)] = o.ID
	}

	created := 0
	for _, d := range docs {
		name := strings.TrimSpace(d.OfficialName)
		if name == "" {
			continue
		}
		key := officialNameKey(name)
		if _, ok := byName[key]; ok {
			continue
		}
		row := &types.Official{
			ID:       uuid.New(),
			Slug:     slugify(name),
			FullName: name,
			Role:     "president",
		}
		if err := p.officials.UpsertBySlug(dbctx.Context{Ctx: ctx}, row); err != nil {
			return nil, created, fmt.Errorf("create official %q: %w", name, err)
		}
		byName[key] = row.ID
		created++
		p.log.Info("Registered new official from order feed", "slug", row.Slug)
	}
	return byName, created, nil
}

func (p *Pipeline) orderRow(snap *registry.Snapshot, d fedreg.Document, officialID uuid.UUID) *types.Order {
	themes, helped, hurt := matchTags(snap, d.Title+" "+d.Abstract)
	return &types.Order{
		ID:           uuid.New(),
		ExternalID:   d.DocumentNumber,
		Title:        d.Title,
		OfficialID:   officialID,
		OfficialName: strings.TrimSpace(d.OfficialName),
		SignedAt:     d.SigningDate,
		Abstract:     d.Abstract,
		ThemeTags:    orders.EncodeIDs(themes),
		HelpedTags:   orders.EncodeIDs(helped),
		HurtTags:     orders.EncodeIDs(hurt),
		SourceURL:    d.HTMLURL,
		RawPayload:   datatypes.JSON(d.Raw),
	}
}

// matchTags does keyword tagging against the taxonomy: a tag applies when its
// display name appears in the document text. Population tags land in the
// helped set; the feed carries no signal for burdened populations, so hurt
// stays empty here and is curated by hand.
func matchTags(snap *registry.Snapshot, text string) (themes, helped, hurt []uuid.UUID) {
	lower := strings.ToLower(text)
	tags := snap.Tags()
	// Stable tag order keeps the stored arrays, and therefore the upsert,
	// deterministic across runs.
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Kind != tags[j].Kind {
			return tags[i].Kind < tags[j].Kind
		}
		return tags[i].Slug < tags[j].Slug
	})
	for _, tag := range tags {
		name := strings.ToLower(strings.TrimSpace(tag.DisplayName))
		if name == "" || !strings.Contains(lower, name) {
			continue
		}
		switch tag.Kind {
		case string(types.TagKindTheme):
			themes = append(themes, tag.ID)
		case string(types.TagKindPopulation):
			helped = append(helped, tag.ID)
		}
	}
	return themes, helped, hurt
}

func officialNameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_' || r == '.':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
