package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/yungbote/policylens-backend/internal/data/db"
	"github.com/yungbote/policylens-backend/internal/data/digeststore"
	"github.com/yungbote/policylens-backend/internal/data/repos"
	types "github.com/yungbote/policylens-backend/internal/domain"
	"github.com/yungbote/policylens-backend/internal/domain/digests"
	"github.com/yungbote/policylens-backend/internal/modules/digest"
	"github.com/yungbote/policylens-backend/internal/modules/digest/merge"
	"github.com/yungbote/policylens-backend/internal/pkg/dbctx"
	"github.com/yungbote/policylens-backend/internal/platform/logger"
	"github.com/yungbote/policylens-backend/internal/platform/openai"
	"github.com/yungbote/policylens-backend/internal/services"
)

// backfill_digests refreshes digest collections directly against the
// database and a filesystem store, without the API server or the job queue.
func main() {
	var (
		kind     string
		official string
		year     int
		period   string
		tag      string
		force    bool
		dryRun   bool
		storeDir string
	)
	flag.StringVar(&kind, "kind", "", "digest kind to refresh (term_digests, period_digests, theme_digests); empty refreshes all")
	flag.StringVar(&official, "official", "", "limit to one official by slug")
	flag.IntVar(&year, "year", 0, "limit to one year")
	flag.StringVar(&period, "period", "", "limit to one period key (e.g. 2021-Q1)")
	flag.StringVar(&tag, "tag", "", "limit to one theme tag by slug")
	flag.BoolVar(&force, "force", false, "regenerate entries that already exist")
	flag.BoolVar(&dryRun, "dry-run", false, "report what would be generated without calling the model or writing")
	flag.StringVar(&storeDir, "store", "data", "digest store root directory")
	flag.Parse()

	log, err := logger.New("dev")
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	kinds := []string{digests.KindTerms, digests.KindPeriods, digests.KindThemes}
	if kind != "" {
		if !digests.KnownKind(kind) {
			fmt.Printf("unknown kind %q\n", kind)
			os.Exit(1)
		}
		kinds = []string{kind}
	}

	dbService, err := db.NewService(log)
	if err != nil {
		fmt.Printf("init database: %v\n", err)
		os.Exit(1)
	}
	theDB := dbService.DB()

	store, err := digeststore.NewFSStore(storeDir, log)
	if err != nil {
		fmt.Printf("init digest store: %v\n", err)
		os.Exit(1)
	}

	spec, err := digest.LoadSpec(log)
	if err != nil {
		fmt.Printf("load digest spec: %v\n", err)
		os.Exit(1)
	}

	officialRepo := repos.NewOfficialRepo(theDB, log)
	intervalRepo := repos.NewServiceIntervalRepo(theDB, log)
	tagRepo := repos.NewTagRepo(theDB, log)
	orderRepo := repos.NewOrderRepo(theDB, log)

	registrySvc := services.NewRegistryService(log, officialRepo, intervalRepo, tagRepo, nil)

	var narrative services.NarrativeService
	if strings.TrimSpace(os.Getenv("OPENAI_API_KEY")) != "" {
		ai, err := openai.NewClient(log)
		if err != nil {
			fmt.Printf("init openai client: %v\n", err)
			os.Exit(1)
		}
		narrative = services.NewNarrativeService(log, ai)
	} else {
		fmt.Println("OPENAI_API_KEY not set; entries will carry statistics only")
	}

	refresh := services.NewDigestRefreshService(log, registrySvc, orderRepo, store, narrative, nil, spec)

	ctx := context.Background()
	scope, err := buildScope(ctx, officialRepo, tagRepo, official, year, period, tag)
	if err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}

	for _, k := range kinds {
		res, err := refresh.Refresh(ctx, services.RefreshInput{
			Kind:   k,
			Scope:  scope,
			Force:  force,
			DryRun: dryRun,
			Progress: func(stage string, pct int, msg string) {
				fmt.Printf("[%s] %3d%% %s\n", k, pct, msg)
			},
		})
		if err != nil {
			fmt.Printf("refresh %s failed: %v\n", k, err)
			os.Exit(1)
		}
		mode := "refreshed"
		if dryRun {
			mode = "dry-run"
		}
		fmt.Printf("%s %s: candidates=%d kept=%d generated=%d skipped=%d failed=%d changed=%v\n",
			mode, k, res.Candidates, res.Outcome.Kept, res.Outcome.Generated, res.Outcome.Skipped, res.Outcome.Failed, res.Changed)
	}
}

func buildScope(ctx context.Context, officials repos.OfficialRepo, tags repos.TagRepo, officialSlug string, year int, period, tagSlug string) (merge.Scope, error) {
	var scope merge.Scope
	dbc := dbctx.Context{Ctx: ctx}

	if officialSlug != "" {
		row, err := officials.GetBySlug(dbc, officialSlug)
		if err != nil {
			return scope, fmt.Errorf("resolve official %q: %w", officialSlug, err)
		}
		scope.OfficialID = &row.ID
	}
	if year != 0 {
		y := year
		scope.Year = &y
	}
	if period != "" {
		p := period
		scope.PeriodKey = &p
	}
	if tagSlug != "" {
		row, err := tags.GetByKindAndSlug(dbc, string(types.TagKindTheme), tagSlug)
		if err != nil {
			return scope, fmt.Errorf("resolve tag %q: %w", tagSlug, err)
		}
		scope.TagID = &row.ID
	}
	return scope, nil
}
