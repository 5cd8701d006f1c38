package digest_refresh

import (
	jobrt "github.com/yungbote/policylens-backend/internal/jobs/runtime"
	"github.com/yungbote/policylens-backend/internal/modules/digest/merge"
	"github.com/yungbote/policylens-backend/internal/services"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}

	var scope merge.Scope
	if id, ok := jc.PayloadUUID("official_id"); ok {
		scope.OfficialID = &id
	}
	if year, ok := jc.PayloadInt("year"); ok {
		scope.Year = &year
	}
	if period, ok := jc.PayloadString("period"); ok {
		scope.PeriodKey = &period
	}
	if id, ok := jc.PayloadUUID("tag_id"); ok {
		scope.TagID = &id
	}

	jc.Progress("refresh", 2, "Starting digest refresh")
	res, err := p.refresh.Refresh(jc.Ctx, services.RefreshInput{
		Kind:  p.kind,
		Scope: scope,
		Force: jc.PayloadBool("force"),
		Progress: func(stage string, pct int, msg string) {
			jc.Progress(stage, pct, msg)
		},
	})
	if err != nil {
		jc.Fail("refresh", err)
		return nil
	}

	jc.Succeed("done", map[string]any{
		"candidates": res.Candidates,
		"kept":       res.Outcome.Kept,
		"generated":  res.Outcome.Generated,
		"skipped":    res.Outcome.Skipped,
		"failed":     res.Outcome.Failed,
		"changed":    res.Changed,
	})
	return nil
}
