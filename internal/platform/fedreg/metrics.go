package fedreg

import (
	"time"

	"github.com/yungbote/policylens-backend/internal/observability"
)

func observeFedregPage(status string, dur time.Duration) {
	if m := observability.Current(); m != nil {
		m.ObserveFedregPage(status, dur)
	}
}
