// Package digeststore persists digest collection documents as whole blobs.
// A document is only ever read or replaced in full; the merge layer owns the
// byte-level semantics of what goes inside.
package digeststore

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/policylens-backend/internal/domain/digests"
)

// Store reads and writes one collection document per digest kind.
// Get returns (nil, nil) when no document exists yet.
type Store interface {
	Get(ctx context.Context, kind string) ([]byte, error)
	Put(ctx context.Context, kind string, doc []byte) error
}

func validateKind(kind string) error {
	if !digests.KnownKind(kind) {
		return fmt.Errorf("unknown digest kind %q", kind)
	}
	return nil
}

func documentKey(kind string) string {
	return "digests/" + strings.TrimSpace(kind) + ".json"
}
