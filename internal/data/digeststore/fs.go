package digeststore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yungbote/policylens-backend/internal/platform/logger"
)

type fsStore struct {
	root string
	log  *logger.Logger
}

// NewFSStore keeps documents under root as digests/<kind>.json. Writes go
// through a temp file and rename so readers never see a torn document.
func NewFSStore(root string, baseLog *logger.Logger) (Store, error) {
	if root == "" {
		return nil, fmt.Errorf("digest store root dir is required")
	}
	if err := os.MkdirAll(filepath.Join(root, "digests"), 0o755); err != nil {
		return nil, fmt.Errorf("create digest store dir: %w", err)
	}
	return &fsStore{root: root, log: baseLog.With("service", "DigestFSStore")}, nil
}

func (s *fsStore) path(kind string) string {
	return filepath.Join(s.root, filepath.FromSlash(documentKey(kind)))
}

func (s *fsStore) Get(ctx context.Context, kind string) ([]byte, error) {
	if err := validateKind(kind); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.path(kind))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read digest document %q: %w", kind, err)
	}
	return b, nil
}

func (s *fsStore) Put(ctx context.Context, kind string, doc []byte) error {
	if err := validateKind(kind); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	final := s.path(kind)
	tmp, err := os.CreateTemp(filepath.Dir(final), "."+kind+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp digest document: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(doc); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp digest document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp digest document: %w", err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace digest document %q: %w", kind, err)
	}
	s.log.Debug("digest document written", "kind", kind, "bytes", len(doc))
	return nil
}
