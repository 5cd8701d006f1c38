package digeststore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/yungbote/policylens-backend/internal/platform/gcp"
	"github.com/yungbote/policylens-backend/internal/platform/logger"
)

type gcsStore struct {
	bucket gcp.BucketService
	log    *logger.Logger
}

// NewGCSStore persists digest documents in the digest bucket.
func NewGCSStore(bucket gcp.BucketService, baseLog *logger.Logger) Store {
	return &gcsStore{bucket: bucket, log: baseLog.With("service", "DigestGCSStore")}
}

func (s *gcsStore) Get(ctx context.Context, kind string) ([]byte, error) {
	if err := validateKind(kind); err != nil {
		return nil, err
	}
	r, err := s.bucket.DownloadFile(ctx, gcp.BucketCategoryDigest, documentKey(kind))
	if err != nil {
		if isObjectNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("download digest document %q: %w", kind, err)
	}
	defer r.Close()
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read digest document %q: %w", kind, err)
	}
	return b, nil
}

func (s *gcsStore) Put(ctx context.Context, kind string, doc []byte) error {
	if err := validateKind(kind); err != nil {
		return err
	}
	if err := s.bucket.UploadFile(ctx, gcp.BucketCategoryDigest, documentKey(kind), bytes.NewReader(doc)); err != nil {
		return fmt.Errorf("upload digest document %q: %w", kind, err)
	}
	s.log.Debug("digest document uploaded", "kind", kind, "bytes", len(doc))
	return nil
}

func isObjectNotFound(err error) bool {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return true
	}
	// Emulator downloads surface plain HTTP statuses.
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "status=404") || strings.Contains(msg, "object doesn't exist")
}
