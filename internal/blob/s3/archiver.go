package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mintrail/phygmarket/internal/domain"
)

// RedemptionArchiveStore provides read access to settled redemptions for
// archival. The Postgres redemption store satisfies it through its
// time-ranged ListBefore query.
type RedemptionArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.Redemption, error)
}

// ArchiveImpl implements domain.Archiver by querying the redemption store for
// settled claims older than the cutoff, serializing them to JSONL, and
// uploading the result to S3.
//
// Deletion of the archived records from the primary store is intentionally
// NOT performed here; that is a separate, explicit step to be executed after
// the archive has been verified.
type ArchiveImpl struct {
	writer      domain.BlobWriter
	redemptions RedemptionArchiveStore
	logger      *slog.Logger
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(writer domain.BlobWriter, redemptions RedemptionArchiveStore, logger *slog.Logger) *ArchiveImpl {
	return &ArchiveImpl{
		writer:      writer,
		redemptions: redemptions,
		logger:      logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveRedemptions queries all confirmed redemptions before the cutoff,
// serializes them to JSONL, and uploads the file to S3 at
// archive/redemptions/YYYY-MM.jsonl. It returns the count of archived
// records.
func (a *ArchiveImpl) ArchiveRedemptions(ctx context.Context, before time.Time) (int64, error) {
	redemptions, err := a.redemptions.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive redemptions query: %w", err)
	}
	if len(redemptions) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(redemptions)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive redemptions marshal: %w", err)
	}

	path := archivePath("redemptions", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive redemptions upload: %w", err)
	}

	count := int64(len(redemptions))
	a.logger.InfoContext(ctx, "redemptions archived",
		slog.String("path", path),
		slog.Int64("count", count),
		slog.String("before", before.Format(time.RFC3339)),
	)
	return count, nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/redemptions/2026-08.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
