package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/snapdish/recipegen-be/internal/blobstore"
)

// MigrateConfig controls the one-time startup blob repair.
type MigrateConfig struct {
	// SizeCap is the blob size above which migration kicks in.
	SizeCap int
	// Keep is how many of the most-recently-created jobs survive migration.
	Keep int
}

// Migrate repairs an oversized persisted blob left behind by a version that
// did not strip-and-cap on save. Blobs within the size cap are left alone.
// An oversized blob is decoded, reduced to the Keep most-recently-created
// jobs with thumbnails stripped, and rewritten. A blob that cannot be
// decoded at all is discarded outright: startup must never fail on a
// corrupt blob from an incompatible prior format.
func Migrate(ctx context.Context, store blobstore.Store, cfg MigrateConfig, logger *slog.Logger) error {
	blob, err := store.Load(ctx)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to read persisted jobs: %w", err)
	}

	if cfg.SizeCap <= 0 || len(blob) <= cfg.SizeCap {
		return nil
	}

	logger.Warn("Persisted jobs blob exceeds size cap, migrating",
		slog.Int("blob_size", len(blob)),
		slog.Int("size_cap", cfg.SizeCap),
	)

	jobs, err := DecodeJobs(blob)
	if err != nil {
		logger.Warn("Persisted jobs blob is undecodable, discarding",
			slog.String("error", err.Error()),
		)
		if saveErr := store.Save(ctx, nil); saveErr != nil {
			return fmt.Errorf("failed to discard undecodable blob: %w", saveErr)
		}
		return nil
	}

	sort.SliceStable(jobs, func(i, k int) bool {
		return jobs[i].CreatedAt.After(jobs[k].CreatedAt)
	})
	if cfg.Keep > 0 && len(jobs) > cfg.Keep {
		jobs = jobs[:cfg.Keep]
	}

	reduced, err := EncodeJobs(jobs)
	if err != nil {
		return fmt.Errorf("failed to re-encode migrated jobs: %w", err)
	}

	if err := store.Save(ctx, reduced); err != nil {
		return fmt.Errorf("failed to store migrated jobs: %w", err)
	}

	logger.Info("Persisted jobs blob migrated",
		slog.Int("jobs_kept", len(jobs)),
		slog.Int("blob_size", len(reduced)),
	)
	return nil
}
