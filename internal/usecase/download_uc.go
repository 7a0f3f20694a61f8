package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gramothi-backend/internal/domain"
	"gramothi-backend/internal/domain/model"
	"gramothi-backend/internal/domain/ports/adapter"
	"gramothi-backend/internal/domain/ports/repository"
	"gramothi-backend/internal/infra/metrics"
)

// DownloadUseCase moves completed bundle archives into per-user offline
// storage: chunked transfer with persisted progress, extraction, content
// lookup and time-based retention. Request is idempotent per
// (bundle, requester).
type DownloadUseCase interface {
	// Request registers the download and returns its record immediately;
	// the transfer itself runs in the background via Transfer, and clients
	// poll GetDownload for progress.
	Request(ctx context.Context, bundleID, requesterID string) (*model.BundleDownload, error)
	// Transfer runs the chunked copy and extraction for a previously
	// requested download and records the outcome. Calling it on a download
	// that already settled is a no-op.
	Transfer(ctx context.Context, downloadID string) error
	GetDownload(ctx context.Context, downloadID string) (*model.BundleDownload, error)
	Content(ctx context.Context, downloadID string) (*model.OfflineContent, error)
	Remove(ctx context.Context, downloadID string) error
	// PurgeExpired removes completed downloads untouched for longer than the
	// retention window, together with their on-device content. It returns
	// how many were purged.
	PurgeExpired(ctx context.Context, retention time.Duration) (int, error)
	// FailInterrupted marks downloads left in the downloading state by a
	// crash as failed so clients can re-request them.
	FailInterrupted(ctx context.Context) (int, error)
}

type downloadUC struct {
	downloads repository.BundleDownloadRepository
	bundles   repository.LectureBundleRepository
	store     adapter.OfflineStoreAdapter
	clock     func() time.Time
	log       *zerolog.Logger
}

var _ DownloadUseCase = (*downloadUC)(nil)

func NewDownloadUseCase(
	downloads repository.BundleDownloadRepository,
	bundles repository.LectureBundleRepository,
	store adapter.OfflineStoreAdapter,
	logger *zerolog.Logger,
) DownloadUseCase {
	l := logger.With().Str("component", "DownloadUseCase").Logger()
	return &downloadUC{
		downloads: downloads,
		bundles:   bundles,
		store:     store,
		clock:     time.Now,
		log:       &l,
	}
}

func (u *downloadUC) Request(ctx context.Context, bundleID, requesterID string) (*model.BundleDownload, error) {
	if bundleID == "" || requesterID == "" {
		return nil, fmt.Errorf("%w: bundle_id and requester_id are required", domain.ErrInvalidArgument)
	}
	b, err := u.bundles.FindByID(ctx, nil, bundleID)
	if err != nil {
		return nil, err
	}
	if b.Status != model.BundleStatusCompleted {
		return nil, fmt.Errorf("%w: bundle %s is %s", domain.ErrBundleNotReady, bundleID, b.Status)
	}

	existing, err := u.downloads.FindByBundleAndRequester(ctx, nil, bundleID, requesterID)
	switch {
	case err == nil:
		if existing.Status != model.DownloadStatusFailed {
			return existing, nil
		}
		// failed earlier: clear it out and run the transfer again
		if err := u.Remove(ctx, existing.ID); err != nil {
			return nil, err
		}
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	now := u.clock()
	d := &model.BundleDownload{
		ID:          uuid.NewString(),
		BundleID:    bundleID,
		RequesterID: requesterID,
		Status:      model.DownloadStatusDownloading,
		TotalSize:   b.ArchiveSize,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := u.downloads.Save(ctx, nil, d); err != nil {
		return nil, err
	}
	u.log.Info().Str("download_id", d.ID).Str("bundle_id", bundleID).Msg("download requested")
	return d, nil
}

func (u *downloadUC) Transfer(ctx context.Context, downloadID string) error {
	d, err := u.downloads.FindByID(ctx, nil, downloadID)
	if err != nil {
		return err
	}
	if d.Status != model.DownloadStatusDownloading {
		return nil
	}
	b, err := u.bundles.FindByID(ctx, nil, d.BundleID)
	if err != nil {
		return u.fail(ctx, d, err)
	}

	if err := u.transfer(ctx, d, b); err != nil {
		return u.fail(ctx, d, err)
	}

	done := u.clock()
	d.Status = model.DownloadStatusCompleted
	d.UpdatedAt = done
	d.CompletedAt = &done
	if err := u.downloads.Save(ctx, nil, d); err != nil {
		return err
	}
	metrics.IncDownloadFinished("completed")
	u.log.Info().Str("download_id", d.ID).Str("bundle_id", d.BundleID).
		Int64("bytes", d.DownloadedSize).Msg("download completed")
	return nil
}

func (u *downloadUC) fail(ctx context.Context, d *model.BundleDownload, cause error) error {
	d.Status = model.DownloadStatusFailed
	d.Error = cause.Error()
	d.UpdatedAt = u.clock()
	if saveErr := u.downloads.Save(ctx, nil, d); saveErr != nil {
		u.log.Error().Err(saveErr).Str("download_id", d.ID).Msg("failed to record download failure")
	}
	metrics.IncDownloadFinished("failed")
	return cause
}

func (u *downloadUC) transfer(ctx context.Context, d *model.BundleDownload, b *model.LectureBundle) error {
	var lastReported int64
	written, err := u.store.Transfer(ctx, d.ID, b.ArchivePath, func(written int64) error {
		metrics.AddDownloadedBytes(written - lastReported)
		lastReported = written
		d.DownloadedSize = written
		d.UpdatedAt = u.clock()
		return u.downloads.Save(ctx, nil, d)
	})
	if err != nil {
		return err
	}
	if d.TotalSize > 0 && written != d.TotalSize {
		return fmt.Errorf("%w: transferred %d of %d bytes", domain.ErrIntegrity, written, d.TotalSize)
	}
	root, err := u.store.Extract(d.ID, b.ArchivePath)
	if err != nil {
		return err
	}
	d.OfflinePath = root
	return nil
}

func (u *downloadUC) GetDownload(ctx context.Context, downloadID string) (*model.BundleDownload, error) {
	return u.downloads.FindByID(ctx, nil, downloadID)
}

func (u *downloadUC) Content(ctx context.Context, downloadID string) (*model.OfflineContent, error) {
	d, err := u.downloads.FindByID(ctx, nil, downloadID)
	if err != nil {
		return nil, err
	}
	if d.Status != model.DownloadStatusCompleted {
		return nil, fmt.Errorf("%w: download %s is %s", domain.ErrBundleNotReady, downloadID, d.Status)
	}
	return u.store.Content(downloadID)
}

func (u *downloadUC) Remove(ctx context.Context, downloadID string) error {
	if _, err := u.downloads.FindByID(ctx, nil, downloadID); err != nil {
		return err
	}
	if err := u.store.Remove(downloadID); err != nil {
		return err
	}
	return u.downloads.Delete(ctx, nil, downloadID)
}

func (u *downloadUC) PurgeExpired(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := u.clock().Add(-retention)
	expired, err := u.downloads.FindOlderThan(ctx, nil, cutoff)
	if err != nil {
		return 0, err
	}
	purged := 0
	for _, d := range expired {
		if err := u.Remove(ctx, d.ID); err != nil {
			u.log.Warn().Err(err).Str("download_id", d.ID).Msg("retention sweep skip")
			continue
		}
		purged++
	}
	if purged > 0 {
		metrics.AddOfflinePurged(purged)
		u.log.Info().Int("purged", purged).Time("cutoff", cutoff).Msg("retention sweep done")
	}
	return purged, nil
}

func (u *downloadUC) FailInterrupted(ctx context.Context) (int, error) {
	stuck, err := u.downloads.FindByStatus(ctx, nil, model.DownloadStatusDownloading)
	if err != nil {
		return 0, err
	}
	for _, d := range stuck {
		d.Status = model.DownloadStatusFailed
		d.Error = "interrupted by restart"
		d.UpdatedAt = u.clock()
		if err := u.downloads.Save(ctx, nil, d); err != nil {
			return 0, err
		}
	}
	return len(stuck), nil
}
