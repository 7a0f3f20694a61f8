package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"gramothi-backend/internal/usecase"
)

// CleanupWorker periodically removes offline downloads past the retention
// window via the download use case.
type CleanupWorker struct {
	interval  time.Duration
	retention time.Duration
	dlUC      usecase.DownloadUseCase
	log       *zerolog.Logger
}

func NewCleanupWorker(interval, retention time.Duration, dlUC usecase.DownloadUseCase, logger *zerolog.Logger) *CleanupWorker {
	compLog := logger.With().Str("component", "CleanupWorker").Logger()
	return &CleanupWorker{
		interval:  interval,
		retention: retention,
		dlUC:      dlUC,
		log:       &compLog,
	}
}

func (w *CleanupWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting cleanup worker")
	// Run once on startup, then on every tick
	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping cleanup worker")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *CleanupWorker) sweep(ctx context.Context) {
	n, err := w.dlUC.PurgeExpired(ctx, w.retention)
	if err != nil {
		w.log.Error().Err(err).Msg("cleanup sweep error")
		return
	}
	if n > 0 {
		w.log.Info().Int("purged", n).Msg("expired downloads removed")
	}
}
