package worker

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"gramothi-backend/internal/usecase"
)

// DownloadProcessor feeds the worker pool with bundle transfers so the API
// can return the downloading record immediately and let clients poll
// progress. Unlike the pipeline there is no sweep: transfers interrupted by
// a restart are failed at startup and clients re-request them.
type DownloadProcessor struct {
	downloadUC usecase.DownloadUseCase
	pool       *Pool
	log        *zerolog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewDownloadProcessor(downloadUC usecase.DownloadUseCase, pool *Pool, logger *zerolog.Logger) *DownloadProcessor {
	compLog := logger.With().Str("component", "DownloadProcessor").Logger()
	return &DownloadProcessor{
		downloadUC: downloadUC,
		pool:       pool,
		log:        &compLog,
		inflight:   map[string]struct{}{},
	}
}

// Enqueue submits one transfer to the pool. Already-inflight downloads are
// skipped. A saturated pool must not leave the record stuck in downloading,
// so the overflow transfer runs on its own goroutine instead.
func (p *DownloadProcessor) Enqueue(downloadID string) {
	p.mu.Lock()
	if _, busy := p.inflight[downloadID]; busy {
		p.mu.Unlock()
		return
	}
	p.inflight[downloadID] = struct{}{}
	p.mu.Unlock()

	run := func(ctx context.Context) error {
		defer p.release(downloadID)
		// failures are already recorded on the download record
		if err := p.downloadUC.Transfer(ctx, downloadID); err != nil {
			p.log.Warn().Err(err).Str("download_id", downloadID).Msg("transfer failed")
		}
		return nil
	}
	if err := p.pool.Submit(run); err != nil {
		p.log.Warn().Str("download_id", downloadID).Msg("pool saturated, transferring off-pool")
		go func() { _ = run(context.Background()) }()
	}
}

func (p *DownloadProcessor) release(downloadID string) {
	p.mu.Lock()
	delete(p.inflight, downloadID)
	p.mu.Unlock()
}
