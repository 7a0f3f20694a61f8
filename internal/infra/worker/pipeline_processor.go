package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"gramothi-backend/internal/usecase"
)

// PipelineProcessor feeds the worker pool with bundle pipelines. A periodic
// sweep picks up pending bundles (and, after a restart, bundles that were
// interrupted mid-pipeline), while Enqueue lets the API push a fresh bundle
// without waiting for the next tick. The inflight set keeps one bundle from
// being processed twice at once.
type PipelineProcessor struct {
	pipelineUC usecase.PipelineUseCase
	pool       *Pool
	interval   time.Duration
	log        *zerolog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewPipelineProcessor(pipelineUC usecase.PipelineUseCase, pool *Pool, interval time.Duration, logger *zerolog.Logger) *PipelineProcessor {
	compLog := logger.With().Str("component", "PipelineProcessor").Logger()
	return &PipelineProcessor{
		pipelineUC: pipelineUC,
		pool:       pool,
		interval:   interval,
		log:        &compLog,
		inflight:   map[string]struct{}{},
	}
}

// Start runs the sweep loop. This should be run in a goroutine.
func (p *PipelineProcessor) Start(ctx context.Context) {
	p.log.Info().Msg("Pipeline processor started")
	// Recovery sweep first: requeue whatever a previous run left unfinished
	p.sweep(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("Pipeline processor stopping")
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

func (p *PipelineProcessor) sweep(ctx context.Context) {
	bundles, err := p.pipelineUC.ListIncomplete(ctx)
	if err != nil {
		p.log.Error().Err(err).Msg("failed to list incomplete bundles")
		return
	}
	for _, b := range bundles {
		p.Enqueue(b.ID)
	}
}

// Enqueue submits one bundle pipeline to the pool. Already-inflight bundles
// and a saturated pool are both quietly skipped; the next sweep retries.
func (p *PipelineProcessor) Enqueue(bundleID string) {
	p.mu.Lock()
	if _, busy := p.inflight[bundleID]; busy {
		p.mu.Unlock()
		return
	}
	p.inflight[bundleID] = struct{}{}
	p.mu.Unlock()

	err := p.pool.Submit(func(ctx context.Context) error {
		defer p.release(bundleID)
		// errors are already recorded on the bundle and task rows
		if err := p.pipelineUC.Process(ctx, bundleID); err != nil {
			p.log.Warn().Err(err).Str("bundle_id", bundleID).Msg("pipeline run failed")
		}
		return nil
	})
	if err != nil {
		p.release(bundleID)
	}
}

func (p *PipelineProcessor) release(bundleID string) {
	p.mu.Lock()
	delete(p.inflight, bundleID)
	p.mu.Unlock()
}
