package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gramothi-backend/internal/domain/model"
	"gramothi-backend/internal/domain/ports/repository"
	"gramothi-backend/internal/infra/metrics"
	red "gramothi-backend/internal/infra/redis"
)

var _ repository.LectureBundleRepository = (*bundleRepoCacheDecorator)(nil)

// bundleRepoCacheDecorator caches bundle status lookups. Students poll bundle
// status while the pipeline runs, so FindByID is the hot path; every write
// invalidates the cached row.
type bundleRepoCacheDecorator struct {
	inner repository.LectureBundleRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewBundleRepoCacheDecorator(inner repository.LectureBundleRepository, cache red.RedisClient, ttl time.Duration) repository.LectureBundleRepository {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &bundleRepoCacheDecorator{
		inner: inner,
		cache: cache,
		ttl:   ttl,
	}
}

func bundleKey(id string) string   { return fmt.Sprintf("bundle:%s", id) }
func timelineKey(id string) string { return fmt.Sprintf("bundle:%s:timeline", id) }

func (d *bundleRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.LectureBundle, error) {
	val, err := d.cache.Get(ctx, bundleKey(id))
	if err == nil {
		var b model.LectureBundle
		if json.Unmarshal([]byte(val), &b) == nil {
			metrics.IncCacheRequest("bundle", "hit")
			return &b, nil
		}
	}

	metrics.IncCacheRequest("bundle", "miss")
	b, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(b); err == nil {
		_ = d.cache.Set(ctx, bundleKey(id), raw, d.ttl)
	}
	return b, nil
}

func (d *bundleRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, b *model.LectureBundle) error {
	_ = d.cache.Del(ctx, bundleKey(b.ID))
	return d.inner.Save(ctx, tx, b)
}

func (d *bundleRepoCacheDecorator) FindByClass(ctx context.Context, tx repository.Tx, classID string) ([]*model.LectureBundle, error) {
	return d.inner.FindByClass(ctx, tx, classID)
}

func (d *bundleRepoCacheDecorator) FindByStatus(ctx context.Context, tx repository.Tx, status model.BundleStatus) ([]*model.LectureBundle, error) {
	return d.inner.FindByStatus(ctx, tx, status)
}

// Completed timelines never change, so a longer TTL would also be safe; the
// shared TTL keeps the decorator simple.
func (d *bundleRepoCacheDecorator) FindTimeline(ctx context.Context, tx repository.Tx, bundleID string) ([]model.SlideTimelineEntry, error) {
	val, err := d.cache.Get(ctx, timelineKey(bundleID))
	if err == nil {
		var entries []model.SlideTimelineEntry
		if json.Unmarshal([]byte(val), &entries) == nil {
			metrics.IncCacheRequest("timeline", "hit")
			return entries, nil
		}
	}

	metrics.IncCacheRequest("timeline", "miss")
	entries, err := d.inner.FindTimeline(ctx, tx, bundleID)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(entries); err == nil {
		_ = d.cache.Set(ctx, timelineKey(bundleID), raw, d.ttl)
	}
	return entries, nil
}

func (d *bundleRepoCacheDecorator) SaveTimeline(ctx context.Context, tx repository.Tx, bundleID string, entries []model.SlideTimelineEntry) error {
	_ = d.cache.Del(ctx, timelineKey(bundleID))
	return d.inner.SaveTimeline(ctx, tx, bundleID, entries)
}
