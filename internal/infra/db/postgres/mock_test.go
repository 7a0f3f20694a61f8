//go:build !integration

package postgres

import (
	"context"
	"time"

	"gramothi-backend/internal/domain/model"
	"gramothi-backend/internal/domain/ports/repository"
	red "gramothi-backend/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerBundleRepo mocks the database repository that the bundle decorator wraps.
type mockInnerBundleRepo struct {
	SaveFunc         func(ctx context.Context, tx repository.Tx, b *model.LectureBundle) error
	FindByIDFunc     func(ctx context.Context, tx repository.Tx, id string) (*model.LectureBundle, error)
	FindByClassFunc  func(ctx context.Context, tx repository.Tx, classID string) ([]*model.LectureBundle, error)
	FindByStatusFunc func(ctx context.Context, tx repository.Tx, status model.BundleStatus) ([]*model.LectureBundle, error)
	SaveTimelineFunc func(ctx context.Context, tx repository.Tx, bundleID string, entries []model.SlideTimelineEntry) error
	FindTimelineFunc func(ctx context.Context, tx repository.Tx, bundleID string) ([]model.SlideTimelineEntry, error)
}

func (m *mockInnerBundleRepo) Save(ctx context.Context, tx repository.Tx, b *model.LectureBundle) error {
	return m.SaveFunc(ctx, tx, b)
}
func (m *mockInnerBundleRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.LectureBundle, error) {
	return m.FindByIDFunc(ctx, tx, id)
}
func (m *mockInnerBundleRepo) FindByClass(ctx context.Context, tx repository.Tx, classID string) ([]*model.LectureBundle, error) {
	return m.FindByClassFunc(ctx, tx, classID)
}
func (m *mockInnerBundleRepo) FindByStatus(ctx context.Context, tx repository.Tx, status model.BundleStatus) ([]*model.LectureBundle, error) {
	return m.FindByStatusFunc(ctx, tx, status)
}
func (m *mockInnerBundleRepo) SaveTimeline(ctx context.Context, tx repository.Tx, bundleID string, entries []model.SlideTimelineEntry) error {
	return m.SaveTimelineFunc(ctx, tx, bundleID, entries)
}
func (m *mockInnerBundleRepo) FindTimeline(ctx context.Context, tx repository.Tx, bundleID string) ([]model.SlideTimelineEntry, error) {
	return m.FindTimelineFunc(ctx, tx, bundleID)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc func(ctx context.Context, key string) (string, error)
	SetFunc func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc func(ctx context.Context, keys ...string) error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc == nil {
		return nil
	}
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc == nil {
		return nil
	}
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return nil }
func (m *mockRedisClient) Close() error                   { return nil }
