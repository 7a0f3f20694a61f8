package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"

	"gramothi-backend/internal/domain"
	"gramothi-backend/internal/domain/model"
	"gramothi-backend/internal/domain/ports/adapter"
	"gramothi-backend/internal/domain/ports/repository"
	"gramothi-backend/internal/media"
)

// Hand-written in-memory doubles. Slices keep insertion order so listing
// methods stay deterministic.

type mockTxManager struct{ calls int }

func (m *mockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.calls++
	return fn(ctx, nil)
}

type mockBundleRepo struct {
	bundles   []*model.LectureBundle
	timelines map[string][]model.SlideTimelineEntry
	saveErr   error
}

func newMockBundleRepo() *mockBundleRepo {
	return &mockBundleRepo{timelines: map[string][]model.SlideTimelineEntry{}}
}

func (m *mockBundleRepo) Save(_ context.Context, _ repository.Tx, b *model.LectureBundle) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	for i, cur := range m.bundles {
		if cur.ID == b.ID {
			m.bundles[i] = b
			return nil
		}
	}
	m.bundles = append(m.bundles, b)
	return nil
}

func (m *mockBundleRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.LectureBundle, error) {
	for _, b := range m.bundles {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: bundle %s", domain.ErrNotFound, id)
}

func (m *mockBundleRepo) FindByClass(_ context.Context, _ repository.Tx, classID string) ([]*model.LectureBundle, error) {
	var out []*model.LectureBundle
	for _, b := range m.bundles {
		if b.ClassID == classID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockBundleRepo) FindByStatus(_ context.Context, _ repository.Tx, status model.BundleStatus) ([]*model.LectureBundle, error) {
	var out []*model.LectureBundle
	for _, b := range m.bundles {
		if b.Status == status {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockBundleRepo) SaveTimeline(_ context.Context, _ repository.Tx, bundleID string, entries []model.SlideTimelineEntry) error {
	m.timelines[bundleID] = entries
	return nil
}

func (m *mockBundleRepo) FindTimeline(_ context.Context, _ repository.Tx, bundleID string) ([]model.SlideTimelineEntry, error) {
	entries, ok := m.timelines[bundleID]
	if !ok {
		return nil, fmt.Errorf("%w: timeline for bundle %s", domain.ErrNotFound, bundleID)
	}
	return entries, nil
}

type mockTaskRepo struct {
	tasks []*model.ProcessingTask
}

func (m *mockTaskRepo) Save(_ context.Context, _ repository.Tx, t *model.ProcessingTask) error {
	for i, cur := range m.tasks {
		if cur.ID == t.ID {
			m.tasks[i] = t
			return nil
		}
	}
	m.tasks = append(m.tasks, t)
	return nil
}

func (m *mockTaskRepo) FindByBundle(_ context.Context, _ repository.Tx, bundleID string) ([]*model.ProcessingTask, error) {
	var out []*model.ProcessingTask
	for _, t := range m.tasks {
		if t.BundleID == bundleID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockTaskRepo) DeleteByBundle(_ context.Context, _ repository.Tx, bundleID string) error {
	kept := m.tasks[:0]
	for _, t := range m.tasks {
		if t.BundleID != bundleID {
			kept = append(kept, t)
		}
	}
	m.tasks = kept
	return nil
}

type mockDownloadRepo struct {
	downloads []*model.BundleDownload
}

func (m *mockDownloadRepo) Save(_ context.Context, _ repository.Tx, d *model.BundleDownload) error {
	for i, cur := range m.downloads {
		if cur.ID == d.ID {
			m.downloads[i] = d
			return nil
		}
	}
	cp := *d
	m.downloads = append(m.downloads, &cp)
	return nil
}

func (m *mockDownloadRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.BundleDownload, error) {
	for _, d := range m.downloads {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: download %s", domain.ErrNotFound, id)
}

func (m *mockDownloadRepo) FindByBundleAndRequester(_ context.Context, _ repository.Tx, bundleID, requesterID string) (*model.BundleDownload, error) {
	for _, d := range m.downloads {
		if d.BundleID == bundleID && d.RequesterID == requesterID {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: download for bundle %s", domain.ErrNotFound, bundleID)
}

func (m *mockDownloadRepo) FindByStatus(_ context.Context, _ repository.Tx, status model.DownloadStatus) ([]*model.BundleDownload, error) {
	var out []*model.BundleDownload
	for _, d := range m.downloads {
		if d.Status == status {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockDownloadRepo) FindOlderThan(_ context.Context, _ repository.Tx, cutoff time.Time) ([]*model.BundleDownload, error) {
	var out []*model.BundleDownload
	for _, d := range m.downloads {
		if d.Status == model.DownloadStatusCompleted && d.UpdatedAt.Before(cutoff) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockDownloadRepo) Delete(_ context.Context, _ repository.Tx, id string) error {
	kept := m.downloads[:0]
	for _, d := range m.downloads {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	m.downloads = kept
	return nil
}

type mockActivityRepo struct {
	activities      []*model.OfflineActivity
	uniqueOfflineID bool // enforce the (user_id, offline_id) unique index
	missFinds       int  // FindByOfflineID misses this many calls first
}

func (m *mockActivityRepo) Save(_ context.Context, _ repository.Tx, a *model.OfflineActivity) error {
	for i, cur := range m.activities {
		if cur.ID == a.ID {
			m.activities[i] = a
			return nil
		}
	}
	if m.uniqueOfflineID {
		for _, cur := range m.activities {
			if cur.UserID == a.UserID && cur.OfflineID == a.OfflineID {
				return fmt.Errorf("%w: offline_id %s", domain.ErrAlreadyExists, a.OfflineID)
			}
		}
	}
	m.activities = append(m.activities, a)
	return nil
}

func (m *mockActivityRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.OfflineActivity, error) {
	for _, a := range m.activities {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: activity %s", domain.ErrNotFound, id)
}

func (m *mockActivityRepo) FindByOfflineID(_ context.Context, _ repository.Tx, userID, offlineID string) (*model.OfflineActivity, error) {
	if m.missFinds > 0 {
		m.missFinds--
		return nil, fmt.Errorf("%w: offline activity %s", domain.ErrNotFound, offlineID)
	}
	for _, a := range m.activities {
		if a.UserID == userID && a.OfflineID == offlineID {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: offline activity %s", domain.ErrNotFound, offlineID)
}

func (m *mockActivityRepo) FindByStatus(_ context.Context, _ repository.Tx, userID string, status model.SyncStatus) ([]*model.OfflineActivity, error) {
	var out []*model.OfflineActivity
	for _, a := range m.activities {
		if a.UserID == userID && a.Status == status {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockActivityRepo) CountByStatus(ctx context.Context, tx repository.Tx, userID string, status model.SyncStatus) (int, error) {
	list, err := m.FindByStatus(ctx, tx, userID, status)
	return len(list), err
}

type mockSessionRepo struct {
	sessions []*model.SyncSession
	saves    int
	failSave int // when > 0, the Nth Save call returns an error
}

func (m *mockSessionRepo) Save(_ context.Context, _ repository.Tx, s *model.SyncSession) error {
	m.saves++
	if m.failSave > 0 && m.saves == m.failSave {
		return fmt.Errorf("save session %s: connection reset", s.ID)
	}
	for i, cur := range m.sessions {
		if cur.ID == s.ID {
			m.sessions[i] = s
			return nil
		}
	}
	m.sessions = append(m.sessions, s)
	return nil
}

func (m *mockSessionRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.SyncSession, error) {
	for _, s := range m.sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, id)
}

func (m *mockSessionRepo) FindLatestByUser(_ context.Context, _ repository.Tx, userID string) (*model.SyncSession, error) {
	for i := len(m.sessions) - 1; i >= 0; i-- {
		if m.sessions[i].UserID == userID {
			return m.sessions[i], nil
		}
	}
	return nil, fmt.Errorf("%w: no sessions for %s", domain.ErrNotFound, userID)
}

type mockSlideProgressRepo struct {
	records []*model.SlideProgress
}

func (m *mockSlideProgressRepo) Save(_ context.Context, _ repository.Tx, p *model.SlideProgress) error {
	for i, cur := range m.records {
		if cur.StudentID == p.StudentID && cur.SlideID == p.SlideID {
			m.records[i] = p
			return nil
		}
	}
	m.records = append(m.records, p)
	return nil
}

func (m *mockSlideProgressRepo) FindByStudentAndSlide(_ context.Context, _ repository.Tx, studentID, slideID string) (*model.SlideProgress, error) {
	for _, p := range m.records {
		if p.StudentID == studentID && p.SlideID == slideID {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: slide progress %s", domain.ErrNotFound, slideID)
}

func (m *mockSlideProgressRepo) FindUpdatedSince(_ context.Context, _ repository.Tx, studentID string, since time.Time) ([]*model.SlideProgress, error) {
	var out []*model.SlideProgress
	for _, p := range m.records {
		if p.StudentID == studentID && p.UpdatedAt.After(since) {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockRecordingProgressRepo struct {
	records []*model.RecordingProgress
}

func (m *mockRecordingProgressRepo) Save(_ context.Context, _ repository.Tx, p *model.RecordingProgress) error {
	for i, cur := range m.records {
		if cur.StudentID == p.StudentID && cur.RecordingID == p.RecordingID {
			m.records[i] = p
			return nil
		}
	}
	m.records = append(m.records, p)
	return nil
}

func (m *mockRecordingProgressRepo) FindByStudentAndRecording(_ context.Context, _ repository.Tx, studentID, recordingID string) (*model.RecordingProgress, error) {
	for _, p := range m.records {
		if p.StudentID == studentID && p.RecordingID == recordingID {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: recording progress %s", domain.ErrNotFound, recordingID)
}

func (m *mockRecordingProgressRepo) FindUpdatedSince(_ context.Context, _ repository.Tx, studentID string, since time.Time) ([]*model.RecordingProgress, error) {
	var out []*model.RecordingProgress
	for _, p := range m.records {
		if p.StudentID == studentID && p.UpdatedAt.After(since) {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockQuizRepo struct {
	quizzes   map[string]*model.Quiz
	responses []*model.QuizResponse
}

func newMockQuizRepo() *mockQuizRepo {
	return &mockQuizRepo{quizzes: map[string]*model.Quiz{}}
}

func (m *mockQuizRepo) Save(_ context.Context, _ repository.Tx, r *model.QuizResponse) error {
	m.responses = append(m.responses, r)
	return nil
}

func (m *mockQuizRepo) FindByQuizAndStudent(_ context.Context, _ repository.Tx, quizID, studentID string) (*model.QuizResponse, error) {
	for _, r := range m.responses {
		if r.QuizID == quizID && r.StudentID == studentID {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: quiz response %s", domain.ErrNotFound, quizID)
}

func (m *mockQuizRepo) FindQuiz(_ context.Context, _ repository.Tx, quizID string) (*model.Quiz, error) {
	q, ok := m.quizzes[quizID]
	if !ok {
		return nil, fmt.Errorf("%w: quiz %s", domain.ErrNotFound, quizID)
	}
	return q, nil
}

type mockStudentProgressRepo struct {
	records []*model.StudentProgress
}

func (m *mockStudentProgressRepo) Save(_ context.Context, _ repository.Tx, p *model.StudentProgress) error {
	for i, cur := range m.records {
		if cur.StudentID == p.StudentID && cur.ClassID == p.ClassID && cur.ObjectiveID == p.ObjectiveID {
			m.records[i] = p
			return nil
		}
	}
	m.records = append(m.records, p)
	return nil
}

func (m *mockStudentProgressRepo) FindByStudentClassObjective(_ context.Context, _ repository.Tx, studentID, classID, objectiveID string) (*model.StudentProgress, error) {
	for _, p := range m.records {
		if p.StudentID == studentID && p.ClassID == classID && p.ObjectiveID == objectiveID {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: student progress %s", domain.ErrNotFound, objectiveID)
}

type mockLearningRepo struct {
	sessions []*model.LearningSession
}

func (m *mockLearningRepo) Save(_ context.Context, _ repository.Tx, s *model.LearningSession) error {
	m.sessions = append(m.sessions, s)
	return nil
}

// Adapter doubles for the pipeline.

type mockVideoTool struct {
	info        *adapter.MediaInfo
	probeErr    error
	frames      []media.Frame
	framesErr   error
	audio       *adapter.AudioResult
	audioErr    error
	audioCalls  int
	framesCalls int
}

func (m *mockVideoTool) Probe(context.Context, string) (*adapter.MediaInfo, error) {
	if m.probeErr != nil {
		return nil, m.probeErr
	}
	return m.info, nil
}

func (m *mockVideoTool) SampleFrames(context.Context, string, float64, int) ([]media.Frame, error) {
	m.framesCalls++
	if m.framesErr != nil {
		return nil, m.framesErr
	}
	return m.frames, nil
}

func (m *mockVideoTool) CompressAudio(context.Context, string, string) (*adapter.AudioResult, error) {
	m.audioCalls++
	if m.audioErr != nil {
		return nil, m.audioErr
	}
	return m.audio, nil
}

type mockSlideOptimizer struct {
	result *adapter.SlidesResult
	err    error
	calls  int
}

func (m *mockSlideOptimizer) OptimizeSlides(context.Context, string, string) (*adapter.SlidesResult, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockAssembler struct {
	result *adapter.AssembleResult
	err    error
	calls  int
	lastIn adapter.AssembleInput
}

func (m *mockAssembler) Assemble(_ context.Context, in adapter.AssembleInput) (*adapter.AssembleResult, error) {
	m.calls++
	m.lastIn = in
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockOfflineStore struct {
	transferSize int64
	transfers    int
	transferErr  error
	progressAt   []int64
	extractRoot  string
	extractErr   error
	content      *model.OfflineContent
	removed      []string
}

func (m *mockOfflineStore) Transfer(_ context.Context, _ string, _ string, onProgress func(written int64) error) (int64, error) {
	m.transfers++
	if m.transferErr != nil {
		return 0, m.transferErr
	}
	steps := m.progressAt
	if len(steps) == 0 {
		steps = []int64{m.transferSize}
	}
	for _, w := range steps {
		if err := onProgress(w); err != nil {
			return w, err
		}
	}
	return m.transferSize, nil
}

func (m *mockOfflineStore) Extract(string, string) (string, error) {
	if m.extractErr != nil {
		return "", m.extractErr
	}
	return m.extractRoot, nil
}

func (m *mockOfflineStore) Content(downloadID string) (*model.OfflineContent, error) {
	if m.content == nil {
		return nil, fmt.Errorf("%w: content %s", domain.ErrNotFound, downloadID)
	}
	return m.content, nil
}

func (m *mockOfflineStore) Remove(downloadID string) error {
	m.removed = append(m.removed, downloadID)
	return nil
}
