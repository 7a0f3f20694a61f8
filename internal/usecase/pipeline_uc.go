package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gramothi-backend/internal/domain"
	"gramothi-backend/internal/domain/model"
	"gramothi-backend/internal/domain/ports/adapter"
	"gramothi-backend/internal/domain/ports/repository"
	"gramothi-backend/internal/infra/metrics"
	"gramothi-backend/internal/media"
)

// PipelineUseCase owns the lecture bundle lifecycle: registration, the
// four-stage processing pipeline, retry after failure and status queries.
// Process runs stages strictly in order and records per-stage state in
// processing task rows, so an interrupted pipeline can resume at the first
// stage that never completed.
type PipelineUseCase interface {
	CreateBundle(ctx context.Context, in CreateBundleInput) (*model.LectureBundle, error)
	Process(ctx context.Context, bundleID string) error
	Resubmit(ctx context.Context, bundleID string) (*model.LectureBundle, error)
	GetBundle(ctx context.Context, bundleID string) (*model.LectureBundle, error)
	ListByClass(ctx context.Context, classID string) ([]*model.LectureBundle, error)
	Timeline(ctx context.Context, bundleID string) ([]model.SlideTimelineEntry, error)
	ListIncomplete(ctx context.Context) ([]*model.LectureBundle, error)
}

type CreateBundleInput struct {
	ClassID    string
	OwnerID    string
	Title      string
	VideoPath  string
	SlidesPath string
}

type pipelineUC struct {
	bundles   repository.LectureBundleRepository
	tasks     repository.ProcessingTaskRepository
	video     adapter.VideoToolAdapter
	slides    adapter.SlideOptimizerAdapter
	assembler adapter.BundleAssemblerAdapter

	workDir   string
	outputDir string
	clock     func() time.Time
	log       *zerolog.Logger
}

var _ PipelineUseCase = (*pipelineUC)(nil)

func NewPipelineUseCase(
	bundles repository.LectureBundleRepository,
	tasks repository.ProcessingTaskRepository,
	video adapter.VideoToolAdapter,
	slides adapter.SlideOptimizerAdapter,
	assembler adapter.BundleAssemblerAdapter,
	workDir, outputDir string,
	logger *zerolog.Logger,
) PipelineUseCase {
	l := logger.With().Str("component", "PipelineUseCase").Logger()
	return &pipelineUC{
		bundles:   bundles,
		tasks:     tasks,
		video:     video,
		slides:    slides,
		assembler: assembler,
		workDir:   workDir,
		outputDir: outputDir,
		clock:     time.Now,
		log:       &l,
	}
}

func (u *pipelineUC) CreateBundle(ctx context.Context, in CreateBundleInput) (*model.LectureBundle, error) {
	if in.ClassID == "" || in.Title == "" || in.VideoPath == "" || in.SlidesPath == "" {
		return nil, fmt.Errorf("%w: class_id, title, video_path and slides_path are required", domain.ErrInvalidArgument)
	}
	if _, err := os.Stat(in.VideoPath); err != nil {
		return nil, fmt.Errorf("%w: source video %q is not readable", domain.ErrInvalidArgument, in.VideoPath)
	}
	now := u.clock()
	b := &model.LectureBundle{
		ID:               uuid.NewString(),
		ClassID:          in.ClassID,
		OwnerID:          in.OwnerID,
		Title:            in.Title,
		Status:           model.BundleStatusPending,
		SourceVideoPath:  in.VideoPath,
		SourceSlidesPath: in.SlidesPath,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := u.bundles.Save(ctx, nil, b); err != nil {
		return nil, err
	}
	u.log.Info().Str("bundle_id", b.ID).Str("class_id", b.ClassID).Msg("bundle registered")
	return b, nil
}

// Process drives all four stages for one bundle. Stage failures are captured
// on the task and bundle records before the error is returned, so callers on
// the async side only need to log it.
func (u *pipelineUC) Process(ctx context.Context, bundleID string) error {
	b, err := u.bundles.FindByID(ctx, nil, bundleID)
	if err != nil {
		return err
	}
	if b.Status == model.BundleStatusCompleted {
		return nil
	}

	tasks, err := u.prepareTasks(ctx, b)
	if err != nil {
		return err
	}

	st, err := u.restoreState(b, tasks)
	if err != nil {
		// stale or inconsistent stage results: start over
		u.log.Warn().Err(err).Str("bundle_id", b.ID).Msg("discarding stale stage state")
		if tasks, err = u.resetTasks(ctx, b); err != nil {
			return err
		}
		st = &stageState{}
	}

	b.Status = model.BundleStatusProcessing
	b.Error = ""
	b.UpdatedAt = u.clock()
	if err := u.bundles.Save(ctx, nil, b); err != nil {
		return err
	}
	metrics.BundleStarted()
	defer metrics.BundleFinished()

	for _, t := range tasks {
		if t.Status == model.TaskStatusCompleted {
			continue
		}
		if err := u.runStage(ctx, b, t, st); err != nil {
			return u.fail(ctx, b, t, err)
		}
		done := completedCount(tasks)
		b.Progress = float64(done) / float64(len(tasks))
		b.UpdatedAt = u.clock()
		if err := u.bundles.Save(ctx, nil, b); err != nil {
			return err
		}
	}
	return u.finalize(ctx, b, st)
}

// Resubmit resets a failed bundle so it runs the pipeline again from the
// first stage. Bundles still in flight cannot be resubmitted.
func (u *pipelineUC) Resubmit(ctx context.Context, bundleID string) (*model.LectureBundle, error) {
	b, err := u.bundles.FindByID(ctx, nil, bundleID)
	if err != nil {
		return nil, err
	}
	if b.Status == model.BundleStatusProcessing {
		return nil, fmt.Errorf("%w: bundle %s is still processing", domain.ErrConflict, bundleID)
	}
	if err := u.tasks.DeleteByBundle(ctx, nil, b.ID); err != nil {
		return nil, err
	}
	b.Status = model.BundleStatusPending
	b.Progress = 0
	b.Error = ""
	b.AudioPath = ""
	b.SlidesDir = ""
	b.TimelinePath = ""
	b.ArchivePath = ""
	b.Checksum = ""
	b.ArchiveSize = 0
	b.AudioDuration = 0
	b.SlideCount = 0
	b.CompressionRatio = 0
	b.ProcessedAt = nil
	b.UpdatedAt = u.clock()
	if err := u.bundles.Save(ctx, nil, b); err != nil {
		return nil, err
	}
	u.log.Info().Str("bundle_id", b.ID).Msg("bundle resubmitted")
	return b, nil
}

func (u *pipelineUC) GetBundle(ctx context.Context, bundleID string) (*model.LectureBundle, error) {
	return u.bundles.FindByID(ctx, nil, bundleID)
}

func (u *pipelineUC) ListByClass(ctx context.Context, classID string) ([]*model.LectureBundle, error) {
	return u.bundles.FindByClass(ctx, nil, classID)
}

func (u *pipelineUC) Timeline(ctx context.Context, bundleID string) ([]model.SlideTimelineEntry, error) {
	b, err := u.bundles.FindByID(ctx, nil, bundleID)
	if err != nil {
		return nil, err
	}
	if b.Status != model.BundleStatusCompleted {
		return nil, fmt.Errorf("%w: bundle %s is %s", domain.ErrBundleNotReady, bundleID, b.Status)
	}
	return u.bundles.FindTimeline(ctx, nil, bundleID)
}

// ListIncomplete returns bundles that were mid-pipeline or never started,
// for requeueing after a restart.
func (u *pipelineUC) ListIncomplete(ctx context.Context) ([]*model.LectureBundle, error) {
	processing, err := u.bundles.FindByStatus(ctx, nil, model.BundleStatusProcessing)
	if err != nil {
		return nil, err
	}
	pending, err := u.bundles.FindByStatus(ctx, nil, model.BundleStatusPending)
	if err != nil {
		return nil, err
	}
	return append(processing, pending...), nil
}

// stageState carries per-stage outputs through the pipeline. On resume it is
// rebuilt from the result maps of already-completed tasks.
type stageState struct {
	audio        adapter.AudioResult
	slides       adapter.SlidesResult
	timeline     []model.SlideTimelineEntry
	timelinePath string
	archive      adapter.AssembleResult
}

func (u *pipelineUC) prepareTasks(ctx context.Context, b *model.LectureBundle) ([]*model.ProcessingTask, error) {
	existing, err := u.tasks.FindByBundle(ctx, nil, b.ID)
	if err != nil {
		return nil, err
	}
	if len(existing) == len(model.Stages()) {
		return existing, nil
	}
	return u.resetTasks(ctx, b)
}

func (u *pipelineUC) resetTasks(ctx context.Context, b *model.LectureBundle) ([]*model.ProcessingTask, error) {
	if err := u.tasks.DeleteByBundle(ctx, nil, b.ID); err != nil {
		return nil, err
	}
	now := u.clock()
	out := make([]*model.ProcessingTask, 0, len(model.Stages()))
	for _, stage := range model.Stages() {
		t := &model.ProcessingTask{
			ID:        uuid.NewString(),
			BundleID:  b.ID,
			Stage:     stage,
			Status:    model.TaskStatusQueued,
			CreatedAt: now,
		}
		if err := u.tasks.Save(ctx, nil, t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (u *pipelineUC) runStage(ctx context.Context, b *model.LectureBundle, t *model.ProcessingTask, st *stageState) error {
	now := u.clock()
	t.Status = model.TaskStatusRunning
	t.StartedAt = &now
	if err := u.tasks.Save(ctx, nil, t); err != nil {
		return err
	}
	u.log.Info().Str("bundle_id", b.ID).Str("stage", string(t.Stage)).Msg("stage started")

	start := u.clock()
	var (
		result map[string]any
		err    error
	)
	switch t.Stage {
	case model.StageAudio:
		result, err = u.stageAudio(ctx, b, st)
	case model.StageSlides:
		result, err = u.stageSlides(ctx, b, st)
	case model.StageTimeline:
		result, err = u.stageTimeline(ctx, b, st)
	case model.StageBundle:
		result, err = u.stageBundle(ctx, b, st)
	default:
		err = fmt.Errorf("%w: unknown stage %q", domain.ErrInvalidArgument, t.Stage)
	}
	metrics.ObserveStageDuration(string(t.Stage), u.clock().Sub(start).Seconds())
	if err != nil {
		return err
	}

	done := u.clock()
	t.Status = model.TaskStatusCompleted
	t.Result = result
	t.CompletedAt = &done
	if err := u.tasks.Save(ctx, nil, t); err != nil {
		return err
	}
	u.log.Info().Str("bundle_id", b.ID).Str("stage", string(t.Stage)).
		Dur("took", done.Sub(start)).Msg("stage completed")
	return nil
}

func (u *pipelineUC) stageAudio(ctx context.Context, b *model.LectureBundle, st *stageState) (map[string]any, error) {
	dir := u.bundleWorkDir(b.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	res, err := u.video.CompressAudio(ctx, b.SourceVideoPath, filepath.Join(dir, "audio.ogg"))
	if err != nil {
		return nil, err
	}
	st.audio = *res
	return map[string]any{
		"output_path":     res.OutputPath,
		"duration":        res.Duration,
		"compressed_size": res.CompressedSize,
	}, nil
}

func (u *pipelineUC) stageSlides(ctx context.Context, b *model.LectureBundle, st *stageState) (map[string]any, error) {
	res, err := u.slides.OptimizeSlides(ctx, b.SourceSlidesPath, filepath.Join(u.bundleWorkDir(b.ID), "slides"))
	if err != nil {
		return nil, err
	}
	st.slides = *res
	return map[string]any{
		"output_dir":     res.OutputDir,
		"slide_paths":    res.SlidePaths,
		"slide_count":    res.SlideCount,
		"original_size":  res.OriginalSize,
		"optimized_size": res.OptimizedSize,
		"skipped":        res.Skipped,
	}, nil
}

func (u *pipelineUC) stageTimeline(ctx context.Context, b *model.LectureBundle, st *stageState) (map[string]any, error) {
	duration := st.audio.Duration
	if info, err := u.video.Probe(ctx, b.SourceVideoPath); err == nil && info.Duration > 0 {
		duration = info.Duration
	}

	frames, err := u.video.SampleFrames(ctx, b.SourceVideoPath, media.DefaultSampleInterval, media.MaxSampledFrames)
	if err != nil {
		u.log.Warn().Err(err).Str("bundle_id", b.ID).Msg("frame sampling failed, using uniform timeline")
		frames = nil
	}
	transitions := media.DetectTransitions(frames, media.DefaultSampleInterval, media.DefaultSimilarityThreshold)

	entries := media.BuildTimeline(transitions, archiveSlidePaths(st.slides.SlidePaths), duration)
	if err := os.MkdirAll(u.bundleWorkDir(b.ID), 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(u.bundleWorkDir(b.ID), "timeline.json")
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return nil, err
	}
	st.timeline = entries
	st.timelinePath = path
	return map[string]any{
		"timeline_path":    path,
		"entry_count":      len(entries),
		"transition_count": len(transitions),
		"total_duration":   duration,
	}, nil
}

func (u *pipelineUC) stageBundle(ctx context.Context, b *model.LectureBundle, st *stageState) (map[string]any, error) {
	if err := os.MkdirAll(u.outputDir, 0o755); err != nil {
		return nil, err
	}
	res, err := u.assembler.Assemble(ctx, adapter.AssembleInput{
		BundleID:     b.ID,
		Title:        b.Title,
		AudioPath:    st.audio.OutputPath,
		SlidesDir:    st.slides.OutputDir,
		TimelinePath: st.timelinePath,
		OutputPath:   filepath.Join(u.outputDir, fmt.Sprintf("bundle_%s.zip", b.ID)),
	})
	if err != nil {
		return nil, err
	}
	st.archive = *res
	return map[string]any{
		"archive_path": res.ArchivePath,
		"size":         res.Size,
		"checksum":     res.Checksum,
		"entry_count":  res.EntryCount,
	}, nil
}

func (u *pipelineUC) finalize(ctx context.Context, b *model.LectureBundle, st *stageState) error {
	b.Status = model.BundleStatusCompleted
	b.Progress = 1
	b.AudioPath = st.audio.OutputPath
	b.SlidesDir = st.slides.OutputDir
	b.TimelinePath = st.timelinePath
	b.ArchivePath = st.archive.ArchivePath
	b.Checksum = st.archive.Checksum
	b.ArchiveSize = st.archive.Size
	b.AudioDuration = st.audio.Duration
	b.SlideCount = st.slides.SlideCount
	b.CompressionRatio = compressionRatio(b.SourceVideoPath, st.slides.OutputDir, st.archive.Size)
	now := u.clock()
	b.ProcessedAt = &now
	b.UpdatedAt = now
	if err := u.bundles.SaveTimeline(ctx, nil, b.ID, st.timeline); err != nil {
		return err
	}
	if err := u.bundles.Save(ctx, nil, b); err != nil {
		return err
	}
	metrics.IncBundleProcessed("completed")
	u.log.Info().Str("bundle_id", b.ID).Int("slides", b.SlideCount).
		Float64("ratio", b.CompressionRatio).Msg("bundle completed")
	return nil
}

func (u *pipelineUC) fail(ctx context.Context, b *model.LectureBundle, t *model.ProcessingTask, cause error) error {
	now := u.clock()
	t.Status = model.TaskStatusFailed
	t.Error = cause.Error()
	t.CompletedAt = &now
	if err := u.tasks.Save(ctx, nil, t); err != nil {
		u.log.Error().Err(err).Str("task_id", t.ID).Msg("failed to record task failure")
	}
	b.Status = model.BundleStatusFailed
	b.Error = fmt.Sprintf("%s: %s", t.Stage, cause.Error())
	b.UpdatedAt = now
	if err := u.bundles.Save(ctx, nil, b); err != nil {
		u.log.Error().Err(err).Str("bundle_id", b.ID).Msg("failed to record bundle failure")
	}
	metrics.IncBundleProcessed("failed")
	u.log.Error().Err(cause).Str("bundle_id", b.ID).Str("stage", string(t.Stage)).Msg("pipeline failed")
	return cause
}

// restoreState rebuilds stage outputs from completed task results. It errors
// when a completed stage's recorded artifacts are missing from disk, which
// forces a clean restart.
func (u *pipelineUC) restoreState(b *model.LectureBundle, tasks []*model.ProcessingTask) (*stageState, error) {
	st := &stageState{}
	for _, t := range tasks {
		if t.Status != model.TaskStatusCompleted {
			if t.Status == model.TaskStatusRunning || t.Status == model.TaskStatusFailed {
				// interrupted or failed mid-stage: rerun it
				t.Status = model.TaskStatusQueued
			}
			continue
		}
		switch t.Stage {
		case model.StageAudio:
			st.audio = adapter.AudioResult{
				OutputPath:     resultString(t.Result, "output_path"),
				Duration:       resultFloat(t.Result, "duration"),
				CompressedSize: int64(resultFloat(t.Result, "compressed_size")),
			}
			if !fileExists(st.audio.OutputPath) {
				return nil, fmt.Errorf("audio artifact missing: %s", st.audio.OutputPath)
			}
		case model.StageSlides:
			st.slides = adapter.SlidesResult{
				OutputDir:     resultString(t.Result, "output_dir"),
				SlidePaths:    resultStrings(t.Result, "slide_paths"),
				SlideCount:    int(resultFloat(t.Result, "slide_count")),
				OriginalSize:  int64(resultFloat(t.Result, "original_size")),
				OptimizedSize: int64(resultFloat(t.Result, "optimized_size")),
				Skipped:       int(resultFloat(t.Result, "skipped")),
			}
			if st.slides.OutputDir != "" && !fileExists(st.slides.OutputDir) {
				return nil, fmt.Errorf("slides artifact missing: %s", st.slides.OutputDir)
			}
		case model.StageTimeline:
			st.timelinePath = resultString(t.Result, "timeline_path")
			if !fileExists(st.timelinePath) {
				return nil, fmt.Errorf("timeline artifact missing: %s", st.timelinePath)
			}
			raw, err := os.ReadFile(st.timelinePath)
			if err != nil {
				return nil, err
			}
			if err := json.Unmarshal(raw, &st.timeline); err != nil {
				return nil, err
			}
		case model.StageBundle:
			st.archive = adapter.AssembleResult{
				ArchivePath: resultString(t.Result, "archive_path"),
				Size:        int64(resultFloat(t.Result, "size")),
				Checksum:    resultString(t.Result, "checksum"),
				EntryCount:  int(resultFloat(t.Result, "entry_count")),
			}
			if !fileExists(st.archive.ArchivePath) {
				return nil, fmt.Errorf("archive artifact missing: %s", st.archive.ArchivePath)
			}
		}
	}
	return st, nil
}

func (u *pipelineUC) bundleWorkDir(bundleID string) string {
	return filepath.Join(u.workDir, bundleID)
}

// archiveSlidePaths rewrites absolute slide paths into the relative form
// used inside the archive, so timeline entries resolve for offline players.
func archiveSlidePaths(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = "slides/" + filepath.Base(p)
	}
	return out
}

func compressionRatio(videoPath, slidesDir string, archiveSize int64) float64 {
	if archiveSize <= 0 {
		return 0
	}
	original := fileSize(videoPath) + dirSize(slidesDir)
	if original <= 0 {
		return 0
	}
	return float64(original) / float64(archiveSize)
}

func completedCount(tasks []*model.ProcessingTask) int {
	n := 0
	for _, t := range tasks {
		if t.Status == model.TaskStatusCompleted {
			n++
		}
	}
	return n
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func dirSize(dir string) int64 {
	var total int64
	_ = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

// result map helpers. Values round-trip through JSONB, so numbers come back
// as float64 and string slices as []any.

func resultString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func resultFloat(m map[string]any, key string) float64 {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func resultStrings(m map[string]any, key string) []string {
	if m == nil {
		return nil
	}
	switch v := m[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
