package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"gramothi-backend/internal/domain"
	"gramothi-backend/internal/domain/model"
	"gramothi-backend/internal/domain/ports/adapter"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

type pipelineFixture struct {
	uc      PipelineUseCase
	bundles *mockBundleRepo
	tasks   *mockTaskRepo
	video   *mockVideoTool
	slides  *mockSlideOptimizer
	asm     *mockAssembler
	workDir string
	video1  string
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	dir := t.TempDir()
	videoPath := filepath.Join(dir, "lecture.mp4")
	if err := os.WriteFile(videoPath, []byte("not really a video"), 0o644); err != nil {
		t.Fatal(err)
	}
	slidesSrc := filepath.Join(dir, "deck")
	if err := os.MkdirAll(slidesSrc, 0o755); err != nil {
		t.Fatal(err)
	}

	f := &pipelineFixture{
		bundles: newMockBundleRepo(),
		tasks:   &mockTaskRepo{},
		workDir: filepath.Join(dir, "work"),
		video1:  videoPath,
	}
	f.video = &mockVideoTool{
		info:  &adapter.MediaInfo{Duration: 600, FrameRate: 30, HasAudio: true},
		audio: &adapter.AudioResult{OutputPath: filepath.Join(dir, "audio.ogg"), Duration: 600, CompressedSize: 2400},
	}
	f.slides = &mockSlideOptimizer{result: &adapter.SlidesResult{
		OutputDir:     filepath.Join(dir, "slides"),
		SlidePaths:    []string{filepath.Join(dir, "slides", "slide_001.jpg"), filepath.Join(dir, "slides", "slide_002.jpg")},
		SlideCount:    2,
		OriginalSize:  9000,
		OptimizedSize: 3000,
	}}
	f.asm = &mockAssembler{result: &adapter.AssembleResult{
		ArchivePath: filepath.Join(dir, "out", "bundle.zip"),
		Size:        5000,
		Checksum:    "abc123",
		EntryCount:  5,
	}}
	f.uc = NewPipelineUseCase(f.bundles, f.tasks, f.video, f.slides, f.asm,
		f.workDir, filepath.Join(dir, "out"), testLogger())
	return f
}

func (f *pipelineFixture) createBundle(t *testing.T) *model.LectureBundle {
	t.Helper()
	b, err := f.uc.CreateBundle(context.Background(), CreateBundleInput{
		ClassID:    "class-1",
		OwnerID:    "teacher-1",
		Title:      "Photosynthesis",
		VideoPath:  f.video1,
		SlidesPath: filepath.Dir(f.video1) + "/deck",
	})
	if err != nil {
		t.Fatalf("CreateBundle: %v", err)
	}
	return b
}

func TestCreateBundle(t *testing.T) {
	f := newPipelineFixture(t)

	t.Run("registers pending bundle", func(t *testing.T) {
		b := f.createBundle(t)
		if b.Status != model.BundleStatusPending {
			t.Fatalf("status = %s, want pending", b.Status)
		}
		if b.ID == "" || b.ClassID != "class-1" {
			t.Fatalf("unexpected bundle: %+v", b)
		}
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		_, err := f.uc.CreateBundle(context.Background(), CreateBundleInput{ClassID: "c", Title: "t"})
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("err = %v, want ErrInvalidArgument", err)
		}
	})

	t.Run("rejects unreadable video", func(t *testing.T) {
		_, err := f.uc.CreateBundle(context.Background(), CreateBundleInput{
			ClassID: "c", Title: "t", VideoPath: "/nonexistent/v.mp4", SlidesPath: "/nonexistent/deck",
		})
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("err = %v, want ErrInvalidArgument", err)
		}
	})
}

func TestProcessRunsAllStages(t *testing.T) {
	f := newPipelineFixture(t)
	b := f.createBundle(t)

	if err := f.uc.Process(context.Background(), b.ID); err != nil {
		t.Fatalf("Process: %v", err)
	}

	got, _ := f.uc.GetBundle(context.Background(), b.ID)
	if got.Status != model.BundleStatusCompleted {
		t.Fatalf("status = %s, want completed (error: %s)", got.Status, got.Error)
	}
	if got.Progress != 1 {
		t.Fatalf("progress = %v, want 1", got.Progress)
	}
	if got.SlideCount != 2 || got.Checksum != "abc123" || got.ArchiveSize != 5000 {
		t.Fatalf("outputs not recorded: %+v", got)
	}
	if got.ProcessedAt == nil {
		t.Fatal("ProcessedAt not set")
	}

	tasks, _ := f.tasks.FindByBundle(context.Background(), nil, b.ID)
	if len(tasks) != len(model.Stages()) {
		t.Fatalf("task count = %d, want %d", len(tasks), len(model.Stages()))
	}
	for _, task := range tasks {
		if task.Status != model.TaskStatusCompleted {
			t.Errorf("stage %s = %s, want completed", task.Stage, task.Status)
		}
	}

	// no frames sampled: uniform fallback over both slides
	entries, err := f.uc.Timeline(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("timeline entries = %d, want 2", len(entries))
	}
	if entries[0].Duration != 300 || entries[1].Duration != 300 {
		t.Fatalf("uniform durations wrong: %+v", entries)
	}
	if !strings.HasPrefix(entries[0].SlidePath, "slides/") {
		t.Fatalf("slide path %q not archive-relative", entries[0].SlidePath)
	}

	if f.asm.lastIn.AudioPath != f.video.audio.OutputPath {
		t.Fatalf("assembler got audio %q", f.asm.lastIn.AudioPath)
	}
	if f.asm.lastIn.TimelinePath == "" {
		t.Fatal("assembler got empty timeline path")
	}
}

func TestProcessStageFailureHalts(t *testing.T) {
	f := newPipelineFixture(t)
	f.video.audioErr = errors.New("no audio stream")
	b := f.createBundle(t)

	if err := f.uc.Process(context.Background(), b.ID); err == nil {
		t.Fatal("Process returned nil error")
	}

	got, _ := f.uc.GetBundle(context.Background(), b.ID)
	if got.Status != model.BundleStatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if !strings.HasPrefix(got.Error, string(model.StageAudio)) {
		t.Fatalf("error %q does not name the failed stage", got.Error)
	}
	if f.slides.calls != 0 || f.asm.calls != 0 {
		t.Fatal("later stages ran after a failure")
	}

	tasks, _ := f.tasks.FindByBundle(context.Background(), nil, b.ID)
	for _, task := range tasks {
		switch task.Stage {
		case model.StageAudio:
			if task.Status != model.TaskStatusFailed {
				t.Errorf("audio task = %s, want failed", task.Status)
			}
		default:
			if task.Status != model.TaskStatusQueued {
				t.Errorf("stage %s = %s, want queued", task.Stage, task.Status)
			}
		}
	}
}

func TestProcessIsIdempotentWhenCompleted(t *testing.T) {
	f := newPipelineFixture(t)
	b := f.createBundle(t)
	if err := f.uc.Process(context.Background(), b.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.uc.Process(context.Background(), b.ID); err != nil {
		t.Fatal(err)
	}
	if f.video.audioCalls != 1 || f.slides.calls != 1 || f.asm.calls != 1 {
		t.Fatalf("stages reran: audio=%d slides=%d asm=%d",
			f.video.audioCalls, f.slides.calls, f.asm.calls)
	}
}

func TestResubmitResetsFailedBundle(t *testing.T) {
	f := newPipelineFixture(t)
	f.video.audioErr = errors.New("transient tool failure")
	b := f.createBundle(t)
	_ = f.uc.Process(context.Background(), b.ID)

	f.video.audioErr = nil
	reset, err := f.uc.Resubmit(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("Resubmit: %v", err)
	}
	if reset.Status != model.BundleStatusPending || reset.Error != "" || reset.Progress != 0 {
		t.Fatalf("not reset: %+v", reset)
	}

	if err := f.uc.Process(context.Background(), b.ID); err != nil {
		t.Fatalf("reprocess: %v", err)
	}
	got, _ := f.uc.GetBundle(context.Background(), b.ID)
	if got.Status != model.BundleStatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
}

func TestResubmitRejectsInFlight(t *testing.T) {
	f := newPipelineFixture(t)
	b := f.createBundle(t)
	b.Status = model.BundleStatusProcessing
	_ = f.bundles.Save(context.Background(), nil, b)

	if _, err := f.uc.Resubmit(context.Background(), b.ID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestProcessResumesAtFirstIncompleteStage(t *testing.T) {
	f := newPipelineFixture(t)
	b := f.createBundle(t)

	// first run: full pipeline to lay down real stage artifacts and results
	if err := f.uc.Process(context.Background(), b.ID); err != nil {
		t.Fatal(err)
	}

	// rewind to mid-pipeline: audio and slides done, rest pending
	got, _ := f.uc.GetBundle(context.Background(), b.ID)
	got.Status = model.BundleStatusProcessing
	got.ProcessedAt = nil
	_ = f.bundles.Save(context.Background(), nil, got)

	// make the recorded slide output dir actually exist for the artifact check
	if err := os.MkdirAll(f.slides.result.OutputDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(f.video.audio.OutputPath, []byte("ogg"), 0o644); err != nil {
		t.Fatal(err)
	}

	tasks, _ := f.tasks.FindByBundle(context.Background(), nil, b.ID)
	for _, task := range tasks {
		if task.Stage == model.StageTimeline || task.Stage == model.StageBundle {
			task.Status = model.TaskStatusQueued
			task.Result = nil
			_ = f.tasks.Save(context.Background(), nil, task)
		}
	}

	if err := f.uc.Process(context.Background(), b.ID); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if f.video.audioCalls != 1 || f.slides.calls != 1 {
		t.Fatalf("completed stages reran: audio=%d slides=%d", f.video.audioCalls, f.slides.calls)
	}
	if f.asm.calls != 2 {
		t.Fatalf("bundle stage runs = %d, want 2", f.asm.calls)
	}
	final, _ := f.uc.GetBundle(context.Background(), b.ID)
	if final.Status != model.BundleStatusCompleted {
		t.Fatalf("status = %s, want completed (error: %s)", final.Status, final.Error)
	}
}

func TestProcessRestartsWhenArtifactsMissing(t *testing.T) {
	f := newPipelineFixture(t)
	b := f.createBundle(t)

	// a completed audio task pointing at a file that no longer exists
	now := time.Now()
	tasks, err := f.uc.(*pipelineUC).resetTasks(context.Background(), b)
	if err != nil {
		t.Fatal(err)
	}
	tasks[0].Status = model.TaskStatusCompleted
	tasks[0].CompletedAt = &now
	tasks[0].Result = map[string]any{
		"output_path": filepath.Join(t.TempDir(), "gone.ogg"),
		"duration":    600.0,
	}
	_ = f.tasks.Save(context.Background(), nil, tasks[0])

	if err := f.uc.Process(context.Background(), b.ID); err != nil {
		t.Fatalf("Process: %v", err)
	}
	// state was stale, so the audio stage must have rerun
	if f.video.audioCalls != 1 {
		t.Fatalf("audioCalls = %d, want 1", f.video.audioCalls)
	}
	got, _ := f.uc.GetBundle(context.Background(), b.ID)
	if got.Status != model.BundleStatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
}

func TestTimelineRequiresCompletedBundle(t *testing.T) {
	f := newPipelineFixture(t)
	b := f.createBundle(t)
	if _, err := f.uc.Timeline(context.Background(), b.ID); !errors.Is(err, domain.ErrBundleNotReady) {
		t.Fatalf("err = %v, want ErrBundleNotReady", err)
	}
}

func TestListIncomplete(t *testing.T) {
	f := newPipelineFixture(t)
	b1 := f.createBundle(t)
	b2 := f.createBundle(t)
	b2.Status = model.BundleStatusProcessing
	_ = f.bundles.Save(context.Background(), nil, b2)

	list, err := f.uc.ListIncomplete(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("incomplete = %d, want 2", len(list))
	}
	ids := map[string]bool{list[0].ID: true, list[1].ID: true}
	if !ids[b1.ID] || !ids[b2.ID] {
		t.Fatalf("wrong bundles: %v", ids)
	}
}
