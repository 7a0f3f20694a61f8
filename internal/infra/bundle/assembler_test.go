package bundle_test

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"gramothi-backend/internal/domain"
	"gramothi-backend/internal/domain/ports/adapter"
	"gramothi-backend/internal/infra/bundle"
)

func stageInputs(t *testing.T) adapter.AssembleInput {
	t.Helper()
	dir := t.TempDir()
	audio := filepath.Join(dir, "audio.ogg")
	os.WriteFile(audio, []byte("opus-bytes"), 0o644)

	slides := filepath.Join(dir, "slides")
	os.MkdirAll(slides, 0o755)
	os.WriteFile(filepath.Join(slides, "slide_001.jpg"), []byte("jpeg-1"), 0o644)
	os.WriteFile(filepath.Join(slides, "slide_002.jpg"), []byte("jpeg-2"), 0o644)

	timeline := filepath.Join(dir, "timeline.json")
	os.WriteFile(timeline, []byte(`[{"slide_number":1}]`), 0o644)

	return adapter.AssembleInput{
		BundleID:     "bundle-1",
		Title:        "Intro to Soil Science",
		AudioPath:    audio,
		SlidesDir:    slides,
		TimelinePath: timeline,
		OutputPath:   filepath.Join(dir, "out", "bundle_1.zip"),
	}
}

func TestAssemble(t *testing.T) {
	logger := zerolog.Nop()
	asm := bundle.NewAssembler(&logger)
	ctx := context.Background()

	t.Run("archive holds audio, ordered slides, timeline and metadata", func(t *testing.T) {
		in := stageInputs(t)
		res, err := asm.Assemble(ctx, in)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if res.EntryCount != 5 {
			t.Errorf("expected 5 entries, got %d", res.EntryCount)
		}
		if res.Size <= 0 {
			t.Errorf("expected positive size, got %d", res.Size)
		}
		if res.Checksum == "" {
			t.Error("expected a checksum")
		}

		zr, err := zip.OpenReader(res.ArchivePath)
		if err != nil {
			t.Fatal(err)
		}
		defer zr.Close()
		got := map[string]bool{}
		for _, f := range zr.File {
			got[f.Name] = true
		}
		for _, want := range []string{"audio.ogg", "slides/slide_001.jpg", "slides/slide_002.jpg", "timeline.json", "metadata.json"} {
			if !got[want] {
				t.Errorf("archive missing %s", want)
			}
		}

		var meta struct {
			BundleID string `json:"bundle_id"`
			Title    string `json:"title"`
			Version  string `json:"version"`
		}
		for _, f := range zr.File {
			if f.Name != "metadata.json" {
				continue
			}
			rc, _ := f.Open()
			json.NewDecoder(rc).Decode(&meta)
			rc.Close()
		}
		if meta.BundleID != "bundle-1" || meta.Title != "Intro to Soil Science" || meta.Version != bundle.FormatVersion {
			t.Errorf("bad metadata: %+v", meta)
		}
	})

	t.Run("checksum is stable for an unchanged archive", func(t *testing.T) {
		in := stageInputs(t)
		res, err := asm.Assemble(ctx, in)
		if err != nil {
			t.Fatal(err)
		}
		again, err := bundle.Checksum(res.ArchivePath)
		if err != nil {
			t.Fatal(err)
		}
		if again != res.Checksum {
			t.Errorf("checksum changed: %s vs %s", res.Checksum, again)
		}
	})

	t.Run("missing audio fails wholesale, no partial artifact", func(t *testing.T) {
		in := stageInputs(t)
		in.AudioPath = filepath.Join(t.TempDir(), "missing.ogg")
		_, err := asm.Assemble(ctx, in)
		if err == nil {
			t.Fatal("expected an error")
		}
		if !errors.Is(err, domain.ErrIntegrity) {
			t.Errorf("expected ErrIntegrity, got: %v", err)
		}
		if _, statErr := os.Stat(in.OutputPath); !os.IsNotExist(statErr) {
			t.Error("partial archive left on disk")
		}
	})
}
