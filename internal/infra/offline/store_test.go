package offline_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"gramothi-backend/internal/config"
	"gramothi-backend/internal/domain"
	"gramothi-backend/internal/infra/offline"
)

func newStore(t *testing.T, chunk int64) *offline.Store {
	t.Helper()
	logger := zerolog.Nop()
	return offline.NewStore(config.DownloadConfig{
		DownloadDir: filepath.Join(t.TempDir(), "downloads"),
		OfflineDir:  filepath.Join(t.TempDir(), "offline"),
		ChunkSize:   chunk,
	}, &logger)
}

func writeArchive(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range map[string]string{
		"audio.ogg":            "opus",
		"slides/slide_001.jpg": "jpeg-1",
		"slides/slide_002.jpg": "jpeg-2",
		"timeline.json":        "[]",
		"metadata.json":        "{}",
	} {
		w, _ := zw.Create(name)
		w.Write([]byte(body))
	}
	zw.Close()
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()

	t.Run("progress is reported per chunk and sums to total", func(t *testing.T) {
		store := newStore(t, 1024)
		src := filepath.Join(t.TempDir(), "bundle.zip")
		payload := bytes.Repeat([]byte("x"), 4096+100)
		os.WriteFile(src, payload, 0o644)

		var reports []int64
		written, err := store.Transfer(ctx, "dl-1", src, func(n int64) error {
			reports = append(reports, n)
			return nil
		})
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if written != int64(len(payload)) {
			t.Fatalf("wrote %d, want %d", written, len(payload))
		}
		if len(reports) != 5 {
			t.Fatalf("expected 5 progress reports, got %d", len(reports))
		}
		for i := 1; i < len(reports); i++ {
			if reports[i] <= reports[i-1] {
				t.Errorf("progress not monotonic: %v", reports)
			}
		}
		if reports[len(reports)-1] != written {
			t.Errorf("final report %d != written %d", reports[len(reports)-1], written)
		}
	})

	t.Run("missing source bundle is ErrNotFound", func(t *testing.T) {
		store := newStore(t, 1024)
		_, err := store.Transfer(ctx, "dl-2", "/nowhere/bundle.zip", nil)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got: %v", err)
		}
	})
}

func TestExtractAndContent(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, 1<<20)

	src := filepath.Join(t.TempDir(), "bundle_7.zip")
	writeArchive(t, src)
	if _, err := store.Transfer(ctx, "dl-7", src, nil); err != nil {
		t.Fatal(err)
	}

	path, err := store.Extract("dl-7", src)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if path == "" {
		t.Fatal("expected offline path")
	}

	content, err := store.Content("dl-7")
	if err != nil {
		t.Fatalf("content: %v", err)
	}
	if content.AudioPath == "" || content.TimelinePath == "" || content.MetadataPath == "" {
		t.Errorf("content paths incomplete: %+v", content)
	}
	if len(content.SlidePaths) != 2 {
		t.Errorf("expected 2 slides, got %d", len(content.SlidePaths))
	}
	if content.TotalSize <= 0 {
		t.Errorf("expected positive total size, got %d", content.TotalSize)
	}

	t.Run("remove deletes archive and extracted content together", func(t *testing.T) {
		if err := store.Remove("dl-7"); err != nil {
			t.Fatal(err)
		}
		if _, err := store.Content("dl-7"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound after purge, got: %v", err)
		}
	})
}
