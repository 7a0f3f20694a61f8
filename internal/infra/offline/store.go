// Package offline manages the on-disk side of bundle downloads: the chunked
// transfer into the download area, extraction into the per-download offline
// directory, and removal when retention expires.
package offline

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"gramothi-backend/internal/config"
	"gramothi-backend/internal/domain"
	"gramothi-backend/internal/domain/model"
)

type Store struct {
	downloadDir string
	offlineDir  string
	chunkSize   int64
	log         *zerolog.Logger
}

func NewStore(cfg config.DownloadConfig, logger *zerolog.Logger) *Store {
	l := logger.With().Str("component", "OfflineStore").Logger()
	return &Store{
		downloadDir: cfg.DownloadDir,
		offlineDir:  cfg.OfflineDir,
		chunkSize:   cfg.ChunkSize,
		log:         &l,
	}
}

// Transfer copies the bundle archive into the download area in fixed-size
// chunks. After every chunk, onProgress receives the cumulative byte count so
// the caller can persist downloaded_size and make progress observable
// mid-transfer. A missing source is a fatal, non-retried error.
func (s *Store) Transfer(ctx context.Context, downloadID, bundlePath string, onProgress func(written int64) error) (int64, error) {
	src, err := os.Open(bundlePath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w: bundle file %s", domain.ErrNotFound, bundlePath)
		}
		return 0, fmt.Errorf("open bundle: %w", err)
	}
	defer src.Close()

	dir := filepath.Join(s.downloadDir, downloadID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("download dir: %w", err)
	}
	dst, err := os.Create(filepath.Join(dir, filepath.Base(bundlePath)))
	if err != nil {
		return 0, fmt.Errorf("create download target: %w", err)
	}
	defer dst.Close()

	var written int64
	buf := make([]byte, s.chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return written, fmt.Errorf("write chunk: %w", werr)
			}
			written += int64(n)
			if onProgress != nil {
				if perr := onProgress(written); perr != nil {
					return written, perr
				}
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return written, fmt.Errorf("read chunk: %w", rerr)
		}
	}
	return written, nil
}

// Extract unpacks the downloaded archive into the per-download offline
// directory and returns its path.
func (s *Store) Extract(downloadID, bundlePath string) (string, error) {
	archive := filepath.Join(s.downloadDir, downloadID, filepath.Base(bundlePath))
	target := filepath.Join(s.offlineDir, downloadID)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("offline dir: %w", err)
	}

	zr, err := zip.OpenReader(archive)
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		// refuse entries escaping the extraction root
		name := filepath.Clean(f.Name)
		if strings.HasPrefix(name, "..") || filepath.IsAbs(name) {
			return "", fmt.Errorf("%w: archive entry %q", domain.ErrIntegrity, f.Name)
		}
		dest := filepath.Join(target, name)
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return "", err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return "", err
		}
		if err := extractFile(f, dest); err != nil {
			return "", fmt.Errorf("extract %s: %w", f.Name, err)
		}
	}
	s.log.Info().Str("download_id", downloadID).Str("path", target).Msg("bundle extracted for offline access")
	return target, nil
}

func extractFile(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, rc)
	return err
}

// Content lists the extracted paths of a completed download.
func (s *Store) Content(downloadID string) (*model.OfflineContent, error) {
	root := filepath.Join(s.offlineDir, downloadID)
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("%w: offline content %s", domain.ErrNotFound, downloadID)
	}

	c := &model.OfflineContent{DownloadID: downloadID}
	if p := filepath.Join(root, "audio.ogg"); exists(p) {
		c.AudioPath = p
	}
	if p := filepath.Join(root, "timeline.json"); exists(p) {
		c.TimelinePath = p
	}
	if p := filepath.Join(root, "metadata.json"); exists(p) {
		c.MetadataPath = p
	}
	slides := filepath.Join(root, "slides")
	if entries, err := os.ReadDir(slides); err == nil {
		c.SlidesDir = slides
		for _, e := range entries {
			if !e.IsDir() {
				c.SlidePaths = append(c.SlidePaths, filepath.Join(slides, e.Name()))
			}
		}
		sort.Strings(c.SlidePaths)
	}
	c.TotalSize = dirSize(root)
	return c, nil
}

// Remove deletes both the downloaded archive and the extracted content for
// one download. The caller removes the database record in the same sweep.
func (s *Store) Remove(downloadID string) error {
	var first error
	for _, dir := range []string{
		filepath.Join(s.downloadDir, downloadID),
		filepath.Join(s.offlineDir, downloadID),
	} {
		if err := os.RemoveAll(dir); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func dirSize(root string) int64 {
	var total int64
	filepath.Walk(root, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total
}
