// Package bundle packages processed lecture artifacts into one compressed,
// checksummed archive that low-bandwidth clients download and unpack.
package bundle

import (
	"archive/zip"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/rs/zerolog"
	"github.com/zeebo/blake3"

	"gramothi-backend/internal/domain"
	"gramothi-backend/internal/domain/ports/adapter"
)

// FormatVersion is written into every bundle's metadata descriptor. Bump it
// when the archive layout changes so old clients can refuse new bundles.
const FormatVersion = "1.0"

const compressionLevel = 6

var _ adapter.BundleAssemblerAdapter = (*Assembler)(nil)

type Assembler struct {
	clock func() time.Time
	log   *zerolog.Logger
}

func NewAssembler(logger *zerolog.Logger) *Assembler {
	l := logger.With().Str("component", "BundleAssembler").Logger()
	return &Assembler{clock: time.Now, log: &l}
}

type metadata struct {
	BundleID  string `json:"bundle_id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
	Version   string `json:"version"`
}

// Assemble writes audio, the ordered slide set, the timeline descriptor and
// a metadata descriptor into one zip. Output is reproducible for identical
// inputs aside from timestamp metadata. Any write failure invalidates the
// whole archive: a partial bundle is never a valid artifact.
func (a *Assembler) Assemble(ctx context.Context, in adapter.AssembleInput) (*adapter.AssembleResult, error) {
	if err := os.MkdirAll(filepath.Dir(in.OutputPath), 0o755); err != nil {
		return nil, fmt.Errorf("%w: bundle dir: %v", domain.ErrIntegrity, err)
	}

	out, err := os.Create(in.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: create archive: %v", domain.ErrIntegrity, err)
	}

	count, err := a.write(ctx, out, in)
	cerr := out.Close()
	if err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(in.OutputPath)
		return nil, fmt.Errorf("%w: %v", domain.ErrIntegrity, err)
	}

	st, err := os.Stat(in.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: stat archive: %v", domain.ErrIntegrity, err)
	}
	sum, err := Checksum(in.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: checksum: %v", domain.ErrIntegrity, err)
	}

	a.log.Info().Str("bundle_id", in.BundleID).Int64("size", st.Size()).
		Int("entries", count).Str("checksum", sum).Msg("bundle assembled")
	return &adapter.AssembleResult{
		ArchivePath: in.OutputPath,
		Size:        st.Size(),
		Checksum:    sum,
		EntryCount:  count,
	}, nil
}

func (a *Assembler) write(ctx context.Context, out io.Writer, in adapter.AssembleInput) (int, error) {
	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, compressionLevel)
	})

	count := 0
	if err := a.addFile(zw, in.AudioPath, "audio.ogg"); err != nil {
		return 0, err
	}
	count++

	slides, err := os.ReadDir(in.SlidesDir)
	if err != nil {
		return 0, fmt.Errorf("read slides dir: %w", err)
	}
	names := make([]string, 0, len(slides))
	for _, s := range slides {
		if !s.IsDir() {
			names = append(names, s.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := a.addFile(zw, filepath.Join(in.SlidesDir, name), "slides/"+name); err != nil {
			return 0, err
		}
		count++
	}

	if err := a.addFile(zw, in.TimelinePath, "timeline.json"); err != nil {
		return 0, err
	}
	count++

	meta, err := json.MarshalIndent(metadata{
		BundleID:  in.BundleID,
		Title:     in.Title,
		CreatedAt: a.clock().UTC().Format(time.RFC3339),
		Version:   FormatVersion,
	}, "", "  ")
	if err != nil {
		return 0, err
	}
	w, err := zw.Create("metadata.json")
	if err != nil {
		return 0, err
	}
	if _, err := w.Write(meta); err != nil {
		return 0, err
	}
	count++

	return count, zw.Close()
}

func (a *Assembler) addFile(zw *zip.Writer, src, name string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Checksum streams the archive through BLAKE3 for downstream integrity
// verification.
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
