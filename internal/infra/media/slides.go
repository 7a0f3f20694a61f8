package media

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/image/draw"

	// register decoders for the slide formats devices upload
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	_ "image/gif"
	_ "image/png"

	"gramothi-backend/internal/config"
	"gramothi-backend/internal/domain"
	"gramothi-backend/internal/domain/ports/adapter"
)

var _ adapter.SlideOptimizerAdapter = (*SlideOptimizer)(nil)

// SlideOptimizer re-encodes slide images for low-bandwidth delivery:
// bounded resolution, fixed JPEG quality, filename-derived ordering.
type SlideOptimizer struct {
	quality   int
	maxWidth  int
	maxHeight int
	log       *zerolog.Logger
}

func NewSlideOptimizer(cfg config.MediaConfig, logger *zerolog.Logger) *SlideOptimizer {
	l := logger.With().Str("component", "SlideOptimizer").Logger()
	return &SlideOptimizer{
		quality:   cfg.ImageQuality,
		maxWidth:  cfg.ImageMaxWidth,
		maxHeight: cfg.ImageMaxHeight,
		log:       &l,
	}
}

var slideExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true,
	".bmp": true, ".tiff": true, ".webp": true, ".gif": true,
}

// OptimizeSlides processes every recognized image in slidesDir, in filename
// order, into outputDir as slide_NNN.jpg. An unreadable image is skipped
// with a warning; a deck that yields zero slides is an error.
func (o *SlideOptimizer) OptimizeSlides(ctx context.Context, slidesDir, outputDir string) (*adapter.SlidesResult, error) {
	entries, err := os.ReadDir(slidesDir)
	if err != nil {
		return nil, fmt.Errorf("read slides dir: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("slides output dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if slideExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	res := &adapter.SlidesResult{OutputDir: outputDir}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src := filepath.Join(slidesDir, name)
		dst := filepath.Join(outputDir, fmt.Sprintf("slide_%03d.jpg", res.SlideCount+1))

		origSize, err := o.optimizeOne(src, dst)
		if err != nil {
			o.log.Warn().Err(err).Str("slide", name).Msg("skipping unreadable slide")
			res.Skipped++
			continue
		}
		st, err := os.Stat(dst)
		if err != nil {
			return nil, fmt.Errorf("stat optimized slide: %w", err)
		}
		res.SlidePaths = append(res.SlidePaths, dst)
		res.SlideCount++
		res.OriginalSize += origSize
		res.OptimizedSize += st.Size()
	}

	if res.SlideCount == 0 {
		return nil, fmt.Errorf("%w: no usable slides in %s", domain.ErrValidation, slidesDir)
	}
	o.log.Info().Int("slides", res.SlideCount).Int("skipped", res.Skipped).
		Int64("original_bytes", res.OriginalSize).Int64("optimized_bytes", res.OptimizedSize).
		Msg("slides optimized")
	return res, nil
}

func (o *SlideOptimizer) optimizeOne(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	st, err := in.Stat()
	if err != nil {
		return 0, err
	}

	img, _, err := image.Decode(in)
	if err != nil {
		return 0, err
	}

	img = o.downscale(img)

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: o.quality}); err != nil {
		return 0, err
	}
	return st.Size(), nil
}

// downscale bounds the image to maxWidth x maxHeight preserving aspect
// ratio; smaller images pass through untouched. Encoding to JPEG also
// normalizes the color mode, so RGBA/paletted sources need no special case.
func (o *SlideOptimizer) downscale(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= o.maxWidth && h <= o.maxHeight {
		return img
	}

	scaleW := float64(o.maxWidth) / float64(w)
	scaleH := float64(o.maxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	nw, nh := int(float64(w)*scale), int(float64(h)*scale)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
