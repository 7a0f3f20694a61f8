// Package media implements the external-tool side of the pipeline: ffmpeg
// invocations and image re-encoding. The pure analysis lives in
// internal/media; this package only produces its inputs.
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"gramothi-backend/internal/config"
	"gramothi-backend/internal/domain"
	"gramothi-backend/internal/domain/ports/adapter"
	pure "gramothi-backend/internal/media"
)

var _ adapter.VideoToolAdapter = (*FFmpegAdapter)(nil)

// FFmpegAdapter shells out to ffmpeg/ffprobe. Invocations are blocking and
// carry no engine-level timeout; an abandoned stage leaves the bundle where
// it was, pending explicit re-submission.
type FFmpegAdapter struct {
	ffmpeg     string
	ffprobe    string
	bitrate    string
	sampleRate int
	log        *zerolog.Logger
}

func NewFFmpegAdapter(cfg config.MediaConfig, logger *zerolog.Logger) *FFmpegAdapter {
	l := logger.With().Str("component", "FFmpegAdapter").Logger()
	return &FFmpegAdapter{
		ffmpeg:     cfg.FFmpegPath,
		ffprobe:    cfg.FFprobePath,
		bitrate:    cfg.AudioBitrate,
		sampleRate: cfg.AudioSampleRate,
		log:        &l,
	}
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		RFrameRate string `json:"r_frame_rate"`
		Duration   string `json:"duration"`
	} `json:"streams"`
}

func (a *FFmpegAdapter) Probe(ctx context.Context, videoPath string) (*adapter.MediaInfo, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-print_format", "json",
		"-show_format", "-show_streams",
		videoPath)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: ffprobe %s: %v", domain.ErrToolFailure, videoPath, err)
	}

	var p probeOutput
	if err := json.Unmarshal(out, &p); err != nil {
		return nil, fmt.Errorf("%w: ffprobe output: %v", domain.ErrToolFailure, err)
	}

	info := &adapter.MediaInfo{}
	info.Duration, _ = strconv.ParseFloat(p.Format.Duration, 64)
	for _, s := range p.Streams {
		switch s.CodecType {
		case "audio":
			info.HasAudio = true
		case "video":
			if info.FrameRate == 0 {
				info.FrameRate = parseRate(s.RFrameRate)
			}
			if info.Duration == 0 {
				info.Duration, _ = strconv.ParseFloat(s.Duration, 64)
			}
		}
	}
	if info.Duration <= 0 {
		return nil, fmt.Errorf("%w: no duration in %s", domain.ErrToolFailure, videoPath)
	}
	return info, nil
}

// parseRate turns ffprobe's "30000/1001" form into frames per second.
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		v, _ := strconv.ParseFloat(s, 64)
		return v
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

// SampleFrames extracts grayscale frames spaced everySeconds apart, at most
// maxFrames of them. A failing or unreadable source yields an empty slice
// rather than an error so the timeline stage can fall back to uniform
// distribution.
func (a *FFmpegAdapter) SampleFrames(ctx context.Context, videoPath string, everySeconds float64, maxFrames int) ([]pure.Frame, error) {
	if everySeconds <= 0 {
		everySeconds = pure.DefaultSampleInterval
	}
	if maxFrames <= 0 || maxFrames > pure.MaxSampledFrames {
		maxFrames = pure.MaxSampledFrames
	}

	tmp, err := os.MkdirTemp("", "frames-*")
	if err != nil {
		return nil, fmt.Errorf("frame temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	pattern := filepath.Join(tmp, "frame_%04d.jpg")
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=1/%g", everySeconds),
		"-frames:v", strconv.Itoa(maxFrames),
		"-y", pattern)
	if err := cmd.Run(); err != nil {
		a.log.Warn().Err(err).Str("video", videoPath).Msg("frame extraction failed; analysis will fall back")
		return nil, nil
	}

	names, err := filepath.Glob(filepath.Join(tmp, "frame_*.jpg"))
	if err != nil {
		return nil, nil
	}
	sort.Strings(names)

	frames := make([]pure.Frame, 0, len(names))
	for _, name := range names {
		f, err := loadGrayscale(name)
		if err != nil {
			a.log.Warn().Err(err).Str("frame", name).Msg("skipping unreadable frame")
			continue
		}
		frames = append(frames, f)
	}
	a.log.Debug().Int("frames", len(frames)).Str("video", videoPath).Msg("sampled frames")
	return frames, nil
}

func loadGrayscale(path string) (pure.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return pure.Frame{}, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return pure.Frame{}, err
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			// ITU-R BT.601 luma, 16-bit channels down to 8.
			pix[y*w+x] = uint8((299*r + 587*g + 114*bl) / 1000 >> 8)
		}
	}
	return pure.Frame{Width: w, Height: h, Pix: pix}, nil
}

// CompressAudio transcodes the source track to the low-bandwidth speech
// profile: opus, mono, 16 kHz, in an ogg container. A source without a
// usable audio stream is a hard failure that halts the bundle.
func (a *FFmpegAdapter) CompressAudio(ctx context.Context, videoPath, outputPath string) (*adapter.AudioResult, error) {
	info, err := a.Probe(ctx, videoPath)
	if err != nil {
		return nil, err
	}
	if !info.HasAudio {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoAudioStream, videoPath)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("audio output dir: %w", err)
	}
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-i", videoPath,
		"-vn",
		"-acodec", "libopus",
		"-b:a", a.bitrate,
		"-ar", strconv.Itoa(a.sampleRate),
		"-ac", "1",
		"-y", outputPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%w: audio transcode: %v: %s", domain.ErrToolFailure, err, tail(out))
	}

	st, err := os.Stat(outputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: stat compressed audio: %v", domain.ErrToolFailure, err)
	}
	a.log.Info().Str("video", videoPath).Int64("size", st.Size()).Float64("duration", info.Duration).Msg("audio compressed")
	return &adapter.AudioResult{
		OutputPath:     outputPath,
		Duration:       info.Duration,
		CompressedSize: st.Size(),
	}, nil
}

// tail keeps error messages bounded; ffmpeg is chatty.
func tail(b []byte) string {
	const keep = 400
	s := strings.TrimSpace(string(b))
	if len(s) > keep {
		return "…" + s[len(s)-keep:]
	}
	return s
}
