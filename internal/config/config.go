package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type ServerConfig struct {
	Port       int    `yaml:"port"`
	AuthSecret string `yaml:"auth_secret"` // HS256 secret shared with the auth service
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// MediaConfig covers the transcoding profiles and working directories of the
// bundle pipeline. The audio and image settings are deliberately fixed for
// low-bandwidth delivery; only paths and tool locations vary per deploy.
type MediaConfig struct {
	FFmpegPath  string `yaml:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path"`
	UploadDir   string `yaml:"upload_dir"`
	TempDir     string `yaml:"temp_dir"`

	AudioBitrate    string `yaml:"audio_bitrate"`     // default 32k
	AudioSampleRate int    `yaml:"audio_sample_rate"` // default 16000
	ImageQuality    int    `yaml:"image_quality"`     // default 75
	ImageMaxWidth   int    `yaml:"image_max_width"`   // default 800
	ImageMaxHeight  int    `yaml:"image_max_height"`  // default 600
}

type PipelineConfig struct {
	Workers int `yaml:"workers"` // concurrent bundles
}

type DownloadConfig struct {
	DownloadDir   string        `yaml:"download_dir"`
	OfflineDir    string        `yaml:"offline_dir"`
	ChunkSize     int64         `yaml:"chunk_size"`     // bytes, default 1 MiB
	Retention     time.Duration `yaml:"retention"`      // default 720h (30 days)
	SweepInterval time.Duration `yaml:"sweep_interval"` // default 12h
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Media    MediaConfig    `yaml:"media"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Download DownloadConfig `yaml:"download"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Runtime.Dev = dev
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Media.FFmpegPath == "" {
		c.Media.FFmpegPath = "ffmpeg"
	}
	if c.Media.FFprobePath == "" {
		c.Media.FFprobePath = "ffprobe"
	}
	if c.Media.UploadDir == "" {
		c.Media.UploadDir = "uploads"
	}
	if c.Media.TempDir == "" {
		c.Media.TempDir = "temp"
	}
	if c.Media.AudioBitrate == "" {
		c.Media.AudioBitrate = "32k"
	}
	if c.Media.AudioSampleRate == 0 {
		c.Media.AudioSampleRate = 16000
	}
	if c.Media.ImageQuality == 0 {
		c.Media.ImageQuality = 75
	}
	if c.Media.ImageMaxWidth == 0 {
		c.Media.ImageMaxWidth = 800
	}
	if c.Media.ImageMaxHeight == 0 {
		c.Media.ImageMaxHeight = 600
	}
	if c.Pipeline.Workers == 0 {
		c.Pipeline.Workers = 4
	}
	if c.Download.DownloadDir == "" {
		c.Download.DownloadDir = "downloads"
	}
	if c.Download.OfflineDir == "" {
		c.Download.OfflineDir = "offline"
	}
	if c.Download.ChunkSize == 0 {
		c.Download.ChunkSize = 1 << 20
	}
	if c.Download.Retention == 0 {
		c.Download.Retention = 30 * 24 * time.Hour
	}
	if c.Download.SweepInterval == 0 {
		c.Download.SweepInterval = 12 * time.Hour
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = 30 * time.Second
	}
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("config: database.url is required")
	}
	if c.Download.ChunkSize < 0 {
		return fmt.Errorf("config: download.chunk_size must be positive")
	}
	return nil
}
