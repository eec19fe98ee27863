package config

import (
	"path/filepath"

	"github.com/ivlev/reelcomposer/internal/layout"
)

// Settings are the process-wide knobs shared by every command.
type Settings struct {
	Workspace   string   `koanf:"workspace" validate:"required"`
	Dirs        Dirs     `koanf:"dirs"`
	Feed        string   `koanf:"feed" validate:"required"`
	AudioRegion string   `koanf:"audio_region" validate:"required"`
	Workers     int      `koanf:"workers" validate:"gte=0,lte=64"`
	Binaries    Binaries `koanf:"binaries"`
	Encoder     Encoder  `koanf:"encoder"`
	Optimize    Optimize `koanf:"optimize"`
	Log         Log      `koanf:"log"`
}

// Dirs are resolved against Workspace unless absolute.
type Dirs struct {
	Normalized string `koanf:"normalized" validate:"required"`
	Composed   string `koanf:"composed" validate:"required"`
	Optimized  string `koanf:"optimized" validate:"required"`
	Metadata   string `koanf:"metadata" validate:"required"`
}

type Binaries struct {
	FFmpeg  string `koanf:"ffmpeg" validate:"required"`
	FFprobe string `koanf:"ffprobe" validate:"required"`
}

// Encoder configures composed renders. Codec "auto" picks the best
// available H.264 encoder at startup.
type Encoder struct {
	Codec        string `koanf:"codec" validate:"oneof=auto libx264 h264_nvenc h264_videotoolbox"`
	Quality      int    `koanf:"quality" validate:"gte=0,lte=100"`
	Preset       string `koanf:"preset" validate:"required"`
	AudioBitrate string `koanf:"audio_bitrate" validate:"required"`
}

// Optimize configures variant generation.
type Optimize struct {
	Speed      float64       `koanf:"speed" validate:"gte=0.5,lte=2"`
	Template   string        `koanf:"template" validate:"required,excludesall=/\\"`
	Classifier string        `koanf:"classifier"`
	Quality    int           `koanf:"quality" validate:"gte=0,lte=100"`
	Preset     string        `koanf:"preset" validate:"required"`
	Canvas     layout.Canvas `koanf:"canvas"`
}

type Log struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=console json"`
}

func defaultSettings() *Settings {
	return &Settings{
		Workspace: ".",
		Dirs: Dirs{
			Normalized: "storage/videos/normalized",
			Composed:   "storage/videos/composed",
			Optimized:  "storage/videos/optimized",
			Metadata:   "storage/metadata/compositions",
		},
		Feed:        "storage/metadata/video_combinations.json",
		AudioRegion: "top",
		Binaries: Binaries{
			FFmpeg:  "ffmpeg",
			FFprobe: "ffprobe",
		},
		Encoder: Encoder{
			Codec:        "libx264",
			Quality:      23,
			Preset:       "medium",
			AudioBitrate: "192k",
		},
		Optimize: Optimize{
			Speed:      1.05,
			Template:   "shorts",
			Classifier: "bands",
			Quality:    18,
			Preset:     "slow",
			Canvas:     layout.DefaultCanvas(),
		},
		Log: Log{
			Level:  "info",
			Format: "console",
		},
	}
}

// Path resolves p against the workspace root.
func (s *Settings) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.Workspace, p)
}

func (s *Settings) NormalizedDir() string { return s.Path(s.Dirs.Normalized) }
func (s *Settings) ComposedDir() string   { return s.Path(s.Dirs.Composed) }
func (s *Settings) OptimizedDir() string  { return s.Path(s.Dirs.Optimized) }
func (s *Settings) MetadataDir() string   { return s.Path(s.Dirs.Metadata) }
func (s *Settings) FeedPath() string      { return s.Path(s.Feed) }
