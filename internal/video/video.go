package video

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ivlev/reelcomposer/internal/renderer"
)

// Input is one source file, optionally trimmed.
type Input struct {
	Path     string
	Start    float64
	Duration float64
}

// Encoding describes the output streams.
type Encoding struct {
	Codec        string
	Quality      int
	Preset       string
	FPS          int
	AudioBitrate string
}

// DefaultEncoding is libx264 at CRF 23 with AAC 192k.
func DefaultEncoding(fps int) Encoding {
	return Encoding{
		Codec:        "libx264",
		Quality:      23,
		Preset:       "medium",
		FPS:          fps,
		AudioBitrate: "192k",
	}
}

// Job is a fully planned render. AudioOut is empty when the output has
// no audio track.
type Job struct {
	Inputs   []Input
	Graph    string
	VideoOut renderer.Label
	AudioOut renderer.Label
	Encoding Encoding
	Output   string
}

// RenderError carries ffmpeg's diagnostics verbatim.
type RenderError struct {
	Output      string
	Diagnostics string
	Err         error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v\n%s", e.Output, e.Err, e.Diagnostics)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Renderer is the external render engine.
type Renderer interface {
	Render(ctx context.Context, job Job) error
}

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

type FFmpegEncoder struct {
	Binary string
	Run    Runner
}

func NewFFmpegEncoder(binary string) *FFmpegEncoder {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegEncoder{Binary: binary, Run: combinedOutput}
}

func combinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Render writes into a temporary file next to job.Output and renames it
// into place only when ffmpeg exits cleanly. A failed render leaves no
// file at job.Output.
func (e *FFmpegEncoder) Render(ctx context.Context, job Job) error {
	if job.Output == "" {
		return &RenderError{Err: fmt.Errorf("empty output path")}
	}
	dir := filepath.Dir(job.Output)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &RenderError{Output: job.Output, Err: err}
	}

	tmp := TempPath(job.Output)
	out, err := e.Run(ctx, e.Binary, BuildArgs(job, tmp)...)
	if err != nil {
		os.Remove(tmp)
		return &RenderError{Output: job.Output, Diagnostics: string(out), Err: err}
	}

	if err := os.Rename(tmp, job.Output); err != nil {
		os.Remove(tmp)
		return &RenderError{Output: job.Output, Err: err}
	}
	return nil
}

// TempPath is a unique sibling of output that keeps its extension, so
// ffmpeg still picks the container from the name.
func TempPath(output string) string {
	dir, base := filepath.Split(output)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp%s", name, uuid.NewString(), ext))
}

// BuildArgs renders the ffmpeg command line for job, writing to target.
func BuildArgs(job Job, target string) []string {
	args := []string{"-y", "-hide_banner"}

	for _, in := range job.Inputs {
		if in.Start > 0 {
			args = append(args, "-ss", formatSeconds(in.Start))
		}
		if in.Duration > 0 {
			args = append(args, "-t", formatSeconds(in.Duration))
		}
		args = append(args, "-i", in.Path)
	}

	if job.Graph != "" {
		args = append(args, "-filter_complex", job.Graph)
	}

	args = append(args, "-map", mapArg(job.VideoOut))
	if job.AudioOut != "" {
		args = append(args, "-map", mapArg(job.AudioOut))
	}

	enc := job.Encoding
	codec := enc.Codec
	if codec == "" {
		codec = "libx264"
	}
	args = append(args, "-c:v", codec, "-pix_fmt", "yuv420p")
	args = append(args, qualityArgs(codec, enc)...)
	if enc.FPS > 0 {
		args = append(args, "-r", strconv.Itoa(enc.FPS))
	}

	if job.AudioOut != "" {
		bitrate := enc.AudioBitrate
		if bitrate == "" {
			bitrate = "192k"
		}
		args = append(args, "-c:a", "aac", "-b:a", bitrate)
	} else {
		args = append(args, "-an")
	}

	args = append(args, "-movflags", "+faststart", target)
	return args
}

// Качество в зависимости от энкодера
func qualityArgs(codec string, enc Encoding) []string {
	switch codec {
	case "h264_videotoolbox":
		// VideoToolbox не поддерживает CRF, используем битрейт: 75 -> 7.5 Мбит/с
		return []string{"-b:v", fmt.Sprintf("%dk", enc.Quality*100)}
	case "h264_nvenc":
		return []string{"-cq", strconv.Itoa(enc.Quality)}
	default: // libx264
		preset := enc.Preset
		if preset == "" {
			preset = "medium"
		}
		return []string{"-crf", strconv.Itoa(enc.Quality), "-preset", preset}
	}
}

func mapArg(l renderer.Label) string {
	if l.IsStream() {
		return string(l)
	}
	return l.String()
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
