// Package probe reads the geometry and timing of media files with ffprobe.
package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

var (
	ErrNoVideoStream = errors.New("no video stream")
	ErrNoAudioStream = errors.New("no audio stream")
	ErrNoDuration    = errors.New("duration unavailable")
)

// Error is returned for unreadable files and missing media streams.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Info is what the pipeline needs to know about a source.
type Info struct {
	Width    int
	Height   int
	Duration float64
	FPS      float64
	HasAudio bool
}

// Prober is the media probe collaborator.
type Prober interface {
	Probe(ctx context.Context, path string) (Info, error)
}

// Runner executes a command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// FFprobe implements Prober by shelling out to ffprobe.
type FFprobe struct {
	Binary string
	Run    Runner
}

func NewFFprobe(binary string) *FFprobe {
	if binary == "" {
		binary = "ffprobe"
	}
	return &FFprobe{Binary: binary, Run: runCommand}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// Probe reads stream geometry in one call and falls back to the container
// duration when the video stream carries none.
func (p *FFprobe) Probe(ctx context.Context, path string) (Info, error) {
	if _, err := os.Stat(path); err != nil {
		return Info{}, &Error{Path: path, Err: err}
	}

	out, err := p.Run(ctx, p.Binary,
		"-v", "error",
		"-show_entries", "stream=codec_type,width,height,duration,r_frame_rate",
		"-of", "json",
		path,
	)
	if err != nil {
		return Info{}, &Error{Path: path, Err: err}
	}
	info, err := ParseStreams(out)
	if err != nil {
		return Info{}, &Error{Path: path, Err: err}
	}

	if info.Duration <= 0 {
		out, err := p.Run(ctx, p.Binary,
			"-v", "error",
			"-show_entries", "format=duration",
			"-of", "json",
			path,
		)
		if err != nil {
			return Info{}, &Error{Path: path, Err: err}
		}
		d, err := ParseFormatDuration(out)
		if err != nil {
			return Info{}, &Error{Path: path, Err: err}
		}
		info.Duration = d
	}
	if info.Duration <= 0 {
		return Info{}, &Error{Path: path, Err: ErrNoDuration}
	}
	return info, nil
}

// --- ffprobe JSON wire types ---

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  ffprobeFormat   `json:"format"`
}

type ffprobeStream struct {
	CodecType  string `json:"codec_type"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Duration   string `json:"duration"`
	RFrameRate string `json:"r_frame_rate"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

// ParseStreams converts stream-level ffprobe JSON into Info. The first
// video stream wins.
func ParseStreams(data []byte) (Info, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return Info{}, fmt.Errorf("parse ffprobe JSON: %w", err)
	}

	var info Info
	found := false
	for _, s := range raw.Streams {
		switch s.CodecType {
		case "video":
			if found {
				continue
			}
			found = true
			info.Width = s.Width
			info.Height = s.Height
			info.Duration = parseFloat(s.Duration)
			info.FPS = ParseFrameRate(s.RFrameRate)
		case "audio":
			info.HasAudio = true
		}
	}
	if !found {
		return Info{}, ErrNoVideoStream
	}
	return info, nil
}

// ParseFormatDuration extracts format.duration from ffprobe JSON.
func ParseFormatDuration(data []byte) (float64, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, fmt.Errorf("parse ffprobe JSON: %w", err)
	}
	return parseFloat(raw.Format.Duration), nil
}

// ParseFrameRate turns "30000/1001" or "25" into frames per second.
func ParseFrameRate(s string) float64 {
	num, den, ok := strings.Cut(strings.TrimSpace(s), "/")
	n := parseFloat(num)
	if !ok {
		return n
	}
	d := parseFloat(den)
	if d == 0 {
		return 0
	}
	return n / d
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}
