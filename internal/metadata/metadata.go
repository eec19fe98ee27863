// Package metadata writes the JSON sidecars that describe rendered outputs.
package metadata

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
)

const (
	StageComposition  = "composition"
	StageOptimization = "optimization"

	// NoAudio is recorded as the master source of a silent composition.
	NoAudio = "none"

	// VariantsFile is the per-source record written by the optimizer.
	VariantsFile = "metadata.json"
)

// Composition describes one composed video.
type Composition struct {
	OutputVideo   string       `json:"output_video"`
	VideosUsed    []string     `json:"videos_used"`
	Layout        string       `json:"layout"`
	AudioControl  AudioControl `json:"audio_control"`
	DurationFinal float64      `json:"duration_final"`
	PipelineStage string       `json:"pipeline_stage"`
}

type AudioControl struct {
	MasterSource string `json:"master_source"`
}

// Variants describes every optimized variant of one source.
type Variants struct {
	VideoID             string   `json:"video_id"`
	OriginalAspectRatio string   `json:"original_aspect_ratio"`
	ReframeStrategy     string   `json:"reframe_strategy"`
	ZoomFactor          float64  `json:"zoom_factor"`
	SpeedFactor         float64  `json:"speed_factor"`
	AudioLUFS           float64  `json:"audio_lufs"`
	Template            string   `json:"template"`
	Variants            []string `json:"variants"`
	PipelineStage       string   `json:"pipeline_stage"`
}

// SidecarName swaps the extension of a video file name for .json.
func SidecarName(output string) string {
	base := filepath.Base(output)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".json"
}

// Write stores v as indented JSON at path, creating parent directories.
func Write(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Read decodes a sidecar into v.
func Read(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
