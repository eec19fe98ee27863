package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultSettingsPaths are searched in order when no path is given.
var DefaultSettingsPaths = []string{
	"reelcomposer.yaml",
	"reelcomposer.yml",
}

// SettingsPathEnvVar overrides the settings file location.
const SettingsPathEnvVar = "REEL_SETTINGS"

const envPrefix = "REEL_"

var envMappings = map[string]string{
	"workspace":           "workspace",
	"normalized_dir":      "dirs.normalized",
	"composed_dir":        "dirs.composed",
	"optimized_dir":       "dirs.optimized",
	"metadata_dir":        "dirs.metadata",
	"feed":                "feed",
	"audio_region":        "audio_region",
	"workers":             "workers",
	"ffmpeg":              "binaries.ffmpeg",
	"ffprobe":             "binaries.ffprobe",
	"encoder":             "encoder.codec",
	"quality":             "encoder.quality",
	"preset":              "encoder.preset",
	"audio_bitrate":       "encoder.audio_bitrate",
	"speed":               "optimize.speed",
	"template":            "optimize.template",
	"classifier":          "optimize.classifier",
	"optimize_quality":    "optimize.quality",
	"optimize_preset":     "optimize.preset",
	"optimize_canvas_w":   "optimize.canvas.width",
	"optimize_canvas_h":   "optimize.canvas.height",
	"optimize_canvas_fps": "optimize.canvas.fps",
	"log_level":           "log.level",
	"log_format":          "log.format",
}

// Load builds Settings from three layers, later ones winning:
//
//  1. built-in defaults
//  2. the YAML settings file, if one is found
//  3. REEL_* environment variables
//
// path may be empty, in which case REEL_SETTINGS and DefaultSettingsPaths
// are consulted. An explicit path that does not exist is an error.
func Load(path string) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultSettings(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findSettingsFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, &Error{Field: "settings", Msg: err.Error(), Err: err}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, &Error{Field: "settings", Msg: fmt.Sprintf("failed to load %s: %v", path, err), Err: err}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	s := &Settings{}
	if err := k.Unmarshal("", s); err != nil {
		return nil, &Error{Msg: fmt.Sprintf("failed to unmarshal settings: %v", err), Err: err}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func findSettingsFile() string {
	if p := os.Getenv(SettingsPathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultSettingsPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envTransformFunc maps REEL_LOG_LEVEL to log.level. Unmapped variables
// are dropped.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	if key == "settings" {
		return ""
	}
	return envMappings[key]
}
