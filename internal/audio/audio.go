// Package audio holds the named loudness-normalization presets shared by
// the composition and optimization paths.
package audio

import (
	"sort"

	"github.com/ivlev/reelcomposer/internal/renderer"
)

// Preset is an EBU R128 loudnorm target.
type Preset struct {
	Name           string
	IntegratedLUFS float64
	LoudnessRange  float64
	TruePeakDB     float64
}

// Composition is applied to the selected source of a composed video,
// Optimization to every optimized variant. They are not interchangeable.
var (
	Composition = Preset{
		Name:           "composition",
		IntegratedLUFS: -14,
		LoudnessRange:  11,
		TruePeakDB:     -1.5,
	}
	Optimization = Preset{
		Name:           "optimization",
		IntegratedLUFS: -14,
		LoudnessRange:  7,
		TruePeakDB:     -2,
	}
)

var presets = map[string]Preset{
	Composition.Name:  Composition,
	Optimization.Name: Optimization,
}

// Lookup returns the preset registered under name.
func Lookup(name string) (Preset, bool) {
	p, ok := presets[name]
	return p, ok
}

// Names lists the registered presets alphabetically.
func Names() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Filter returns the loudnorm filter for the preset.
func (p Preset) Filter() renderer.Filter {
	return renderer.Loudnorm{
		Integrated:    p.IntegratedLUFS,
		LoudnessRange: p.LoudnessRange,
		TruePeak:      p.TruePeakDB,
	}
}
