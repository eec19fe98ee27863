package director

import (
	"fmt"

	"github.com/ivlev/reelcomposer/internal/analyzer"
	"github.com/ivlev/reelcomposer/internal/probe"
	"github.com/ivlev/reelcomposer/internal/reframe"
)

// Variant names
const (
	Hook = "hook"
	Mid  = "mid"
	Full = "full"
)

const (
	DefaultSpeed    = 1.05
	DefaultTemplate = "shorts"
	PortraitZoom    = 1.08
)

// Window is a time range inside the source, in seconds.
type Window struct {
	Name   string
	Start  float64
	Length float64
}

// Director turns probed sources into variant scenarios
type Director struct {
	Classifier analyzer.Classifier
	Speed      float64
	Template   string
}

// NewDirector creates a new Director with default settings
func NewDirector(classifier analyzer.Classifier) *Director {
	if classifier == nil {
		classifier = analyzer.DefaultBands
	}
	return &Director{
		Classifier: classifier,
		Speed:      DefaultSpeed,
		Template:   DefaultTemplate,
	}
}

// Choose maps an aspect class to the reframe strategy for the vertical
// target.
func Choose(class analyzer.Class) reframe.Strategy {
	switch class {
	case analyzer.Square:
		return reframe.CropFill{}
	case analyzer.Portrait:
		return reframe.ScaleZoom{Zoom: PortraitZoom}
	default:
		return reframe.BlurBackground{}
	}
}

// Windows returns hook, mid and full for a source of the given duration.
// No window runs past the end of the source.
func Windows(duration float64) []Window {
	if duration <= 0 {
		return nil
	}
	midStart := min(5, duration*0.1)
	return []Window{
		{Name: Hook, Start: 0, Length: min(20, duration)},
		{Name: Mid, Start: midStart, Length: min(30, duration-midStart)},
		{Name: Full, Start: 0, Length: duration},
	}
}

// Plan builds the scenario for one source.
func (d *Director) Plan(sourceID, input string, info probe.Info) (*Scenario, error) {
	if info.Duration <= 0 {
		return nil, fmt.Errorf("source %s has no duration", sourceID)
	}
	if d.Speed <= 0 {
		return nil, fmt.Errorf("speed must be positive, got %g", d.Speed)
	}

	class := d.Classifier.Classify(info.Width, info.Height)
	strategy := Choose(class)

	scenario := &Scenario{
		Version:  "1.0",
		SourceID: sourceID,
		Input:    input,
		Aspect:   string(class),
		Strategy: string(strategy.Kind()),
		Zoom:     reframe.ZoomOf(strategy),
		Speed:    d.Speed,
		Template: d.Template,
		Duration: info.Duration,
	}
	for _, w := range Windows(info.Duration) {
		scenario.Variants = append(scenario.Variants, Variant{
			Name:   w.Name,
			Start:  w.Start,
			Length: w.Length,
			Output: OutputName(w.Name, d.Template),
		})
	}

	return scenario, nil
}
