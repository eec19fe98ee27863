package director

import "github.com/ivlev/reelcomposer/internal/reframe"

// Scenario is the variant plan for one source video
type Scenario struct {
	Version  string    `yaml:"version"`
	SourceID string    `yaml:"source_id"`
	Input    string    `yaml:"input"`
	Aspect   string    `yaml:"aspect"`
	Strategy string    `yaml:"strategy"`
	Zoom     float64   `yaml:"zoom"`
	Speed    float64   `yaml:"speed"`
	Template string    `yaml:"template"`
	Duration float64   `yaml:"duration"` // Source duration in seconds
	Variants []Variant `yaml:"variants"`
}

// Variant is one time window cut from the source
type Variant struct {
	Name   string  `yaml:"name"`
	Start  float64 `yaml:"start"`  // Offset into the source in seconds
	Length float64 `yaml:"length"` // Length before the speed change
	Output string  `yaml:"output"` // File name inside the source's output dir
}

// ReframeStrategy rebuilds the typed strategy from the stored tag.
func (s *Scenario) ReframeStrategy() (reframe.Strategy, error) {
	return reframe.Parse(s.Strategy, s.Zoom)
}

// VariantNames lists the variants in plan order.
func (s *Scenario) VariantNames() []string {
	names := make([]string, len(s.Variants))
	for i, v := range s.Variants {
		names[i] = v.Name
	}
	return names
}
