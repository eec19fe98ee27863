package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/reelcomposer/internal/layout"
	"github.com/ivlev/reelcomposer/internal/reframe"
)

// DurationMode picks the length of a composed video from its sources.
type DurationMode string

const (
	DurationMin   DurationMode = "min"
	DurationFirst DurationMode = "first"
	DurationMax   DurationMode = "max"
)

// ParseDurationMode accepts min, first and max. Empty means min.
func ParseDurationMode(s string) (DurationMode, error) {
	switch m := DurationMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return DurationMin, nil
	case DurationMin, DurationFirst, DurationMax:
		return m, nil
	default:
		return "", fieldError("duration.mode", "unknown mode %q, want min, first or max", s)
	}
}

// Source is one video placed into a layout region.
type Source struct {
	RegionID     string
	AssetPath    string
	Strategy     reframe.Strategy
	AudioEnabled bool
}

// Composition is everything needed to render one composed video. Build a
// fresh one per render.
type Composition struct {
	Name         string
	Layout       *layout.Layout
	Sources      []Source
	Canvas       layout.Canvas
	DurationMode DurationMode
}

// AudioSource returns the first audio-enabled source in list order.
func (c *Composition) AudioSource() (Source, int, bool) {
	for i, s := range c.Sources {
		if s.AudioEnabled {
			return s, i, true
		}
	}
	return Source{}, -1, false
}

// --- YAML document ---

// File is the static composition document.
type File struct {
	Canvas   layout.Canvas `yaml:"canvas"`
	Layout   LayoutSpec    `yaml:"layout" validate:"required"`
	Sources  SourceList    `yaml:"sources"`
	Duration DurationSpec  `yaml:"duration"`
}

type LayoutSpec struct {
	Type    string          `yaml:"type" validate:"required"`
	Regions []layout.Region `yaml:"regions" validate:"required,min=1,dive"`
}

type SourceSpec struct {
	RegionID string      `yaml:"-"`
	Video    string      `yaml:"video" validate:"required"`
	Reframe  ReframeSpec `yaml:"reframe"`
	Audio    bool        `yaml:"audio"`
}

type ReframeSpec struct {
	Type string  `yaml:"type"`
	Zoom float64 `yaml:"zoom"`
}

type DurationSpec struct {
	Mode string `yaml:"mode"`
}

// SourceList decodes the sources mapping keeping document order, which
// is both paint order and audio priority.
type SourceList []SourceSpec

func (l *SourceList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: sources must be a mapping of region id to source", value.Line)
	}
	out := make(SourceList, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]
		var spec SourceSpec
		if err := val.Decode(&spec); err != nil {
			return fmt.Errorf("source %q: %w", key.Value, err)
		}
		spec.RegionID = key.Value
		out = append(out, spec)
	}
	*l = out
	return nil
}

// ParseFile decodes and validates a composition document.
func ParseFile(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &Error{Msg: err.Error(), Err: err}
	}
	f.Canvas = withCanvasDefaults(f.Canvas)
	if err := validateStruct(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

// withCanvasDefaults fills every unset canvas field on its own, so a block
// naming only width and height still gets the default frame rate.
func withCanvasDefaults(c layout.Canvas) layout.Canvas {
	d := layout.DefaultCanvas()
	if c.Width == 0 {
		c.Width = d.Width
	}
	if c.Height == 0 {
		c.Height = d.Height
	}
	if c.FPS == 0 {
		c.FPS = d.FPS
	}
	return c
}

// LoadFile reads a composition document from disk.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Field: "composition", Msg: err.Error(), Err: err}
	}
	return ParseFile(data)
}

// BuildLayout indexes the document's regions.
func (f *File) BuildLayout() (*layout.Layout, error) {
	l, err := layout.New(f.Layout.Type, f.Layout.Regions)
	if err != nil {
		return nil, &Error{Field: "layout.regions", Msg: err.Error(), Err: err}
	}
	return l, nil
}

// Composition resolves the document into a render-ready Composition.
// Asset paths stay as written; the composer resolves them.
func (f *File) Composition(name string) (*Composition, error) {
	l, err := f.BuildLayout()
	if err != nil {
		return nil, err
	}
	mode, err := ParseDurationMode(f.Duration.Mode)
	if err != nil {
		return nil, err
	}
	if len(f.Sources) == 0 {
		return nil, fieldError("sources", "at least one source is required")
	}

	c := &Composition{
		Name:         name,
		Layout:       l,
		Canvas:       f.Canvas,
		DurationMode: mode,
	}
	seen := make(map[string]bool, len(f.Sources))
	for _, spec := range f.Sources {
		field := "sources." + spec.RegionID
		if _, ok := l.Region(spec.RegionID); !ok {
			return nil, fieldError(field, "region %q is not in layout %s", spec.RegionID, l.Type())
		}
		if seen[spec.RegionID] {
			return nil, fieldError(field, "region %q has more than one source", spec.RegionID)
		}
		seen[spec.RegionID] = true

		if err := validateStruct(&spec); err != nil {
			return nil, err
		}
		strategy, err := reframe.Parse(spec.Reframe.Type, spec.Reframe.Zoom)
		if err != nil {
			return nil, &Error{Field: field + ".reframe", Msg: err.Error(), Err: err}
		}
		c.Sources = append(c.Sources, Source{
			RegionID:     spec.RegionID,
			AssetPath:    spec.Video,
			Strategy:     strategy,
			AudioEnabled: spec.Audio,
		})
	}
	return c, nil
}

// FromFeed builds the composition for one combinations feed entry. Roles
// are placed in layout order, every source is crop-filled, and only the
// audioRegion source carries audio.
func (f *File) FromFeed(entry FeedEntry, normalizedDir, audioRegion string) (*Composition, error) {
	l, err := f.BuildLayout()
	if err != nil {
		return nil, err
	}
	mode, err := ParseDurationMode(f.Duration.Mode)
	if err != nil {
		return nil, err
	}
	if len(entry.Roles) == 0 {
		return nil, fieldError("roles", "combination %s has no roles", entry.CombinationID)
	}

	c := &Composition{
		Name:         entry.CombinationID,
		Layout:       l,
		Canvas:       f.Canvas,
		DurationMode: mode,
	}
	for _, region := range l.Regions() {
		filename, ok := entry.Roles[region.ID]
		if !ok {
			continue
		}
		c.Sources = append(c.Sources, Source{
			RegionID:     region.ID,
			AssetPath:    filepath.Join(normalizedDir, filename),
			Strategy:     reframe.CropFill{},
			AudioEnabled: region.ID == audioRegion,
		})
	}
	for role := range entry.Roles {
		if _, ok := l.Region(role); !ok {
			return nil, fieldError("roles."+role, "region %q is not in layout %s", role, l.Type())
		}
	}
	return c, nil
}
