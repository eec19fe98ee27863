// Package layout describes the output canvas and the named rectangular
// regions that sources are painted into.
package layout

import "fmt"

// Canvas is the size and frame rate of a composed video.
type Canvas struct {
	Width  int `yaml:"width" koanf:"width" validate:"gt=0"`
	Height int `yaml:"height" koanf:"height" validate:"gt=0"`
	FPS    int `yaml:"fps" koanf:"fps" validate:"gt=0,lte=120"`
}

// DefaultCanvas is a vertical 1080x1920 short at 30 fps.
func DefaultCanvas() Canvas {
	return Canvas{Width: 1080, Height: 1920, FPS: 30}
}

// Region is a placement box on the canvas. Regions may overlap.
type Region struct {
	ID     string `yaml:"id" validate:"required"`
	X      int    `yaml:"x" validate:"gte=0"`
	Y      int    `yaml:"y" validate:"gte=0"`
	Width  int    `yaml:"width" validate:"gt=0"`
	Height int    `yaml:"height" validate:"gt=0"`
}

// Layout is an immutable, ordered set of regions with unique ids.
type Layout struct {
	typ     string
	regions []Region
	index   map[string]int
}

// New builds a Layout and its id index. Duplicate or empty ids are rejected.
func New(typ string, regions []Region) (*Layout, error) {
	l := &Layout{
		typ:     typ,
		regions: append([]Region(nil), regions...),
		index:   make(map[string]int, len(regions)),
	}
	for i, r := range l.regions {
		if r.ID == "" {
			return nil, fmt.Errorf("region %d has an empty id", i)
		}
		if _, dup := l.index[r.ID]; dup {
			return nil, fmt.Errorf("duplicate region id %q", r.ID)
		}
		l.index[r.ID] = i
	}
	return l, nil
}

// VerticalSplit stacks two equal regions, "top" and "bottom", on c.
func VerticalSplit(c Canvas) *Layout {
	half := c.Height / 2
	l, _ := New("vertical_split", []Region{
		{ID: "top", X: 0, Y: 0, Width: c.Width, Height: half},
		{ID: "bottom", X: 0, Y: half, Width: c.Width, Height: c.Height - half},
	})
	return l
}

func (l *Layout) Type() string { return l.typ }

// Regions returns a copy of the regions in declaration order.
func (l *Layout) Regions() []Region {
	return append([]Region(nil), l.regions...)
}

// Region looks a region up by id.
func (l *Layout) Region(id string) (Region, bool) {
	i, ok := l.index[id]
	if !ok {
		return Region{}, false
	}
	return l.regions[i], true
}
