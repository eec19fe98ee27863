package renderer

import (
	"fmt"
	"strconv"
)

// Filter is a single typed ffmpeg filter. Geometry stays numeric until
// the graph is serialized.
type Filter interface {
	Name() string
	Args() string
}

// Render formats a filter as ffmpeg expects it inside a chain: name=args.
func Render(f Filter) string {
	if args := f.Args(); args != "" {
		return f.Name() + "=" + args
	}
	return f.Name()
}

// Scale resizes to exactly W×H. Aspect handling is the caller's job.
type Scale struct {
	W, H int
}

func (Scale) Name() string { return "scale" }

func (s Scale) Args() string { return fmt.Sprintf("%d:%d", s.W, s.H) }

// Crop cuts a W×H window whose top-left corner is (X, Y).
type Crop struct {
	W, H int
	X, Y int
}

func (Crop) Name() string { return "crop" }

func (c Crop) Args() string {
	return fmt.Sprintf("%d:%d:%d:%d", c.W, c.H, c.X, c.Y)
}

// BoxBlur is ffmpeg's boxblur with luma radius and power.
type BoxBlur struct {
	Radius, Power int
}

func (BoxBlur) Name() string { return "boxblur" }

func (b BoxBlur) Args() string { return fmt.Sprintf("%d:%d", b.Radius, b.Power) }

// Split duplicates one stream into N outputs.
type Split struct {
	N int
}

func (Split) Name() string { return "split" }

func (s Split) Args() string {
	if s.N <= 2 {
		return ""
	}
	return strconv.Itoa(s.N)
}

// Overlay paints the second input over the first at (X, Y).
// EOFRepeat keeps the last overlay frame once that input ends.
type Overlay struct {
	X, Y      int
	EOFRepeat bool
}

func (Overlay) Name() string { return "overlay" }

func (o Overlay) Args() string {
	args := fmt.Sprintf("x=%d:y=%d", o.X, o.Y)
	if o.EOFRepeat {
		args += ":eof_action=repeat"
	}
	return args
}

// Color is a solid-color source of the given size and duration.
type Color struct {
	Color    string
	W, H     int
	Duration float64
	FPS      int
}

func (Color) Name() string { return "color" }

func (c Color) Args() string {
	col := c.Color
	if col == "" {
		col = "black"
	}
	args := fmt.Sprintf("c=%s:s=%dx%d:d=%s", col, c.W, c.H, formatSeconds(c.Duration))
	if c.FPS > 0 {
		args += fmt.Sprintf(":r=%d", c.FPS)
	}
	return args
}

// SetPTS speeds picture timing up by Speed.
type SetPTS struct {
	Speed float64
}

func (SetPTS) Name() string { return "setpts" }

func (s SetPTS) Args() string { return "PTS/" + formatFactor(s.Speed) }

// ATempo changes audio tempo without changing pitch.
type ATempo struct {
	Speed float64
}

func (ATempo) Name() string { return "atempo" }

func (a ATempo) Args() string { return formatFactor(a.Speed) }

// Loudnorm is the EBU R128 loudness normalization filter.
type Loudnorm struct {
	Integrated    float64
	LoudnessRange float64
	TruePeak      float64
}

func (Loudnorm) Name() string { return "loudnorm" }

func (l Loudnorm) Args() string {
	return fmt.Sprintf("I=%s:LRA=%s:TP=%s",
		formatFactor(l.Integrated), formatFactor(l.LoudnessRange), formatFactor(l.TruePeak))
}

// APad pads audio with silence up to WholeDuration seconds.
type APad struct {
	WholeDuration float64
}

func (APad) Name() string { return "apad" }

func (a APad) Args() string { return "whole_dur=" + formatSeconds(a.WholeDuration) }

// SetSAR forces square pixels so overlays line up with the region box.
type SetSAR struct{}

func (SetSAR) Name() string { return "setsar" }

func (SetSAR) Args() string { return "1" }

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func formatFactor(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
