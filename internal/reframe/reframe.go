// Package reframe computes how a source frame is fitted into a target box.
//
// Each strategy is a pure function of the source and target dimensions and
// returns a Plan of typed filters. Plans are attached to a renderer.Graph
// by the caller; nothing here touches ffmpeg.
package reframe

import (
	"fmt"
	"math"

	"github.com/ivlev/reelcomposer/internal/renderer"
)

// Dims is a width/height pair in pixels.
type Dims struct {
	W, H int
}

func (d Dims) String() string { return fmt.Sprintf("%dx%d", d.W, d.H) }

// Kind is the config tag of a strategy.
type Kind string

const (
	KindCropFill       Kind = "crop_fill"
	KindScaleZoom      Kind = "scale_zoom"
	KindBlurBackground Kind = "blur_background"
	KindStretch        Kind = "stretch"
)

// Background blur used by BlurBackground.
const (
	BlurRadius = 20
	BlurPower  = 10
)

// GeometryError reports degenerate source or target dimensions.
type GeometryError struct {
	Source Dims
	Target Dims
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("degenerate geometry: source %s, target %s", e.Source, e.Target)
}

// Strategy is a closed set: CropFill, ScaleZoom, BlurBackground and the
// degraded Stretch fallback.
type Strategy interface {
	Kind() Kind
	Plan(src, dst Dims) (Plan, error)
	sealed()
}

// Plan is the ordered transform for one source. Linear strategies fill
// Steps; BlurBackground fills Background and Foreground and composites the
// foreground at (OffsetX, OffsetY).
type Plan struct {
	Kind       Kind
	Steps      []renderer.Filter
	Background []renderer.Filter
	Foreground []renderer.Filter
	OffsetX    int
	OffsetY    int
	Output     Dims
	Degraded   bool
}

// Layered reports whether the plan composites two paths.
func (p Plan) Layered() bool {
	return len(p.Background) > 0
}

// Attach emits the plan into g, reading from in, and returns the label of
// the reframed stream. name prefixes every label it creates.
func (p Plan) Attach(g *renderer.Graph, in renderer.Label, name string) renderer.Label {
	if !p.Layered() {
		return g.Chain([]renderer.Label{in}, name, p.Steps...)
	}
	paths := g.Fork(in, name+"_bgsrc", name+"_fgsrc")
	bg := g.Chain([]renderer.Label{paths[0]}, name+"_bg", p.Background...)
	fg := g.Chain([]renderer.Label{paths[1]}, name+"_fg", p.Foreground...)
	return g.Chain([]renderer.Label{bg, fg}, name,
		renderer.Overlay{X: p.OffsetX, Y: p.OffsetY})
}

// CropFill crops the source to the target aspect ratio and scales it to
// the target size. The target is fully covered; edges may be lost.
type CropFill struct{}

func (CropFill) Kind() Kind { return KindCropFill }
func (CropFill) sealed()    {}

func (CropFill) Plan(src, dst Dims) (Plan, error) {
	if err := check(src, dst); err != nil {
		return Plan{}, err
	}
	crop := cropToAspect(src, dst)
	return Plan{
		Kind:   KindCropFill,
		Steps:  []renderer.Filter{crop, renderer.Scale{W: dst.W, H: dst.H}},
		Output: dst,
	}, nil
}

// cropToAspect returns the largest centered window of src with dst's
// aspect ratio.
func cropToAspect(src, dst Dims) renderer.Crop {
	// srcW/srcH > dstW/dstH without floating point
	if src.W*dst.H > dst.W*src.H {
		newW := int(math.Round(float64(src.H*dst.W) / float64(dst.H)))
		newW = min(newW, src.W)
		return renderer.Crop{W: newW, H: src.H, X: (src.W - newW) / 2, Y: 0}
	}
	newH := int(math.Round(float64(src.W*dst.H) / float64(dst.W)))
	newH = min(newH, src.H)
	return renderer.Crop{W: src.W, H: newH, X: 0, Y: (src.H - newH) / 2}
}

// ScaleZoom scales to cover the target, center-crops, and then punches in
// by Zoom. Zoom must be at least 1.
type ScaleZoom struct {
	Zoom float64
}

func (ScaleZoom) Kind() Kind { return KindScaleZoom }
func (ScaleZoom) sealed()    {}

func (s ScaleZoom) Plan(src, dst Dims) (Plan, error) {
	if err := check(src, dst); err != nil {
		return Plan{}, err
	}
	if s.Zoom < 1.0 || math.IsNaN(s.Zoom) {
		return Plan{}, fmt.Errorf("zoom %.3f is below 1.0", s.Zoom)
	}

	cover := coverDims(src, dst)
	steps := []renderer.Filter{
		renderer.Scale{W: cover.W, H: cover.H},
		centerCrop(cover, dst),
	}
	if s.Zoom > 1.0 {
		window := Dims{
			W: max(1, int(math.Round(float64(dst.W)/s.Zoom))),
			H: max(1, int(math.Round(float64(dst.H)/s.Zoom))),
		}
		steps = append(steps,
			centerCrop(dst, window),
			renderer.Scale{W: dst.W, H: dst.H},
		)
	}
	return Plan{Kind: KindScaleZoom, Steps: steps, Output: dst}, nil
}

// BlurBackground keeps the whole source visible: a fitted foreground over
// a blurred, cover-scaled copy of itself.
type BlurBackground struct{}

func (BlurBackground) Kind() Kind { return KindBlurBackground }
func (BlurBackground) sealed()    {}

func (BlurBackground) Plan(src, dst Dims) (Plan, error) {
	if err := check(src, dst); err != nil {
		return Plan{}, err
	}
	cover := coverDims(src, dst)
	fit := fitDims(src, dst)
	return Plan{
		Kind: KindBlurBackground,
		Background: []renderer.Filter{
			renderer.Scale{W: cover.W, H: cover.H},
			centerCrop(cover, dst),
			renderer.BoxBlur{Radius: BlurRadius, Power: BlurPower},
		},
		Foreground: []renderer.Filter{
			renderer.Scale{W: fit.W, H: fit.H},
		},
		OffsetX: (dst.W - fit.W) / 2,
		OffsetY: (dst.H - fit.H) / 2,
		Output:  dst,
	}, nil
}

// Stretch scales straight to the target and may distort the picture. It is
// only produced for unrecognized strategy tags.
type Stretch struct {
	Tag string
}

func (Stretch) Kind() Kind { return KindStretch }
func (Stretch) sealed()    {}

func (Stretch) Plan(src, dst Dims) (Plan, error) {
	if err := check(src, dst); err != nil {
		return Plan{}, err
	}
	return Plan{
		Kind:     KindStretch,
		Steps:    []renderer.Filter{renderer.Scale{W: dst.W, H: dst.H}},
		Output:   dst,
		Degraded: true,
	}, nil
}

// Parse maps a config tag to a strategy. Unknown tags yield Stretch, which
// callers should report as degraded.
func Parse(tag string, zoom float64) (Strategy, error) {
	switch Kind(tag) {
	case KindCropFill, "":
		return CropFill{}, nil
	case KindScaleZoom:
		if zoom == 0 {
			zoom = 1.0
		}
		if zoom < 1.0 {
			return nil, fmt.Errorf("scale_zoom: zoom %.3f must be >= 1.0", zoom)
		}
		return ScaleZoom{Zoom: zoom}, nil
	case KindBlurBackground:
		return BlurBackground{}, nil
	default:
		return Stretch{Tag: tag}, nil
	}
}

// ZoomOf returns the zoom factor carried by s, 1.0 for strategies without one.
func ZoomOf(s Strategy) float64 {
	if z, ok := s.(ScaleZoom); ok {
		return z.Zoom
	}
	return 1.0
}

func check(src, dst Dims) error {
	if src.W <= 0 || src.H <= 0 || dst.W <= 0 || dst.H <= 0 {
		return &GeometryError{Source: src, Target: dst}
	}
	return nil
}

// coverDims scales src, preserving aspect, to the smallest box that covers dst.
func coverDims(src, dst Dims) Dims {
	if src.W*dst.H > dst.W*src.H {
		w := int(math.Round(float64(dst.H*src.W) / float64(src.H)))
		return Dims{W: max(dst.W, w), H: dst.H}
	}
	h := int(math.Round(float64(dst.W*src.H) / float64(src.W)))
	return Dims{W: dst.W, H: max(dst.H, h)}
}

// fitDims scales src, preserving aspect, to the largest box inside dst.
func fitDims(src, dst Dims) Dims {
	if src.W*dst.H > dst.W*src.H {
		h := int(math.Round(float64(dst.W*src.H) / float64(src.W)))
		return Dims{W: dst.W, H: min(dst.H, max(1, h))}
	}
	w := int(math.Round(float64(dst.H*src.W) / float64(src.H)))
	return Dims{W: min(dst.W, max(1, w)), H: dst.H}
}

func centerCrop(frame, window Dims) renderer.Crop {
	return renderer.Crop{
		W: window.W,
		H: window.H,
		X: (frame.W - window.W) / 2,
		Y: (frame.H - window.H) / 2,
	}
}
