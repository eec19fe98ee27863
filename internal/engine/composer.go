package engine

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ivlev/reelcomposer/internal/audio"
	"github.com/ivlev/reelcomposer/internal/config"
	"github.com/ivlev/reelcomposer/internal/layout"
	"github.com/ivlev/reelcomposer/internal/logging"
	"github.com/ivlev/reelcomposer/internal/metadata"
	"github.com/ivlev/reelcomposer/internal/probe"
	"github.com/ivlev/reelcomposer/internal/reframe"
	"github.com/ivlev/reelcomposer/internal/renderer"
	"github.com/ivlev/reelcomposer/internal/system"
	"github.com/ivlev/reelcomposer/internal/video"
)

// Composer renders one Composition at a time. It keeps no state between
// calls, so one Composer may serve many goroutines.
type Composer struct {
	Prober      probe.Prober
	Renderer    video.Renderer
	Workspace   string
	OutputDir   string
	MetadataDir string
	Encoding    video.Encoding
}

// Result describes a finished (or skipped) composition.
type Result struct {
	Output   string
	Sidecar  string
	Duration float64
	Audio    string
	Skipped  bool
}

type probedSource struct {
	config.Source
	Path string
	Info probe.Info
}

// Compose probes the sources, assembles the filter graph and renders it to
// OutputDir/outputName. An existing output is never re-rendered; when its
// sidecar is missing, only the sidecar is written.
func (c *Composer) Compose(ctx context.Context, comp *config.Composition, outputName string) (*Result, error) {
	if outputName == "" {
		outputName = comp.Name
	}
	if outputName == "" {
		return nil, fmt.Errorf("composition has no output name")
	}
	output := filepath.Join(c.OutputDir, outputName)
	sidecar := filepath.Join(c.MetadataDir, metadata.SidecarName(outputName))
	log := logging.Ctx(ctx).With().Str("composition", outputName).Logger()

	rendered := system.Exists(output)
	if rendered && system.Exists(sidecar) {
		log.Info().Str("output", output).Msg("output exists, skipping")
		return &Result{Output: output, Sidecar: sidecar, Skipped: true}, nil
	}
	if len(comp.Sources) == 0 {
		return nil, fmt.Errorf("composition %s has no sources", outputName)
	}

	sources, err := c.probeAll(ctx, comp)
	if err != nil {
		return nil, err
	}

	durations := make([]float64, len(sources))
	for i, s := range sources {
		durations[i] = s.Info.Duration
	}
	duration := FinalDuration(comp.DurationMode, durations)
	if duration <= 0 {
		return nil, fmt.Errorf("composition %s: final duration is zero", outputName)
	}

	master := metadata.NoAudio
	if _, idx, ok := comp.AudioSource(); ok {
		master = sources[idx].RegionID
	}

	if rendered {
		log.Info().Str("output", output).Msg("output exists without sidecar, writing sidecar only")
	} else if err := c.render(ctx, comp, sources, duration, output); err != nil {
		return nil, err
	}

	rec := metadata.Composition{
		OutputVideo:   outputName,
		Layout:        comp.Layout.Type(),
		AudioControl:  metadata.AudioControl{MasterSource: master},
		DurationFinal: duration,
		PipelineStage: metadata.StageComposition,
	}
	for _, s := range sources {
		rec.VideosUsed = append(rec.VideosUsed, s.Path)
	}
	if err := metadata.Write(sidecar, rec); err != nil {
		return nil, fmt.Errorf("composition %s: write sidecar: %w", outputName, err)
	}

	if !rendered {
		log.Info().Str("output", output).Msg("composition rendered")
	}
	return &Result{
		Output:   output,
		Sidecar:  sidecar,
		Duration: duration,
		Audio:    master,
		Skipped:  rendered,
	}, nil
}

func (c *Composer) render(ctx context.Context, comp *config.Composition, sources []probedSource, duration float64, output string) error {
	log := logging.Ctx(ctx).With().Str("composition", filepath.Base(output)).Logger()

	asm, err := c.buildGraph(comp, sources, duration)
	if err != nil {
		return fmt.Errorf("composition %s: %w", filepath.Base(output), err)
	}
	for _, s := range sources {
		if st, ok := s.Strategy.(reframe.Stretch); ok {
			log.Warn().Str("source", s.RegionID).Str("strategy", st.Tag).
				Msg("unknown reframe strategy, stretching to region")
		}
	}

	job := video.Job{
		Graph:    asm.Graph,
		VideoOut: asm.Video,
		AudioOut: asm.Audio,
		Encoding: c.Encoding,
		Output:   output,
	}
	job.Encoding.FPS = comp.Canvas.FPS
	for _, s := range sources {
		job.Inputs = append(job.Inputs, video.Input{Path: s.Path, Duration: duration})
	}

	log.Info().Float64("duration", duration).Int("sources", len(sources)).Msg("rendering composition")
	return c.Renderer.Render(ctx, job)
}

func (c *Composer) probeAll(ctx context.Context, comp *config.Composition) ([]probedSource, error) {
	_, audioIdx, _ := comp.AudioSource()
	sources := make([]probedSource, len(comp.Sources))
	for i, s := range comp.Sources {
		path := resolve(c.Workspace, s.AssetPath)
		info, err := c.Prober.Probe(ctx, path)
		if err != nil {
			return nil, err
		}
		if i == audioIdx && !info.HasAudio {
			return nil, &probe.Error{Path: path, Err: probe.ErrNoAudioStream}
		}
		sources[i] = probedSource{Source: s, Path: path, Info: info}
	}
	return sources, nil
}

// FinalDuration applies the duration mode to the source durations, given
// in input order. In max mode shorter sources hold their last frame and
// audio is padded.
func FinalDuration(mode config.DurationMode, durations []float64) float64 {
	if len(durations) == 0 {
		return 0
	}
	d := durations[0]
	switch mode {
	case config.DurationFirst:
		return d
	case config.DurationMax:
		for _, v := range durations[1:] {
			d = max(d, v)
		}
	default:
		for _, v := range durations[1:] {
			d = min(d, v)
		}
	}
	return d
}

// assembled is a serialized graph with its output pads. Audio is empty for
// a silent output.
type assembled struct {
	Graph string
	Video renderer.Label
	Audio renderer.Label
}

func (c *Composer) buildGraph(comp *config.Composition, sources []probedSource, duration float64) (assembled, error) {
	g := renderer.NewGraph()
	repeat := comp.DurationMode == config.DurationMax

	base := g.Chain(nil, "base", renderer.Color{
		W:        comp.Canvas.Width,
		H:        comp.Canvas.Height,
		Duration: duration,
		FPS:      comp.Canvas.FPS,
	})

	framed := make([]renderer.Label, len(sources))
	placed := make([]layout.Region, len(sources))
	for i, s := range sources {
		region, ok := comp.Layout.Region(s.RegionID)
		if !ok {
			return assembled{}, fmt.Errorf("region %q is not in layout %s", s.RegionID, comp.Layout.Type())
		}
		plan, err := s.Strategy.Plan(
			reframe.Dims{W: s.Info.Width, H: s.Info.Height},
			reframe.Dims{W: region.Width, H: region.Height},
		)
		if err != nil {
			return assembled{}, fmt.Errorf("source %s: %w", s.RegionID, err)
		}
		framed[i] = plan.Attach(g, renderer.VideoStream(i), fmt.Sprintf("v%d", i))
		placed[i] = region
	}

	cur := base
	for i := range sources {
		prefix := "tmp"
		if i == len(sources)-1 {
			prefix = "vout"
		}
		cur = g.Chain([]renderer.Label{cur, framed[i]}, prefix, renderer.Overlay{
			X:         placed[i].X,
			Y:         placed[i].Y,
			EOFRepeat: repeat,
		})
	}
	asm := assembled{Video: cur}
	outputs := []renderer.Label{cur}

	if _, idx, ok := comp.AudioSource(); ok {
		filters := []renderer.Filter{audio.Composition.Filter()}
		if repeat {
			filters = append(filters, renderer.APad{WholeDuration: duration})
		}
		asm.Audio = g.Chain([]renderer.Label{renderer.AudioStream(idx)}, "aout", filters...)
		outputs = append(outputs, asm.Audio)
	}

	fc, err := g.Build(outputs...)
	if err != nil {
		return assembled{}, err
	}
	asm.Graph = fc
	return asm, nil
}
