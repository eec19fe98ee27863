package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/reelcomposer/internal/audio"
	"github.com/ivlev/reelcomposer/internal/director"
	"github.com/ivlev/reelcomposer/internal/layout"
	"github.com/ivlev/reelcomposer/internal/logging"
	"github.com/ivlev/reelcomposer/internal/metadata"
	"github.com/ivlev/reelcomposer/internal/probe"
	"github.com/ivlev/reelcomposer/internal/reframe"
	"github.com/ivlev/reelcomposer/internal/renderer"
	"github.com/ivlev/reelcomposer/internal/system"
	"github.com/ivlev/reelcomposer/internal/video"
)

// ErrDuplicateSource marks sources whose file names differ only in the
// extension's case and would share one output directory.
var ErrDuplicateSource = errors.New("source id is shared by more than one file")

// Optimizer cuts hook, mid and full variants out of normalized sources.
type Optimizer struct {
	Prober        probe.Prober
	Renderer      video.Renderer
	Director      *director.Director
	NormalizedDir string
	OutputDir     string
	Canvas        layout.Canvas
	Encoding      video.Encoding
	Workers       int

	// PlanOnly writes scenario.yaml without rendering anything.
	PlanOnly bool
}

// SourceResult is the outcome of optimizing one source.
type SourceResult struct {
	SourceID string
	Scenario *director.Scenario
	Rendered []string
	Skipped  []string
}

// OptimizeSource probes path once and renders each missing variant. A
// failed variant does not stop the remaining ones; the metadata record is
// written only when every variant exists.
func (o *Optimizer) OptimizeSource(ctx context.Context, path string) (*SourceResult, error) {
	id := director.SourceID(path)
	log := logging.Ctx(ctx).With().Str("source", id).Logger()

	info, err := o.Prober.Probe(ctx, path)
	if err != nil {
		return nil, err
	}
	scenario, err := o.Director.Plan(id, path, info)
	if err != nil {
		return nil, err
	}
	strategy, err := scenario.ReframeStrategy()
	if err != nil {
		return nil, err
	}
	plan, err := strategy.Plan(
		reframe.Dims{W: info.Width, H: info.Height},
		reframe.Dims{W: o.Canvas.Width, H: o.Canvas.Height},
	)
	if err != nil {
		return nil, err
	}

	dir := director.SourceDir(o.OutputDir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	if err := director.WriteScenario(scenario, filepath.Join(dir, director.ScenarioFile)); err != nil {
		return nil, fmt.Errorf("write scenario: %w", err)
	}

	res := &SourceResult{SourceID: id, Scenario: scenario}
	if o.PlanOnly {
		log.Info().Str("strategy", scenario.Strategy).Msg("scenario written")
		return res, nil
	}

	var errs []error
	for _, v := range scenario.Variants {
		output := filepath.Join(dir, v.Output)
		if system.Exists(output) {
			log.Debug().Str("variant", v.Name).Msg("variant exists, skipping")
			res.Skipped = append(res.Skipped, v.Name)
			continue
		}

		job, err := o.variantJob(plan, scenario, v, path, info.HasAudio, output)
		if err == nil {
			log.Info().Str("variant", v.Name).Str("strategy", scenario.Strategy).
				Float64("start", v.Start).Float64("duration", v.Length).Msg("rendering variant")
			err = o.Renderer.Render(ctx, job)
		}
		if err != nil {
			errs = append(errs, &ItemError{Item: id + "/" + v.Name, Err: err})
			continue
		}
		res.Rendered = append(res.Rendered, v.Name)
	}
	if len(errs) > 0 {
		return res, errors.Join(errs...)
	}
	metaPath := filepath.Join(dir, metadata.VariantsFile)
	if len(res.Rendered) == 0 && system.Exists(metaPath) {
		return res, nil
	}

	rec := metadata.Variants{
		VideoID:             id,
		OriginalAspectRatio: scenario.Aspect,
		ReframeStrategy:     scenario.Strategy,
		ZoomFactor:          scenario.Zoom,
		SpeedFactor:         scenario.Speed,
		AudioLUFS:           audio.Optimization.IntegratedLUFS,
		Template:            scenario.Template,
		Variants:            scenario.VariantNames(),
		PipelineStage:       metadata.StageOptimization,
	}
	if err := metadata.Write(metaPath, rec); err != nil {
		return res, fmt.Errorf("write metadata: %w", err)
	}
	return res, nil
}

func (o *Optimizer) variantJob(plan reframe.Plan, s *director.Scenario, v director.Variant, path string, hasAudio bool, output string) (video.Job, error) {
	g := renderer.NewGraph()
	framed := plan.Attach(g, renderer.VideoStream(0), "vref")
	vout := g.Chain([]renderer.Label{framed}, "vout",
		renderer.SetSAR{},
		renderer.SetPTS{Speed: s.Speed},
	)
	outputs := []renderer.Label{vout}

	var aout renderer.Label
	if hasAudio {
		aout = g.Chain([]renderer.Label{renderer.AudioStream(0)}, "aout",
			renderer.ATempo{Speed: s.Speed},
			audio.Optimization.Filter(),
		)
		outputs = append(outputs, aout)
	}

	fc, err := g.Build(outputs...)
	if err != nil {
		return video.Job{}, err
	}

	enc := o.Encoding
	enc.FPS = o.Canvas.FPS
	return video.Job{
		Inputs:   []video.Input{{Path: path, Start: v.Start, Duration: v.Length}},
		Graph:    fc,
		VideoOut: vout,
		AudioOut: aout,
		Encoding: enc,
		Output:   output,
	}, nil
}

// OptimizeAll runs OptimizeSource for every .mp4 in NormalizedDir. Work is
// partitioned by source, so no two workers share an output directory.
func (o *Optimizer) OptimizeAll(ctx context.Context) (*Report, error) {
	sources, err := system.ListVideos(o.NormalizedDir, false)
	if err != nil {
		return nil, err
	}

	t := newTally(len(sources))
	log := logging.Ctx(ctx)
	log.Info().Int("total", len(sources)).Msg("optimization started")

	owners := make(map[string][]string, len(sources))
	for _, path := range sources {
		id := director.SourceID(path)
		owners[id] = append(owners[id], filepath.Base(path))
	}

	var g errgroup.Group
	g.SetLimit(max(o.Workers, 1))
	for i, path := range sources {
		i, path := i, path
		id := director.SourceID(path)
		if names := owners[id]; len(names) > 1 {
			err := fmt.Errorf("%w: %s", ErrDuplicateSource, strings.Join(names, ", "))
			log.Error().Err(err).Str("source", id).Msg("optimization skipped")
			t.record(i, outcomeFailed, &ItemError{Item: id, Err: err})
			continue
		}
		if ctx.Err() != nil {
			t.record(i, outcomeFailed, &ItemError{Item: id, Err: ctx.Err()})
			continue
		}
		g.Go(func() error {
			res, err := o.OptimizeSource(ctx, path)
			switch {
			case err != nil:
				log.Error().Err(err).Str("source", id).Msg("optimization failed")
				t.record(i, outcomeFailed, &ItemError{Item: id, Err: err})
			case len(res.Rendered) == 0 && !o.PlanOnly:
				t.record(i, outcomeSkipped, nil)
			default:
				t.record(i, outcomeRendered, nil)
			}
			return nil
		})
	}
	g.Wait()

	report := t.finish()
	log.Info().Int("rendered", report.Rendered).Int("skipped", report.Skipped).
		Int("failed", report.Failed).Msg("optimization finished")
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}
