package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ivlev/reelcomposer/internal/director"
	"github.com/ivlev/reelcomposer/internal/layout"
	"github.com/ivlev/reelcomposer/internal/metadata"
	"github.com/ivlev/reelcomposer/internal/probe"
	"github.com/ivlev/reelcomposer/internal/video"
)

func newTestOptimizer(t *testing.T, infos map[string]probe.Info) (*Optimizer, *fakeProber, *fakeRenderer) {
	t.Helper()
	root := t.TempDir()
	p := &fakeProber{infos: infos}
	r := &fakeRenderer{}
	return &Optimizer{
		Prober:        p,
		Renderer:      r,
		Director:      director.NewDirector(nil),
		NormalizedDir: filepath.Join(root, "normalized"),
		OutputDir:     filepath.Join(root, "optimized"),
		Canvas:        layout.DefaultCanvas(),
		Encoding:      video.Encoding{Codec: "libx264", Quality: 18, Preset: "slow", AudioBitrate: "192k"},
		Workers:       2,
	}, p, r
}

func TestOptimizeSourceLandscape(t *testing.T) {
	info := probe.Info{Width: 1920, Height: 1080, Duration: 60, FPS: 30, HasAudio: true}
	o, p, r := newTestOptimizer(t, map[string]probe.Info{"clip01.mp4": info})

	res, err := o.OptimizeSource(context.Background(), "/src/clip01.mp4")
	if err != nil {
		t.Fatalf("OptimizeSource failed: %v", err)
	}
	if p.callCount() != 1 {
		t.Errorf("expected a single probe, got %d", p.callCount())
	}
	if len(res.Rendered) != 3 || r.jobCount() != 3 {
		t.Fatalf("expected 3 renders, got %v", res.Rendered)
	}

	wantGraph := "[0:v]split[vref_bgsrc][vref_fgsrc];" +
		"[vref_bgsrc]scale=3413:1920,crop=1080:1920:1166:0,boxblur=20:10[vref_bg];" +
		"[vref_fgsrc]scale=1080:608[vref_fg];" +
		"[vref_bg][vref_fg]overlay=x=0:y=656[vref];" +
		"[vref]setsar=1,setpts=PTS/1.05[vout];" +
		"[0:a]atempo=1.05,loudnorm=I=-14:LRA=7:TP=-2[aout]"

	wantInputs := []video.Input{
		{Path: "/src/clip01.mp4", Start: 0, Duration: 20},
		{Path: "/src/clip01.mp4", Start: 5, Duration: 30},
		{Path: "/src/clip01.mp4", Start: 0, Duration: 60},
	}
	wantOutputs := []string{"hook_shorts.mp4", "mid_shorts.mp4", "full_shorts.mp4"}

	for i, job := range r.jobs {
		if job.Graph != wantGraph {
			t.Errorf("job %d graph:\n got %s\nwant %s", i, job.Graph, wantGraph)
		}
		if len(job.Inputs) != 1 || job.Inputs[0] != wantInputs[i] {
			t.Errorf("job %d inputs: %+v", i, job.Inputs)
		}
		if job.Output != filepath.Join(o.OutputDir, "clip01", wantOutputs[i]) {
			t.Errorf("job %d output: %s", i, job.Output)
		}
		if job.Encoding.FPS != 30 || job.Encoding.Quality != 18 {
			t.Errorf("job %d encoding: %+v", i, job.Encoding)
		}
	}

	var rec metadata.Variants
	if err := metadata.Read(filepath.Join(o.OutputDir, "clip01", metadata.VariantsFile), &rec); err != nil {
		t.Fatalf("metadata missing: %v", err)
	}
	if rec.VideoID != "clip01" || rec.OriginalAspectRatio != "landscape" || rec.ReframeStrategy != "blur_background" ||
		rec.ZoomFactor != 1 || rec.SpeedFactor != 1.05 || rec.AudioLUFS != -14 || len(rec.Variants) != 3 {
		t.Errorf("unexpected metadata %+v", rec)
	}
	if _, err := director.ReadScenario(filepath.Join(o.OutputDir, "clip01", director.ScenarioFile)); err != nil {
		t.Errorf("scenario missing: %v", err)
	}
}

func TestOptimizeSourceIsIdempotent(t *testing.T) {
	info := probe.Info{Width: 1080, Height: 1080, Duration: 15, HasAudio: false}
	o, _, r := newTestOptimizer(t, map[string]probe.Info{"sq.mp4": info})

	if _, err := o.OptimizeSource(context.Background(), "sq.mp4"); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	first := r.jobCount()
	if first != 3 {
		t.Fatalf("expected 3 renders, got %d", first)
	}
	if r.jobs[0].AudioOut != "" {
		t.Error("silent source must render without audio")
	}

	res, err := o.OptimizeSource(context.Background(), "sq.mp4")
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if r.jobCount() != first || len(res.Skipped) != 3 {
		t.Errorf("expected every variant skipped, got %+v", res)
	}
}

func TestOptimizeSourceIsolatesVariantFailure(t *testing.T) {
	info := probe.Info{Width: 1080, Height: 1920, Duration: 40, HasAudio: true}
	o, _, r := newTestOptimizer(t, map[string]probe.Info{"tall.mp4": info})
	r.fail = map[string]bool{"mid_shorts.mp4": true}

	res, err := o.OptimizeSource(context.Background(), "tall.mp4")
	if err == nil {
		t.Fatal("expected error")
	}
	var ierr *ItemError
	if !errors.As(err, &ierr) || ierr.Item != "tall/mid" {
		t.Errorf("expected item error for tall/mid, got %v", err)
	}
	if len(res.Rendered) != 2 || res.Rendered[0] != director.Hook || res.Rendered[1] != director.Full {
		t.Errorf("other variants must still render: %v", res.Rendered)
	}
	if _, err := os.Stat(filepath.Join(o.OutputDir, "tall", metadata.VariantsFile)); err == nil {
		t.Error("metadata written despite a failed variant")
	}
}

func TestOptimizePlanOnly(t *testing.T) {
	info := probe.Info{Width: 1080, Height: 1920, Duration: 40}
	o, _, r := newTestOptimizer(t, map[string]probe.Info{"tall.mp4": info})
	o.PlanOnly = true

	res, err := o.OptimizeSource(context.Background(), "tall.mp4")
	if err != nil {
		t.Fatalf("OptimizeSource failed: %v", err)
	}
	if r.jobCount() != 0 {
		t.Errorf("plan-only run rendered %d jobs", r.jobCount())
	}
	if res.Scenario.Strategy != "scale_zoom" || res.Scenario.Zoom != 1.08 {
		t.Errorf("unexpected scenario %+v", res.Scenario)
	}
}

func TestOptimizeAll(t *testing.T) {
	info := probe.Info{Width: 1920, Height: 1080, Duration: 30, HasAudio: true}
	o, _, r := newTestOptimizer(t, map[string]probe.Info{"a.mp4": info, "b.mp4": info})

	if err := os.MkdirAll(o.NormalizedDir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.mp4", "b.mp4", "broken.mp4", "readme.txt"} {
		if err := os.WriteFile(filepath.Join(o.NormalizedDir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	report, err := o.OptimizeAll(context.Background())
	if err != nil {
		t.Fatalf("OptimizeAll failed: %v", err)
	}
	if report.Total != 3 || report.Rendered != 2 || report.Failed != 1 {
		t.Errorf("unexpected report %+v", report)
	}
	var ierr *ItemError
	if !errors.As(report.Err(), &ierr) || ierr.Item != "broken" {
		t.Errorf("expected failure for broken, got %v", report.Err())
	}
	if r.jobCount() != 6 {
		t.Errorf("expected 6 renders, got %d", r.jobCount())
	}
}

func TestOptimizeSourceRerunWritesNothing(t *testing.T) {
	info := probe.Info{Width: 1080, Height: 1080, Duration: 15}
	o, _, r := newTestOptimizer(t, map[string]probe.Info{"sq.mp4": info})

	if _, err := o.OptimizeSource(context.Background(), "sq.mp4"); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	dir := filepath.Join(o.OutputDir, "sq")
	files := []string{director.ScenarioFile, metadata.VariantsFile}
	past := time.Now().Add(-time.Hour).Truncate(time.Second)
	for _, name := range files {
		if err := os.Chtimes(filepath.Join(dir, name), past, past); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := o.OptimizeSource(context.Background(), "sq.mp4"); err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if r.jobCount() != 3 {
		t.Errorf("expected no new renders, got %d total", r.jobCount())
	}
	for _, name := range files {
		st, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Fatal(err)
		}
		if !st.ModTime().Equal(past) {
			t.Errorf("%s rewritten on a run that rendered nothing", name)
		}
	}
}

func TestOptimizeAllRejectsSharedSourceIDs(t *testing.T) {
	info := probe.Info{Width: 1920, Height: 1080, Duration: 30, HasAudio: true}
	o, _, r := newTestOptimizer(t, map[string]probe.Info{"clip.mp4": info, "clip.MP4": info, "solo.mp4": info})

	if err := os.MkdirAll(o.NormalizedDir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"clip.mp4", "clip.MP4", "solo.mp4"} {
		if err := os.WriteFile(filepath.Join(o.NormalizedDir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	if entries, _ := os.ReadDir(o.NormalizedDir); len(entries) != 3 {
		t.Skip("file system folds case")
	}

	report, err := o.OptimizeAll(context.Background())
	if err != nil {
		t.Fatalf("OptimizeAll failed: %v", err)
	}
	if report.Total != 3 || report.Rendered != 1 || report.Failed != 2 {
		t.Errorf("unexpected report %+v", report)
	}
	if !errors.Is(report.Err(), ErrDuplicateSource) {
		t.Errorf("expected ErrDuplicateSource, got %v", report.Err())
	}
	if r.jobCount() != 3 {
		t.Errorf("expected only solo's 3 variants rendered, got %d", r.jobCount())
	}
	if _, err := os.Stat(filepath.Join(o.OutputDir, "clip")); err == nil {
		t.Error("output directory created for a shared source id")
	}
}
