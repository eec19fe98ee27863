package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ivlev/reelcomposer/internal/config"
	"github.com/ivlev/reelcomposer/internal/layout"
	"github.com/ivlev/reelcomposer/internal/probe"
)

func splitTemplate() *config.File {
	canvas := layout.DefaultCanvas()
	return &config.File{
		Canvas: canvas,
		Layout: config.LayoutSpec{
			Type:    "vertical_split",
			Regions: layout.VerticalSplit(canvas).Regions(),
		},
	}
}

func TestBatchContinuesPastFailures(t *testing.T) {
	c, _, r := newTestComposer(t, map[string]probe.Info{
		"a.mp4": landscape,
		"b.mp4": portrait,
		"c.mp4": portrait,
	})
	b := &Batch{
		Composer:      c,
		Template:      splitTemplate(),
		NormalizedDir: "normalized",
		AudioRegion:   "top",
		Workers:       2,
	}
	entries := []config.FeedEntry{
		{CombinationID: "combo_001", Roles: map[string]string{"top": "a.mp4", "bottom": "b.mp4"}},
		{CombinationID: "combo_002", Roles: map[string]string{"top": "a.mp4", "bottom": "missing.mp4"}},
		{CombinationID: "combo_003", Roles: map[string]string{"top": "b.mp4", "bottom": "c.mp4"}},
	}

	report, err := b.Run(context.Background(), entries)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Total != 3 || report.Rendered != 2 || report.Failed != 1 || report.Skipped != 0 {
		t.Errorf("unexpected report %+v", report)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("expected one error, got %v", report.Errors)
	}

	var ierr *ItemError
	if !errors.As(report.Errors[0], &ierr) || ierr.Item != "combo_002" {
		t.Errorf("expected item error for combo_002, got %v", report.Errors[0])
	}
	var perr *probe.Error
	if !errors.As(report.Err(), &perr) {
		t.Errorf("expected wrapped probe error, got %v", report.Err())
	}
	if r.jobCount() != 2 {
		t.Errorf("expected 2 renders, got %d", r.jobCount())
	}

	for _, id := range []string{"combo_001", "combo_003"} {
		if _, err := os.Stat(filepath.Join(c.OutputDir, id+".mp4")); err != nil {
			t.Errorf("missing output for %s", id)
		}
		if _, err := os.Stat(filepath.Join(c.MetadataDir, id+".json")); err != nil {
			t.Errorf("missing sidecar for %s", id)
		}
	}
}

func TestBatchUsesAudioRegionAndLayoutOrder(t *testing.T) {
	c, _, r := newTestComposer(t, map[string]probe.Info{"a.mp4": landscape, "b.mp4": portrait})
	b := &Batch{Composer: c, Template: splitTemplate(), NormalizedDir: "n", AudioRegion: "bottom", Workers: 1}

	_, err := b.Run(context.Background(), []config.FeedEntry{
		{CombinationID: "combo_001", Roles: map[string]string{"bottom": "b.mp4", "top": "a.mp4"}},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	job := r.jobs[0]
	if filepath.Base(job.Inputs[0].Path) != "a.mp4" || filepath.Base(job.Inputs[1].Path) != "b.mp4" {
		t.Errorf("inputs must follow layout order: %+v", job.Inputs)
	}
	if job.AudioOut == "" || !strings.Contains(job.Graph, "[1:a]loudnorm") {
		t.Errorf("audio must come from the bottom region: %s", job.Graph)
	}
}

func TestBatchSkipsExistingOutputs(t *testing.T) {
	c, _, r := newTestComposer(t, map[string]probe.Info{"a.mp4": landscape, "b.mp4": portrait})
	if err := os.MkdirAll(c.OutputDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(c.OutputDir, "combo_001.mp4"), nil, 0644); err != nil {
		t.Fatal(err)
	}
	b := &Batch{Composer: c, Template: splitTemplate(), NormalizedDir: "n", AudioRegion: "top", Workers: 4}

	report, err := b.Run(context.Background(), []config.FeedEntry{
		{CombinationID: "combo_001", Roles: map[string]string{"top": "a.mp4", "bottom": "b.mp4"}},
		{CombinationID: "combo_002", Roles: map[string]string{"top": "b.mp4", "bottom": "a.mp4"}},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Skipped != 1 || report.Rendered != 1 || r.jobCount() != 1 {
		t.Errorf("unexpected report %+v with %d renders", report, r.jobCount())
	}
}

func TestBatchCancelled(t *testing.T) {
	c, _, r := newTestComposer(t, map[string]probe.Info{"a.mp4": landscape, "b.mp4": portrait})
	b := &Batch{Composer: c, Template: splitTemplate(), NormalizedDir: "n", AudioRegion: "top", Workers: 1}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := b.Run(ctx, []config.FeedEntry{
		{CombinationID: "combo_001", Roles: map[string]string{"top": "a.mp4", "bottom": "b.mp4"}},
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if report.Failed != 1 || r.jobCount() != 0 {
		t.Errorf("unexpected report %+v", report)
	}
}
