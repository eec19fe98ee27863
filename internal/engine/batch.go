package engine

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/reelcomposer/internal/config"
	"github.com/ivlev/reelcomposer/internal/logging"
)

// Batch renders one composition per combinations feed entry, using the
// layout, canvas and duration mode of Template.
type Batch struct {
	Composer      *Composer
	Template      *config.File
	NormalizedDir string
	AudioRegion   string
	Workers       int
}

// Run processes every entry. A failing entry is recorded in the report
// and never stops the others. The returned error is non-nil only when ctx
// was cancelled.
func (b *Batch) Run(ctx context.Context, entries []config.FeedEntry) (*Report, error) {
	t := newTally(len(entries))
	log := logging.Ctx(ctx)
	log.Info().Int("total", len(entries)).Int("workers", b.workers()).Msg("batch started")

	var g errgroup.Group
	g.SetLimit(b.workers())
	for i, entry := range entries {
		i, entry := i, entry
		if ctx.Err() != nil {
			t.record(i, outcomeFailed, &ItemError{Item: entry.CombinationID, Err: ctx.Err()})
			continue
		}
		g.Go(func() error {
			o, err := b.runOne(ctx, entry)
			if err != nil {
				err = &ItemError{Item: entry.CombinationID, Err: err}
				log.Error().Err(err).Str("composition", entry.CombinationID).Msg("composition failed")
			}
			t.record(i, o, err)
			return nil
		})
	}
	g.Wait()

	report := t.finish()
	log.Info().Int("rendered", report.Rendered).Int("skipped", report.Skipped).
		Int("failed", report.Failed).Msg("batch finished")
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func (b *Batch) runOne(ctx context.Context, entry config.FeedEntry) (outcome, error) {
	if err := ctx.Err(); err != nil {
		return outcomeFailed, err
	}
	if b.Template == nil {
		return outcomeFailed, errors.New("batch has no composition template")
	}
	comp, err := b.Template.FromFeed(entry, b.NormalizedDir, b.AudioRegion)
	if err != nil {
		return outcomeFailed, err
	}
	res, err := b.Composer.Compose(ctx, comp, entry.CombinationID+".mp4")
	if err != nil {
		return outcomeFailed, err
	}
	if res.Skipped {
		return outcomeSkipped, nil
	}
	return outcomeRendered, nil
}

func (b *Batch) workers() int {
	return max(b.Workers, 1)
}
