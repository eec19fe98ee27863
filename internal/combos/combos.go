// Package combos pairs normalized videos into the combinations feed
// consumed by batch composition.
package combos

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ivlev/reelcomposer/internal/config"
	"github.com/ivlev/reelcomposer/internal/system"
)

const DefaultLayout = "vertical_split"

// ErrTooFewVideos is returned when fewer than two unique videos remain.
var ErrTooFewVideos = errors.New("at least 2 unique videos are required")

// Asset is one candidate video.
type Asset struct {
	ID       string
	Filename string
	Path     string
}

func newAsset(path string) Asset {
	name := filepath.Base(path)
	id, _, _ := strings.Cut(name, ".")
	return Asset{ID: id, Filename: name, Path: path}
}

// Scan collects every .mp4 under dir, nested directories included.
func Scan(dir string) ([]Asset, error) {
	paths, err := system.ListVideos(dir, true)
	if err != nil {
		return nil, err
	}
	assets := make([]Asset, len(paths))
	for i, p := range paths {
		assets[i] = newAsset(p)
	}
	return assets, nil
}

// Generator produces every unordered pair of a fixed asset set.
type Generator struct {
	assets []Asset
	layout string
}

// NewGenerator drops duplicate paths and orders assets by file name.
func NewGenerator(assets []Asset) (*Generator, error) {
	seen := make(map[string]bool, len(assets))
	unique := make([]Asset, 0, len(assets))
	for _, a := range assets {
		if seen[a.Path] {
			continue
		}
		seen[a.Path] = true
		unique = append(unique, a)
	}
	if len(unique) < 2 {
		return nil, fmt.Errorf("%w, found %d", ErrTooFewVideos, len(unique))
	}
	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Filename < unique[j].Filename
	})
	return &Generator{assets: unique, layout: DefaultLayout}, nil
}

// Assets returns the deduplicated, ordered asset list.
func (g *Generator) Assets() []Asset {
	return append([]Asset(nil), g.assets...)
}

// Generate returns n*(n-1)/2 entries in lexicographic pair order. The
// first video of a pair goes to the top region, the second to the bottom.
func (g *Generator) Generate() []config.FeedEntry {
	n := len(g.assets)
	entries := make([]config.FeedEntry, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a, b := g.assets[i], g.assets[j]
			entries = append(entries, config.FeedEntry{
				CombinationID: fmt.Sprintf("combo_%03d", len(entries)+1),
				Videos:        []string{a.Filename, b.Filename},
				Layout:        g.layout,
				Roles: map[string]string{
					"top":    a.Filename,
					"bottom": b.Filename,
				},
			})
		}
	}
	return entries
}

// Save writes the feed, creating the parent directory.
func Save(path string, entries []config.FeedEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return config.WriteFeed(path, entries)
}
