// Package analyzer classifies source footage by aspect ratio.
package analyzer

import "fmt"

// Class is an aspect-ratio classification.
type Class string

const (
	Portrait  Class = "portrait"
	Square    Class = "square"
	Landscape Class = "landscape"
)

// Band is an inclusive width/height ratio range.
type Band struct {
	Class    Class
	Min, Max float64
}

func (b Band) Contains(ratio float64) bool {
	return ratio >= b.Min && ratio <= b.Max
}

// Classifier maps frame dimensions to a Class.
type Classifier interface {
	Classify(width, height int) Class
}

// Bands classifies by the first band containing the ratio and falls back
// to Landscape.
type Bands []Band

// DefaultBands: 9:16 footage and slightly wider is portrait, roughly 1:1
// is square.
var DefaultBands = Bands{
	{Class: Portrait, Min: 0.50, Max: 0.60},
	{Class: Square, Min: 0.90, Max: 1.10},
}

func (bs Bands) Classify(width, height int) Class {
	if width <= 0 || height <= 0 {
		return Landscape
	}
	ratio := float64(width) / float64(height)
	for _, b := range bs {
		if b.Contains(ratio) {
			return b.Class
		}
	}
	return Landscape
}

// Classify uses DefaultBands.
func Classify(width, height int) Class {
	return DefaultBands.Classify(width, height)
}

// NewClassifier creates a classifier based on the specified variant
func NewClassifier(variant string) (Classifier, error) {
	switch variant {
	case "bands", "":
		return DefaultBands, nil
	default:
		return nil, fmt.Errorf("unknown classifier variant: %s", variant)
	}
}
