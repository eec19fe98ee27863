package director

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ScenarioFile is the plan file name written next to a source's variants.
const ScenarioFile = "scenario.yaml"

// SourceID derives the output key of a source from its file name.
func SourceID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// OutputName is the deterministic file name of a variant render.
func OutputName(variant, template string) string {
	return fmt.Sprintf("%s_%s.mp4", variant, template)
}

// SourceDir is where every file derived from sourceID is written.
func SourceDir(root, sourceID string) string {
	return filepath.Join(root, sourceID)
}
