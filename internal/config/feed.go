package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// FeedEntry is one pairing in the combinations feed. Roles maps a region
// id to a file name in the normalized directory.
type FeedEntry struct {
	CombinationID string            `json:"combination_id" validate:"required"`
	Videos        []string          `json:"videos,omitempty"`
	Layout        string            `json:"layout,omitempty"`
	Roles         map[string]string `json:"roles" validate:"required,min=1,dive,required"`
}

// ParseFeed decodes and validates a combinations feed.
func ParseFeed(data []byte) ([]FeedEntry, error) {
	var entries []FeedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &Error{Field: "feed", Msg: err.Error(), Err: err}
	}
	seen := make(map[string]bool, len(entries))
	for i := range entries {
		if err := validateStruct(&entries[i]); err != nil {
			return nil, fmt.Errorf("feed entry %d: %w", i, err)
		}
		id := entries[i].CombinationID
		if seen[id] {
			return nil, fieldError("feed", "duplicate combination_id %q", id)
		}
		seen[id] = true
	}
	return entries, nil
}

// LoadFeed reads a combinations feed from disk.
func LoadFeed(path string) ([]FeedEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Field: "feed", Msg: err.Error(), Err: err}
	}
	return ParseFeed(data)
}

// WriteFeed writes entries as indented JSON.
func WriteFeed(path string, entries []FeedEntry) error {
	data, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
