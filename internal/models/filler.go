package models

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ErrUnknownFillerVersion is returned for a playlist version that is not configured.
var ErrUnknownFillerVersion = errors.New("unknown filler version")

// FillerItem is the content shown to a participant between rounds.
type FillerItem struct {
	Title string `yaml:"title" json:"title"`
	URL   string `yaml:"url" json:"url"`
}

// FillerPlaylist lists one item per round.
type FillerPlaylist struct {
	Version string       `yaml:"version" json:"version"`
	Items   []FillerItem `yaml:"items" json:"items"`
}

// FillerCatalog holds every configured playlist.
type FillerCatalog struct {
	Playlists []FillerPlaylist `yaml:"playlists"`
}

// LoadFillerCatalog reads and parses the filler.yaml file
func LoadFillerCatalog(path string) (*FillerCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read filler file: %w", err)
	}

	var catalog FillerCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to unmarshal filler YAML: %w", err)
	}
	return &catalog, nil
}

// Has reports whether version is configured.
func (c *FillerCatalog) Has(version string) bool {
	return slices.ContainsFunc(c.Playlists, func(p FillerPlaylist) bool { return p.Version == version })
}

// Versions lists the configured playlist versions.
func (c *FillerCatalog) Versions() []string {
	out := make([]string, len(c.Playlists))
	for i, p := range c.Playlists {
		out[i] = p.Version
	}
	return out
}

// ForRound returns the item for a 1-based round number.
func (c *FillerCatalog) ForRound(version string, round int) (FillerItem, error) {
	for _, p := range c.Playlists {
		if p.Version != version {
			continue
		}
		if round < 1 || round > len(p.Items) {
			return FillerItem{}, fmt.Errorf("no filler for round %d in version %s", round, version)
		}
		return p.Items[round-1], nil
	}
	return FillerItem{}, fmt.Errorf("%w: %s", ErrUnknownFillerVersion, version)
}
