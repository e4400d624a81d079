package models

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const testFiller = `
playlists:
  - version: v1
    items:
      - {title: Video 1, url: /assets/videos/video-1.mp4}
      - {title: Video 2, url: /assets/videos/video-2.mp4}
      - {title: Video 3, url: /assets/videos/video-3.mp4}
  - version: v2
    items:
      - {title: Video 4, url: /assets/videos/video-4.mp4}
`

func writeFiller(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "filler.yaml")
	if err := os.WriteFile(path, []byte(testFiller), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFillerCatalog(t *testing.T) {
	c, err := LoadFillerCatalog(writeFiller(t))
	if err != nil {
		t.Fatalf("LoadFillerCatalog() error: %v", err)
	}
	if got := c.Versions(); len(got) != 2 || got[0] != "v1" || got[1] != "v2" {
		t.Errorf("Versions() = %v", got)
	}
	if !c.Has("v2") || c.Has("v3") {
		t.Errorf("Has(v2) = %v, Has(v3) = %v", c.Has("v2"), c.Has("v3"))
	}

	item, err := c.ForRound("v1", 2)
	if err != nil {
		t.Fatalf("ForRound(v1, 2) error: %v", err)
	}
	if item.Title != "Video 2" {
		t.Errorf("ForRound(v1, 2) = %+v", item)
	}
	if _, err := c.ForRound("v2", 2); err == nil {
		t.Error("ForRound(v2, 2) past the playlist returned nil error")
	}
	if _, err := c.ForRound("v9", 1); !errors.Is(err, ErrUnknownFillerVersion) {
		t.Errorf("ForRound(v9, 1) error = %v, want ErrUnknownFillerVersion", err)
	}
}

func TestLoadFillerCatalogMissingFile(t *testing.T) {
	if _, err := LoadFillerCatalog(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadFillerCatalog() on a missing file returned nil error")
	}
}
