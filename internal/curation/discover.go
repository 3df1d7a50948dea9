package curation

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/RyanBlaney/genre-mood-classifier/pkg/common"
)

// Discover lists every file under root/<genre>/ in sorted order. The label of
// each track is the name of the collection directory holding it; files at
// the top level and nested directories are ignored. Paths are absolute.
func Discover(root string) ([]common.Track, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve dataset root %s: %w", root, err)
	}

	collections, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset root %s: %w", abs, err)
	}

	var tracks []common.Track
	for _, collection := range collections {
		if !collection.IsDir() {
			continue
		}

		dir := filepath.Join(abs, collection.Name())
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to read collection %s: %w", dir, err)
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			tracks = append(tracks, common.Track{
				Path:  filepath.Join(dir, entry.Name()),
				Label: collection.Name(),
			})
		}
	}

	return tracks, nil
}

// Labels returns the distinct labels of tracks in sorted order
func Labels(tracks []common.Track) []string {
	labels := make([]string, 0, len(tracks))
	for _, t := range tracks {
		labels = append(labels, t.Label)
	}
	slices.Sort(labels)
	return slices.Compact(labels)
}
