package curation

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/RyanBlaney/genre-mood-classifier/pkg/common"
)

// WriteTrackList stores the paths of tracks one per line. The list is
// written to a temporary file next to path and renamed into place.
func WriteTrackList(path string, tracks []common.Track) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create track list directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".clean_files-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary track list: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, t := range tracks {
		if _, err := fmt.Fprintln(w, t.Path); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write track list: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write track list: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync track list: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close track list: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to publish track list: %w", err)
	}
	return nil
}

// ReadTrackList loads a clean track list and resolves each path to the
// discovered track carrying its label. Blank lines are ignored; a path the
// catalog does not contain is an error.
func ReadTrackList(path string, catalog []common.Track) ([]common.Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open track list: %w", err)
	}
	defer f.Close()

	byPath := make(map[string]common.Track, len(catalog))
	for _, t := range catalog {
		byPath[filepath.Clean(t.Path)] = t
	}

	var tracks []common.Track
	scanner := bufio.NewScanner(f)
	for line := 1; scanner.Scan(); line++ {
		p := strings.TrimSpace(scanner.Text())
		if p == "" {
			continue
		}
		t, ok := byPath[filepath.Clean(p)]
		if !ok {
			return nil, fmt.Errorf("track list line %d: %s is not part of the dataset", line, p)
		}
		tracks = append(tracks, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read track list: %w", err)
	}

	return tracks, nil
}
