// Package derive is the pure computation at the heart of the review pipeline:
// raw diff text plus a flat comment list in, a consistent DerivedData out.
// It runs inside the engine worker and never touches shared state.
package derive

import (
	"fmt"

	"github.com/reviewdeck/internal/diff"
	"github.com/reviewdeck/internal/fingerprint"
	"github.com/reviewdeck/internal/threads"
	"github.com/reviewdeck/pkg/models"
)

var parser = diff.NewParser()

// Compute parses diffText, fingerprints every file, and groups comments into
// threads. It either returns a fully consistent result or an error, never
// partial output. An empty diff with no comments is a valid (empty) result;
// unparseable non-empty diff text is an error.
func Compute(diffText string, comments []models.Comment) (*models.DerivedData, error) {
	fileDiffs, err := parser.Parse(diffText)
	if err != nil {
		return nil, fmt.Errorf("derive: %w", err)
	}

	fingerprints := make(map[string]string, len(fileDiffs))
	filePaths := make(map[string]bool, len(fileDiffs))
	for i := range fileDiffs {
		path := fileDiffs[i].Path()
		fingerprints[path] = fingerprint.File(fileDiffs[i])
		filePaths[path] = true
	}

	return &models.DerivedData{
		FileDiffs:    fileDiffs,
		Fingerprints: fingerprints,
		Threads:      threads.Group(comments, filePaths),
	}, nil
}
