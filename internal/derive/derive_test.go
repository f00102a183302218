package derive

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reviewdeck/internal/diff"
	"github.com/reviewdeck/pkg/models"
)

const sampleDiff = "diff --git a/x.txt b/x.txt\n@@ -1,1 +1,1 @@\n-old\n+new\n"

func TestComputeWithoutComments(t *testing.T) {
	t.Parallel()

	result, err := Compute(sampleDiff, nil)
	require.NoError(t, err)

	require.Len(t, result.FileDiffs, 1)
	require.Equal(t, "x.txt", result.FileDiffs[0].Path())
	require.NotEmpty(t, result.Fingerprints["x.txt"])
	require.Empty(t, result.Threads)
}

func TestComputeAttachesInlineThread(t *testing.T) {
	t.Parallel()

	comments := []models.Comment{
		{ID: "1", Inline: &models.InlineLocation{Path: "x.txt", Line: 1, Side: models.SideAddition}},
	}

	result, err := Compute(sampleDiff, comments)
	require.NoError(t, err)

	require.Len(t, result.Threads, 1)
	thread := result.Threads[0]
	require.Equal(t, "1", thread.Root.ID)
	require.Equal(t, models.AnchorLine, thread.AnchorType)
	require.Equal(t, "x.txt", thread.Path)
	require.Equal(t, 1, thread.Line)
}

func TestComputeMalformedDiffFails(t *testing.T) {
	t.Parallel()

	_, err := Compute("not a diff", nil)
	require.Error(t, err)
	require.ErrorIs(t, err, diff.ErrMalformed)
}

func TestComputeEmptyDiffIsNoChanges(t *testing.T) {
	t.Parallel()

	result, err := Compute("", []models.Comment{{ID: "1", Body: "general remark"}})
	require.NoError(t, err)
	require.Empty(t, result.FileDiffs)
	require.Len(t, result.Threads, 1)
	require.Equal(t, models.AnchorGeneral, result.Threads[0].AnchorType)
}

func TestComputeResultIsInternallyConsistent(t *testing.T) {
	t.Parallel()

	comments := []models.Comment{
		{ID: "1", Inline: &models.InlineLocation{Path: "x.txt", Line: 1, Side: models.SideAddition}},
		{ID: "2", Inline: &models.InlineLocation{Path: "stale.txt", Line: 9, Side: models.SideAddition}},
	}

	result, err := Compute(sampleDiff, comments)
	require.NoError(t, err)

	// One fingerprint per file, and no thread referencing a file outside
	// the diff.
	require.Len(t, result.Fingerprints, len(result.FileDiffs))
	paths := map[string]bool{}
	for i := range result.FileDiffs {
		paths[result.FileDiffs[i].Path()] = true
	}
	for _, thread := range result.Threads {
		if thread.AnchorType == models.AnchorLine {
			require.True(t, paths[thread.Path], "thread anchored to unknown file %s", thread.Path)
		}
	}
}
