package diff

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/reviewdeck/pkg/models"
)

func TestParseSingleFileModification(t *testing.T) {
	t.Parallel()

	diffText := "diff --git a/x.txt b/x.txt\n@@ -1,1 +1,1 @@\n-old\n+new\n"

	parser := NewParser()
	fileDiffs, err := parser.Parse(diffText)
	require.NoError(t, err)
	require.Len(t, fileDiffs, 1)

	expected := models.FileDiff{
		OldPath: "x.txt",
		NewPath: "x.txt",
		Hunks: []models.DiffHunk{
			{
				OldStartLine: 1,
				OldLineCount: 1,
				NewStartLine: 1,
				NewLineCount: 1,
				Lines: []models.DiffLine{
					{Content: "old", Type: models.LineDeleted, OldLineNo: 1},
					{Content: "new", Type: models.LineAdded, NewLineNo: 1},
				},
			},
		},
	}
	if diff := cmp.Diff(expected, fileDiffs[0]); diff != "" {
		t.Errorf("parsed diff mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMultipleFiles(t *testing.T) {
	t.Parallel()

	diffText := "diff --git a/a.go b/a.go\n" +
		"index 1111111..2222222 100644\n" +
		"--- a/a.go\n" +
		"+++ b/a.go\n" +
		"@@ -1,2 +1,3 @@\n" +
		" package a\n" +
		"+\n" +
		" func A() {}\n" +
		"diff --git a/b.go b/b.go\n" +
		"--- a/b.go\n" +
		"+++ b/b.go\n" +
		"@@ -5,1 +5,1 @@ func B\n" +
		"-\tpanic(\"old\")\n" +
		"+\tpanic(\"new\")\n"

	fileDiffs, err := NewParser().Parse(diffText)
	require.NoError(t, err)
	require.Len(t, fileDiffs, 2)

	require.Equal(t, "a.go", fileDiffs[0].Path())
	require.Equal(t, "b.go", fileDiffs[1].Path())
	require.Equal(t, "func B", fileDiffs[1].Hunks[0].HeaderText)
	require.Len(t, fileDiffs[0].Hunks[0].Lines, 3)
}

func TestParseNewAndDeletedFiles(t *testing.T) {
	t.Parallel()

	diffText := "diff --git a/added.txt b/added.txt\n" +
		"new file mode 100644\n" +
		"--- /dev/null\n" +
		"+++ b/added.txt\n" +
		"@@ -0,0 +1,2 @@\n" +
		"+hello\n" +
		"+world\n" +
		"diff --git a/gone.txt b/gone.txt\n" +
		"deleted file mode 100644\n" +
		"--- a/gone.txt\n" +
		"+++ /dev/null\n" +
		"@@ -1,1 +0,0 @@\n" +
		"-goodbye\n"

	fileDiffs, err := NewParser().Parse(diffText)
	require.NoError(t, err)
	require.Len(t, fileDiffs, 2)

	added := fileDiffs[0]
	require.True(t, added.IsNew)
	require.Equal(t, "added.txt", added.Path())
	require.Equal(t, models.LineAdded, added.Hunks[0].Lines[0].Type)
	require.Equal(t, 1, added.Hunks[0].Lines[0].NewLineNo)
	require.Equal(t, 2, added.Hunks[0].Lines[1].NewLineNo)

	gone := fileDiffs[1]
	require.True(t, gone.IsDeleted)
	require.Equal(t, "gone.txt", gone.Path())
}

func TestParseRename(t *testing.T) {
	t.Parallel()

	diffText := "diff --git a/old_name.go b/new_name.go\n" +
		"similarity index 95%\n" +
		"rename from old_name.go\n" +
		"rename to new_name.go\n" +
		"--- a/old_name.go\n" +
		"+++ b/new_name.go\n" +
		"@@ -3,1 +3,1 @@\n" +
		"-const v = 1\n" +
		"+const v = 2\n"

	fileDiffs, err := NewParser().Parse(diffText)
	require.NoError(t, err)
	require.Len(t, fileDiffs, 1)

	fd := fileDiffs[0]
	require.True(t, fd.IsRenamed)
	require.Equal(t, "old_name.go", fd.OldPath)
	require.Equal(t, "new_name.go", fd.NewPath)
	require.Equal(t, "new_name.go", fd.Path())
}

func TestParseShortHunkHeader(t *testing.T) {
	t.Parallel()

	// Single-line hunks may omit the count ("@@ -1 +1 @@").
	diffText := "diff --git a/one.txt b/one.txt\n@@ -1 +1 @@\n-a\n+b\n"

	fileDiffs, err := NewParser().Parse(diffText)
	require.NoError(t, err)
	require.Len(t, fileDiffs, 1)

	hunk := fileDiffs[0].Hunks[0]
	require.Equal(t, 1, hunk.OldLineCount)
	require.Equal(t, 1, hunk.NewLineCount)
}

func TestParseNoNewlineMarkerSkipped(t *testing.T) {
	t.Parallel()

	diffText := "diff --git a/x.txt b/x.txt\n@@ -1,1 +1,1 @@\n-old\n+new\n\\ No newline at end of file\n"

	fileDiffs, err := NewParser().Parse(diffText)
	require.NoError(t, err)
	require.Len(t, fileDiffs[0].Hunks[0].Lines, 2)
}

func TestParseContextLineNumbers(t *testing.T) {
	t.Parallel()

	diffText := "diff --git a/x.txt b/x.txt\n" +
		"@@ -10,3 +10,4 @@\n" +
		" ctx1\n" +
		"+added\n" +
		" ctx2\n" +
		" ctx3\n"

	fileDiffs, err := NewParser().Parse(diffText)
	require.NoError(t, err)

	lines := fileDiffs[0].Hunks[0].Lines
	require.Equal(t, 10, lines[0].OldLineNo)
	require.Equal(t, 10, lines[0].NewLineNo)
	require.Equal(t, 11, lines[1].NewLineNo)
	require.Equal(t, 0, lines[1].OldLineNo)
	require.Equal(t, 11, lines[2].OldLineNo)
	require.Equal(t, 12, lines[2].NewLineNo)
}

func TestParseMalformedInput(t *testing.T) {
	t.Parallel()

	_, err := NewParser().Parse("not a diff")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMalformed))
}

func TestParseEmptyInputMeansNoChanges(t *testing.T) {
	t.Parallel()

	fileDiffs, err := NewParser().Parse("")
	require.NoError(t, err)
	require.Empty(t, fileDiffs)

	fileDiffs, err = NewParser().Parse("  \n\t\n")
	require.NoError(t, err)
	require.Empty(t, fileDiffs)
}
