package github

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewdeck/pkg/models"
)

func TestParsePullRequestURL(t *testing.T) {
	t.Parallel()

	owner, repo, number, err := ParsePullRequestURL("https://github.com/octocat/hello-world/pull/42")
	require.NoError(t, err)
	assert.Equal(t, "octocat", owner)
	assert.Equal(t, "hello-world", repo)
	assert.Equal(t, 42, number)
}

func TestParsePullRequestURLTrailingSegments(t *testing.T) {
	t.Parallel()

	owner, repo, number, err := ParsePullRequestURL("https://github.com/octocat/hello-world/pull/42/files")
	require.NoError(t, err)
	assert.Equal(t, "octocat", owner)
	assert.Equal(t, "hello-world", repo)
	assert.Equal(t, 42, number)
}

func TestParsePullRequestURLInvalid(t *testing.T) {
	t.Parallel()

	cases := []string{
		"https://github.com/octocat/hello-world",
		"https://github.com/octocat/hello-world/issues/42",
		"https://github.com/octocat/hello-world/pull/abc",
	}
	for _, u := range cases {
		_, _, _, err := ParsePullRequestURL(u)
		assert.Error(t, err, u)
	}
}

func TestConvertReviewComment(t *testing.T) {
	t.Parallel()

	line := 14
	gc := githubComment{
		ID:   101,
		Body: "consider a guard clause here",
		Path: "internal/diff/parser.go",
		Line: &line,
		Side: "RIGHT",
	}
	gc.User.Login = "octocat"

	c := convertComment(gc)
	assert.Equal(t, "101", c.ID)
	assert.Equal(t, "octocat", c.Author)
	assert.Empty(t, c.ParentID)
	require.NotNil(t, c.Inline)
	assert.Equal(t, "internal/diff/parser.go", c.Inline.Path)
	assert.Equal(t, 14, c.Inline.Line)
	assert.Equal(t, models.SideAddition, c.Inline.Side)
}

func TestConvertReplyOnDeletedSide(t *testing.T) {
	t.Parallel()

	original := 7
	gc := githubComment{
		ID:           102,
		Body:         "agreed",
		Path:         "main.go",
		OriginalLine: &original,
		Side:         "LEFT",
		InReplyToID:  101,
	}

	c := convertComment(gc)
	assert.Equal(t, "101", c.ParentID)
	require.NotNil(t, c.Inline)
	assert.Equal(t, 7, c.Inline.Line)
	assert.Equal(t, models.SideDeletion, c.Inline.Side)
}

func TestConvertIssueComment(t *testing.T) {
	t.Parallel()

	gc := githubComment{ID: 103, Body: "LGTM overall"}
	gc.User.Login = "reviewer"

	c := convertComment(gc)
	assert.Equal(t, "103", c.ID)
	assert.Nil(t, c.Inline)
}
