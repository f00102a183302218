package models

// DiffSide identifies which half of a unified diff a line belongs to.
type DiffSide string

const (
	SideAddition DiffSide = "addition"
	SideDeletion DiffSide = "deletion"
)

// InlineLocation anchors a comment to a specific diff line.
type InlineLocation struct {
	Path string   `json:"path" msgpack:"path"`
	Line int      `json:"line" msgpack:"line"`
	Side DiffSide `json:"side" msgpack:"side"`
}

// Comment is an immutable snapshot of a single host comment. Comments arrive
// as a flat list; ParentID links replies to the comment they answer.
type Comment struct {
	ID       string          `json:"id" msgpack:"id"`
	Author   string          `json:"author,omitempty" msgpack:"author"`
	Body     string          `json:"body,omitempty" msgpack:"body"`
	ParentID string          `json:"parent_id,omitempty" msgpack:"parentId"`
	Resolved bool            `json:"resolved,omitempty" msgpack:"resolved"`
	Inline   *InlineLocation `json:"inline,omitempty" msgpack:"inline"`
}

// LineType classifies a single line within a diff hunk.
type LineType string

const (
	LineAdded   LineType = "added"
	LineDeleted LineType = "deleted"
	LineContext LineType = "context"
)

// DiffLine is one line of a hunk with its position on both sides of the diff.
// OldLineNo is 0 for added lines, NewLineNo is 0 for deleted lines.
type DiffLine struct {
	Content   string   `json:"content" msgpack:"content"`
	Type      LineType `json:"type" msgpack:"type"`
	OldLineNo int      `json:"old_line_no" msgpack:"oldLineNo"`
	NewLineNo int      `json:"new_line_no" msgpack:"newLineNo"`
}

// DiffHunk represents a single chunk of changes in a file diff.
type DiffHunk struct {
	OldStartLine int        `json:"old_start_line" msgpack:"oldStartLine"`
	OldLineCount int        `json:"old_line_count" msgpack:"oldLineCount"`
	NewStartLine int        `json:"new_start_line" msgpack:"newStartLine"`
	NewLineCount int        `json:"new_line_count" msgpack:"newLineCount"`
	HeaderText   string     `json:"header_text,omitempty" msgpack:"headerText"`
	Lines        []DiffLine `json:"lines" msgpack:"lines"`
}

// FileDiff holds the parsed diff of a single file.
type FileDiff struct {
	OldPath   string     `json:"old_path" msgpack:"oldPath"`
	NewPath   string     `json:"new_path" msgpack:"newPath"`
	IsNew     bool       `json:"is_new,omitempty" msgpack:"isNew"`
	IsDeleted bool       `json:"is_deleted,omitempty" msgpack:"isDeleted"`
	IsRenamed bool       `json:"is_renamed,omitempty" msgpack:"isRenamed"`
	Hunks     []DiffHunk `json:"hunks" msgpack:"hunks"`
}

// Path returns the path rendering should display for this file: the new path,
// falling back to the old path for deletions.
func (f *FileDiff) Path() string {
	if f.NewPath != "" && f.NewPath != "/dev/null" {
		return f.NewPath
	}
	return f.OldPath
}

// AnchorType says whether a thread is pinned to a diff line or floats as a
// general pull-request discussion.
type AnchorType string

const (
	AnchorGeneral AnchorType = "general"
	AnchorLine    AnchorType = "line"
)

// CommentThread is a root comment plus its replies in arrival order,
// associated with at most one diff location.
type CommentThread struct {
	Root       Comment    `json:"root" msgpack:"root"`
	Replies    []Comment  `json:"replies,omitempty" msgpack:"replies"`
	AnchorType AnchorType `json:"anchor_type" msgpack:"anchorType"`
	Path       string     `json:"path,omitempty" msgpack:"path"`
	Line       int        `json:"line,omitempty" msgpack:"line"`
	Side       DiffSide   `json:"side,omitempty" msgpack:"side"`
}

// Resolved reports whether the whole thread is resolved, which on every host
// we support is carried on the root comment.
func (t *CommentThread) Resolved() bool {
	return t.Root.Resolved
}

// DerivedData is the unit of computation the review UI consumes: parsed file
// diffs, one fingerprint per file for render invalidation, and the comment
// threads. Immutable once returned; callers treat it read-only.
type DerivedData struct {
	FileDiffs    []FileDiff        `json:"file_diffs"`
	Fingerprints map[string]string `json:"fingerprints"`
	Threads      []CommentThread   `json:"threads"`
}
