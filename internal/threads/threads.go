// Package threads groups a flat list of host comments into conversation
// threads anchored to diff locations.
package threads

import (
	"github.com/reviewdeck/pkg/models"
)

// Group builds comment threads from a flat comment batch.
//
// A comment is a thread root when it has no parent or when its parent is
// absent from the batch (orphaned replies are promoted rather than dropped).
// Replies attach to the ultimate root of their reply chain in arrival order,
// so every input comment lands in exactly one thread. Threads are emitted in
// the order their first member arrives.
//
// The thread anchor comes from the root's inline location. When filePaths is
// non-nil, threads whose path is not among the parsed diff's files are
// downgraded to general anchors so the result never references a file the
// diff does not contain.
func Group(comments []models.Comment, filePaths map[string]bool) []models.CommentThread {
	byID := make(map[string]models.Comment, len(comments))
	arrival := make(map[string]int, len(comments))
	for i, c := range comments {
		byID[c.ID] = c
		arrival[c.ID] = i
	}

	rootOf := make(map[string]string, len(comments))
	for _, c := range comments {
		rootOf[c.ID] = resolveRoot(c, byID, arrival)
	}

	threadIndex := make(map[string]int)
	var result []models.CommentThread

	for _, c := range comments {
		rootID := rootOf[c.ID]

		idx, ok := threadIndex[rootID]
		if !ok {
			root := c
			if rootID != c.ID {
				// Reply arrived before we materialized its root's thread.
				root = byID[rootID]
			}
			result = append(result, newThread(root, filePaths))
			idx = len(result) - 1
			threadIndex[rootID] = idx
		}

		if c.ID != rootID {
			result[idx].Replies = append(result[idx].Replies, c)
		}
	}

	return result
}

// resolveRoot walks the reply chain up to the thread root. A missing parent
// anywhere in the chain makes the comment at that point the root. Cyclic
// parent links never occur in real host data, but the walk must not loop
// forever, and every member of a cycle has to agree on one root or comments
// would land in two threads at once; the earliest-arriving cycle member wins.
func resolveRoot(c models.Comment, byID map[string]models.Comment, arrival map[string]int) string {
	path := []string{c.ID}
	pos := map[string]int{c.ID: 0}
	cur := c
	for cur.ParentID != "" {
		parent, ok := byID[cur.ParentID]
		if !ok {
			return cur.ID
		}
		if at, cycled := pos[parent.ID]; cycled {
			root := path[at]
			for _, id := range path[at:] {
				if arrival[id] < arrival[root] {
					root = id
				}
			}
			return root
		}
		pos[parent.ID] = len(path)
		path = append(path, parent.ID)
		cur = parent
	}
	return cur.ID
}

func newThread(root models.Comment, filePaths map[string]bool) models.CommentThread {
	t := models.CommentThread{
		Root:       root,
		AnchorType: models.AnchorGeneral,
	}
	if root.Inline == nil {
		return t
	}
	if filePaths != nil && !filePaths[root.Inline.Path] {
		return t
	}
	t.AnchorType = models.AnchorLine
	t.Path = root.Inline.Path
	t.Line = root.Inline.Line
	t.Side = root.Inline.Side
	return t
}
