// Package fingerprint derives stable identities for diff content: a cache key
// for a whole (diff, comments) request and one fingerprint per file. The
// hashes only need to be collision-resistant within a session, so the fast
// non-cryptographic xxhash is used rather than a crypto digest.
package fingerprint

import (
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/reviewdeck/pkg/models"
)

// Key derives a cache key covering everything the computation depends on: the
// raw diff text plus the identity and state of every comment in the batch.
// Byte-identical inputs always produce the same key.
func Key(diffText string, comments []models.Comment) string {
	d := xxhash.New()
	_, _ = d.WriteString(diffText)
	for _, c := range comments {
		writeComment(d, c)
	}
	return "rd1:" + strconv.FormatUint(d.Sum64(), 16)
}

// File fingerprints a single parsed file diff. The fingerprint is a pure
// function of this file's own paths, markers and hunk content; edits to other
// files in the same diff never change it.
func File(fd models.FileDiff) string {
	d := xxhash.New()
	_, _ = d.WriteString(fd.OldPath)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(fd.NewPath)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(flags(fd))
	for _, h := range fd.Hunks {
		_, _ = d.WriteString("\x00@")
		_, _ = d.WriteString(strconv.Itoa(h.OldStartLine))
		_, _ = d.WriteString(",")
		_, _ = d.WriteString(strconv.Itoa(h.OldLineCount))
		_, _ = d.WriteString(" ")
		_, _ = d.WriteString(strconv.Itoa(h.NewStartLine))
		_, _ = d.WriteString(",")
		_, _ = d.WriteString(strconv.Itoa(h.NewLineCount))
		for _, l := range h.Lines {
			_, _ = d.WriteString("\x00")
			_, _ = d.WriteString(string(l.Type[0]))
			_, _ = d.WriteString(l.Content)
		}
	}
	return strconv.FormatUint(d.Sum64(), 16)
}

func writeComment(d *xxhash.Digest, c models.Comment) {
	_, _ = d.WriteString("\x00c:")
	_, _ = d.WriteString(c.ID)
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(c.ParentID)
	if c.Resolved {
		_, _ = d.WriteString("|r")
	}
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(c.Body)
	if c.Inline != nil {
		_, _ = d.WriteString("|")
		_, _ = d.WriteString(c.Inline.Path)
		_, _ = d.WriteString(":")
		_, _ = d.WriteString(strconv.Itoa(c.Inline.Line))
		_, _ = d.WriteString(":")
		_, _ = d.WriteString(string(c.Inline.Side))
	}
}

func flags(fd models.FileDiff) string {
	out := ""
	if fd.IsNew {
		out += "N"
	}
	if fd.IsDeleted {
		out += "D"
	}
	if fd.IsRenamed {
		out += "R"
	}
	return out
}
