package diff

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/reviewdeck/pkg/models"
)

// ErrMalformed is returned when non-empty diff text yields no file records.
// Callers rely on this to tell "parse failure" apart from "no changes".
var ErrMalformed = errors.New("diff: malformed input, no file records found")

var hunkHeaderRegex = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@(.*)`)

// Parser parses unified diff text into structured per-file data.
type Parser struct{}

// NewParser creates a new diff parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse parses a unified diff string into an ordered slice of FileDiffs.
// Empty or whitespace-only input means "no changes" and returns an empty
// slice; non-empty input that produces no file records is ErrMalformed.
func (p *Parser) Parse(diffText string) ([]models.FileDiff, error) {
	if strings.TrimSpace(diffText) == "" {
		return []models.FileDiff{}, nil
	}

	chunks := splitByFile(diffText)
	if len(chunks) == 0 {
		return nil, ErrMalformed
	}

	result := make([]models.FileDiff, 0, len(chunks))
	for _, chunk := range chunks {
		fd, err := p.parseFileDiff(chunk)
		if err != nil {
			return nil, err
		}
		result = append(result, fd)
	}

	return result, nil
}

// splitByFile splits a unified diff into one chunk per "diff --git" header.
// Leading text before the first header (e.g. commit metadata) is ignored.
func splitByFile(diffText string) []string {
	parts := strings.Split(diffText, "diff --git ")

	chunks := make([]string, 0, len(parts))
	for i, part := range parts {
		if i == 0 {
			// Text before the first header is not a file diff.
			continue
		}
		if strings.TrimSpace(part) == "" {
			continue
		}
		chunks = append(chunks, "diff --git "+part)
	}

	return chunks
}

func (p *Parser) parseFileDiff(chunk string) (models.FileDiff, error) {
	lines := strings.Split(chunk, "\n")

	fd := models.FileDiff{}
	fd.OldPath, fd.NewPath = parseGitHeader(lines[0])
	if fd.OldPath == "" && fd.NewPath == "" {
		return fd, fmt.Errorf("diff: cannot extract file paths from %q", lines[0])
	}

	// Extended header lines between "diff --git" and the first hunk carry
	// the add/delete/rename markers and authoritative rename paths.
	for _, line := range lines[1:] {
		switch {
		case strings.HasPrefix(line, "@@"):
			// Reached hunk territory, markers are done.
		case strings.HasPrefix(line, "new file mode"):
			fd.IsNew = true
			continue
		case strings.HasPrefix(line, "deleted file mode"):
			fd.IsDeleted = true
			continue
		case strings.HasPrefix(line, "rename from "):
			fd.IsRenamed = true
			fd.OldPath = strings.TrimPrefix(line, "rename from ")
			continue
		case strings.HasPrefix(line, "rename to "):
			fd.IsRenamed = true
			fd.NewPath = strings.TrimPrefix(line, "rename to ")
			continue
		case strings.HasPrefix(line, "--- "):
			if path := stripPathPrefix(line[4:], "a/"); path != "" {
				fd.OldPath = path
			} else {
				fd.IsNew = true // "--- /dev/null"
			}
			continue
		case strings.HasPrefix(line, "+++ "):
			if path := stripPathPrefix(line[4:], "b/"); path != "" {
				fd.NewPath = path
			} else {
				fd.IsDeleted = true // "+++ /dev/null"
			}
			continue
		default:
			continue
		}
		break
	}

	hunks, err := extractHunks(lines)
	if err != nil {
		return fd, fmt.Errorf("diff: extracting hunks for %s: %w", fd.Path(), err)
	}
	fd.Hunks = hunks

	return fd, nil
}

// parseGitHeader parses "diff --git a/old/path b/new/path" into both paths.
// Paths containing spaces are not split reliably by this form; the ---/+++
// and rename lines that follow correct them when present.
func parseGitHeader(header string) (string, string) {
	parts := strings.Fields(header)
	if len(parts) < 4 {
		return "", ""
	}
	return strings.TrimPrefix(parts[2], "a/"), strings.TrimPrefix(parts[3], "b/")
}

// stripPathPrefix trims the diff path prefix and maps /dev/null to "".
func stripPathPrefix(path, prefix string) string {
	path = strings.TrimSpace(path)
	if path == "/dev/null" {
		return ""
	}
	return strings.TrimPrefix(path, prefix)
}

func extractHunks(lines []string) ([]models.DiffHunk, error) {
	var hunks []models.DiffHunk

	for i := 0; i < len(lines); i++ {
		if !strings.HasPrefix(lines[i], "@@") {
			continue
		}

		matches := hunkHeaderRegex.FindStringSubmatch(lines[i])
		if matches == nil {
			return nil, fmt.Errorf("invalid hunk header %q", lines[i])
		}

		oldStart, _ := strconv.Atoi(matches[1])
		oldCount := 1
		if matches[2] != "" {
			oldCount, _ = strconv.Atoi(matches[2])
		}
		newStart, _ := strconv.Atoi(matches[3])
		newCount := 1
		if matches[4] != "" {
			newCount, _ = strconv.Atoi(matches[4])
		}

		hunk := models.DiffHunk{
			OldStartLine: oldStart,
			OldLineCount: oldCount,
			NewStartLine: newStart,
			NewLineCount: newCount,
			HeaderText:   strings.TrimSpace(matches[5]),
		}

		oldLineNo, newLineNo := oldStart, newStart

		i++
		for ; i < len(lines); i++ {
			line := lines[i]
			if strings.HasPrefix(line, "@@") {
				i--
				break
			}

			var dLine models.DiffLine
			switch {
			case strings.HasPrefix(line, "+"):
				dLine = models.DiffLine{Content: line[1:], Type: models.LineAdded, NewLineNo: newLineNo}
				newLineNo++
			case strings.HasPrefix(line, "-"):
				dLine = models.DiffLine{Content: line[1:], Type: models.LineDeleted, OldLineNo: oldLineNo}
				oldLineNo++
			case strings.HasPrefix(line, " "):
				dLine = models.DiffLine{Content: line[1:], Type: models.LineContext, OldLineNo: oldLineNo, NewLineNo: newLineNo}
				oldLineNo++
				newLineNo++
			case line == `\ No newline at end of file`:
				continue
			case line == "":
				// Trailing newline artifact at the end of the chunk.
				if i == len(lines)-1 {
					continue
				}
				dLine = models.DiffLine{Content: "", Type: models.LineContext, OldLineNo: oldLineNo, NewLineNo: newLineNo}
				oldLineNo++
				newLineNo++
			default:
				// Anything else ends the hunk body.
				i--
			}
			if dLine.Type == "" {
				break
			}
			hunk.Lines = append(hunk.Lines, dLine)
		}
		hunks = append(hunks, hunk)
	}

	return hunks, nil
}
