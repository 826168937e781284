// Package diff turns raw unified-diff text into per-file change records.
//
// The parser is intentionally lossy: it never fails, it does not interpret
// hunk header ranges, and malformed input degrades to partial or empty
// output. Hunk text is bounded by the "@@" marker lines themselves.
package diff

import "strings"

// FileChange describes the changes to a single file within a diff.
type FileChange struct {
	Path         string
	AddedLines   int
	RemovedLines int
	Hunks        []string
}

// TotalLines returns the combined added and removed line count.
func (f *FileChange) TotalLines() int {
	return f.AddedLines + f.RemovedLines
}

const (
	fileHeaderPrefix = "diff --git "
	hunkPrefix       = "@@"
	oldFilePrefix    = "--- "
	newFilePrefix    = "+++ "

	// newSideSeparator marks the "new" path in a file header line.
	newSideSeparator = " b/"

	// UnknownPath is used when a file header carries no recognizable path.
	UnknownPath = "unknown"
)

// Parse scans raw diff text and returns one FileChange per "diff --git"
// header, in first-seen order. Duplicate paths yield duplicate records.
// Empty or unrecognizable input returns an empty slice.
func Parse(raw string) []FileChange {
	var files []FileChange
	var current *FileChange
	var hunk strings.Builder

	flushHunk := func() {
		if current != nil && hunk.Len() > 0 {
			current.Hunks = append(current.Hunks, hunk.String())
		}
		hunk.Reset()
	}

	lines := strings.Split(raw, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		// A trailing newline is a terminator, not an extra blank line.
		lines = lines[:n-1]
	}

	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		// Old/new file markers carry no information the scan uses.
		if strings.HasPrefix(line, oldFilePrefix) || strings.HasPrefix(line, newFilePrefix) {
			continue
		}

		if strings.HasPrefix(line, fileHeaderPrefix) {
			flushHunk()
			if current != nil {
				files = append(files, *current)
			}
			current = &FileChange{Path: headerPath(line)}
			continue
		}

		if current == nil {
			continue
		}

		switch {
		case strings.HasPrefix(line, hunkPrefix):
			flushHunk()
		case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
			current.AddedLines++
		case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
			current.RemovedLines++
		}

		// Every line of a file section, markers and context included,
		// accumulates verbatim into the open hunk.
		hunk.WriteString(line)
		hunk.WriteByte('\n')
	}

	flushHunk()
	if current != nil {
		files = append(files, *current)
	}

	return files
}

// headerPath extracts the new-side path from a "diff --git a/x b/x" line.
func headerPath(line string) string {
	parts := strings.Split(line, newSideSeparator)
	if len(parts) < 2 {
		return UnknownPath
	}
	return parts[1]
}
