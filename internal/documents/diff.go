package documents

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffSummary describes line-level changes between two versions of a document.
type DiffSummary struct {
	Insertions int
	Deletions  int
	// Lines holds the changed lines prefixed with "+ " or "- ".
	Lines []string
}

func (d DiffSummary) Changed() bool {
	return d.Insertions > 0 || d.Deletions > 0
}

func (d DiffSummary) String() string {
	return strings.Join(d.Lines, "\n")
}

// Diff compares before and after line by line.
func Diff(before, after string) DiffSummary {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var summary DiffSummary
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		default:
			continue
		}

		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			summary.Lines = append(summary.Lines, prefix+strings.TrimSuffix(line, "\n"))
			if d.Type == diffmatchpatch.DiffInsert {
				summary.Insertions++
			} else {
				summary.Deletions++
			}
		}
	}
	return summary
}
