package patch

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffLine is one line of a line-oriented diff.
// LineNum1/LineNum2 are 1-based and 0 when the line is absent on that side.
type DiffLine struct {
	LineNum1 int
	LineNum2 int
	Type     rune // ' ' unchanged, '+' added, '-' deleted
	Content  string
}

// LineDiff computes a line-by-line diff of before and after.
func LineDiff(before, after string) []DiffLine {
	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var lines []DiffLine
	n1, n2 := 0, 0
	for _, d := range diffs {
		for _, content := range splitLines(d.Text) {
			line := DiffLine{Content: content}
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				n1++
				n2++
				line.Type, line.LineNum1, line.LineNum2 = ' ', n1, n2
			case diffmatchpatch.DiffDelete:
				n1++
				line.Type, line.LineNum1 = '-', n1
			case diffmatchpatch.DiffInsert:
				n2++
				line.Type, line.LineNum2 = '+', n2
			}
			lines = append(lines, line)
		}
	}
	return lines
}

// splitLines splits text on "\n", dropping the empty piece after a
// trailing newline.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

// DiffStats counts added and deleted lines.
func DiffStats(lines []DiffLine) (added, deleted int) {
	for _, l := range lines {
		switch l.Type {
		case '+':
			added++
		case '-':
			deleted++
		}
	}
	return added, deleted
}
