package textedit

import (
	"fmt"
	"strings"
)

// RenderPreview formats content as the entire file with 1-based line
// numbers. Previews always show the complete post-edit file rather than a
// diff hunk: a caller reviewing a staged edit cannot re-read the file
// mid-review, so a partial diff would be ambiguous.
func RenderPreview(content string) string {
	doc := parse(content)
	if doc.total() == 0 {
		return ""
	}
	width := len(fmt.Sprintf("%d", doc.total()))

	var b strings.Builder
	for i, line := range doc.lines {
		fmt.Fprintf(&b, "%*d | %s\n", width, i+1, line)
	}
	return b.String()
}

// CountLines returns the number of lines in content after normalization.
func CountLines(content string) int {
	return parse(content).total()
}
