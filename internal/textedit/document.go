package textedit

import "strings"

// document is a parsed line view of file content.
//
// Content is always handled as a whole file, never a partial buffer, because
// line numbering is only meaningful against the full line sequence. CRLF
// line endings are normalized to LF on parse; render joins with LF and
// preserves whether the original content ended with a newline.
type document struct {
	lines           []string
	trailingNewline bool
}

func parse(content string) *document {
	content = Normalize(content)
	if content == "" {
		return &document{}
	}
	trailing := strings.HasSuffix(content, "\n")
	if trailing {
		content = strings.TrimSuffix(content, "\n")
	}
	return &document{
		lines:           strings.Split(content, "\n"),
		trailingNewline: trailing,
	}
}

func (d *document) render() string {
	if len(d.lines) == 0 {
		return ""
	}
	out := strings.Join(d.lines, "\n")
	if d.trailingNewline {
		out += "\n"
	}
	return out
}

// total returns the number of lines in the document.
func (d *document) total() int {
	return len(d.lines)
}

// Normalize converts CRLF (and stray CR) line endings to LF.
func Normalize(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.ReplaceAll(content, "\r", "\n")
}

// splitBlock splits an insertion/replacement block into lines.
// A trailing newline on the block does not produce a final empty line.
func splitBlock(text string) []string {
	text = Normalize(text)
	if text == "" {
		return []string{""}
	}
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}
