package textedit

import (
	"fmt"
	"strings"

	"ged-go/internal/errclass"
)

// Operation is a single line-oriented mutation of file content.
// Implementations are pure: Apply never touches the filesystem and a failed
// Apply leaves the input untouched by construction.
//
// Line numbers are 1-based and ranges are inclusive.
type Operation interface {
	// Label returns a short human-readable description of the operation,
	// used in change records and pending-edit listings.
	Label() string

	// Apply transforms content and reports how many lines were affected.
	// Range violations are reported as errclass.ErrRange.
	Apply(content string) (modified string, linesAffected int, err error)
}

// ReplaceLines removes lines [Start, End] and splices in Text, which may
// itself span multiple lines.
type ReplaceLines struct {
	Start int
	End   int
	Text  string
}

func (op ReplaceLines) Label() string {
	return fmt.Sprintf("replace lines %d-%d", op.Start, op.End)
}

func (op ReplaceLines) Apply(content string) (string, int, error) {
	doc := parse(content)
	if err := checkRange(op.Start, op.End, doc.total()); err != nil {
		return "", 0, err
	}
	block := splitBlock(op.Text)
	affected := op.End - op.Start + 1

	lines := make([]string, 0, doc.total()-affected+len(block))
	lines = append(lines, doc.lines[:op.Start-1]...)
	lines = append(lines, block...)
	lines = append(lines, doc.lines[op.End:]...)
	doc.lines = lines
	return doc.render(), affected, nil
}

// InsertAfterLine inserts Text after the given 1-based line.
// Line 0 inserts before the first line. When MaintainIndentation is set,
// the first inserted line inherits the indentation of the anchor line and
// subsequent inserted lines keep their indentation relative to the first.
type InsertAfterLine struct {
	Line                int
	Text                string
	MaintainIndentation bool
}

func (op InsertAfterLine) Label() string {
	return fmt.Sprintf("insert after line %d", op.Line)
}

func (op InsertAfterLine) Apply(content string) (string, int, error) {
	doc := parse(content)
	if op.Line < 0 || op.Line > doc.total() {
		return "", 0, errclass.ErrRange.WithMessagef(
			"insert anchor %d outside [0, %d]", op.Line, doc.total())
	}
	block := splitBlock(op.Text)
	if op.MaintainIndentation {
		block = reindent(block, anchorIndent(doc, op.Line))
	}

	lines := make([]string, 0, doc.total()+len(block))
	lines = append(lines, doc.lines[:op.Line]...)
	lines = append(lines, block...)
	lines = append(lines, doc.lines[op.Line:]...)
	doc.lines = lines
	return doc.render(), len(block), nil
}

// DeleteLines removes the inclusive range [Start, End].
type DeleteLines struct {
	Start int
	End   int
}

func (op DeleteLines) Label() string {
	return fmt.Sprintf("delete lines %d-%d", op.Start, op.End)
}

func (op DeleteLines) Apply(content string) (string, int, error) {
	doc := parse(content)
	if err := checkRange(op.Start, op.End, doc.total()); err != nil {
		return "", 0, err
	}
	affected := op.End - op.Start + 1
	lines := make([]string, 0, doc.total()-affected)
	lines = append(lines, doc.lines[:op.Start-1]...)
	lines = append(lines, doc.lines[op.End:]...)
	doc.lines = lines
	if len(doc.lines) == 0 {
		doc.trailingNewline = false
	}
	return doc.render(), affected, nil
}

// PatternReplace substitutes Pattern with Replacement on every line.
// The pattern is a literal substring unless UseRegex is set. A pattern with
// no matches is a valid outcome, not an error: Apply succeeds with zero
// lines affected.
type PatternReplace struct {
	Pattern       string
	Replacement   string
	UseRegex      bool
	CaseSensitive bool
}

func (op PatternReplace) Label() string {
	return fmt.Sprintf("replace pattern %q", op.Pattern)
}

func (op PatternReplace) Apply(content string) (string, int, error) {
	sub, err := newSubstituter(op.Pattern, op.Replacement, op.UseRegex, op.CaseSensitive)
	if err != nil {
		return "", 0, err
	}

	doc := parse(content)
	affected := 0
	for i, line := range doc.lines {
		replaced := sub(line)
		if replaced != line {
			doc.lines[i] = replaced
			affected++
		}
	}
	return doc.render(), affected, nil
}

func checkRange(start, end, total int) error {
	if start < 1 || end < 1 || start > total || end > total {
		return errclass.ErrRange.WithMessagef(
			"lines %d-%d outside [1, %d]", start, end, total)
	}
	if start > end {
		return errclass.ErrRange.WithMessagef("start %d > end %d", start, end)
	}
	return nil
}

// anchorIndent returns the indentation to inherit when inserting after the
// given line. For line 0 the anchor is the first non-blank line.
func anchorIndent(doc *document, afterLine int) string {
	if afterLine > 0 {
		return leadingWhitespace(doc.lines[afterLine-1])
	}
	for _, line := range doc.lines {
		if strings.TrimSpace(line) != "" {
			return leadingWhitespace(line)
		}
	}
	return ""
}

// reindent rebases a block of lines onto the anchor indentation. The first
// line's own indentation becomes the base; lines sharing that base keep
// their relative depth, lines that do not are left-trimmed to the anchor.
func reindent(block []string, indent string) []string {
	if len(block) == 0 {
		return block
	}
	base := leadingWhitespace(block[0])
	out := make([]string, len(block))
	for i, line := range block {
		if strings.TrimSpace(line) == "" {
			out[i] = line
			continue
		}
		if strings.HasPrefix(line, base) {
			out[i] = indent + line[len(base):]
		} else {
			out[i] = indent + strings.TrimLeft(line, " \t")
		}
	}
	return out
}

func leadingWhitespace(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}
