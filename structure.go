package fileconvert

import (
	"context"
	"strings"
	"unicode/utf8"
)

const (
	textPreamble = "*Converted from plain text*"
	// labelMaxLen is the exclusive rune limit for a line to count as a label.
	labelMaxLen = 60
)

// StructureText promotes plain text to markdown. It never fails.
//
// Each line is classified on its own: blank lines are kept as paragraph
// breaks; a short single-token line without terminal punctuation becomes a
// "##" subheading; everything else, bullets included, is copied verbatim.
func StructureText(text, title string) string {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(title)
	b.WriteString("\n\n")
	b.WriteString(textPreamble)
	b.WriteString("\n\n")

	if text == "" {
		return b.String()
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.TrimSpace(line) == "":
			b.WriteString("\n")
		case isLabelLine(line):
			b.WriteString("## ")
			b.WriteString(line)
			b.WriteString("\n")
		default:
			// Bullets ("- ", "* ") and body text are both emitted verbatim.
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func isLabelLine(line string) bool {
	if utf8.RuneCountInString(line) >= labelMaxLen {
		return false
	}
	if strings.HasSuffix(line, ".") || strings.HasSuffix(line, "!") || strings.HasSuffix(line, "?") {
		return false
	}
	return !strings.Contains(line, " ")
}

// TextMarkupPipeline turns plain text into lightly structured markdown.
type TextMarkupPipeline struct{}

// NewTextMarkupPipeline creates a new TextMarkupPipeline.
func NewTextMarkupPipeline() *TextMarkupPipeline {
	return &TextMarkupPipeline{}
}

func (p *TextMarkupPipeline) Name() string { return "text-markup" }

func (p *TextMarkupPipeline) Convert(_ context.Context, c *Conversion) (*Result, error) {
	return &Result{
		Payload:     []byte(StructureText(c.Text(), c.BaseName())),
		ContentType: contentTypeMarkdown,
	}, nil
}
