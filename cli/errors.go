package cli

import (
	"errors"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ledgerpipe/ledgerpipe/loader"
)

var (
	errCaretStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"})
	errContextStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#808080", Dark: "#808080"})
)

// ErrorRenderer renders errors with terminal styling and source context.
type ErrorRenderer struct {
	source []byte
}

// NewErrorRenderer creates a renderer with source content for context.
func NewErrorRenderer(source []byte) *ErrorRenderer {
	return &ErrorRenderer{source: source}
}

// Render formats an error with styling. Journal parse errors additionally
// show the offending line with surrounding context.
func (r *ErrorRenderer) Render(err error) string {
	var perr *loader.ParseError
	if errors.As(err, &perr) && r.source != nil {
		return r.renderWithSourceContext(perr)
	}
	return errorStyle.Render(err.Error())
}

func (r *ErrorRenderer) renderWithSourceContext(perr *loader.ParseError) string {
	var buf strings.Builder

	buf.WriteString(errorStyle.Render(perr.Error()))
	buf.WriteString("\n\n")

	sourceLines := strings.Split(string(r.source), "\n")

	startLine := perr.Line - 3
	if startLine < 0 {
		startLine = 0
	}
	endLine := perr.Line
	if endLine >= len(sourceLines) {
		endLine = len(sourceLines) - 1
	}

	for i := startLine; i <= endLine; i++ {
		buf.WriteString("   ")
		buf.WriteString(errContextStyle.Render(sourceLines[i]))
		buf.WriteByte('\n')

		if i == perr.Line-1 {
			buf.WriteString("   ")
			buf.WriteString(errCaretStyle.Render("^"))
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}
