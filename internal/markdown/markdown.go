// Package markdown converts model answers that arrive formatted as markdown
// into plain subtitle text.
package markdown

import (
	"html"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// ToHTML renders md with common extensions and no typographic substitutions.
func ToHTML(md []byte) string {
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.FlagsNone})
	p := parser.NewWithExtensions(parser.CommonExtensions)
	return string(markdown.Render(p.Parse(md), renderer))
}

// ToPlainText renders md and drops every tag, unescaping entities and
// collapsing the paragraph breaks the renderer adds.
func ToPlainText(md []byte) string {
	text := html.UnescapeString(StripHTMLTags(ToHTML(md)))
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// StripHTMLTags removes everything between '<' and '>'.
func StripHTMLTags(htmlContent string) string {
	var sb strings.Builder
	inTag := false
	for _, ch := range htmlContent {
		switch {
		case ch == '<':
			inTag = true
		case ch == '>':
			inTag = false
		case !inTag:
			sb.WriteRune(ch)
		}
	}
	return sb.String()
}
