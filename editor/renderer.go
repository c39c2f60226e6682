package editor

import (
	"collab-docs/core"
	"regexp"
	"strings"
)

// Renderer turns a document into an HTML fragment.
type Renderer interface {
	Render(doc *core.Document) string
}

type RendererFunc func(doc *core.Document) string

func (f RendererFunc) Render(doc *core.Document) string { return f(doc) }

// RenderDecorator wraps a renderer with extra behaviour.
type RenderDecorator func(next Renderer) Renderer

// Chain wraps base with decorators. The first decorator is applied first and
// ends up innermost.
func Chain(base Renderer, decorators ...RenderDecorator) Renderer {
	r := base
	for _, d := range decorators {
		r = d(r)
	}
	return r
}

var (
	rHeading = regexp.MustCompile(`^(#{1,3})\s+`)
	rBold    = regexp.MustCompile(`\*\*(.*?)\*\*`)
	rCode    = regexp.MustCompile("`([^`]+)`")
	rCodeTag = regexp.MustCompile(`(?s)<code>(.*?)</code>`)
)

// MarkdownRenderer renders each line of the document content on its own:
// headings become h1 to h3 and every other line a paragraph.
type MarkdownRenderer struct{}

func (MarkdownRenderer) Render(doc *core.Document) string {
	if doc == nil {
		return ""
	}
	var b strings.Builder
	for _, line := range strings.Split(strings.ReplaceAll(doc.Content, "\r\n", "\n"), "\n") {
		if m := rHeading.FindStringSubmatch(line); m != nil {
			tag := "h" + string(rune('0'+len(m[1])))
			b.WriteString("<" + tag + ">" + htmlEscaper.Replace(line[len(m[0]):]) + "</" + tag + ">")
			continue
		}
		p := htmlEscaper.Replace(line)
		p = rBold.ReplaceAllString(p, "<strong>${1}</strong>")
		p = rCode.ReplaceAllString(p, "<code>${1}</code>")
		b.WriteString("<p>" + p + "</p>")
	}
	return b.String()
}

// SyntaxHighlight marks rendered inline code for highlighting.
func SyntaxHighlight(next Renderer) Renderer {
	return RendererFunc(func(doc *core.Document) string {
		return rCodeTag.ReplaceAllString(next.Render(doc), `<code class="hl">${1}</code>`)
	})
}
