package editor

import (
	"collab-docs/core"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeline_BaseOnly(t *testing.T) {
	p := New()

	r := p.Render("hello")

	assert.Equal(t, "hello", r.Raw)
	assert.Equal(t, "hello", r.Formatted)
	assert.Equal(t, []string{BaseLabel}, p.Features())
}

func TestPipeline_FeaturesInWrapOrder(t *testing.T) {
	p := New(WordCount{}).With(Markdown{}).With(TextFormat{})

	assert.Equal(t, []string{BaseLabel, LabelWordCount, LabelMarkdown, LabelTextFormat}, p.Features())
}

func TestPipeline_WithDoesNotMutateReceiver(t *testing.T) {
	base := New(WordCount{})
	_ = base.With(Markdown{})

	assert.Equal(t, []string{BaseLabel, LabelWordCount}, base.Features())
}

func TestWordCount(t *testing.T) {
	p := New(WordCount{})

	cases := map[string]int{
		"":                   0,
		"   \n\t ":           0,
		"one":                1,
		"  one two\nthree  ": 3,
	}
	for in, want := range cases {
		assert.Equal(t, want, p.Render(in).Metadata[MetaWordCount], "input %q", in)
	}
}

func TestMarkdown(t *testing.T) {
	r := New(Markdown{}).Render("# Title\n**bold** `code`")

	assert.Equal(t,
		`<h1 class="md-header">Title</h1>`+"\n"+
			`<p class="md-paragraph"><strong class="md-bold">bold</strong> <code class="md-inline-code">code</code></p>`,
		r.Formatted)
}

func TestMarkdown_BlocksAndEscaping(t *testing.T) {
	r := New(Markdown{}).Render("## Sub\r\n### Small\r\n\r\n---\r\na < b & c")

	assert.Equal(t,
		`<h2 class="md-header">Sub</h2>`+"\n"+
			`<h3 class="md-header">Small</h3>`+"\n"+
			"\n"+
			`<hr class="md-hr">`+"\n"+
			`<p class="md-paragraph">a &lt; b &amp; c</p>`,
		r.Formatted)
}

func TestMarkdown_StartsFromRawContent(t *testing.T) {
	upper := layerFunc(func(r Rendered) Rendered {
		r.Formatted = strings.ToUpper(r.Formatted)
		return r
	})

	r := New(upper, Markdown{}).Render("plain")

	assert.Equal(t, `<p class="md-paragraph">plain</p>`, r.Formatted)
}

func TestTextFormat(t *testing.T) {
	long := strings.Repeat("x", 51)
	exact := strings.Repeat("y", 50)
	in := strings.Join([]string{"# " + long, long, exact, "<div>" + long + "</div>"}, "\n")

	r := New(TextFormat{}).Render(in)

	assert.Equal(t, strings.Join([]string{"# " + long, "<p>" + long + "</p>", exact, "<div>" + long + "</div>"}, "\n"), r.Formatted)
}

func TestTextFormat_SkipsMarkdownOutput(t *testing.T) {
	long := strings.Repeat("word ", 20)

	withMarkdown := New(Markdown{}, TextFormat{}).Render(long)
	markdownOnly := New(Markdown{}).Render(long)

	assert.Equal(t, markdownOnly.Formatted, withMarkdown.Formatted)
}

type layerFunc func(Rendered) Rendered

func (f layerFunc) Label() string             { return "func" }
func (f layerFunc) Apply(r Rendered) Rendered { return f(r) }

type saveRecorder struct {
	mu    sync.Mutex
	saved []string
	err   error
}

func (s *saveRecorder) save(content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, content)
	return s.err
}

func (s *saveRecorder) get() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.saved...)
}

func TestAutoSave_Debounces(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &saveRecorder{}
	as := NewAutoSave(clock, 2*time.Second, rec.save)
	p := New(as)

	p.Render("a")
	clock.Advance(time.Second)
	p.Render("ab")
	clock.Advance(time.Second)
	p.Render("abc")
	clock.Advance(1999 * time.Millisecond)
	assert.Empty(t, rec.get())

	clock.Advance(time.Millisecond)
	assert.Eventually(t, func() bool { return len(rec.get()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"abc"}, rec.get())

	clock.Advance(time.Minute)
	assert.Never(t, func() bool { return len(rec.get()) > 1 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestAutoSave_UnchangedContentDoesNotRearm(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &saveRecorder{}
	as := NewAutoSave(clock, 2*time.Second, rec.save)
	as.Prime("loaded")

	as.Apply(Rendered{Raw: "loaded"})
	clock.Advance(time.Minute)

	assert.Never(t, func() bool { return len(rec.get()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestAutoSave_FlushAndStop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &saveRecorder{err: errors.New("offline")}
	as := NewAutoSave(clock, 2*time.Second, rec.save)

	as.Apply(Rendered{Raw: "draft"})
	as.Flush()
	require.Equal(t, []string{"draft"}, rec.get())
	as.Flush()
	assert.Len(t, rec.get(), 1, "nothing pending")

	as.Apply(Rendered{Raw: "draft 2"})
	as.Stop()
	clock.Advance(time.Minute)
	assert.Never(t, func() bool { return len(rec.get()) > 1 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestMarkdownRenderer(t *testing.T) {
	doc := &core.Document{Content: "# Title\n## Sub\nuse `x<y` and **bold**"}

	html := MarkdownRenderer{}.Render(doc)

	assert.Equal(t, "<h1>Title</h1><h2>Sub</h2><p>use <code>x&lt;y</code> and <strong>bold</strong></p>", html)
	assert.Equal(t, "", MarkdownRenderer{}.Render(nil))
}

func TestChain_SyntaxHighlight(t *testing.T) {
	r := Chain(MarkdownRenderer{}, SyntaxHighlight)

	html := r.Render(&core.Document{Content: "run `go test`"})

	assert.Equal(t, `<p>run <code class="hl">go test</code></p>`, html)
}

func TestChain_AppliesDecoratorsInOrder(t *testing.T) {
	wrap := func(tag string) RenderDecorator {
		return func(next Renderer) Renderer {
			return RendererFunc(func(doc *core.Document) string {
				return "<" + tag + ">" + next.Render(doc) + "</" + tag + ">"
			})
		}
	}

	html := Chain(RendererFunc(func(*core.Document) string { return "x" }), wrap("a"), wrap("b")).Render(&core.Document{})

	assert.Equal(t, "<b><a>x</a></b>", html)
}
