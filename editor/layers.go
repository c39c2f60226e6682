package editor

import (
	"collab-docs/metrics"
	"maps"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

const (
	LabelWordCount  = "Word count"
	LabelMarkdown   = "Markdown highlighting"
	LabelAutoSave   = "Autosave"
	LabelTextFormat = "Text formatting"

	// MetaWordCount is the metadata key set by WordCount.
	MetaWordCount = "wordCount"
)

func withMeta(r Rendered, key string, value any) Rendered {
	meta := make(map[string]any, len(r.Metadata)+1)
	maps.Copy(meta, r.Metadata)
	meta[key] = value
	r.Metadata = meta
	return r
}

// WordCount stores the number of whitespace separated words of the raw content.
type WordCount struct{}

func (WordCount) Label() string { return LabelWordCount }

func (WordCount) Apply(r Rendered) Rendered {
	return withMeta(r, MetaWordCount, len(strings.Fields(r.Raw)))
}

var (
	mdH3     = regexp.MustCompile(`(?m)^### (.*)$`)
	mdH2     = regexp.MustCompile(`(?m)^## (.*)$`)
	mdH1     = regexp.MustCompile(`(?m)^# (.*)$`)
	mdRule   = regexp.MustCompile(`(?m)^---$`)
	mdBold   = regexp.MustCompile(`\*\*(.*?)\*\*`)
	mdInline = regexp.MustCompile("`(.*?)`")

	htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
)

// Markdown rebuilds the formatted text from the raw content as HTML.
type Markdown struct{}

func (Markdown) Label() string { return LabelMarkdown }

func (Markdown) Apply(r Rendered) Rendered {
	out := strings.ReplaceAll(r.Raw, "\r\n", "\n")
	out = htmlEscaper.Replace(out)

	out = mdH3.ReplaceAllString(out, `<h3 class="md-header">${1}</h3>`)
	out = mdH2.ReplaceAllString(out, `<h2 class="md-header">${1}</h2>`)
	out = mdH1.ReplaceAllString(out, `<h1 class="md-header">${1}</h1>`)
	out = mdRule.ReplaceAllString(out, `<hr class="md-hr">`)
	out = mdBold.ReplaceAllString(out, `<strong class="md-bold">${1}</strong>`)
	out = mdInline.ReplaceAllString(out, `<code class="md-inline-code">${1}</code>`)

	lines := strings.Split(out, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" || isBlock(line) {
			continue
		}
		lines[i] = `<p class="md-paragraph">` + line + `</p>`
	}
	r.Formatted = strings.Join(lines, "\n")
	return r
}

func isBlock(line string) bool {
	for _, prefix := range []string{"<h1", "<h2", "<h3", "<hr"} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// TextFormat wraps long plain lines in paragraphs. It leaves text alone once
// Markdown has rendered it.
type TextFormat struct{}

func (TextFormat) Label() string { return LabelTextFormat }

func (TextFormat) Apply(r Rendered) Rendered {
	if strings.Contains(r.Formatted, "md-") {
		return r
	}
	lines := strings.Split(r.Formatted, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") || strings.HasPrefix(trimmed, "## ") || strings.HasPrefix(trimmed, "### ") {
			continue
		}
		if utf8.RuneCountInString(trimmed) > 50 && !strings.HasPrefix(trimmed, "<") {
			lines[i] = "<p>" + line + "</p>"
		}
	}
	r.Formatted = strings.Join(lines, "\n")
	return r
}

// AutoSave calls save with the latest content once no new content has been
// seen for the configured delay. It does not change the rendered output.
type AutoSave struct {
	clock clockwork.Clock
	delay time.Duration
	save  func(content string) error

	mu      sync.Mutex
	last    string
	pending bool
	gen     int
	timer   clockwork.Timer
}

func NewAutoSave(clock clockwork.Clock, delay time.Duration, save func(content string) error) *AutoSave {
	if delay <= 0 {
		delay = 2 * time.Second
	}
	return &AutoSave{clock: clock, delay: delay, save: save}
}

func (a *AutoSave) Label() string { return LabelAutoSave }

func (a *AutoSave) Apply(r Rendered) Rendered {
	a.mu.Lock()
	defer a.mu.Unlock()
	if r.Raw == a.last {
		return r
	}
	a.last = r.Raw
	a.pending = true
	if a.timer != nil {
		a.timer.Stop()
	}
	a.gen++
	gen := a.gen
	a.timer = a.clock.AfterFunc(a.delay, func() { a.fire(gen) })
	return r
}

// Prime records content as already saved without scheduling a save.
func (a *AutoSave) Prime(content string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.last = content
}

// fire ignores timers superseded by a later edit.
func (a *AutoSave) fire(gen int) {
	a.mu.Lock()
	if !a.pending || gen != a.gen {
		a.mu.Unlock()
		return
	}
	a.pending = false
	a.timer = nil
	content := a.last
	a.mu.Unlock()

	a.run(content)
}

// Flush saves the pending content right away.
func (a *AutoSave) Flush() {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	if !a.pending {
		a.mu.Unlock()
		return
	}
	a.pending = false
	content := a.last
	a.mu.Unlock()

	a.run(content)
}

// Stop cancels a pending save.
func (a *AutoSave) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.pending = false
}

func (a *AutoSave) run(content string) {
	if err := a.save(content); err != nil {
		metrics.Autosaves.WithLabelValues("failed").Inc()
		logrus.WithError(err).Warn("Autosave failed")
		return
	}
	metrics.Autosaves.WithLabelValues("ok").Inc()
	logrus.WithField("bytes", len(content)).Debug("Document autosaved")
}
