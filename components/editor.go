package components

import (
	"collab-docs/collab"
	"collab-docs/core"
	"collab-docs/editor"
	"collab-docs/mediator"
	"collab-docs/presence"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf16"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

var (
	ErrNoDocument   = errors.New("no document loaded")
	ErrSaveFailed   = errors.New("document could not be saved")
	ErrEmptyContent = errors.New("content is empty")
)

const (
	offlineName    = "Offline document"
	offlineContent = "Could not connect to the server."
)

var palette = []string{"#ef4444", "#f97316", "#f59e0b", "#10b981", "#06b6d4", "#3b82f6", "#8b5cf6", "#ec4899"}

// PickColor maps seed to a palette colour. Equal seeds give equal colours.
func PickColor(seed string) string {
	var s int64
	for _, c := range utf16.Encode([]rune(seed)) {
		s = int64(int32(s)<<5) - s + int64(c)
	}
	if s < 0 {
		s = -s
	}
	return palette[s%int64(len(palette))]
}

type EditorOptions struct {
	AutosaveDelay  time.Duration
	TypingInterval time.Duration
	IndicatorTTL   time.Duration
}

func DefaultEditorOptions() EditorOptions {
	return EditorOptions{
		AutosaveDelay:  2 * time.Second,
		TypingInterval: 1500 * time.Millisecond,
		IndicatorTTL:   3 * time.Second,
	}
}

// Features toggles the optional pipeline layers.
type Features struct {
	WordCount  bool `json:"wordCount"`
	Markdown   bool `json:"markdown"`
	AutoSave   bool `json:"autoSave"`
	TextFormat bool `json:"textFormat"`
}

func AllFeatures() Features {
	return Features{WordCount: true, Markdown: true, AutoSave: true, TextFormat: true}
}

type EditingIndicator struct {
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// EditorState is a read-only view of the editor for clients.
type EditorState struct {
	Document  *core.Document    `json:"document"`
	Content   string            `json:"content"`
	Rendered  editor.Rendered   `json:"rendered"`
	Features  []string          `json:"features"`
	Toggles   Features          `json:"toggles"`
	EditingBy *EditingIndicator `json:"editingBy,omitempty"`
}

type Editor struct {
	facade    *collab.Facade
	docs      *collab.Documents
	templates core.TemplateStore
	clock     clockwork.Clock
	opts      EditorOptions
	autosave  *editor.AutoSave

	mu          sync.Mutex
	doc         *core.Document
	content     string
	toggles     Features
	pipeline    editor.Pipeline
	rendered    editor.Rendered
	currentUser *core.User
	lastTyping  time.Time
	editing     *EditingIndicator
	editingGen  int
	detach      []func()
}

func NewEditor(facade *collab.Facade, docs *collab.Documents, templates core.TemplateStore, clock clockwork.Clock, opts EditorOptions) *Editor {
	def := DefaultEditorOptions()
	if opts.AutosaveDelay <= 0 {
		opts.AutosaveDelay = def.AutosaveDelay
	}
	if opts.TypingInterval <= 0 {
		opts.TypingInterval = def.TypingInterval
	}
	if opts.IndicatorTTL <= 0 {
		opts.IndicatorTTL = def.IndicatorTTL
	}
	e := &Editor{
		facade:    facade,
		docs:      docs,
		templates: templates,
		clock:     clock,
		opts:      opts,
		toggles:   AllFeatures(),
	}
	e.autosave = editor.NewAutoSave(clock, opts.AutosaveDelay, e.saveContent)
	e.pipeline = e.buildPipeline(e.toggles)
	return e
}

// Attach registers the editor with the mediator and follows the session roster.
func (e *Editor) Attach() {
	registry := e.facade.Registry()
	unsubUsers := registry.SubscribeUsers(func(users []core.User) {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.currentUser == nil && len(users) > 0 {
			u := users[0]
			e.currentUser = &u
		}
	})
	unsubEvents := registry.SubscribeEvents(e.handleSessionEvent)
	e.facade.Mediator().Register(collab.SenderEditor, e)

	e.mu.Lock()
	e.detach = append(e.detach, unsubUsers, unsubEvents, func() { e.facade.Mediator().Unregister(collab.SenderEditor) })
	e.mu.Unlock()
}

// Close detaches the editor and cancels a pending autosave.
func (e *Editor) Close() {
	e.mu.Lock()
	detach := e.detach
	e.detach = nil
	e.editingGen++
	e.mu.Unlock()

	e.autosave.Stop()
	for _, fn := range detach {
		fn()
	}
}

func (e *Editor) buildPipeline(f Features) editor.Pipeline {
	p := editor.New()
	if f.WordCount {
		p = p.With(editor.WordCount{})
	}
	if f.Markdown {
		p = p.With(editor.Markdown{})
	}
	if f.AutoSave {
		p = p.With(e.autosave)
	}
	if f.TextFormat {
		p = p.With(editor.TextFormat{})
	}
	return p
}

// Load opens the first stored document. When none can be listed it opens a
// local placeholder that is created on first save.
func (e *Editor) Load(ctx context.Context) {
	docs := e.docs.List(ctx)
	var doc *core.Document
	if len(docs) > 0 {
		doc = docs[0]
	} else {
		doc = &core.Document{Name: offlineName, Type: core.DocumentWord, Content: offlineContent}
	}
	e.Open(doc)
}

// Open replaces the document being edited.
func (e *Editor) Open(doc *core.Document) {
	cp := *doc
	e.autosave.Stop()
	e.autosave.Prime(cp.Content)

	e.mu.Lock()
	e.doc = &cp
	e.content = cp.Content
	e.rendered = e.pipeline.Render(cp.Content)
	e.mu.Unlock()

	logrus.WithFields(logrus.Fields{"document_id": cp.ID, "document_name": cp.Name}).Info("Editor opened document")
}

// Input replaces the editor content, re-renders it and signals that the
// current user is typing.
func (e *Editor) Input(content string) editor.Rendered {
	e.mu.Lock()
	e.content = content
	e.rendered = e.pipeline.Render(content)
	rendered := e.rendered

	var typing *core.User
	now := e.clock.Now()
	if e.currentUser != nil && now.Sub(e.lastTyping) > e.opts.TypingInterval {
		e.lastTyping = now
		u := *e.currentUser
		typing = &u
	}
	e.mu.Unlock()

	if typing != nil {
		e.facade.Registry().NotifyTyping(typing.ID)
	}
	return rendered
}

// Save stores the current content right away.
func (e *Editor) Save(ctx context.Context) (*core.Document, error) {
	e.autosave.Stop()
	e.mu.Lock()
	content := e.content
	e.mu.Unlock()

	saved, err := e.persist(ctx, content)
	if err != nil {
		return nil, err
	}
	e.facade.Mediator().Notify(collab.SenderEditor, mediator.Notification{
		Text: fmt.Sprintf("Document %q saved", saved.Name),
	})
	return saved, nil
}

func (e *Editor) saveContent(content string) error {
	_, err := e.persist(context.Background(), content)
	return err
}

func (e *Editor) persist(ctx context.Context, content string) (*core.Document, error) {
	e.mu.Lock()
	if e.doc == nil {
		e.mu.Unlock()
		return nil, ErrNoDocument
	}
	doc := *e.doc
	doc.Content = content
	author := ""
	if e.currentUser != nil {
		author = e.currentUser.Name
	}
	e.mu.Unlock()

	saved := e.docs.Save(ctx, &doc, author)
	if saved == nil {
		return nil, ErrSaveFailed
	}

	e.mu.Lock()
	cp := *saved
	e.doc = &cp
	e.mu.Unlock()
	return &cp, nil
}

// SetFeatures rebuilds the pipeline from toggles and re-renders the content.
func (e *Editor) SetFeatures(f Features) EditorState {
	if !f.AutoSave {
		e.autosave.Stop()
	}
	e.mu.Lock()
	e.toggles = f
	e.pipeline = e.buildPipeline(f)
	e.rendered = e.pipeline.Render(e.content)
	e.mu.Unlock()
	return e.State()
}

// ApplyTemplate replaces the content with the template's content.
func (e *Editor) ApplyTemplate(ctx context.Context, templateID string) (*core.Template, error) {
	tpl, err := e.templates.GetByID(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("applying template %s: %w", templateID, err)
	}
	e.Input(tpl.Content)
	e.facade.Mediator().Notify(collab.SenderEditor, mediator.Notification{
		Text: fmt.Sprintf("Template %q applied", tpl.Name),
	})
	return tpl, nil
}

// SaveAsTemplate stores the current content as a new template.
func (e *Editor) SaveAsTemplate(ctx context.Context, name string) (*core.Template, error) {
	e.mu.Lock()
	content := e.content
	e.mu.Unlock()

	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	if strings.TrimSpace(name) == "" {
		name = "My template"
	}
	tpl, err := e.templates.Save(ctx, &core.Template{Name: name, Content: content})
	if err != nil {
		return nil, fmt.Errorf("saving template %q: %w", name, err)
	}
	e.facade.Mediator().Notify(collab.SenderEditor, mediator.Notification{
		Text: fmt.Sprintf("Template %q saved", tpl.Name),
	})
	return tpl, nil
}

func (e *Editor) Templates(ctx context.Context) ([]*core.Template, error) {
	return e.templates.GetAll(ctx)
}

// EditingBy returns the active editing indicator, if any.
func (e *Editor) EditingBy() *EditingIndicator {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeIndicator()
}

// activeIndicator must be called with e.mu held.
func (e *Editor) activeIndicator() *EditingIndicator {
	if e.editing == nil || !e.clock.Now().Before(e.editing.ExpiresAt) {
		return nil
	}
	cp := *e.editing
	return &cp
}

func (e *Editor) State() EditorState {
	e.mu.Lock()
	defer e.mu.Unlock()
	var doc *core.Document
	if e.doc != nil {
		cp := *e.doc
		doc = &cp
	}
	return EditorState{
		Document:  doc,
		Content:   e.content,
		Rendered:  e.rendered,
		Features:  e.pipeline.Features(),
		Toggles:   e.toggles,
		EditingBy: e.activeIndicator(),
	}
}

func (e *Editor) showEditing(name, color string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.editingGen++
	gen := e.editingGen
	e.editing = &EditingIndicator{Name: name, Color: color, ExpiresAt: e.clock.Now().Add(e.opts.IndicatorTTL)}
	e.clock.AfterFunc(e.opts.IndicatorTTL, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.editingGen == gen {
			e.editing = nil
		}
	})
}

func (e *Editor) isCurrentUser(match func(core.User) bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentUser != nil && match(*e.currentUser)
}

func (e *Editor) handleSessionEvent(ev presence.Event) {
	if ev.Type != presence.EventTyping {
		return
	}
	if e.isCurrentUser(func(u core.User) bool { return u.ID == ev.User.ID }) {
		return
	}
	e.showEditing(ev.User.Name, PickColor(strconv.Itoa(ev.User.ID)))
}

func (e *Editor) HandleEvent(ev mediator.Event) error {
	return mediator.Handlers{
		OnContentUpdated: func(_ string, p mediator.ContentUpdated) error {
			author := p.Author
			if author == "" {
				author = "Someone"
			}
			if e.isCurrentUser(func(u core.User) bool { return u.Name == author }) {
				return nil
			}
			e.adopt(p)
			e.showEditing(author, PickColor(strconv.Itoa(len(utf16.Encode([]rune(author))))))
			return nil
		},
	}.HandleEvent(ev)
}

// adopt takes over content saved elsewhere for the open document. Local
// edits that have not been saved yet win.
func (e *Editor) adopt(p mediator.ContentUpdated) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil || e.doc.ID == "" || e.doc.ID != p.DocumentID || e.content != e.doc.Content {
		return
	}
	cp := *e.doc
	cp.Content = p.Content
	e.doc = &cp
	e.content = p.Content
	e.autosave.Stop()
	e.autosave.Prime(p.Content)
	e.rendered = e.pipeline.Render(p.Content)
}
