package components

import (
	"collab-docs/collab"
	"collab-docs/core"
	"collab-docs/mediator"
	"collab-docs/presence"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventLog struct {
	mu     sync.Mutex
	events []mediator.Event
}

func (p *eventLog) HandleEvent(ev mediator.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *eventLog) texts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, ev := range p.events {
		if n, ok := ev.Data.(mediator.Notification); ok && n.Text != "" {
			out = append(out, n.Text)
		}
	}
	return out
}

func (p *eventLog) kinds() []mediator.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []mediator.Kind
	for _, ev := range p.events {
		out = append(out, ev.Kind())
	}
	return out
}

func newFacade() *collab.Facade {
	return collab.NewFacade(presence.NewRegistry(), mediator.New())
}

func TestChat_SendAddsUnknownUserAndBroadcasts(t *testing.T) {
	f := newFacade()
	p := &eventLog{}
	f.Mediator().Register("Observer", p)
	chat := NewChat(f)
	chat.Attach()
	defer chat.Close()

	require.NoError(t, chat.Send("Ana", "hola"))
	require.NoError(t, chat.Send("Ana", "again"))

	users := f.Registry().Users()
	require.Len(t, users, 1)
	assert.Equal(t, "Ana", users[0].Name)
	assert.Equal(t, core.StatusOnline, users[0].Status)

	assert.Equal(t, []ChatMessage{{Text: "Ana: hola"}, {Text: "Ana: again"}}, chat.Messages())
	assert.Equal(t, []mediator.Kind{mediator.KindMessageSent, mediator.KindMessageSent}, p.kinds())
}

func TestChat_SendValidates(t *testing.T) {
	chat := NewChat(newFacade())
	chat.Attach()

	assert.ErrorIs(t, chat.Send("", "x"), ErrEmptyMessage)
	assert.ErrorIs(t, chat.Send("Ana", "  "), ErrEmptyMessage)
	assert.Empty(t, chat.Messages())
}

func TestChat_NewUserGetsFreshID(t *testing.T) {
	f := newFacade()
	f.Registry().AddUser(core.NewUser(5, "Sofia", core.StatusOnline))
	chat := NewChat(f)
	chat.Attach()

	require.NoError(t, chat.Send("Ana", "hi"))

	u, ok := f.Registry().Find(6)
	require.True(t, ok)
	assert.Equal(t, "Ana", u.Name)
}

func TestChat_SendJoinsAgainstRegistryRoster(t *testing.T) {
	f := newFacade()
	f.Registry().AddUser(core.NewUser(1, "Sofia", core.StatusOnline))
	// not attached, so the chat holds no copy of the roster
	chat := NewChat(f)

	require.NoError(t, chat.Send("Ana", "hi"))
	require.NoError(t, chat.Send("Sofia", "hey"))

	users := f.Registry().Users()
	require.Len(t, users, 2)
	assert.Equal(t, core.NewUser(1, "Sofia", core.StatusOnline), users[0])
	assert.Equal(t, core.NewUser(2, "Ana", core.StatusOnline), users[1])
}

func TestChat_HandlesMediatorEvents(t *testing.T) {
	f := newFacade()
	chat := NewChat(f)
	chat.Attach()

	f.Mediator().Notify("Other", mediator.MessageSent{User: "Carlos", Message: "hey"})
	f.ContentUpdated("d1", "text", "Ana")

	assert.Equal(t, []ChatMessage{
		{Text: "Carlos: hey"},
		{Text: "(system) content updated by Editor", System: true},
	}, chat.Messages())
}

func TestUserList(t *testing.T) {
	reg := presence.NewRegistry()
	reg.AddUser(core.NewUser(1, "Ana García", core.StatusOnline))
	reg.AddUser(core.NewUser(2, "Carlos Rodríguez", core.StatusOnline))
	reg.AddUser(core.NewUser(3, "María López", core.StatusIdle))
	list := NewUserList(reg)
	defer list.Close()

	assert.Len(t, list.Users(), 3)
	assert.Equal(t, 2, list.OnlineCount())
	assert.Len(t, list.Filter("  "), 3)

	got := list.Filter("GAR")
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].ID)

	reg.UpdateStatus(3, core.StatusOnline)
	assert.Equal(t, 3, list.OnlineCount())
}

func TestInitials(t *testing.T) {
	assert.Equal(t, "AG", Initials("Ana García"))
	assert.Equal(t, "MJ", Initials("maría josé lópez"))
	assert.Equal(t, "S", Initials("Sofia"))
	assert.Equal(t, "", Initials(""))
}

func TestPickColor(t *testing.T) {
	assert.Equal(t, PickColor("3"), PickColor("3"))
	assert.Contains(t, palette, PickColor("Ana García"))
	// "1" hashes to 49
	assert.Equal(t, palette[49%len(palette)], PickColor("1"))
	assert.Equal(t, palette[0], PickColor(""))
}

type memDocs struct {
	mu   sync.Mutex
	docs []*core.Document
	err  error
	seq  int
}

func (s *memDocs) List(context.Context) ([]*core.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]*core.Document(nil), s.docs...), nil
}

func (s *memDocs) Get(_ context.Context, id string) (*core.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.docs {
		if d.ID == id {
			cp := *d
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *memDocs) Create(_ context.Context, doc *core.Document) (*core.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.seq++
	cp := *doc
	cp.ID = fmt.Sprintf("doc-%d", s.seq)
	s.docs = append(s.docs, &cp)
	out := cp
	return &out, nil
}

func (s *memDocs) Update(_ context.Context, id string, patch core.DocumentPatch) (*core.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, d := range s.docs {
		if d.ID == id {
			patch.Apply(d)
			cp := *d
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *memDocs) Delete(context.Context, string) error { return nil }

func (s *memDocs) content(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.docs {
		if d.ID == id {
			return d.Content
		}
	}
	return ""
}

type memTemplates struct {
	tpls map[string]*core.Template
	seq  int
}

func (s *memTemplates) GetAll(context.Context) ([]*core.Template, error) {
	var out []*core.Template
	for _, t := range s.tpls {
		out = append(out, t)
	}
	return out, nil
}

func (s *memTemplates) GetByID(_ context.Context, id string) (*core.Template, error) {
	t, ok := s.tpls[id]
	if !ok {
		return nil, fmt.Errorf("template %s: %w", id, core.ErrNotFound)
	}
	return t, nil
}

func (s *memTemplates) Save(_ context.Context, tpl *core.Template) (*core.Template, error) {
	s.seq++
	cp := *tpl
	cp.ID = fmt.Sprintf("tpl-%d", s.seq)
	s.tpls[cp.ID] = &cp
	return &cp, nil
}

func (s *memTemplates) Update(_ context.Context, tpl *core.Template) (*core.Template, error) {
	s.tpls[tpl.ID] = tpl
	return tpl, nil
}

func (s *memTemplates) Delete(_ context.Context, id string) error {
	delete(s.tpls, id)
	return nil
}

type editorFixture struct {
	facade    *collab.Facade
	store     *memDocs
	templates *memTemplates
	clock     *clockwork.FakeClock
	observed  *eventLog
	editor    *Editor
}

func newEditorFixture(t *testing.T, docs ...*core.Document) *editorFixture {
	t.Helper()
	fx := &editorFixture{
		facade:    newFacade(),
		store:     &memDocs{docs: docs},
		templates: &memTemplates{tpls: map[string]*core.Template{}},
		clock:     clockwork.NewFakeClock(),
		observed:  &eventLog{},
	}
	fx.facade.Mediator().Register("Observer", fx.observed)
	fx.editor = NewEditor(fx.facade, collab.NewDocuments(fx.store, fx.facade), fx.templates, fx.clock, DefaultEditorOptions())
	fx.editor.Attach()
	t.Cleanup(fx.editor.Close)
	return fx
}

func TestEditor_LoadFirstDocument(t *testing.T) {
	fx := newEditorFixture(t, &core.Document{ID: "d1", Name: "Notes", Type: core.DocumentWord, Content: "# Hi"})

	fx.editor.Load(context.Background())

	st := fx.editor.State()
	require.NotNil(t, st.Document)
	assert.Equal(t, "d1", st.Document.ID)
	assert.Equal(t, "# Hi", st.Content)
	assert.Equal(t, `<h1 class="md-header">Hi</h1>`, st.Rendered.Formatted)
	assert.Equal(t, []string{"Basic editor", "Word count", "Markdown highlighting", "Autosave", "Text formatting"}, st.Features)
}

func TestEditor_LoadOfflinePlaceholder(t *testing.T) {
	fx := newEditorFixture(t)
	fx.store.err = errors.New("unreachable")

	fx.editor.Load(context.Background())

	st := fx.editor.State()
	require.NotNil(t, st.Document)
	assert.Empty(t, st.Document.ID)
	assert.Equal(t, offlineName, st.Document.Name)
	assert.Contains(t, fx.observed.kinds(), mediator.KindError)
}

func TestEditor_InputAutosavesOnce(t *testing.T) {
	fx := newEditorFixture(t, &core.Document{ID: "d1", Name: "Notes", Content: "start"})
	fx.facade.UserJoined(core.NewUser(1, "Ana", core.StatusOnline))
	fx.editor.Load(context.Background())

	fx.editor.Input("one")
	fx.clock.Advance(time.Second)
	fx.editor.Input("one two")
	r := fx.editor.Input("one two three")
	assert.Equal(t, 3, r.Metadata["wordCount"])

	fx.clock.Advance(2 * time.Second)
	assert.Eventually(t, func() bool { return fx.store.content("d1") == "one two three" }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		for _, k := range fx.observed.kinds() {
			if k == mediator.KindContentUpdated {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func TestEditor_TypingSignalThrottled(t *testing.T) {
	fx := newEditorFixture(t)
	fx.facade.UserJoined(core.NewUser(1, "Ana", core.StatusOnline))
	var typing int
	fx.facade.Registry().SubscribeEvents(func(ev presence.Event) {
		if ev.Type == presence.EventTyping {
			typing++
		}
	})
	fx.editor.SetFeatures(Features{})

	fx.editor.Input("a")
	fx.editor.Input("ab")
	fx.clock.Advance(1500 * time.Millisecond)
	fx.editor.Input("abc")
	fx.clock.Advance(time.Millisecond)
	fx.editor.Input("abcd")

	assert.Equal(t, 2, typing)
}

func TestEditor_SaveCreatesPlaceholder(t *testing.T) {
	fx := newEditorFixture(t)
	fx.editor.Load(context.Background())
	fx.editor.Input("my text")

	saved, err := fx.editor.Save(context.Background())

	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "my text", fx.store.content(saved.ID))
	assert.Equal(t, saved.ID, fx.editor.State().Document.ID)
	assert.Equal(t, []string{`Document "Offline document" saved`}, fx.observed.texts())
}

func TestEditor_SaveFailureKeepsLocalCopy(t *testing.T) {
	fx := newEditorFixture(t, &core.Document{ID: "d1", Name: "Notes", Content: "start"})
	fx.editor.Load(context.Background())
	fx.editor.Input("unsaved")
	fx.store.err = errors.New("down")

	_, err := fx.editor.Save(context.Background())

	assert.ErrorIs(t, err, ErrSaveFailed)
	assert.Equal(t, "unsaved", fx.editor.State().Content)
	assert.Contains(t, fx.observed.kinds(), mediator.KindError)
}

func TestEditor_SaveWithoutDocument(t *testing.T) {
	fx := newEditorFixture(t)

	_, err := fx.editor.Save(context.Background())

	assert.ErrorIs(t, err, ErrNoDocument)
}

func TestEditor_SetFeatures(t *testing.T) {
	fx := newEditorFixture(t, &core.Document{ID: "d1", Content: "**x**"})
	fx.editor.Load(context.Background())

	st := fx.editor.SetFeatures(Features{WordCount: true})

	assert.Equal(t, []string{"Basic editor", "Word count"}, st.Features)
	assert.Equal(t, "**x**", st.Rendered.Formatted)
	assert.Equal(t, Features{WordCount: true}, st.Toggles)
}

func TestEditor_AutosaveDisabledDoesNotSave(t *testing.T) {
	fx := newEditorFixture(t, &core.Document{ID: "d1", Content: "start"})
	fx.editor.Load(context.Background())
	fx.editor.SetFeatures(Features{Markdown: true})

	fx.editor.Input("changed")
	fx.clock.Advance(time.Minute)

	assert.Never(t, func() bool { return fx.store.content("d1") != "start" }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestEditor_Templates(t *testing.T) {
	fx := newEditorFixture(t, &core.Document{ID: "d1", Content: "body"})
	fx.editor.Load(context.Background())
	ctx := context.Background()

	tpl, err := fx.editor.SaveAsTemplate(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "My template", tpl.Name)
	assert.Equal(t, "body", tpl.Content)

	fx.editor.Input("other")
	_, err = fx.editor.ApplyTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "body", fx.editor.State().Content)

	_, err = fx.editor.ApplyTemplate(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)

	fx.editor.Input("   ")
	_, err = fx.editor.SaveAsTemplate(ctx, "blank")
	assert.ErrorIs(t, err, ErrEmptyContent)

	assert.Equal(t, []string{`Template "My template" saved`, `Template "My template" applied`}, fx.observed.texts())
}

func TestEditor_EditingIndicator(t *testing.T) {
	fx := newEditorFixture(t)
	fx.facade.UserJoined(core.NewUser(1, "Ana", core.StatusOnline))
	fx.facade.UserJoined(core.NewUser(2, "Carlos", core.StatusOnline))

	fx.facade.Registry().NotifyTyping(1)
	assert.Nil(t, fx.editor.EditingBy(), "own typing is ignored")

	fx.facade.Registry().NotifyTyping(2)
	ind := fx.editor.EditingBy()
	require.NotNil(t, ind)
	assert.Equal(t, "Carlos", ind.Name)
	assert.Equal(t, PickColor("2"), ind.Color)

	fx.clock.Advance(3 * time.Second)
	assert.Nil(t, fx.editor.EditingBy())

	fx.facade.Mediator().Notify("Remote", mediator.ContentUpdated{DocumentID: "d1", Author: "Sofia"})
	ind = fx.editor.EditingBy()
	require.NotNil(t, ind)
	assert.Equal(t, "Sofia", ind.Name)
	assert.Equal(t, PickColor("5"), ind.Color)

	fx.facade.Mediator().Notify("Remote", mediator.ContentUpdated{DocumentID: "d1", Author: "Ana"})
	assert.Equal(t, "Sofia", fx.editor.EditingBy().Name, "own edits are ignored")
}

func countKind(kinds []mediator.Kind, kind mediator.Kind) int {
	n := 0
	for _, k := range kinds {
		if k == kind {
			n++
		}
	}
	return n
}

func TestEditor_AdoptsExternalUpdate(t *testing.T) {
	fx := newEditorFixture(t, &core.Document{ID: "d1", Name: "Notes", Type: core.DocumentWord, Content: "old"})
	fx.editor.Load(context.Background())

	fx.facade.ExternalContentUpdated("d1", "# new", "API")

	st := fx.editor.State()
	assert.Equal(t, "# new", st.Content)
	require.NotNil(t, st.Document)
	assert.Equal(t, "# new", st.Document.Content)
	assert.Equal(t, `<h1 class="md-header">new</h1>`, st.Rendered.Formatted)
	require.NotNil(t, fx.editor.EditingBy())
	assert.Equal(t, "API", fx.editor.EditingBy().Name)

	// adopted content is not saved back
	fx.clock.Advance(time.Minute)
	assert.Never(t, func() bool {
		return countKind(fx.observed.kinds(), mediator.KindContentUpdated) > 1
	}, 50*time.Millisecond, 5*time.Millisecond)
}

func TestEditor_KeepsUnsavedEditsOnExternalUpdate(t *testing.T) {
	fx := newEditorFixture(t, &core.Document{ID: "d1", Name: "Notes", Type: core.DocumentWord, Content: "old"})
	fx.editor.Load(context.Background())
	fx.editor.Input("local draft")

	fx.facade.ExternalContentUpdated("d1", "remote", "API")
	fx.facade.ExternalContentUpdated("other", "elsewhere", "API")

	st := fx.editor.State()
	assert.Equal(t, "local draft", st.Content)
	assert.Equal(t, "old", st.Document.Content)
}
