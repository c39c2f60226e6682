package app

import (
	"collab-docs/collab"
	"collab-docs/core"
	"collab-docs/notifications"
	"collab-docs/stores/memory"
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) (*Session, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	opts := DefaultOptions()
	opts.Clock = clock
	s := NewSession(memory.NewDocumentStore(), memory.NewTemplateStore(), opts)
	require.NoError(t, s.Seed(context.Background()))
	s.Start(context.Background())
	t.Cleanup(s.Close)
	return s, clock
}

func toastTexts(s *Session) []string {
	var out []string
	for _, t := range s.Notifications.Toasts() {
		out = append(out, t.Text)
	}
	return out
}

func TestSession_StartWiresComponents(t *testing.T) {
	s, _ := newTestSession(t)

	assert.Equal(t, []string{notifications.ComponentName, collab.SenderChat, collab.SenderEditor}, s.Mediator.Names())
	assert.Len(t, s.Users.Users(), 5)
	assert.Equal(t, 3, s.Users.OnlineCount())

	state := s.Editor.State()
	require.NotNil(t, state.Document)
	assert.Equal(t, "CD Report", state.Document.Name)
	assert.Empty(t, s.Notifications.Toasts(), "seeding must not announce users")
}

func TestSession_SeedKeepsExistingDocuments(t *testing.T) {
	docs := memory.NewDocumentStore()
	ctx := context.Background()
	_, err := docs.Create(ctx, &core.Document{Name: "mine", Type: core.DocumentWord})
	require.NoError(t, err)

	s := NewSession(docs, memory.NewTemplateStore(), DefaultOptions())
	require.NoError(t, s.Seed(ctx))

	list, err := docs.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSession_ChatReachesOtherComponents(t *testing.T) {
	s, _ := newTestSession(t)

	require.NoError(t, s.Chat.Send("Ana García", "hello"))

	assert.Equal(t, "Ana García: hello", s.Chat.Messages()[0].Text)
	assert.Contains(t, toastTexts(s), "Message from Ana García")
}

func TestSession_SaveBroadcastsContentUpdate(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()

	s.Editor.Input("# changed")
	saved, err := s.Editor.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, "# changed", saved.Content)

	msgs := s.Chat.Messages()
	require.NotEmpty(t, msgs)
	assert.Equal(t, "(system) content updated by Editor", msgs[len(msgs)-1].Text)
	assert.Contains(t, toastTexts(s), `Document "CD Report" saved`)
}

func TestSession_StatusChangesShowToasts(t *testing.T) {
	s, _ := newTestSession(t)

	s.Facade.UpdateUserStatus(4, core.StatusOnline)
	s.Facade.UpdateUserStatus(1, core.StatusOffline)

	assert.Equal(t, []string{"Juan Martínez is online", "Ana García went offline"}, toastTexts(s))
}

func TestSession_SessionsAreIndependent(t *testing.T) {
	a, _ := newTestSession(t)
	b, _ := newTestSession(t)

	a.Facade.UserJoined(core.NewUser(9, "Zoe", core.StatusOnline))

	assert.Len(t, a.Users.Users(), 6)
	assert.Len(t, b.Users.Users(), 5)
	assert.Empty(t, b.Notifications.Toasts())
}

func TestSession_ToastsExpire(t *testing.T) {
	s, clock := newTestSession(t)

	s.Facade.UserLeft(2)
	require.Len(t, s.Notifications.Toasts(), 1)

	clock.Advance(5 * time.Second)
	assert.Eventually(t, func() bool { return len(s.Notifications.Toasts()) == 0 }, time.Second, 10*time.Millisecond)
}

func TestSession_DocumentAPIUpdateReachesEditor(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()
	open := s.Editor.State().Document
	require.NotNil(t, open)

	content := "# Rewritten elsewhere"
	_, err := s.DocumentAPI.Update(ctx, open.ID, core.DocumentPatch{Content: &content})
	require.NoError(t, err)

	state := s.Editor.State()
	assert.Equal(t, content, state.Content)
	require.NotNil(t, state.EditingBy)
	assert.Equal(t, APIAuthor, state.EditingBy.Name)

	msgs := s.Chat.Messages()
	require.NotEmpty(t, msgs)
	assert.Equal(t, "(system) content updated by "+collab.SenderSystem, msgs[len(msgs)-1].Text)
}
