package notifications

import (
	"collab-docs/core"
	"collab-docs/mediator"
	"collab-docs/presence"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texts(toasts []Toast) []string {
	out := make([]string, 0, len(toasts))
	for _, t := range toasts {
		out = append(out, t.Text)
	}
	return out
}

func TestShow_AutoDismiss(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sink := NewSink(clock, DefaultOptions())

	first := sink.Show("hello", KindInfo)
	second := sink.Show("again", KindSuccess)
	assert.Greater(t, second, first)
	require.Len(t, sink.Toasts(), 2)

	clock.Advance(4 * time.Second)
	assert.Len(t, sink.Toasts(), 2)

	clock.Advance(time.Second)
	assert.Eventually(t, func() bool { return len(sink.Toasts()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestShow_ErrorToastPersists(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sink := NewSink(clock, DefaultOptions())

	id := sink.Show("save failed", KindError)
	clock.Advance(time.Minute)

	require.Len(t, sink.Toasts(), 1)
	sink.CloseToast(id)
	assert.Empty(t, sink.Toasts())
}

func TestCloseToast_CancelsTimer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sink := NewSink(clock, DefaultOptions())

	a := sink.Show("a", KindInfo)
	sink.Show("b", KindInfo)
	sink.CloseToast(a)
	sink.CloseToast(999)

	assert.Equal(t, []string{"b"}, texts(sink.Toasts()))
}

func TestSessionEvents(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sink := NewSink(clock, DefaultOptions())
	reg := presence.NewRegistry()
	m := mediator.New()
	sink.Attach(reg, m)
	defer sink.Close()

	reg.AddUser(core.NewUser(1, "Ana", core.StatusOnline))
	reg.UpdateStatus(1, core.StatusOffline)
	reg.UpdateStatus(1, core.StatusIdle)
	reg.UpdateStatus(1, core.StatusOnline)
	reg.RemoveUser(1)

	toasts := sink.Toasts()
	assert.Equal(t, []string{"Ana joined", "Ana went offline", "Ana is online", "Ana left"}, texts(toasts))
	assert.Equal(t, KindSuccess, toasts[0].Kind)
	assert.Equal(t, KindWarning, toasts[1].Kind)
	assert.Equal(t, KindInfo, toasts[3].Kind)
}

func TestTypingThrottle(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sink := NewSink(clock, Options{DismissAfter: time.Hour, TypingThrottle: 4 * time.Second})
	reg := presence.NewRegistry()
	sink.Attach(reg, mediator.New())
	defer sink.Close()
	reg.AddUser(core.NewUser(1, "Ana", core.StatusOnline))
	reg.AddUser(core.NewUser(2, "Carlos", core.StatusOnline))

	reg.NotifyTyping(1)
	reg.NotifyTyping(1)
	reg.NotifyTyping(2)
	clock.Advance(4 * time.Second)
	reg.NotifyTyping(1)
	clock.Advance(time.Millisecond)
	reg.NotifyTyping(1)

	assert.Equal(t, []string{
		"Ana joined",
		"Carlos joined",
		"Ana is typing…",
		"Carlos is typing…",
		"Ana is typing…",
	}, texts(sink.Toasts()))
}

func TestMediatorEvents(t *testing.T) {
	sink := NewSink(clockwork.NewFakeClock(), DefaultOptions())
	m := mediator.New()
	sink.Attach(presence.NewRegistry(), m)

	m.Notify("Chat", mediator.MessageSent{User: "Ana", Message: "hi"})
	m.Notify("System", mediator.Notification{UserID: 1, Status: core.StatusIdle})
	m.Notify("System", mediator.Notification{Text: "Document saved"})
	m.Notify("System", mediator.Failure{Message: "Could not save document"})

	toasts := sink.Toasts()
	assert.Equal(t, []string{"Message from Ana", "Document saved", "Could not save document"}, texts(toasts))
	assert.Equal(t, KindError, toasts[2].Kind)

	sink.Close()
	assert.NotContains(t, m.Names(), ComponentName)
	m.Notify("Chat", mediator.MessageSent{User: "Ana", Message: "again"})
	assert.Len(t, sink.Toasts(), 3)
}
