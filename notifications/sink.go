// Package notifications turns session and mediator events into short-lived
// toast messages.
package notifications

import (
	"collab-docs/core"
	"collab-docs/mediator"
	"collab-docs/metrics"
	"collab-docs/presence"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// ComponentName is the name the sink registers under.
const ComponentName = "Notification"

type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

type Toast struct {
	ID        int       `json:"id"`
	Text      string    `json:"text"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"createdAt"`
}

type Options struct {
	// DismissAfter is how long non-error toasts stay visible.
	DismissAfter time.Duration
	// TypingThrottle is the minimum gap between two typing toasts for one user.
	TypingThrottle time.Duration
}

func DefaultOptions() Options {
	return Options{DismissAfter: 5 * time.Second, TypingThrottle: 4 * time.Second}
}

type Sink struct {
	clock clockwork.Clock
	opts  Options

	mu         sync.Mutex
	toasts     []Toast
	nextID     int
	timers     map[int]clockwork.Timer
	lastTyping map[int]time.Time
	detach     []func()
}

func NewSink(clock clockwork.Clock, opts Options) *Sink {
	def := DefaultOptions()
	if opts.DismissAfter <= 0 {
		opts.DismissAfter = def.DismissAfter
	}
	if opts.TypingThrottle <= 0 {
		opts.TypingThrottle = def.TypingThrottle
	}
	return &Sink{
		clock:      clock,
		opts:       opts,
		timers:     make(map[int]clockwork.Timer),
		lastTyping: make(map[int]time.Time),
	}
}

// Attach subscribes the sink to registry events and registers it with m.
func (s *Sink) Attach(registry *presence.Registry, m *mediator.Mediator) {
	unsubscribe := registry.SubscribeEvents(s.HandleSessionEvent)
	m.Register(ComponentName, s)

	s.mu.Lock()
	s.detach = append(s.detach, unsubscribe, func() { m.Unregister(ComponentName) })
	s.mu.Unlock()
}

// Close detaches the sink and stops every pending dismiss timer.
func (s *Sink) Close() {
	s.mu.Lock()
	detach := s.detach
	s.detach = nil
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	for _, fn := range detach {
		fn()
	}
}

// Show appends a toast and returns its id. Error toasts stay until closed.
func (s *Sink) Show(text string, kind Kind) int {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.toasts = append(s.toasts, Toast{ID: id, Text: text, Kind: kind, CreatedAt: s.clock.Now()})
	if kind != KindError {
		s.timers[id] = s.clock.AfterFunc(s.opts.DismissAfter, func() { s.dismiss(id) })
	}
	s.mu.Unlock()

	metrics.ToastsShown.WithLabelValues(string(kind)).Inc()
	logrus.WithFields(logrus.Fields{"toast_id": id, "kind": kind}).Debug(text)
	return id
}

// CloseToast removes the toast and cancels its timer. Unknown ids are ignored.
func (s *Sink) CloseToast(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	s.remove(id)
}

func (s *Sink) dismiss(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.timers, id)
	s.remove(id)
}

// remove must be called with s.mu held.
func (s *Sink) remove(id int) {
	s.toasts = slices.DeleteFunc(s.toasts, func(t Toast) bool { return t.ID == id })
}

func (s *Sink) Toasts() []Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.toasts)
}

func (s *Sink) HandleSessionEvent(ev presence.Event) {
	name := ev.User.Name
	switch ev.Type {
	case presence.EventJoined:
		s.Show(fmt.Sprintf("%s joined", name), KindSuccess)
	case presence.EventLeft:
		s.Show(fmt.Sprintf("%s left", name), KindInfo)
	case presence.EventStatus:
		switch ev.User.Status {
		case core.StatusOnline:
			s.Show(fmt.Sprintf("%s is online", name), KindSuccess)
		case core.StatusOffline:
			s.Show(fmt.Sprintf("%s went offline", name), KindWarning)
		}
	case presence.EventTyping:
		if s.allowTyping(ev.User.ID) {
			s.Show(fmt.Sprintf("%s is typing…", name), KindInfo)
		}
	}
}

func (s *Sink) allowTyping(userID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	if last, ok := s.lastTyping[userID]; ok && now.Sub(last) <= s.opts.TypingThrottle {
		return false
	}
	s.lastTyping[userID] = now
	return true
}

func (s *Sink) HandleEvent(ev mediator.Event) error {
	return mediator.Handlers{
		OnMessageSent: func(_ string, p mediator.MessageSent) error {
			s.Show(fmt.Sprintf("Message from %s", p.User), KindInfo)
			return nil
		},
		OnNotification: func(_ string, p mediator.Notification) error {
			if p.Text != "" {
				s.Show(p.Text, KindInfo)
			}
			return nil
		},
		OnFailure: func(_ string, p mediator.Failure) error {
			s.Show(p.Message, KindError)
			return nil
		},
	}.HandleEvent(ev)
}
