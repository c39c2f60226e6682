package mediator

import (
	"collab-docs/core"

	"github.com/google/uuid"
)

type Kind string

const (
	KindMessageSent    Kind = "messageSent"
	KindContentUpdated Kind = "contentUpdated"
	KindUserJoined     Kind = "userJoined"
	KindUserLeft       Kind = "userLeft"
	KindNotification   Kind = "notification"
	KindError          Kind = "error"
)

// Payload is implemented only by the event types declared in this file.
type Payload interface {
	Kind() Kind
	sealed()
}

type (
	MessageSent struct {
		User    string `json:"user"`
		Message string `json:"message"`
	}

	ContentUpdated struct {
		DocumentID string `json:"documentId"`
		Content    string `json:"content"`
		Author     string `json:"author"`
	}

	UserJoined struct {
		User core.User `json:"user"`
	}

	UserLeft struct {
		UserID int `json:"userId"`
	}

	// Notification carries a status change or a free-form notice.
	Notification struct {
		UserID int             `json:"userId,omitempty"`
		Status core.UserStatus `json:"status,omitempty"`
		Text   string          `json:"text,omitempty"`
	}

	// Failure reports a fault the user should see, typically a failed remote call.
	Failure struct {
		Message string `json:"message"`
	}
)

func (MessageSent) Kind() Kind    { return KindMessageSent }
func (ContentUpdated) Kind() Kind { return KindContentUpdated }
func (UserJoined) Kind() Kind     { return KindUserJoined }
func (UserLeft) Kind() Kind       { return KindUserLeft }
func (Notification) Kind() Kind   { return KindNotification }
func (Failure) Kind() Kind        { return KindError }

func (MessageSent) sealed()    {}
func (ContentUpdated) sealed() {}
func (UserJoined) sealed()     {}
func (UserLeft) sealed()       {}
func (Notification) sealed()   {}
func (Failure) sealed()        {}

// Event is what components receive from the mediator.
type Event struct {
	ID     string  `json:"id"`
	Sender string  `json:"sender"`
	Data   Payload `json:"data"`
}

func (e Event) Kind() Kind {
	if e.Data == nil {
		return ""
	}
	return e.Data.Kind()
}

func newEvent(sender string, data Payload) Event {
	return Event{ID: uuid.NewString(), Sender: sender, Data: data}
}

// Component is anything that can be registered with the mediator.
type Component interface {
	HandleEvent(Event) error
}

// ComponentFunc adapts a plain function to Component.
type ComponentFunc func(Event) error

func (f ComponentFunc) HandleEvent(ev Event) error { return f(ev) }

// Handlers dispatches each payload type to its callback. Nil callbacks ignore
// the event.
type Handlers struct {
	OnMessageSent    func(sender string, p MessageSent) error
	OnContentUpdated func(sender string, p ContentUpdated) error
	OnUserJoined     func(sender string, p UserJoined) error
	OnUserLeft       func(sender string, p UserLeft) error
	OnNotification   func(sender string, p Notification) error
	OnFailure        func(sender string, p Failure) error
}

func (h Handlers) HandleEvent(ev Event) error {
	switch p := ev.Data.(type) {
	case MessageSent:
		if h.OnMessageSent != nil {
			return h.OnMessageSent(ev.Sender, p)
		}
	case ContentUpdated:
		if h.OnContentUpdated != nil {
			return h.OnContentUpdated(ev.Sender, p)
		}
	case UserJoined:
		if h.OnUserJoined != nil {
			return h.OnUserJoined(ev.Sender, p)
		}
	case UserLeft:
		if h.OnUserLeft != nil {
			return h.OnUserLeft(ev.Sender, p)
		}
	case Notification:
		if h.OnNotification != nil {
			return h.OnNotification(ev.Sender, p)
		}
	case Failure:
		if h.OnFailure != nil {
			return h.OnFailure(ev.Sender, p)
		}
	}
	return nil
}
