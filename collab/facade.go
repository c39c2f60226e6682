// Package collab is the entry point components use to act on a collaboration
// session: it mutates the roster and broadcasts the matching event.
package collab

import (
	"collab-docs/core"
	"collab-docs/mediator"
	"collab-docs/presence"
)

// Sender names used on events the facade broadcasts.
const (
	SenderChat   = "Chat"
	SenderEditor = "Editor"
	SenderSystem = "System"
)

type Facade struct {
	registry *presence.Registry
	mediator *mediator.Mediator
}

func NewFacade(registry *presence.Registry, m *mediator.Mediator) *Facade {
	return &Facade{registry: registry, mediator: m}
}

func (f *Facade) Registry() *presence.Registry { return f.registry }
func (f *Facade) Mediator() *mediator.Mediator { return f.mediator }

func (f *Facade) SendMessage(user, message string) {
	f.mediator.Notify(SenderChat, mediator.MessageSent{User: user, Message: message})
}

func (f *Facade) ContentUpdated(documentID, content, author string) {
	f.mediator.Notify(SenderEditor, mediator.ContentUpdated{
		DocumentID: documentID,
		Content:    content,
		Author:     author,
	})
}

// UserJoined adds user to the roster and announces it. When the id is already
// taken the roster is left alone and the user holding that id is announced
// again. It reports whether user was added.
//
// Under concurrent use the announcement can reach mediator components before
// the registry has delivered the joined event to its subscribers.
func (f *Facade) UserJoined(user core.User) bool {
	added := f.registry.AddUser(user)
	if !added {
		present, ok := f.registry.Find(user.ID)
		if !ok {
			return false
		}
		user = present
	}
	f.mediator.Notify(SenderSystem, mediator.UserJoined{User: user})
	return added
}

// Join adds a user called name under the next free id and announces it.
func (f *Facade) Join(name string, status core.UserStatus) core.User {
	user := f.registry.Join(name, status)
	f.mediator.Notify(SenderSystem, mediator.UserJoined{User: user})
	return user
}

func (f *Facade) UserLeft(userID int) {
	f.registry.RemoveUser(userID)
	f.mediator.Notify(SenderSystem, mediator.UserLeft{UserID: userID})
}

func (f *Facade) UpdateUserStatus(userID int, status core.UserStatus) {
	f.registry.UpdateStatus(userID, status)
	f.mediator.Notify(SenderSystem, mediator.Notification{UserID: userID, Status: status})
}

// Fail broadcasts a user-visible fault.
func (f *Facade) Fail(message string) {
	f.mediator.Notify(SenderSystem, mediator.Failure{Message: message})
}

// ExternalContentUpdated announces an edit made outside the session editor.
// It is sent on behalf of the system so the editor receives it as well.
func (f *Facade) ExternalContentUpdated(documentID, content, author string) {
	f.mediator.Notify(SenderSystem, mediator.ContentUpdated{
		DocumentID: documentID,
		Content:    content,
		Author:     author,
	})
}
