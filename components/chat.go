// Package components holds the mediator participants of a collaboration
// session: chat, user list and editor.
package components

import (
	"collab-docs/collab"
	"collab-docs/core"
	"collab-docs/mediator"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

var ErrEmptyMessage = errors.New("user and message are required")

// ChatMessage is one line of the chat log.
type ChatMessage struct {
	Text   string `json:"text"`
	System bool   `json:"system,omitempty"`
}

type Chat struct {
	facade *collab.Facade

	mu       sync.Mutex
	roster   []core.User
	messages []ChatMessage
	detach   []func()
}

func NewChat(facade *collab.Facade) *Chat {
	return &Chat{facade: facade}
}

// Attach follows the roster and registers the chat with the mediator.
func (c *Chat) Attach() {
	unsubscribe := c.facade.Registry().SubscribeUsers(func(users []core.User) {
		c.mu.Lock()
		c.roster = users
		c.mu.Unlock()
	})
	c.facade.Mediator().Register(collab.SenderChat, c)

	c.mu.Lock()
	c.detach = append(c.detach, unsubscribe, func() { c.facade.Mediator().Unregister(collab.SenderChat) })
	c.mu.Unlock()
}

func (c *Chat) Close() {
	c.mu.Lock()
	detach := c.detach
	c.detach = nil
	c.mu.Unlock()
	for _, fn := range detach {
		fn()
	}
}

// Send posts message as user. A user name that is not on the roster joins
// the session first.
func (c *Chat) Send(user, message string) error {
	user = strings.TrimSpace(user)
	if user == "" || strings.TrimSpace(message) == "" {
		return ErrEmptyMessage
	}

	c.facade.Registry().JoinByName(user, core.StatusOnline)

	// The mediator never echoes an event to its sender.
	c.append(ChatMessage{Text: fmt.Sprintf("%s: %s", user, message)})
	c.facade.SendMessage(user, message)
	return nil
}

func (c *Chat) Messages() []ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.messages)
}

func (c *Chat) Users() []core.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.roster)
}

func (c *Chat) append(m ChatMessage) {
	c.mu.Lock()
	c.messages = append(c.messages, m)
	c.mu.Unlock()
}

func (c *Chat) HandleEvent(ev mediator.Event) error {
	return mediator.Handlers{
		OnMessageSent: func(_ string, p mediator.MessageSent) error {
			c.append(ChatMessage{Text: fmt.Sprintf("%s: %s", p.User, p.Message)})
			return nil
		},
		OnContentUpdated: func(sender string, _ mediator.ContentUpdated) error {
			c.append(ChatMessage{Text: fmt.Sprintf("(system) content updated by %s", sender), System: true})
			return nil
		},
	}.HandleEvent(ev)
}
