// Package mediator routes typed events between named components that hold no
// references to each other.
package mediator

import (
	"collab-docs/metrics"
	"fmt"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"
)

type Mediator struct {
	mu         sync.RWMutex
	names      []string
	components map[string]Component
}

func New() *Mediator {
	return &Mediator{components: make(map[string]Component)}
}

// Register stores c under name. Registering an existing name replaces the
// component but keeps its place in dispatch order.
func (m *Mediator) Register(name string, c Component) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.components[name]; !ok {
		m.names = append(m.names, name)
	}
	m.components[name] = c
	logrus.WithField("component", name).Debug("Component registered")
}

func (m *Mediator) Unregister(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.components[name]; !ok {
		return
	}
	delete(m.components, name)
	m.names = slices.DeleteFunc(m.names, func(n string) bool { return n == name })
	logrus.WithField("component", name).Debug("Component unregistered")
}

// Names returns the registered names in dispatch order.
func (m *Mediator) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.names)
}

type entry struct {
	name      string
	component Component
}

// Notify delivers data to every registered component except sender. The
// component table is copied before delivery starts, so handlers may register
// or unregister without affecting the current broadcast.
func (m *Mediator) Notify(sender string, data Payload) {
	ev := newEvent(sender, data)

	m.mu.RLock()
	targets := make([]entry, 0, len(m.names))
	for _, name := range m.names {
		if name == sender {
			continue
		}
		targets = append(targets, entry{name: name, component: m.components[name]})
	}
	m.mu.RUnlock()

	logrus.WithFields(logrus.Fields{
		"event_id": ev.ID,
		"kind":     ev.Kind(),
		"sender":   sender,
		"targets":  len(targets),
	}).Debug("Broadcasting event")

	for _, t := range targets {
		deliver(t.name, t.component, ev)
	}
}

// SendTo delivers data to the single component registered as target.
// Unknown targets are ignored.
func (m *Mediator) SendTo(target, sender string, data Payload) {
	m.mu.RLock()
	c, ok := m.components[target]
	m.mu.RUnlock()
	if !ok {
		logrus.WithField("target", target).Debug("SendTo: no such component")
		return
	}
	deliver(target, c, newEvent(sender, data))
}

func deliver(name string, c Component, ev Event) {
	err := func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("panic: %v", rec)
			}
		}()
		return c.HandleEvent(ev)
	}()

	metrics.MediatorEvents.WithLabelValues(string(ev.Kind())).Inc()
	if err != nil {
		metrics.HandlerFaults.WithLabelValues(name).Inc()
		logrus.WithFields(logrus.Fields{
			"component": name,
			"event_id":  ev.ID,
			"kind":      ev.Kind(),
		}).WithError(err).Error("Component failed to handle event")
	}
}
