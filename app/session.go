// Package app wires the participants of one collaboration session together.
package app

import (
	"collab-docs/collab"
	"collab-docs/components"
	"collab-docs/core"
	"collab-docs/editor"
	"collab-docs/mediator"
	"collab-docs/notifications"
	"collab-docs/presence"
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// APIAuthor is the author named on edits made through the document API.
const APIAuthor = "API"

type Options struct {
	Clock            clockwork.Clock
	Editor           components.EditorOptions
	Notifications    notifications.Options
	PresenceInterval time.Duration
}

func DefaultOptions() Options {
	return Options{
		Clock:            clockwork.NewRealClock(),
		Editor:           components.DefaultEditorOptions(),
		Notifications:    notifications.DefaultOptions(),
		PresenceInterval: 15 * time.Second,
	}
}

// Session owns the registry, mediator and components of one collaboration
// session. Sessions share nothing with each other.
type Session struct {
	Registry  *presence.Registry
	Mediator  *mediator.Mediator
	Facade    *collab.Facade
	Documents *collab.Documents
	Templates core.TemplateStore
	Renderer  editor.Renderer

	Notifications *notifications.Sink
	Chat          *components.Chat
	Users         *components.UserList
	Editor        *components.Editor
	Simulator     *collab.Simulator

	// DocumentAPI is the document store for requests made outside the
	// editor. Content updates through it are announced to the session.
	DocumentAPI core.DocumentStore

	store core.DocumentStore
}

func NewSession(documents core.DocumentStore, templates core.TemplateStore, opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.PresenceInterval <= 0 {
		opts.PresenceInterval = DefaultOptions().PresenceInterval
	}

	registry := presence.NewRegistry()
	m := mediator.New()
	facade := collab.NewFacade(registry, m)
	docs := collab.NewDocuments(documents, facade)

	return &Session{
		Registry:      registry,
		Mediator:      m,
		Facade:        facade,
		Documents:     docs,
		Templates:     templates,
		Renderer:      editor.Chain(editor.MarkdownRenderer{}, editor.SyntaxHighlight),
		Notifications: notifications.NewSink(opts.Clock, opts.Notifications),
		Chat:          components.NewChat(facade),
		Users:         components.NewUserList(registry),
		Editor:        components.NewEditor(facade, docs, templates, opts.Clock, opts.Editor),
		Simulator:     collab.NewSimulator(facade, opts.Clock, opts.PresenceInterval),
		DocumentAPI:   collab.NewAnnouncingStore(documents, facade, APIAuthor),
		store:         documents,
	}
}

// Start registers the components and opens the first document in the editor.
func (s *Session) Start(ctx context.Context) {
	s.Notifications.Attach(s.Registry, s.Mediator)
	s.Chat.Attach()
	s.Editor.Attach()
	s.Editor.Load(ctx)

	logrus.WithFields(logrus.Fields{
		"components": s.Mediator.Names(),
		"users":      len(s.Registry.Users()),
	}).Info("Collaboration session started")
}

// Close detaches every component and cancels pending timers.
func (s *Session) Close() {
	s.Editor.Close()
	s.Chat.Close()
	s.Users.Close()
	s.Notifications.Close()
}

var demoUsers = []core.User{
	{ID: 1, Name: "Ana García", Status: core.StatusOnline},
	{ID: 2, Name: "Carlos Rodríguez", Status: core.StatusOnline},
	{ID: 3, Name: "María López", Status: core.StatusIdle},
	{ID: 4, Name: "Juan Martínez", Status: core.StatusOffline},
	{ID: 5, Name: "Sofia Hernández", Status: core.StatusOnline},
}

var demoDocuments = []core.Document{
	{Name: "CD Report", Type: core.DocumentPDF, Content: "# CD\n## Dashboard\n### Profile\n\n---\n\nsome text some text some text"},
	{Name: "Technical Documentation", Type: core.DocumentWord, Content: "## Introduction\n\nThis is an **important document** with sample `code`.\n\n---\n\n### Features\n\n- Feature 1\n- Feature 2"},
	{Name: "Analysis Data", Type: core.DocumentExcel, Content: "## Executive Summary\n\nThe data shows **15%** growth in the last quarter."},
}

// Seed fills the roster with demo users and an empty document store with
// demo documents. Call it before Start so the roster is in place without
// announcing every user.
func (s *Session) Seed(ctx context.Context) error {
	for _, u := range demoUsers {
		s.Registry.AddUser(u)
	}

	existing, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	// oldest first so the first demo document lists on top
	for i := len(demoDocuments) - 1; i >= 0; i-- {
		doc := demoDocuments[i]
		if _, err := s.store.Create(ctx, &doc); err != nil {
			return fmt.Errorf("seeding document %q: %w", doc.Name, err)
		}
	}
	logrus.WithField("documents", len(demoDocuments)).Info("Seeded demo documents")
	return nil
}
