// Package presence keeps the roster of users present in a collaboration
// session and publishes membership, status and typing changes.
package presence

import (
	"collab-docs/core"
	"collab-docs/metrics"
	"maps"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"
)

type EventType string

const (
	EventJoined EventType = "joined"
	EventLeft   EventType = "left"
	EventStatus EventType = "status"
	EventTyping EventType = "typing"
)

// Event describes one change to the roster.
type Event struct {
	Type EventType `json:"type"`
	User core.User `json:"user"`
}

type delivery struct {
	seq    uint64
	roster []core.User // nil when the roster did not change
	event  Event
	// target, when set, receives roster and nothing else gets this delivery.
	target func([]core.User)
}

type userSub struct {
	fn func([]core.User)
	// after is the last roster seq the subscriber had already seen when it joined.
	after uint64
}

// Registry is the source of truth for who is present and what they are doing.
//
// Every roster mutation publishes a fresh roster snapshot to roster
// subscribers and a discrete Event to event subscribers. Deliveries go through
// a single FIFO queue drained by one goroutine at a time: subscribers observe
// changes in the order the mutations were made, and a mutation made from
// inside a subscriber is delivered once the current delivery ends.
//
// A mutating call delivers its own change before returning unless another
// goroutine is draining at that moment. In that case the change is queued and
// that goroutine delivers it, so a caller must not assume subscribers have
// already seen it.
type Registry struct {
	mu        sync.Mutex
	users     []core.User
	seq       uint64
	userSubs  map[int]userSub
	eventSubs map[int]func(Event)
	nextSub   int
	queue     []delivery
	draining  bool
}

func NewRegistry() *Registry {
	return &Registry{
		users:     []core.User{},
		userSubs:  make(map[int]userSub),
		eventSubs: make(map[int]func(Event)),
	}
}

// Users returns the current roster snapshot.
func (r *Registry) Users() []core.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.users)
}

// Find returns the present user with the given id.
func (r *Registry) Find(userID int) (core.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.indexOf(userID); i >= 0 {
		return r.users[i], true
	}
	return core.User{}, false
}

// SubscribeUsers delivers the current roster to fn and then every newer
// snapshot. The first snapshot goes through the delivery queue, so fn never
// sees a roster older than one it already received. The returned func
// unsubscribes.
func (r *Registry) SubscribeUsers(fn func([]core.User)) func() {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.userSubs[id] = userSub{fn: fn, after: r.seq}
	r.queue = append(r.queue, delivery{seq: r.seq, roster: slices.Clone(r.users), target: fn})
	r.mu.Unlock()

	r.drain()

	return func() {
		r.mu.Lock()
		delete(r.userSubs, id)
		r.mu.Unlock()
	}
}

// SubscribeEvents registers fn for every future roster event.
func (r *Registry) SubscribeEvents(fn func(Event)) func() {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.eventSubs[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.eventSubs, id)
		r.mu.Unlock()
	}
}

// AddUser inserts user unless a user with the same id is already present.
// It reports whether the roster changed.
func (r *Registry) AddUser(user core.User) bool {
	r.mu.Lock()
	if r.indexOf(user.ID) >= 0 {
		r.mu.Unlock()
		return false
	}
	r.add(user)
	r.mu.Unlock()

	r.drain()
	return true
}

// Join adds a user called name under the next free id and returns it.
func (r *Registry) Join(name string, status core.UserStatus) core.User {
	r.mu.Lock()
	user := core.NewUser(r.nextID(), name, status)
	r.add(user)
	r.mu.Unlock()

	r.drain()
	return user
}

// JoinByName returns the present user called name, adding one under the next
// free id when there is none. It reports whether a user was added.
func (r *Registry) JoinByName(name string, status core.UserStatus) (core.User, bool) {
	r.mu.Lock()
	if i := slices.IndexFunc(r.users, func(u core.User) bool { return u.Name == name }); i >= 0 {
		user := r.users[i]
		r.mu.Unlock()
		return user, false
	}
	user := core.NewUser(r.nextID(), name, status)
	r.add(user)
	r.mu.Unlock()

	r.drain()
	return user, true
}

// add must be called with r.mu held.
func (r *Registry) add(user core.User) {
	next := make([]core.User, 0, len(r.users)+1)
	next = append(next, r.users...)
	next = append(next, user)
	r.users = next
	r.enqueue(delivery{roster: next, event: Event{Type: EventJoined, User: user}})
	logrus.WithFields(logrus.Fields{"user_id": user.ID, "user_name": user.Name}).Debug("User joined session")
}

// nextID must be called with r.mu held.
func (r *Registry) nextID() int {
	id := 1
	for _, u := range r.users {
		id = max(id, u.ID+1)
	}
	return id
}

// RemoveUser drops the user with the given id. Absent ids are ignored.
func (r *Registry) RemoveUser(userID int) bool {
	r.mu.Lock()
	i := r.indexOf(userID)
	if i < 0 {
		r.mu.Unlock()
		return false
	}
	user := r.users[i]
	next := make([]core.User, 0, len(r.users)-1)
	next = append(next, r.users[:i]...)
	next = append(next, r.users[i+1:]...)
	r.users = next
	r.enqueue(delivery{roster: next, event: Event{Type: EventLeft, User: user}})
	r.mu.Unlock()

	logrus.WithFields(logrus.Fields{"user_id": user.ID, "user_name": user.Name}).Debug("User left session")
	r.drain()
	return true
}

// UpdateStatus replaces the status of a present user.
func (r *Registry) UpdateStatus(userID int, status core.UserStatus) bool {
	r.mu.Lock()
	i := r.indexOf(userID)
	if i < 0 {
		r.mu.Unlock()
		return false
	}
	next := slices.Clone(r.users)
	next[i].Status = status
	user := next[i]
	r.users = next
	r.enqueue(delivery{roster: next, event: Event{Type: EventStatus, User: user}})
	r.mu.Unlock()

	r.drain()
	return true
}

// NotifyTyping emits a typing event for a present user without touching the roster.
func (r *Registry) NotifyTyping(userID int) bool {
	r.mu.Lock()
	i := r.indexOf(userID)
	if i < 0 {
		r.mu.Unlock()
		return false
	}
	r.enqueue(delivery{event: Event{Type: EventTyping, User: r.users[i]}})
	r.mu.Unlock()

	r.drain()
	return true
}

func (r *Registry) indexOf(userID int) int {
	return slices.IndexFunc(r.users, func(u core.User) bool { return u.ID == userID })
}

// enqueue must be called with r.mu held.
func (r *Registry) enqueue(d delivery) {
	if d.roster != nil {
		r.seq++
		d.seq = r.seq
	}
	r.queue = append(r.queue, d)
}

// drain delivers queued changes unless another call is already doing so.
func (r *Registry) drain() {
	r.mu.Lock()
	if r.draining {
		r.mu.Unlock()
		return
	}
	r.draining = true

	for len(r.queue) > 0 {
		d := r.queue[0]
		r.queue = r.queue[1:]

		if d.target != nil {
			r.mu.Unlock()
			roster := d.roster
			safeCall(func() { d.target(roster) })
			r.mu.Lock()
			continue
		}

		var userSubs []func([]core.User)
		if d.roster != nil {
			userSubs = make([]func([]core.User), 0, len(r.userSubs))
			for _, id := range slices.Sorted(maps.Keys(r.userSubs)) {
				if sub := r.userSubs[id]; d.seq > sub.after {
					userSubs = append(userSubs, sub.fn)
				}
			}
		}
		eventSubs := make([]func(Event), 0, len(r.eventSubs))
		for _, id := range slices.Sorted(maps.Keys(r.eventSubs)) {
			eventSubs = append(eventSubs, r.eventSubs[id])
		}
		size := len(r.users)
		r.mu.Unlock()

		metrics.SessionEvents.WithLabelValues(string(d.event.Type)).Inc()
		metrics.PresentUsers.Set(float64(size))

		for _, fn := range userSubs {
			roster := slices.Clone(d.roster)
			safeCall(func() { fn(roster) })
		}
		for _, fn := range eventSubs {
			ev := d.event
			safeCall(func() { fn(ev) })
		}

		r.mu.Lock()
	}

	r.draining = false
	r.mu.Unlock()
}

func safeCall(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			logrus.WithField("panic", rec).Error("Presence subscriber panicked")
		}
	}()
	fn()
}
