package components

import (
	"collab-docs/core"
	"collab-docs/presence"
	"slices"
	"strings"
	"sync"
	"unicode"
)

// UserList mirrors the session roster for display.
type UserList struct {
	mu          sync.Mutex
	users       []core.User
	unsubscribe func()
}

func NewUserList(registry *presence.Registry) *UserList {
	l := &UserList{}
	l.unsubscribe = registry.SubscribeUsers(func(users []core.User) {
		l.mu.Lock()
		l.users = users
		l.mu.Unlock()
	})
	return l
}

func (l *UserList) Close() {
	if l.unsubscribe != nil {
		l.unsubscribe()
	}
}

func (l *UserList) Users() []core.User {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.users)
}

// Filter returns the users whose name contains term, ignoring case. A blank
// term matches everyone.
func (l *UserList) Filter(term string) []core.User {
	users := l.Users()
	if strings.TrimSpace(term) == "" {
		return users
	}
	term = strings.ToLower(term)
	return slices.DeleteFunc(users, func(u core.User) bool {
		return !strings.Contains(strings.ToLower(u.Name), term)
	})
}

func (l *UserList) OnlineCount() int {
	n := 0
	for _, u := range l.Users() {
		if u.Status == core.StatusOnline {
			n++
		}
	}
	return n
}

// Initials returns up to two upper-cased initials of name.
func Initials(name string) string {
	var out []rune
	for _, part := range strings.Split(name, " ") {
		if part == "" {
			continue
		}
		r := []rune(part)[0]
		out = append(out, unicode.ToUpper(r))
		if len(out) == 2 {
			break
		}
	}
	return string(out)
}
