package core

type UserStatus string

const (
	StatusOnline  UserStatus = "online"
	StatusOffline UserStatus = "offline"
	StatusIdle    UserStatus = "idle"
	StatusTyping  UserStatus = "typing"
)

// Valid reports whether s is a known presence status.
func (s UserStatus) Valid() bool {
	switch s {
	case StatusOnline, StatusOffline, StatusIdle, StatusTyping:
		return true
	}
	return false
}

type User struct {
	ID     int        `json:"id"`
	Name   string     `json:"name"`
	Status UserStatus `json:"status,omitempty"`
}

func NewUser(id int, name string, status UserStatus) User {
	if status == "" {
		status = StatusOnline
	}
	return User{ID: id, Name: name, Status: status}
}
