package models

import "time"

type UserRole string

const (
	RoleAttendee  UserRole = "ATTENDEE"
	RoleOrganizer UserRole = "ORGANIZER"
	RoleAdmin     UserRole = "ADMIN"
)

func (r UserRole) IsValid() bool {
	switch r {
	case RoleAttendee, RoleOrganizer, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	IsBanned     bool      `json:"isBanned"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (u *User) CanManageEvents() bool {
	return u.Role == RoleOrganizer || u.Role == RoleAdmin
}
