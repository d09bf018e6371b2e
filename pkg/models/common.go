package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository sentinels shared by the postgres and in-memory stores.
var (
	ErrEventNotFound     = errors.New("event not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrSlugTaken         = errors.New("event slug already in use")
	ErrUsernameTaken     = errors.New("username already taken")
	ErrAlreadyInterested = errors.New("user already registered interest")
	ErrStatusConflict    = errors.New("event status changed concurrently")
)

// NewUUID generates a new UUID string
func NewUUID() string {
	return uuid.New().String()
}

// Timestamps contains common time fields
type Timestamps struct {
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}
