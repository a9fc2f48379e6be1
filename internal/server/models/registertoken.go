package models

import "time"

// RegisterToken is an invite code that lets someone sign up.
type RegisterToken struct {
	ID        int64
	Token     string
	CreatedAt time.Time
}
