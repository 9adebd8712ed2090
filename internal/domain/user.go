package domain

import "time"

// User represents an authenticated user of the system.
type User struct {
	ID           int64
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Name returns the user's full name as a single string.
func (u *User) Name() string {
	return u.FirstName + " " + u.LastName
}
