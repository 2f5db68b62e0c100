package domain

import "time"

// Note is a free-form farming note owned by a single user.
type Note struct {
	ID        string
	UserID    int64
	Title     string
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
