package session

import "time"

// Session is one login. The access token's sid claim names it.
type Session struct {
	ID        string
	UserID    int64
	Role      string
	IP        string
	UserAgent string
	CreatedAt time.Time
	ExpiresAt time.Time
}
