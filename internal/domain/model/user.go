package model

import (
	"time"
)

type Role string

const (
	RoleLearner    Role = "learner"
	RoleInstructor Role = "instructor"
)

func (r Role) Valid() bool {
	return r == RoleLearner || r == RoleInstructor
}

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Not exposed
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session identifies the caller of an authenticated operation. It is built per request
// from token claims and passed explicitly; nothing keeps it between requests.
type Session struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

func (s Session) IsInstructor() bool {
	return s.Role == RoleInstructor
}
