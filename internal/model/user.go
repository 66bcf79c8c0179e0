// Package model defines the data structures shared by every layer.
package model

import "time"

// Role is a coarse permission tier on a User.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleWriter Role = "WRITER"
	RoleReader Role = "READER" // default for new accounts
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleWriter, RoleReader:
		return true
	}
	return false
}

// User represents a registered account.
//
// WHY POINTERS FOR PasswordHash AND OAuthID?
// Both columns are nullable. An account created through Google or GitHub has
// no password, and a locally registered account has no OAuth id. A nil pointer
// maps to SQL NULL, which matters for OAuthID: the UNIQUE constraint ignores
// NULLs, but it would reject two empty strings.
//
// PasswordHash is never serialised (json:"-").
type User struct {
	ID           int64     `json:"id"        db:"id"`
	Email        string    `json:"email"     db:"email"`
	Username     string    `json:"username"  db:"username"`
	PasswordHash *string   `json:"-"         db:"password_hash"`
	Role         Role      `json:"role"      db:"role"`
	OAuthID      *string   `json:"oauthId,omitempty" db:"oauth_id"` // "google:<sub>" or "github:<id>"
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// PublicProfile is the minimal projection of a User shown to other users.
type PublicProfile struct {
	ID       int64  `json:"id"       db:"id"`
	Username string `json:"username" db:"username"`
	Email    string `json:"email"    db:"email"`
}
