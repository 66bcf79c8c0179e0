package model

import "time"

// RoleRequestStatus is the state of a RoleRequest.
//
//	PENDING ──► ACCEPTED
//	   │
//	   └──────► REJECTED
//
// ACCEPTED and REJECTED are terminal.
type RoleRequestStatus string

const (
	StatusPending  RoleRequestStatus = "PENDING"
	StatusAccepted RoleRequestStatus = "ACCEPTED"
	StatusRejected RoleRequestStatus = "REJECTED"
)

// IsDecision reports whether s is a valid outcome for resolving a request.
func (s RoleRequestStatus) IsDecision() bool {
	return s == StatusAccepted || s == StatusRejected
}

// RoleRequest is an auditable record of a user's ask to change role.
type RoleRequest struct {
	ID        int64             `json:"id"        db:"id"`
	UserID    int64             `json:"userId"    db:"user_id"`
	Role      Role              `json:"role"      db:"role"` // requested role
	Status    RoleRequestStatus `json:"status"    db:"status"`
	CreatedAt time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time         `json:"updatedAt" db:"updated_at"`
}
