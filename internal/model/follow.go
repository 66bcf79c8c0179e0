package model

import "time"

// FollowEdge is a directed "follows" relation: FollowerID follows FollowingID.
// The pair is unique.
type FollowEdge struct {
	FollowerID  int64     `json:"followerId"  db:"follower_id"`
	FollowingID int64     `json:"followingId" db:"following_id"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
}

// Relations is the result of listing a user's social graph.
type Relations struct {
	Followers []PublicProfile `json:"followers"`
	Following []PublicProfile `json:"following"`
}
