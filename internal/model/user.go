// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a registered account. Username and Email are unique across all
// users, compared case-sensitively as stored.
//
// PasswordHash holds the bcrypt output (salt and cost included) and is never
// serialized to clients.
type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	Bio            string    `json:"bio,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Follow is a directed edge: FollowerID follows FollowedID.
type Follow struct {
	FollowerID string    `json:"followerId"`
	FollowedID string    `json:"followedId"`
	CreatedAt  time.Time `json:"createdAt"`
}
