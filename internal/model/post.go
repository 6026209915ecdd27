package model

import "time"

// Post is a blog entry owned by exactly one user. Titles are globally unique.
//
// Author is the owner's username. It is filled in by read queries and ignored
// on writes.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Slug      string    `json:"slug"`
	Published bool      `json:"published"`
	UserID    string    `json:"userId"`
	Author    string    `json:"author,omitempty"`
	Tags      []Tag     `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
}

// TagNames returns the names of the post's tags in association order.
func (p *Post) TagNames() []string {
	names := make([]string, len(p.Tags))
	for i, t := range p.Tags {
		names[i] = t.Name
	}
	return names
}

// Tag is a free-form label. Names are unique and case-sensitive; tags are
// created on first use and outlive the posts that reference them.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Comment is immutable once written. It is removed only when its post (or its
// author's account) is deleted.
type Comment struct {
	ID        string    `json:"id"`
	Body      string    `json:"body"`
	UserID    string    `json:"userId"`
	PostID    string    `json:"postId"`
	Author    string    `json:"author,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
