package models

import "time"

// Post is a single feed item. LikeCount and CommentCount are server-owned:
// optimistic deltas applied locally are always replaced by the server's
// authoritative values once a mutation settles.
type Post struct {
	ID                 string    `json:"id"`
	AuthorUsername     string    `json:"authorUsername"`
	Text               string    `json:"text"`
	Hashtags           []string  `json:"hashtags"`
	CreatedAt          time.Time `json:"createdAt"`
	LikeCount          int       `json:"likeCount"`
	LikedByCurrentUser bool      `json:"likedByCurrentUser"`
	CommentCount       int       `json:"commentCount"`
}
