package models

import "time"

// Comment belongs to a post but lives in its own collection keyed by PostID,
// so Post records never embed unbounded lists.
type Comment struct {
	ID                 string    `json:"id"`
	PostID             string    `json:"postId"`
	AuthorID           string    `json:"authorId"`
	AuthorUsername     string    `json:"authorUsername"`
	Text               string    `json:"text"`
	CreatedAt          time.Time `json:"createdAt"`
	LikeCount          int       `json:"likeCount"`
	LikedByCurrentUser bool      `json:"likedByCurrentUser"`
}
