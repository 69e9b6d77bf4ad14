// Package interact orchestrates optimistic mutations: apply the local delta
// immediately, issue the authoritative request, then commit the server's
// canonical values or roll back to the pre-mutation snapshot. At most one
// pending interaction exists per collision class at any instant.
package interact

import "time"

// Kind identifies an optimistic mutation.
type Kind int

const (
	KindLikePost Kind = iota
	KindUnlikePost
	KindAddComment
	KindDeleteComment
	KindLikeComment
	KindUnlikeComment
)

func (k Kind) String() string {
	switch k {
	case KindLikePost:
		return "like_post"
	case KindUnlikePost:
		return "unlike_post"
	case KindAddComment:
		return "add_comment"
	case KindDeleteComment:
		return "delete_comment"
	case KindLikeComment:
		return "like_comment"
	case KindUnlikeComment:
		return "unlike_comment"
	default:
		return "unknown"
	}
}

// State is the pending interaction's lifecycle: Applied, then exactly one of
// Committed or RolledBack.
type State int

const (
	StateApplied State = iota
	StateCommitted
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StateApplied:
		return "applied"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Pending tracks one in-flight optimistic mutation.
type Pending struct {
	ID          string
	Class       string
	Kind        Kind
	SubmittedAt time.Time

	state State
}

// Settlement is the final record of an interaction: which mutation it was
// and how it ended. The ID correlates a settlement with the pending record
// it came from (and with log lines about it).
type Settlement struct {
	ID    string
	Kind  Kind
	State State
}

// Collision classes. Like and unlike on one target are mutually exclusive;
// comment-count mutations form their own class per entity, independent of
// likes on the same entity (they touch different fields).
func classPostLike(postID string) string       { return "post-like/" + postID }
func classCommentLike(commentID string) string { return "comment-like/" + commentID }
func classCommentAdd(postID string) string     { return "comment-add/" + postID }
func classCommentEdit(commentID string) string { return "comment-edit/" + commentID }
