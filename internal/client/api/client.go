// Package api defines the remote feed API contract and its HTTP/JSON
// implementation. The transport surfaces HTTP status codes as sentinel
// errors so callers can tell a revoked session (401) apart from a state
// conflict (already liked) and from generic failures.
package api

import (
	"context"

	"github.com/parlaysocial/feedcore/internal/client/models"
)

// LikeResult is the server's authoritative like state after a mutation.
type LikeResult struct {
	LikeCount          int  `json:"likeCount"`
	LikedByCurrentUser bool `json:"likedByCurrentUser"`
}

// CommentChange is the server's view after a comment add/delete: the
// affected comment (nil for deletes) and the post's authoritative count.
type CommentChange struct {
	Comment      *models.Comment `json:"comment,omitempty"`
	CommentCount int             `json:"commentCount"`
}

// Client is the remote API used by the client core. Implementations own the
// access/refresh token pair after a successful Login or Register.
type Client interface {
	Close() error
	Ping(ctx context.Context) error

	Login(ctx context.Context, email, password string) (*models.Session, error)
	Register(ctx context.Context, email, username, password string) (*models.Session, error)
	Refresh(ctx context.Context) error

	ListPosts(ctx context.Context) ([]models.Post, error)
	ListUserPosts(ctx context.Context, username string) ([]models.Post, error)
	CreatePost(ctx context.Context, text string, hashtags []string) (*models.Post, error)
	DeletePost(ctx context.Context, postID string) error
	LikePost(ctx context.Context, postID string) (*LikeResult, error)
	UnlikePost(ctx context.Context, postID string) (*LikeResult, error)

	ListComments(ctx context.Context, postID string) ([]models.Comment, error)
	AddComment(ctx context.Context, postID, content string) (*CommentChange, error)
	DeleteComment(ctx context.Context, postID, commentID string) (*CommentChange, error)
	LikeComment(ctx context.Context, postID, commentID string) (*LikeResult, error)
	UnlikeComment(ctx context.Context, postID, commentID string) (*LikeResult, error)

	GetProfile(ctx context.Context, email string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error)
	UpdatePreferences(ctx context.Context, prefs models.Preferences) (*models.Profile, error)
}
