// Package services is the boundary the presentation layer talks to:
// subscriptions for reads, settle channels for mutations. Only settled
// outcomes cross this boundary; intermediate optimistic state is never
// surfaced as an error.
package services

import (
	"context"
	"fmt"

	"github.com/parlaysocial/feedcore/internal/client/api"
	"github.com/parlaysocial/feedcore/internal/client/debounce"
	"github.com/parlaysocial/feedcore/internal/client/interact"
	"github.com/parlaysocial/feedcore/internal/client/models"
	"github.com/parlaysocial/feedcore/internal/client/querycache"
	"github.com/parlaysocial/feedcore/internal/client/session"
	"github.com/parlaysocial/feedcore/internal/common"
	"github.com/parlaysocial/feedcore/internal/logging"
)

// FeedService exposes the social feed: post collections, comments, and the
// optimistic interactions on them.
type FeedService struct {
	cache *querycache.Manager
	ctrl  *interact.Controller
	seq   *debounce.Sequencer
	api   api.Client
	gate  *session.Gate
	log   logging.Logger
}

func NewFeedService(cache *querycache.Manager, ctrl *interact.Controller, seq *debounce.Sequencer, apiClient api.Client, gate *session.Gate, log logging.Logger) *FeedService {
	if log == nil {
		log = logging.Nop{}
	}
	return &FeedService{cache: cache, ctrl: ctrl, seq: seq, api: apiClient, gate: gate, log: log}
}

// SubscribeFeed follows the main post collection.
func (s *FeedService) SubscribeFeed(ctx context.Context) (*querycache.Subscription, error) {
	return s.cache.Subscribe(ctx, querycache.TagPosts, "all",
		func(ctx context.Context) (any, error) {
			posts, err := s.api.ListPosts(ctx)
			if err != nil {
				return nil, s.gate.CheckAuthError(ctx, err)
			}
			return posts, nil
		},
		querycache.JSONDecoder[[]models.Post](),
	)
}

// SubscribeUserPosts follows one user's posts.
func (s *FeedService) SubscribeUserPosts(ctx context.Context, username string) (*querycache.Subscription, error) {
	return s.cache.Subscribe(ctx, querycache.TagUserPosts, username,
		func(ctx context.Context) (any, error) {
			posts, err := s.api.ListUserPosts(ctx, username)
			if err != nil {
				return nil, s.gate.CheckAuthError(ctx, err)
			}
			return posts, nil
		},
		querycache.JSONDecoder[[]models.Post](),
	)
}

// SubscribeComments follows one post's comment collection.
func (s *FeedService) SubscribeComments(ctx context.Context, postID string) (*querycache.Subscription, error) {
	return s.cache.Subscribe(ctx, querycache.TagComments, postID,
		func(ctx context.Context) (any, error) {
			comments, err := s.api.ListComments(ctx, postID)
			if err != nil {
				return nil, s.gate.CheckAuthError(ctx, err)
			}
			return comments, nil
		},
		querycache.JSONDecoder[[]models.Comment](),
	)
}

// CreatePost publishes a new post and invalidates the post collections.
func (s *FeedService) CreatePost(ctx context.Context, text string, hashtags []string) (*models.Post, error) {
	if _, err := s.gate.Authorize(ctx); err != nil {
		return nil, err
	}
	post, err := s.api.CreatePost(ctx, text, hashtags)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", s.gate.CheckAuthError(ctx, err))
	}
	s.cache.Invalidate(querycache.TagPosts)
	s.cache.Invalidate(querycache.TagUserPosts)
	return post, nil
}

// DeletePost removes the post remotely and from every cached collection.
func (s *FeedService) DeletePost(ctx context.Context, postID string) error {
	if _, err := s.gate.Authorize(ctx); err != nil {
		return err
	}
	if err := s.api.DeletePost(ctx, postID); err != nil {
		return fmt.Errorf("delete post: %w", s.gate.CheckAuthError(ctx, err))
	}
	s.cache.RemovePost(postID)
	return nil
}

// ToggleLike flips the post's like state for the current user. Rapid re-taps
// within the debounce window collapse into the last one; the returned channel
// settles with the final outcome (common.ErrSuperseded for collapsed calls).
func (s *FeedService) ToggleLike(ctx context.Context, postID string) <-chan error {
	// The action may fire after the caller's context is done (screen
	// navigated away); the mutation itself must still settle.
	ctx = context.WithoutCancel(ctx)
	return s.seq.Guard("post-like/"+postID, func() error {
		post, ok := s.cache.PostView(postID)
		if !ok {
			return fmt.Errorf("post %s: %w", postID, common.ErrNotFound)
		}
		if post.LikedByCurrentUser {
			return s.ctrl.UnlikePost(ctx, postID)
		}
		return s.ctrl.LikePost(ctx, postID)
	})
}

// ToggleCommentLike is ToggleLike for a comment.
func (s *FeedService) ToggleCommentLike(ctx context.Context, postID, commentID string) <-chan error {
	ctx = context.WithoutCancel(ctx)
	return s.seq.Guard("comment-like/"+commentID, func() error {
		comment, ok := s.cache.CommentView(postID, commentID)
		if !ok {
			return fmt.Errorf("comment %s: %w", commentID, common.ErrNotFound)
		}
		if comment.LikedByCurrentUser {
			return s.ctrl.UnlikeComment(ctx, postID, commentID)
		}
		return s.ctrl.LikeComment(ctx, postID, commentID)
	})
}

// AddComment is deliberate (typed) input, so it is not debounced.
func (s *FeedService) AddComment(ctx context.Context, postID, content string) (*models.Comment, error) {
	return s.ctrl.AddComment(ctx, postID, content)
}

func (s *FeedService) DeleteComment(ctx context.Context, postID, commentID string) error {
	return s.ctrl.DeleteComment(ctx, postID, commentID)
}

// RefreshFeed refetches all subscribed collections; unforced calls coalesce
// inside the cooldown window. Reports whether a refresh ran.
func (s *FeedService) RefreshFeed(ctx context.Context, force bool) bool {
	return s.cache.RefreshAll(ctx, force)
}
