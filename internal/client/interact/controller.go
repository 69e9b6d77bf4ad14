package interact

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/parlaysocial/feedcore/internal/client/api"
	"github.com/parlaysocial/feedcore/internal/client/models"
	"github.com/parlaysocial/feedcore/internal/client/querycache"
	"github.com/parlaysocial/feedcore/internal/common"
	"github.com/parlaysocial/feedcore/internal/logging"
)

// SessionGate is the slice of the session gate the controller needs: turning
// a verbatim 401 into revocation.
type SessionGate interface {
	CheckAuthError(ctx context.Context, err error) error
}

// Controller applies optimistic mutations through the query cache and
// reconciles them with the server. The server owns the counters: once a
// mutation settles, cached counts are the server's, never the optimistic ones.
type Controller struct {
	cache   *querycache.Manager
	api     api.Client
	gate    SessionGate
	log     logging.Logger
	timeout time.Duration

	mu          sync.Mutex
	pending     map[string]*Pending
	lastSettled map[string]Settlement
}

func NewController(cache *querycache.Manager, apiClient api.Client, gate SessionGate, log logging.Logger, timeout time.Duration) *Controller {
	if log == nil {
		log = logging.Nop{}
	}
	if timeout <= 0 {
		timeout = common.DefaultRequestTimeout
	}
	return &Controller{
		cache:       cache,
		api:         apiClient,
		gate:        gate,
		log:         log,
		timeout:     timeout,
		pending:     make(map[string]*Pending),
		lastSettled: make(map[string]Settlement),
	}
}

// begin registers a pending interaction, rejecting (not queueing) when one of
// the same collision class is already in flight.
func (c *Controller) begin(class string, kind Kind) (*Pending, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[class]; ok {
		return nil, fmt.Errorf("%s on %s: %w", kind, class, common.ErrActionInFlight)
	}
	p := &Pending{
		ID:          uuid.NewString(),
		Class:       class,
		Kind:        kind,
		SubmittedAt: time.Now(),
		state:       StateApplied,
	}
	c.pending[class] = p
	return p, nil
}

func (c *Controller) settle(p *Pending, st State) {
	c.mu.Lock()
	p.state = st
	delete(c.pending, p.Class)
	c.lastSettled[p.Class] = Settlement{ID: p.ID, Kind: p.Kind, State: st}
	c.mu.Unlock()

	c.log.Debug(context.Background(), "interaction settled",
		"id", p.ID, "kind", p.Kind.String(), "class", p.Class, "state", st.String())
}

// HasPending reports whether an interaction is in flight for the post's
// like/unlike collision class.
func (c *Controller) HasPending(postID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[classPostLike(postID)]
	return ok
}

// LastSettled exposes the settlement of the most recent interaction on the
// post's like class: the interaction id, its kind, and whether it ended
// Committed or RolledBack.
func (c *Controller) LastSettled(postID string) (Settlement, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.lastSettled[classPostLike(postID)]
	return s, ok
}

// fail rolls the interaction back. A 401 skips the snapshot restore: the
// revocation broadcast evicts the whole cache, and restoring into evicted
// entries must not resurrect protected data.
func (c *Controller) fail(ctx context.Context, p *Pending, restore func(), err error) error {
	if errors.Is(err, api.ErrUnauthorized) {
		c.settle(p, StateRolledBack)
		return c.gate.CheckAuthError(ctx, err)
	}
	restore()
	c.settle(p, StateRolledBack)
	return err
}

// LikePost optimistically likes a post. A conflict reporting the target as
// already liked means the cache diverged from the server; the controller
// converges by issuing the corresponding unlike instead of surfacing an error.
func (c *Controller) LikePost(ctx context.Context, postID string) error {
	prev, ok := c.cache.PostView(postID)
	if !ok {
		return fmt.Errorf("post %s: %w", postID, common.ErrNotFound)
	}
	p, err := c.begin(classPostLike(postID), KindLikePost)
	if err != nil {
		return err
	}
	if prev.LikedByCurrentUser {
		// Already in the desired state locally: no network call.
		c.settle(p, StateCommitted)
		return nil
	}

	c.cache.MutatePost(postID, func(pp *models.Post) {
		pp.LikedByCurrentUser = true
		pp.LikeCount++
	})
	restore := func() {
		c.cache.MutatePost(postID, func(pp *models.Post) {
			pp.LikedByCurrentUser = prev.LikedByCurrentUser
			pp.LikeCount = prev.LikeCount
		})
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.api.LikePost(reqCtx, postID)
	if err != nil && errors.Is(err, api.ErrAlreadyLiked) {
		c.log.Info(ctx, "like conflict, converging with unlike", "post", postID)
		res, err = c.api.UnlikePost(reqCtx, postID)
	}
	if err != nil {
		return c.fail(ctx, p, restore, fmt.Errorf("like post: %w", err))
	}

	c.cache.MutatePost(postID, func(pp *models.Post) {
		pp.LikeCount = res.LikeCount
		pp.LikedByCurrentUser = res.LikedByCurrentUser
	})
	c.settle(p, StateCommitted)
	return nil
}

// UnlikePost optimistically unlikes a post.
func (c *Controller) UnlikePost(ctx context.Context, postID string) error {
	prev, ok := c.cache.PostView(postID)
	if !ok {
		return fmt.Errorf("post %s: %w", postID, common.ErrNotFound)
	}
	p, err := c.begin(classPostLike(postID), KindUnlikePost)
	if err != nil {
		return err
	}
	if !prev.LikedByCurrentUser {
		c.settle(p, StateCommitted)
		return nil
	}

	c.cache.MutatePost(postID, func(pp *models.Post) {
		pp.LikedByCurrentUser = false
		pp.LikeCount--
	})
	restore := func() {
		c.cache.MutatePost(postID, func(pp *models.Post) {
			pp.LikedByCurrentUser = prev.LikedByCurrentUser
			pp.LikeCount = prev.LikeCount
		})
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.api.UnlikePost(reqCtx, postID)
	if err != nil {
		return c.fail(ctx, p, restore, fmt.Errorf("unlike post: %w", err))
	}

	c.cache.MutatePost(postID, func(pp *models.Post) {
		pp.LikeCount = res.LikeCount
		pp.LikedByCurrentUser = res.LikedByCurrentUser
	})
	c.settle(p, StateCommitted)
	return nil
}

// AddComment optimistically bumps the post's comment count, then reconciles
// with the server's count and invalidates the post's comment collection so
// subscribers pick up the new comment itself.
func (c *Controller) AddComment(ctx context.Context, postID, content string) (*models.Comment, error) {
	prev, ok := c.cache.PostView(postID)
	if !ok {
		return nil, fmt.Errorf("post %s: %w", postID, common.ErrNotFound)
	}
	p, err := c.begin(classCommentAdd(postID), KindAddComment)
	if err != nil {
		return nil, err
	}

	c.cache.MutatePost(postID, func(pp *models.Post) { pp.CommentCount++ })
	restore := func() {
		c.cache.MutatePost(postID, func(pp *models.Post) { pp.CommentCount = prev.CommentCount })
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	change, err := c.api.AddComment(reqCtx, postID, content)
	if err != nil {
		return nil, c.fail(ctx, p, restore, fmt.Errorf("add comment: %w", err))
	}

	c.cache.MutatePost(postID, func(pp *models.Post) { pp.CommentCount = change.CommentCount })
	c.cache.Invalidate(querycache.TagComments, postID)
	c.settle(p, StateCommitted)
	return change.Comment, nil
}

// DeleteComment optimistically drops the post's comment count.
func (c *Controller) DeleteComment(ctx context.Context, postID, commentID string) error {
	prev, ok := c.cache.PostView(postID)
	if !ok {
		return fmt.Errorf("post %s: %w", postID, common.ErrNotFound)
	}
	p, err := c.begin(classCommentEdit(commentID), KindDeleteComment)
	if err != nil {
		return err
	}

	c.cache.MutatePost(postID, func(pp *models.Post) { pp.CommentCount-- })
	restore := func() {
		c.cache.MutatePost(postID, func(pp *models.Post) { pp.CommentCount = prev.CommentCount })
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	change, err := c.api.DeleteComment(reqCtx, postID, commentID)
	if err != nil {
		return c.fail(ctx, p, restore, fmt.Errorf("delete comment: %w", err))
	}

	c.cache.MutatePost(postID, func(pp *models.Post) { pp.CommentCount = change.CommentCount })
	c.cache.Invalidate(querycache.TagComments, postID)
	c.settle(p, StateCommitted)
	return nil
}

// LikeComment mirrors LikePost for a comment, including conflict convergence.
func (c *Controller) LikeComment(ctx context.Context, postID, commentID string) error {
	prev, ok := c.cache.CommentView(postID, commentID)
	if !ok {
		return fmt.Errorf("comment %s: %w", commentID, common.ErrNotFound)
	}
	p, err := c.begin(classCommentLike(commentID), KindLikeComment)
	if err != nil {
		return err
	}
	if prev.LikedByCurrentUser {
		c.settle(p, StateCommitted)
		return nil
	}

	c.cache.MutateComment(postID, commentID, func(cc *models.Comment) {
		cc.LikedByCurrentUser = true
		cc.LikeCount++
	})
	restore := func() {
		c.cache.MutateComment(postID, commentID, func(cc *models.Comment) {
			cc.LikedByCurrentUser = prev.LikedByCurrentUser
			cc.LikeCount = prev.LikeCount
		})
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.api.LikeComment(reqCtx, postID, commentID)
	if err != nil && errors.Is(err, api.ErrAlreadyLiked) {
		c.log.Info(ctx, "comment like conflict, converging with unlike", "comment", commentID)
		res, err = c.api.UnlikeComment(reqCtx, postID, commentID)
	}
	if err != nil {
		return c.fail(ctx, p, restore, fmt.Errorf("like comment: %w", err))
	}

	c.cache.MutateComment(postID, commentID, func(cc *models.Comment) {
		cc.LikeCount = res.LikeCount
		cc.LikedByCurrentUser = res.LikedByCurrentUser
	})
	c.settle(p, StateCommitted)
	return nil
}

// UnlikeComment mirrors UnlikePost for a comment.
func (c *Controller) UnlikeComment(ctx context.Context, postID, commentID string) error {
	prev, ok := c.cache.CommentView(postID, commentID)
	if !ok {
		return fmt.Errorf("comment %s: %w", commentID, common.ErrNotFound)
	}
	p, err := c.begin(classCommentLike(commentID), KindUnlikeComment)
	if err != nil {
		return err
	}
	if !prev.LikedByCurrentUser {
		c.settle(p, StateCommitted)
		return nil
	}

	c.cache.MutateComment(postID, commentID, func(cc *models.Comment) {
		cc.LikedByCurrentUser = false
		cc.LikeCount--
	})
	restore := func() {
		c.cache.MutateComment(postID, commentID, func(cc *models.Comment) {
			cc.LikedByCurrentUser = prev.LikedByCurrentUser
			cc.LikeCount = prev.LikeCount
		})
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.api.UnlikeComment(reqCtx, postID, commentID)
	if err != nil {
		return c.fail(ctx, p, restore, fmt.Errorf("unlike comment: %w", err))
	}

	c.cache.MutateComment(postID, commentID, func(cc *models.Comment) {
		cc.LikeCount = res.LikeCount
		cc.LikedByCurrentUser = res.LikedByCurrentUser
	})
	c.settle(p, StateCommitted)
	return nil
}
