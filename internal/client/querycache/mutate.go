package querycache

import "github.com/parlaysocial/feedcore/internal/client/models"

// The reducer entry points below are the only way cached payloads change
// outside of a fetch. They copy-on-write: subscribers holding a previously
// published slice never observe it mutating underneath them.

// PostView returns a copy of the cached post, searching every post-bearing
// collection.
func (m *Manager) PostView(postID string) (models.Post, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tag := range postTags {
		for k, e := range m.entries {
			if k.tag != tag || !e.hasPayload {
				continue
			}
			posts, ok := e.payload.([]models.Post)
			if !ok {
				continue
			}
			for _, p := range posts {
				if p.ID == postID {
					return p, true
				}
			}
		}
	}
	return models.Post{}, false
}

// MutatePost applies fn to the post in every collection containing it and
// publishes the change synchronously, so optimistic updates are visible to
// all subscribers before the authoritative request returns. Reports whether
// any collection held the post.
func (m *Manager) MutatePost(postID string, fn func(*models.Post)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	found := false
	for _, tag := range postTags {
		for k, e := range m.entries {
			if k.tag != tag || !e.hasPayload {
				continue
			}
			posts, ok := e.payload.([]models.Post)
			if !ok {
				continue
			}
			for i := range posts {
				if posts[i].ID != postID {
					continue
				}
				next := make([]models.Post, len(posts))
				copy(next, posts)
				fn(&next[i])
				e.payload = next
				m.publishLocked(e, Result{Data: next, Err: e.err})
				found = true
				break
			}
		}
	}
	return found
}

// RemovePost drops the post from every collection containing it.
func (m *Manager) RemovePost(postID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, tag := range postTags {
		for k, e := range m.entries {
			if k.tag != tag || !e.hasPayload {
				continue
			}
			posts, ok := e.payload.([]models.Post)
			if !ok {
				continue
			}
			for i := range posts {
				if posts[i].ID != postID {
					continue
				}
				next := make([]models.Post, 0, len(posts)-1)
				next = append(next, posts[:i]...)
				next = append(next, posts[i+1:]...)
				e.payload = next
				m.publishLocked(e, Result{Data: next, Err: e.err})
				break
			}
		}
	}
}

// CommentView returns a copy of the cached comment.
func (m *Manager) CommentView(postID, commentID string) (models.Comment, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[entryKey{tag: TagComments, key: postID}]
	if !ok || !e.hasPayload {
		return models.Comment{}, false
	}
	comments, ok := e.payload.([]models.Comment)
	if !ok {
		return models.Comment{}, false
	}
	for _, c := range comments {
		if c.ID == commentID {
			return c, true
		}
	}
	return models.Comment{}, false
}

// MutateComment applies fn to one comment in the post's comment collection.
func (m *Manager) MutateComment(postID, commentID string, fn func(*models.Comment)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[entryKey{tag: TagComments, key: postID}]
	if !ok || !e.hasPayload {
		return false
	}
	comments, ok := e.payload.([]models.Comment)
	if !ok {
		return false
	}
	for i := range comments {
		if comments[i].ID != commentID {
			continue
		}
		next := make([]models.Comment, len(comments))
		copy(next, comments)
		fn(&next[i])
		e.payload = next
		m.publishLocked(e, Result{Data: next, Err: e.err})
		return true
	}
	return false
}
