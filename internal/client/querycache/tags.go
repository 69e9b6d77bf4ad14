// Package querycache is the in-memory, tag-indexed cache of remote
// collections. Subscribers to one (tag, key) share a single in-flight fetch
// and a single cached result; invalidation is stale-while-revalidate, so a
// stale payload stays visible until its refetch resolves. The manager is the
// sole mutator of cached payloads.
package querycache

import (
	"context"
	"encoding/json"
)

// Tag groups related cache entries for bulk invalidation.
type Tag string

const (
	TagPosts     Tag = "posts"
	TagUserPosts Tag = "user_posts"
	TagComments  Tag = "comments"
	TagProfile   Tag = "profile"
)

// postTags are the tags whose payloads are []models.Post.
var postTags = []Tag{TagPosts, TagUserPosts}

// Result is what subscribers observe. Skipped means the query never ran
// because no session exists; it is distinct from an errored fetch. When Err
// is set alongside Data, Data is the last-good payload.
type Result struct {
	Data    any
	Loading bool
	Skipped bool
	Err     error
}

// Loader fetches the authoritative payload for one (tag, key).
type Loader func(ctx context.Context) (any, error)

// Decoder revives a persisted snapshot into the payload type of its entry.
type Decoder func([]byte) (any, error)

// JSONDecoder builds a Decoder for a concrete payload type.
func JSONDecoder[T any]() Decoder {
	return func(data []byte) (any, error) {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}
