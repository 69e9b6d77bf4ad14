package services

import (
	"context"
	"fmt"

	"github.com/parlaysocial/feedcore/internal/client/api"
	"github.com/parlaysocial/feedcore/internal/client/models"
	"github.com/parlaysocial/feedcore/internal/client/querycache"
	"github.com/parlaysocial/feedcore/internal/client/session"
	"github.com/parlaysocial/feedcore/internal/logging"
)

// ProfileService exposes the current user's profile and preferences.
type ProfileService struct {
	cache *querycache.Manager
	api   api.Client
	gate  *session.Gate
	log   logging.Logger
}

func NewProfileService(cache *querycache.Manager, apiClient api.Client, gate *session.Gate, log logging.Logger) *ProfileService {
	if log == nil {
		log = logging.Nop{}
	}
	return &ProfileService{cache: cache, api: apiClient, gate: gate, log: log}
}

// SubscribeProfile follows the current user's profile, keyed by the session
// principal's email.
func (s *ProfileService) SubscribeProfile(ctx context.Context) (*querycache.Subscription, error) {
	sess, err := s.gate.Authorize(ctx)
	if err != nil {
		// Let the cache manager produce the skipped result.
		return s.cache.Subscribe(ctx, querycache.TagProfile, "me", nil, nil)
	}
	email := sess.Principal.Email
	return s.cache.Subscribe(ctx, querycache.TagProfile, email,
		func(ctx context.Context) (any, error) {
			profile, err := s.api.GetProfile(ctx, email)
			if err != nil {
				return nil, s.gate.CheckAuthError(ctx, err)
			}
			return *profile, nil
		},
		querycache.JSONDecoder[models.Profile](),
	)
}

// UpdateProfile writes profile changes and invalidates the cached copy.
func (s *ProfileService) UpdateProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	if _, err := s.gate.Authorize(ctx); err != nil {
		return nil, err
	}
	updated, err := s.api.UpdateProfile(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", s.gate.CheckAuthError(ctx, err))
	}
	s.cache.Invalidate(querycache.TagProfile)
	return updated, nil
}

// UpdatePreferences writes preference changes and invalidates the cached copy.
func (s *ProfileService) UpdatePreferences(ctx context.Context, prefs models.Preferences) (*models.Profile, error) {
	if _, err := s.gate.Authorize(ctx); err != nil {
		return nil, err
	}
	updated, err := s.api.UpdatePreferences(ctx, prefs)
	if err != nil {
		return nil, fmt.Errorf("update preferences: %w", s.gate.CheckAuthError(ctx, err))
	}
	s.cache.Invalidate(querycache.TagProfile)
	return updated, nil
}
