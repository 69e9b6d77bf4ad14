package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/parlaysocial/feedcore/internal/client/api"
	"github.com/parlaysocial/feedcore/internal/client/models"
	"github.com/parlaysocial/feedcore/internal/client/querycache"
	"github.com/parlaysocial/feedcore/internal/client/session"
)

type profileAPI struct {
	api.Client

	getCalls    atomic.Int32
	profile     func() models.Profile
	updatePrefs func(ctx context.Context, prefs models.Preferences) (*models.Profile, error)
}

func (p *profileAPI) GetProfile(ctx context.Context, email string) (*models.Profile, error) {
	p.getCalls.Add(1)
	prof := p.profile()
	return &prof, nil
}

func (p *profileAPI) UpdatePreferences(ctx context.Context, prefs models.Preferences) (*models.Profile, error) {
	return p.updatePrefs(ctx, prefs)
}

func newProfileFixture(t *testing.T, client *profileAPI, loggedIn bool) *ProfileService {
	t.Helper()
	gate := session.NewGate(&gateAPI{}, setupDB(t, loggedIn), nil)
	cache := querycache.NewManager(gate, nil)
	return NewProfileService(cache, client, gate, nil)
}

func TestSubscribeProfile_KeyedBySessionEmail(t *testing.T) {
	client := &profileAPI{profile: func() models.Profile {
		return models.Profile{Email: "a@example.com", Username: "alice"}
	}}
	svc := newProfileFixture(t, client, true)

	sub, err := svc.SubscribeProfile(context.Background())
	require.NoError(t, err)

	r := waitSettled(t, sub)
	prof := r.Data.(models.Profile)
	require.Equal(t, "alice", prof.Username)
}

func TestSubscribeProfile_SkippedWhenLoggedOut(t *testing.T) {
	client := &profileAPI{profile: func() models.Profile {
		t.Error("logged-out subscribe must not reach the network")
		return models.Profile{}
	}}
	svc := newProfileFixture(t, client, false)

	sub, err := svc.SubscribeProfile(context.Background())
	require.NoError(t, err)
	require.True(t, sub.Current().Skipped)
}

func TestUpdatePreferences_InvalidatesProfile(t *testing.T) {
	var prefs models.Preferences
	client := &profileAPI{
		profile: func() models.Profile { return models.Profile{Email: "a@example.com"} },
		updatePrefs: func(ctx context.Context, p models.Preferences) (*models.Profile, error) {
			prefs = p
			return &models.Profile{Email: "a@example.com", Preferences: p}, nil
		},
	}
	svc := newProfileFixture(t, client, true)

	sub, err := svc.SubscribeProfile(context.Background())
	require.NoError(t, err)
	waitSettled(t, sub)
	require.Equal(t, int32(1), client.getCalls.Load())

	updated, err := svc.UpdatePreferences(context.Background(), models.Preferences{PrivateProfile: true})
	require.NoError(t, err)
	require.True(t, updated.Preferences.PrivateProfile)
	require.True(t, prefs.PrivateProfile)

	require.Eventually(t, func() bool { return client.getCalls.Load() == 2 }, time.Second, 5*time.Millisecond)
}
