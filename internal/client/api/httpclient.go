package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/parlaysocial/feedcore/internal/client/models"
)

// Error codes the server attaches to 4xx bodies.
const (
	codeTokenExpired = "token_expired"
	codeAlreadyLiked = "already_liked"
)

// HTTPClient implements Client over HTTP/JSON. It owns the access/refresh
// token pair: an expired-token 401 triggers one refresh followed by a replay
// of the original request, so callers only ever see a terminal 401.
type HTTPClient struct {
	baseURL string
	hc      *http.Client

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	onTokens     func(access, refresh string)
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying http.Client (tests, custom transports).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.hc = hc }
}

// WithTokens seeds the client with previously persisted credentials.
func WithTokens(access, refresh string) Option {
	return func(c *HTTPClient) {
		c.accessToken = access
		c.refreshToken = refresh
	}
}

// WithTokenListener registers a callback fired whenever the token pair
// changes (login, register, refresh). Used to keep persisted credentials in
// step with rotations.
func WithTokenListener(fn func(access, refresh string)) Option {
	return func(c *HTTPClient) { c.onTokens = fn }
}

// NewHTTPClient builds a client for the API at baseURL.
func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetTokens replaces the token pair without firing the listener. The session
// gate uses it when seeding from the credential store.
func (c *HTTPClient) SetTokens(access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = access
	c.refreshToken = refresh
}

// Tokens returns the current token pair.
func (c *HTTPClient) Tokens() (access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken, c.refreshToken
}

func (c *HTTPClient) setTokensNotify(access, refresh string) {
	c.mu.Lock()
	c.accessToken = access
	c.refreshToken = refresh
	fn := c.onTokens
	c.mu.Unlock()
	if fn != nil {
		fn(access, refresh)
	}
}

func (c *HTTPClient) Close() error { return nil }

// apiError is the decoded shape of a 4xx/5xx body.
type apiError struct {
	Message string `json:"error"`
	Code    string `json:"code"`
}

// doJSON performs one request and decodes the response into out. It retries
// exactly once after a successful token refresh when the server reports an
// expired access token.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, payload, out any) error {
	err := c.attempt(ctx, method, path, payload, out)
	if err == nil {
		return nil
	}

	var ae *apiError
	if !errors.Is(err, ErrUnauthorized) || !asAPIError(err, &ae) || ae.Code != codeTokenExpired {
		return err
	}
	_, refresh := c.Tokens()
	if refresh == "" {
		return err
	}
	if rerr := c.Refresh(ctx); rerr != nil {
		return err
	}
	return c.attempt(ctx, method, path, payload, out)
}

// statusError carries the mapped sentinel plus the decoded body.
type statusError struct {
	sentinel error
	body     *apiError
}

func (e *statusError) Error() string {
	if e.body != nil && e.body.Message != "" {
		return e.body.Message
	}
	return e.sentinel.Error()
}

func (e *statusError) Unwrap() error { return e.sentinel }

func asAPIError(err error, out **apiError) bool {
	var se *statusError
	if errors.As(err, &se) && se.body != nil {
		*out = se.body
		return true
	}
	return false
}

func (c *HTTPClient) attempt(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if access, _ := c.Tokens(); access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var ae apiError
		_ = json.NewDecoder(resp.Body).Decode(&ae)
		return &statusError{sentinel: c.mapStatus(resp.StatusCode, &ae), body: &ae}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}

// mapStatus translates an HTTP status plus error body into a sentinel.
func (c *HTTPClient) mapStatus(status int, ae *apiError) error {
	switch {
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case (status == http.StatusBadRequest || status == http.StatusConflict) && ae.Code == codeAlreadyLiked:
		return ErrAlreadyLiked
	case status == http.StatusNotFound:
		return ErrNotFound
	case status >= 500:
		return ErrUnavailable
	default:
		return fmt.Errorf("unexpected status %d", status)
	}
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/ping", nil, nil)
}

type sessionResponse struct {
	AccessToken  string           `json:"accessToken"`
	RefreshToken string           `json:"refreshToken"`
	User         sessionPrincipal `json:"user"`
}

type sessionPrincipal struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*models.Session, error) {
	payload := map[string]string{"email": email, "password": password}
	var resp sessionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", payload, &resp); err != nil {
		return nil, err
	}
	c.setTokensNotify(resp.AccessToken, resp.RefreshToken)
	return &models.Session{
		Principal:    models.Principal{Email: resp.User.Email, Username: resp.User.Username},
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}, nil
}

func (c *HTTPClient) Register(ctx context.Context, email, username, password string) (*models.Session, error) {
	payload := map[string]string{"email": email, "username": username, "password": password}
	var resp sessionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", payload, &resp); err != nil {
		return nil, err
	}
	c.setTokensNotify(resp.AccessToken, resp.RefreshToken)
	return &models.Session{
		Principal:    models.Principal{Email: resp.User.Email, Username: resp.User.Username},
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}, nil
}

// Refresh rotates the token pair using the stored refresh token.
func (c *HTTPClient) Refresh(ctx context.Context) error {
	_, refresh := c.Tokens()
	if refresh == "" {
		return ErrUnauthorized
	}
	payload := map[string]string{"refreshToken": refresh}
	var resp sessionResponse
	if err := c.attempt(ctx, http.MethodPost, "/auth/refresh", payload, &resp); err != nil {
		return err
	}
	c.setTokensNotify(resp.AccessToken, resp.RefreshToken)
	return nil
}

type postList struct {
	Items []models.Post `json:"items"`
}

func (c *HTTPClient) ListPosts(ctx context.Context) ([]models.Post, error) {
	var resp postList
	if err := c.doJSON(ctx, http.MethodGet, "/posts", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (c *HTTPClient) ListUserPosts(ctx context.Context, username string) ([]models.Post, error) {
	var resp postList
	path := "/users/" + url.PathEscape(username) + "/posts"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (c *HTTPClient) CreatePost(ctx context.Context, text string, hashtags []string) (*models.Post, error) {
	payload := map[string]any{"text": text, "hashtags": hashtags}
	var post models.Post
	if err := c.doJSON(ctx, http.MethodPost, "/posts", payload, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *HTTPClient) DeletePost(ctx context.Context, postID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/posts/"+url.PathEscape(postID), nil, nil)
}

func (c *HTTPClient) LikePost(ctx context.Context, postID string) (*LikeResult, error) {
	var res LikeResult
	path := "/posts/" + url.PathEscape(postID) + "/like"
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) UnlikePost(ctx context.Context, postID string) (*LikeResult, error) {
	var res LikeResult
	path := "/posts/" + url.PathEscape(postID) + "/like"
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

type commentList struct {
	Items []models.Comment `json:"items"`
}

func (c *HTTPClient) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	var resp commentList
	path := "/posts/" + url.PathEscape(postID) + "/comments"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (c *HTTPClient) AddComment(ctx context.Context, postID, content string) (*CommentChange, error) {
	payload := map[string]string{"content": content}
	var change CommentChange
	path := "/posts/" + url.PathEscape(postID) + "/comments"
	if err := c.doJSON(ctx, http.MethodPost, path, payload, &change); err != nil {
		return nil, err
	}
	return &change, nil
}

func (c *HTTPClient) DeleteComment(ctx context.Context, postID, commentID string) (*CommentChange, error) {
	var change CommentChange
	path := "/posts/" + url.PathEscape(postID) + "/comments/" + url.PathEscape(commentID)
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, &change); err != nil {
		return nil, err
	}
	return &change, nil
}

func (c *HTTPClient) LikeComment(ctx context.Context, postID, commentID string) (*LikeResult, error) {
	var res LikeResult
	path := "/posts/" + url.PathEscape(postID) + "/comments/" + url.PathEscape(commentID) + "/like"
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) UnlikeComment(ctx context.Context, postID, commentID string) (*LikeResult, error) {
	var res LikeResult
	path := "/posts/" + url.PathEscape(postID) + "/comments/" + url.PathEscape(commentID) + "/like"
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) GetProfile(ctx context.Context, email string) (*models.Profile, error) {
	var profile models.Profile
	path := "/profile?email=" + url.QueryEscape(email)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *HTTPClient) UpdateProfile(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	var profile models.Profile
	if err := c.doJSON(ctx, http.MethodPatch, "/profile", p, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *HTTPClient) UpdatePreferences(ctx context.Context, prefs models.Preferences) (*models.Profile, error) {
	var profile models.Profile
	if err := c.doJSON(ctx, http.MethodPut, "/profile/preferences", prefs, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}
