package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/upb/book-tracker/models"
	"github.com/upb/book-tracker/tokens"
	"go.uber.org/zap"
)

// Client talks to the book-tracker API on behalf of one session
type Client struct {
	baseURL     string
	http        *http.Client
	plain       *http.Client
	store       CredentialStore
	coordinator *RefreshCoordinator
	logger      *zap.Logger
}

type options struct {
	store          CredentialStore
	base           http.RoundTripper
	refreshTimeout time.Duration
	onExpired      func(error)
	logger         *zap.Logger
}

// Option configures a Client
type Option func(*options)

// WithStore sets the credential store (default: in memory)
func WithStore(store CredentialStore) Option {
	return func(o *options) { o.store = store }
}

// WithBaseTransport sets the transport used underneath authentication
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.base = rt }
}

// WithRefreshTimeout bounds a single token refresh
func WithRefreshTimeout(d time.Duration) Option {
	return func(o *options) { o.refreshTimeout = d }
}

// OnSessionExpired registers fn to run when a refresh fails and the
// session is cleared. Redirecting to a login prompt is up to fn.
func OnSessionExpired(fn func(error)) Option {
	return func(o *options) { o.onExpired = fn }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New creates a Client for the API at baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	o := options{
		store:          NewMemoryStore(),
		base:           http.DefaultTransport,
		refreshTimeout: DefaultRefreshTimeout,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		plain:   &http.Client{Transport: o.base},
		store:   o.store,
		logger:  o.logger,
	}
	c.coordinator = NewRefreshCoordinator(o.store, authAPI{c}, CoordinatorConfig{
		Timeout:          o.refreshTimeout,
		OnSessionExpired: o.onExpired,
		Logger:           o.logger,
	})
	c.http = &http.Client{Transport: NewTransport(o.base, o.store, c.coordinator)}
	return c, nil
}

// Store returns the session's credential store
func (c *Client) Store() CredentialStore {
	return c.store
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	User         models.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

// Register creates an account and stores the issued pair
func (c *Client) Register(ctx context.Context, fullName, email, password string) (*models.User, error) {
	body := map[string]string{"full_name": fullName, "email": email, "password": password}
	return c.authenticate(ctx, "/auth/register", body)
}

// Login authenticates and stores the issued pair
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	body := map[string]string{"email": email, "password": password}
	return c.authenticate(ctx, "/auth/login", body)
}

func (c *Client) authenticate(ctx context.Context, path string, body interface{}) (*models.User, error) {
	var out AuthResponse
	if err := c.do(ctx, c.plain, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	if err := c.store.Save(ctx, CredentialPair{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}); err != nil {
		return nil, fmt.Errorf("store credentials: %w", err)
	}
	return &out.User, nil
}

// Logout forgets the stored pair
func (c *Client) Logout(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// Verify asks the server whether the stored access token is still valid
func (c *Client) Verify(ctx context.Context) error {
	pair, err := c.store.Load(ctx)
	if err != nil {
		return err
	}
	if pair.AccessToken == "" {
		return ErrNotAuthenticated
	}
	return c.do(ctx, c.plain, http.MethodPost, "/auth/verify", map[string]string{"token": pair.AccessToken}, nil)
}

// Session decodes the stored access token for display. The claims are not
// verified and must not be used for authorization.
func (c *Client) Session(ctx context.Context) (*tokens.Claims, error) {
	pair, err := c.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if pair.AccessToken == "" {
		return nil, ErrNotAuthenticated
	}
	return tokens.ReadClaimsUnverified(pair.AccessToken)
}

// Me returns the identity the server sees for this session
func (c *Client) Me(ctx context.Context) (*tokens.Identity, error) {
	var out tokens.Identity
	if err := c.do(ctx, c.http, http.MethodGet, "/api/users/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListBooks returns the whole catalogue
func (c *Client) ListBooks(ctx context.Context) ([]models.Book, error) {
	var out []models.Book
	err := c.do(ctx, c.http, http.MethodGet, "/api/books", nil, &out)
	return out, err
}

// SearchBooks searches titles, optionally restricted to one author
func (c *Client) SearchBooks(ctx context.Context, query, authorID string) ([]models.Book, error) {
	params := url.Values{"q": {query}}
	if authorID != "" {
		params.Set("authorId", authorID)
	}
	var out []models.Book
	err := c.do(ctx, c.http, http.MethodGet, "/api/books/search?"+params.Encode(), nil, &out)
	return out, err
}

// GetBook returns a single book
func (c *Client) GetBook(ctx context.Context, id string) (*models.Book, error) {
	var out models.Book
	if err := c.do(ctx, c.http, http.MethodGet, "/api/books/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAuthors returns all authors
func (c *Client) ListAuthors(ctx context.Context) ([]models.Author, error) {
	var out []models.Author
	err := c.do(ctx, c.http, http.MethodGet, "/api/authors", nil, &out)
	return out, err
}

// SearchAuthors searches authors by name
func (c *Client) SearchAuthors(ctx context.Context, query string) ([]models.Author, error) {
	var out []models.Author
	err := c.do(ctx, c.http, http.MethodGet, "/api/authors/search?"+url.Values{"q": {query}}.Encode(), nil, &out)
	return out, err
}

// CreateAuthor adds an author
func (c *Client) CreateAuthor(ctx context.Context, input models.CreateAuthorInput) (*models.Author, error) {
	var out models.Author
	if err := c.do(ctx, c.http, http.MethodPost, "/api/authors", input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListUserBooks returns a user's library
func (c *Client) ListUserBooks(ctx context.Context, userID string) ([]models.UserBookWithDetails, error) {
	var out []models.UserBookWithDetails
	err := c.do(ctx, c.http, http.MethodGet, "/api/books/user/"+url.PathEscape(userID), nil, &out)
	return out, err
}

// UpsertUserBook adds a book to a user's library or updates its entry
func (c *Client) UpsertUserBook(ctx context.Context, userID string, input models.UpsertUserBookInput) (*models.UserBook, error) {
	var out models.UserBook
	if err := c.do(ctx, c.http, http.MethodPost, "/api/books/user/"+url.PathEscape(userID), input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveUserBook removes a book from a user's library
func (c *Client) RemoveUserBook(ctx context.Context, userID, bookID string) error {
	body := map[string]string{"bookId": bookID}
	return c.do(ctx, c.http, http.MethodDelete, "/api/books/user/"+url.PathEscape(userID), body, nil)
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr != nil {
			return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		}
		return &APIError{StatusCode: resp.StatusCode, Code: env.Error, Message: env.Message}
	}
	if decodeErr != nil && len(raw) > 0 {
		return fmt.Errorf("decode response: %w", decodeErr)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	c.logger.Debug("api call", zap.String("method", method), zap.String("path", path), zap.Int("status", resp.StatusCode))
	return nil
}

// authAPI refreshes through the unauthenticated client so that a 401 from
// /auth/refresh never re-enters the coordinator.
type authAPI struct {
	c *Client
}

func (a authAPI) Refresh(ctx context.Context, refreshToken string) (CredentialPair, error) {
	var out CredentialPair
	err := a.c.do(ctx, a.c.plain, http.MethodPost, "/auth/refresh", map[string]string{"refreshToken": refreshToken}, &out)
	return out, err
}
