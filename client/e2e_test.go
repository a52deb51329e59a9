package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/book-tracker/app"
	"github.com/upb/book-tracker/auth"
	"github.com/upb/book-tracker/client"
	"github.com/upb/book-tracker/config"
	"github.com/upb/book-tracker/handlers"
	"github.com/upb/book-tracker/middleware"
	"github.com/upb/book-tracker/repositories/memory"
	"github.com/upb/book-tracker/routes"
	"github.com/upb/book-tracker/services"
	"github.com/upb/book-tracker/tokens"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type apiServer struct {
	*httptest.Server
	clock     *clock
	refreshes atomic.Int32
}

// newAPIServer runs the real router with an in-memory user store and a
// controllable clock.
func newAPIServer(t *testing.T) *apiServer {
	t.Helper()
	logger := zap.NewNop()
	clk := &clock{now: time.Unix(1_700_000_000, 0)}

	codec, err := tokens.NewCodec([]byte("e2e-secret"), tokens.WithIssuer("my-books-app"), tokens.WithClock(clk.Now))
	require.NoError(t, err)
	manager := tokens.NewManager(codec, 0, 0)

	authService := services.NewAuthService(
		memory.NewUserRepository(),
		manager,
		services.NewBcryptHasher(bcrypt.MinCost),
		nil,
		nil,
		logger,
	)
	router := routes.SetupRoutes(&app.Dependencies{
		Config:         &config.Config{Environment: "test"},
		Logger:         logger,
		Tokens:         manager,
		AuthService:    authService,
		AuthHandler:    auth.NewHandler(authService, logger),
		LibraryHandler: handlers.NewLibraryHandler(nil, logger),
		HealthHandler:  handlers.NewHealthHandler(nil, logger),
		AuthMiddleware: middleware.NewAuthMiddleware(authService, logger),
	})

	s := &apiServer{clock: clk}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			s.refreshes.Add(1)
		}
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func TestClient_EndToEnd_ExpiredAccessTokenIsRefreshedOnce(t *testing.T) {
	ctx := context.Background()
	srv := newAPIServer(t)

	c, err := client.New(srv.URL)
	require.NoError(t, err)

	user, err := c.Register(ctx, "Ada Lovelace", "Ada@Example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)

	before, err := c.Store().Load(ctx)
	require.NoError(t, err)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), me.SubjectID)
	assert.Zero(t, srv.refreshes.Load())

	// Access tokens live for fifteen minutes
	srv.clock.Advance(901 * time.Second)
	require.Error(t, c.Verify(ctx))

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Me(ctx)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), srv.refreshes.Load())

	after, err := c.Store().Load(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, before.AccessToken, after.AccessToken)
	assert.NotEqual(t, before.RefreshToken, after.RefreshToken)
	require.NoError(t, c.Verify(ctx))

	session, err := c.Session(ctx)
	require.NoError(t, err)
	assert.Equal(t, tokens.KindAccess, session.Kind)
	assert.Equal(t, "Ada Lovelace", session.DisplayName)
}

func TestClient_EndToEnd_ExpiredRefreshTokenEndsSession(t *testing.T) {
	ctx := context.Background()
	srv := newAPIServer(t)

	var expired atomic.Int32
	c, err := client.New(srv.URL, client.OnSessionExpired(func(error) { expired.Add(1) }))
	require.NoError(t, err)

	_, err = c.Register(ctx, "Grace Hopper", "grace@example.com", "s3cret")
	require.NoError(t, err)

	srv.clock.Advance(tokens.DefaultRefreshTTL + time.Second)

	_, err = c.Me(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, client.ErrSessionExpired))
	assert.Equal(t, int32(1), srv.refreshes.Load())
	// The hook runs after waiters are released
	assert.Eventually(t, func() bool { return expired.Load() == 1 }, time.Second, 5*time.Millisecond)

	pair, err := c.Store().Load(ctx)
	require.NoError(t, err)
	assert.True(t, pair.IsZero())

	_, err = c.Me(ctx)
	assert.Error(t, err)

	// Logging in again starts a fresh session
	_, err = c.Login(ctx, "grace@example.com", "s3cret")
	require.NoError(t, err)
	_, err = c.Me(ctx)
	assert.NoError(t, err)
}

func TestClient_EndToEnd_TokenKindsAreNotInterchangeable(t *testing.T) {
	ctx := context.Background()
	srv := newAPIServer(t)

	c, err := client.New(srv.URL)
	require.NoError(t, err)
	_, err = c.Register(ctx, "Alan Turing", "alan@example.com", "s3cret")
	require.NoError(t, err)
	pair, err := c.Store().Load(ctx)
	require.NoError(t, err)

	t.Run("access token cannot refresh", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/auth/refresh", "application/json",
			strings.NewReader(`{"refreshToken":"`+pair.AccessToken+`"}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("refresh token is not a bearer credential", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/users/me", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+pair.RefreshToken)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
