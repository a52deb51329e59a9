package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/upb/book-tracker/tokens"
	"go.uber.org/zap"
)

// DefaultRefreshTimeout bounds a single refresh attempt
const DefaultRefreshTimeout = 10 * time.Second

// Refresher exchanges a refresh token for a new pair
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (CredentialPair, error)
}

// RefreshFunc adapts a function to the Refresher interface
type RefreshFunc func(ctx context.Context, refreshToken string) (CredentialPair, error)

func (f RefreshFunc) Refresh(ctx context.Context, refreshToken string) (CredentialPair, error) {
	return f(ctx, refreshToken)
}

type refreshResult struct {
	accessToken string
	err         error
}

// RefreshCoordinator makes every caller of one session share a single
// refresh attempt. Callers that hit an authentication failure while a
// refresh is running are queued and settled together, in arrival order,
// when it finishes.
type RefreshCoordinator struct {
	store     CredentialStore
	refresher Refresher
	timeout   time.Duration
	onExpired func(error)
	logger    *zap.Logger

	mu       sync.Mutex
	inFlight bool
	waiters  []chan refreshResult

	// settle hands one waiter its result
	settle func(ch chan refreshResult, res refreshResult)
}

// CoordinatorConfig holds configuration for a RefreshCoordinator
type CoordinatorConfig struct {
	// Timeout bounds how long a refresh may stay in flight. A timed out
	// refresh fails every waiter.
	Timeout time.Duration
	// OnSessionExpired runs after a failed refresh has cleared the session
	OnSessionExpired func(error)
	Logger           *zap.Logger
}

// DefaultCoordinatorConfig returns the default configuration
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		Timeout: DefaultRefreshTimeout,
		Logger:  zap.NewNop(),
	}
}

// NewRefreshCoordinator creates a coordinator for one session
func NewRefreshCoordinator(store CredentialStore, refresher Refresher, cfg CoordinatorConfig) *RefreshCoordinator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRefreshTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &RefreshCoordinator{
		store:     store,
		refresher: refresher,
		timeout:   cfg.Timeout,
		onExpired: cfg.OnSessionExpired,
		logger:    cfg.Logger,
		settle: func(ch chan refreshResult, res refreshResult) {
			ch <- res
		},
	}
}

// Refreshing reports whether a refresh is currently in flight
func (c *RefreshCoordinator) Refreshing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Await returns an access token newer than failedToken. If the stored
// token has already moved past failedToken it is returned at once;
// otherwise the caller joins the in-flight refresh, starting one if none
// is running. Cancelling ctx abandons the wait but not the refresh.
func (c *RefreshCoordinator) Await(ctx context.Context, failedToken string) (string, error) {
	ch := make(chan refreshResult, 1)

	c.mu.Lock()
	if !c.inFlight {
		if current, ok := c.superseded(ctx, failedToken); ok {
			c.mu.Unlock()
			return current, nil
		}
	}
	c.waiters = append(c.waiters, ch)
	start := !c.inFlight
	c.inFlight = true
	pending := len(c.waiters)
	c.mu.Unlock()

	if start {
		c.logger.Debug("starting token refresh")
		go c.run()
	} else {
		c.logger.Debug("joined in-flight token refresh", zap.Int("pending", pending))
	}

	select {
	case res := <-ch:
		return res.accessToken, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// superseded returns the stored access token when it differs from
// failedToken. The load is detached from the caller's cancellation and
// bounded by the refresh timeout instead.
func (c *RefreshCoordinator) superseded(ctx context.Context, failedToken string) (string, bool) {
	loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	current, err := c.store.Load(loadCtx)
	if err != nil || current.AccessToken == "" || current.AccessToken == failedToken {
		return "", false
	}
	return current.AccessToken, true
}

func (c *RefreshCoordinator) run() {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	token, err := c.refresh(ctx)
	if err != nil {
		c.logger.Warn("token refresh failed, clearing session", zap.Error(err))
		clearCtx, clearCancel := context.WithTimeout(context.Background(), c.timeout)
		if cerr := c.store.Clear(clearCtx); cerr != nil {
			c.logger.Error("failed to clear credentials", zap.Error(cerr))
		}
		clearCancel()
		err = fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}

	// The store is settled before the flag drops so that a caller arriving
	// after this point sees the new token instead of starting a refresh.
	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.inFlight = false
	c.mu.Unlock()

	res := refreshResult{accessToken: token, err: err}
	for _, ch := range waiters {
		c.settle(ch, res)
	}

	if err != nil {
		if c.onExpired != nil {
			c.onExpired(err)
		}
		return
	}
	c.logger.Debug("token refresh succeeded", zap.Int("resumed", len(waiters)))
}

func (c *RefreshCoordinator) refresh(ctx context.Context) (string, error) {
	current, err := c.store.Load(ctx)
	if err != nil {
		return "", err
	}
	if current.RefreshToken == "" {
		return "", ErrNotAuthenticated
	}

	type outcome struct {
		pair CredentialPair
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		pair, err := c.refresher.Refresh(ctx, current.RefreshToken)
		done <- outcome{pair: pair, err: err}
	}()

	var pair CredentialPair
	select {
	case o := <-done:
		if o.err != nil {
			return "", o.err
		}
		pair = o.pair
	case <-ctx.Done():
		return "", fmt.Errorf("refresh timed out: %w", ctx.Err())
	}

	if err := checkRefreshedPair(pair); err != nil {
		return "", err
	}
	if err := c.store.Save(ctx, pair); err != nil {
		return "", err
	}
	return pair.AccessToken, nil
}

// checkRefreshedPair requires a decodable access/refresh pair for one subject.
func checkRefreshedPair(pair CredentialPair) error {
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return fmt.Errorf("%w: refresh response is missing a token", ErrInconsistentPair)
	}

	access, err := tokens.ReadClaimsUnverified(pair.AccessToken)
	if err != nil {
		return fmt.Errorf("refreshed access token: %w", err)
	}
	refresh, err := tokens.ReadClaimsUnverified(pair.RefreshToken)
	if err != nil {
		return fmt.Errorf("refreshed refresh token: %w", err)
	}

	if access.Kind != tokens.KindAccess || refresh.Kind != tokens.KindRefresh {
		return tokens.ErrKindMismatch
	}
	if access.SubjectID != refresh.SubjectID {
		return fmt.Errorf("%w: subject %q != %q", ErrInconsistentPair, access.SubjectID, refresh.SubjectID)
	}
	return nil
}
