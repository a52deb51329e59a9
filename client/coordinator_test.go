package client

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/book-tracker/tokens"
	"go.uber.org/zap/zaptest"
)

// gatedRefresher blocks every refresh until release is closed
type gatedRefresher struct {
	calls   atomic.Int32
	release chan struct{}
	pair    CredentialPair
	err     error
}

func (r *gatedRefresher) Refresh(ctx context.Context, refreshToken string) (CredentialPair, error) {
	r.calls.Add(1)
	select {
	case <-r.release:
	case <-ctx.Done():
		return CredentialPair{}, ctx.Err()
	}
	return r.pair, r.err
}

func (c *RefreshCoordinator) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

func awaitAll(c *RefreshCoordinator, n int, failed string) ([]string, []error) {
	tokensOut := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokensOut[i], errs[i] = c.Await(context.Background(), failed)
		}(i)
	}
	wg.Wait()
	return tokensOut, errs
}

func TestRefreshCoordinator_ConcurrentFailuresShareOneRefresh(t *testing.T) {
	const n = 25
	ctx := context.Background()
	m := newTestManager(t)
	old := issuePair(t, m, "alice")
	fresh := issuePair(t, m, "alice")

	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, old))

	refresher := &gatedRefresher{release: make(chan struct{}), pair: fresh}
	c := NewRefreshCoordinator(store, refresher, CoordinatorConfig{Logger: zaptest.NewLogger(t)})

	done := make(chan struct{})
	var got []string
	var errs []error
	go func() {
		got, errs = awaitAll(c, n, old.AccessToken)
		close(done)
	}()

	require.Eventually(t, func() bool { return c.pending() == n }, time.Second, time.Millisecond)
	assert.True(t, c.Refreshing())
	close(refresher.release)
	<-done

	assert.Equal(t, int32(1), refresher.calls.Load())
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, fresh.AccessToken, got[i])
	}

	stored, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, fresh, stored)
	assert.False(t, c.Refreshing())
	assert.Zero(t, c.pending())
}

func TestRefreshCoordinator_FailureRejectsAllAndClearsStore(t *testing.T) {
	const n = 10
	ctx := context.Background()
	old := issuePair(t, newTestManager(t), "alice")

	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, old))

	var hookCalls atomic.Int32
	refresher := &gatedRefresher{release: make(chan struct{}), err: errors.New("connection refused")}
	c := NewRefreshCoordinator(store, refresher, CoordinatorConfig{
		OnSessionExpired: func(error) { hookCalls.Add(1) },
	})

	done := make(chan struct{})
	var errs []error
	go func() {
		_, errs = awaitAll(c, n, old.AccessToken)
		close(done)
	}()

	require.Eventually(t, func() bool { return c.pending() == n }, time.Second, time.Millisecond)
	close(refresher.release)
	<-done

	assert.Equal(t, int32(1), refresher.calls.Load())
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrSessionExpired)
	}

	stored, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, stored.IsZero())
	assert.Equal(t, int32(1), hookCalls.Load())
}

func TestRefreshCoordinator_TimeoutFailsAll(t *testing.T) {
	ctx := context.Background()
	old := issuePair(t, newTestManager(t), "alice")

	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, old))

	// never released
	refresher := &gatedRefresher{release: make(chan struct{})}
	c := NewRefreshCoordinator(store, refresher, CoordinatorConfig{Timeout: 20 * time.Millisecond})

	_, errs := awaitAll(c, 3, old.AccessToken)
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrSessionExpired)
	}

	stored, _ := store.Load(ctx)
	assert.True(t, stored.IsZero())
	assert.False(t, c.Refreshing())
}

func TestRefreshCoordinator_TimeoutWithRefresherIgnoringContext(t *testing.T) {
	ctx := context.Background()
	old := issuePair(t, newTestManager(t), "alice")

	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, old))

	block := make(chan struct{})
	defer close(block)
	refresher := RefreshFunc(func(context.Context, string) (CredentialPair, error) {
		<-block
		return CredentialPair{}, nil
	})
	c := NewRefreshCoordinator(store, refresher, CoordinatorConfig{Timeout: 20 * time.Millisecond})

	_, err := c.Await(ctx, old.AccessToken)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestRefreshCoordinator_SupersededTokenSkipsRefresh(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	old := issuePair(t, m, "alice")
	current := issuePair(t, m, "alice")

	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, current))

	refresher := &gatedRefresher{release: make(chan struct{})}
	c := NewRefreshCoordinator(store, refresher, DefaultCoordinatorConfig())

	token, err := c.Await(ctx, old.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, current.AccessToken, token)
	assert.Zero(t, refresher.calls.Load())
}

// cancelAwareStore fails loads once the context is done
type cancelAwareStore struct {
	CredentialStore
}

func (s cancelAwareStore) Load(ctx context.Context) (CredentialPair, error) {
	if err := ctx.Err(); err != nil {
		return CredentialPair{}, err
	}
	return s.CredentialStore.Load(ctx)
}

func TestRefreshCoordinator_SupersededTokenWithCancelledCaller(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	old := issuePair(t, m, "alice")
	current := issuePair(t, m, "alice")

	store := cancelAwareStore{NewMemoryStore()}
	require.NoError(t, store.Save(ctx, current))

	refresher := &gatedRefresher{release: make(chan struct{})}
	c := NewRefreshCoordinator(store, refresher, DefaultCoordinatorConfig())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	token, err := c.Await(cancelled, old.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, current.AccessToken, token)
	assert.False(t, c.Refreshing())
	assert.Zero(t, refresher.calls.Load())
}

func TestRefreshCoordinator_SettlesWaitersInArrivalOrder(t *testing.T) {
	const n = 6
	ctx := context.Background()
	m := newTestManager(t)
	old := issuePair(t, m, "alice")
	fresh := issuePair(t, m, "alice")

	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, old))

	refresher := &gatedRefresher{release: make(chan struct{}), pair: fresh}
	c := NewRefreshCoordinator(store, refresher, DefaultCoordinatorConfig())

	arrival := make(map[chan refreshResult]int, n)
	var settled []int
	c.settle = func(ch chan refreshResult, res refreshResult) {
		settled = append(settled, arrival[ch])
		ch <- res
	}

	got := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], _ = c.Await(ctx, old.AccessToken)
		}(i)
		require.Eventually(t, func() bool { return c.pending() == i+1 }, time.Second, time.Millisecond)

		c.mu.Lock()
		arrival[c.waiters[i]] = i
		c.mu.Unlock()
	}

	close(refresher.release)
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, settled)
	for _, token := range got {
		assert.Equal(t, fresh.AccessToken, token)
	}
	assert.Equal(t, int32(1), refresher.calls.Load())
}

func TestRefreshCoordinator_RejectsBadRefreshResponse(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	old := issuePair(t, m, "alice")
	other := issuePair(t, m, "mallory")

	tests := []struct {
		name string
		pair CredentialPair
	}{
		{name: "empty", pair: CredentialPair{}},
		{name: "access only", pair: CredentialPair{AccessToken: old.AccessToken}},
		{name: "refresh kind swapped", pair: CredentialPair{AccessToken: old.RefreshToken, RefreshToken: old.AccessToken}},
		{name: "mixed subjects", pair: CredentialPair{AccessToken: old.AccessToken, RefreshToken: other.RefreshToken}},
		{name: "undecodable", pair: CredentialPair{AccessToken: "x", RefreshToken: "y"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			require.NoError(t, store.Save(ctx, old))

			refresher := RefreshFunc(func(context.Context, string) (CredentialPair, error) {
				return tt.pair, nil
			})
			c := NewRefreshCoordinator(store, refresher, DefaultCoordinatorConfig())

			_, err := c.Await(ctx, old.AccessToken)
			assert.ErrorIs(t, err, ErrSessionExpired)

			stored, _ := store.Load(ctx)
			assert.True(t, stored.IsZero())
		})
	}
}

func TestRefreshCoordinator_NoRefreshToken(t *testing.T) {
	refresher := &gatedRefresher{release: make(chan struct{})}
	c := NewRefreshCoordinator(NewMemoryStore(), refresher, DefaultCoordinatorConfig())

	_, err := c.Await(context.Background(), "")
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Zero(t, refresher.calls.Load())
}

func TestRefreshCoordinator_CallerCancellationDoesNotStopRefresh(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	old := issuePair(t, m, "alice")
	fresh := issuePair(t, m, "alice")

	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, old))

	refresher := &gatedRefresher{release: make(chan struct{}), pair: fresh}
	c := NewRefreshCoordinator(store, refresher, DefaultCoordinatorConfig())

	cancelled, cancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() {
		_, err := c.Await(cancelled, old.AccessToken)
		errCh <- err
	}()
	require.Eventually(t, func() bool { return c.pending() == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	close(refresher.release)
	require.Eventually(t, func() bool { return !c.Refreshing() }, time.Second, time.Millisecond)

	stored, _ := store.Load(ctx)
	assert.Equal(t, fresh, stored)
}

func TestCheckRefreshedPair_KindMismatch(t *testing.T) {
	old := issuePair(t, newTestManager(t), "alice")
	err := checkRefreshedPair(CredentialPair{AccessToken: old.AccessToken, RefreshToken: old.AccessToken})
	assert.ErrorIs(t, err, tokens.ErrKindMismatch)
}
