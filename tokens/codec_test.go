package tokens

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestCodec(t *testing.T, opts ...Option) (*Codec, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	codec, err := NewCodec(testSecret, append([]Option{WithClock(clock.Now)}, opts...)...)
	require.NoError(t, err)
	return codec, clock
}

func testIdentity() Identity {
	return Identity{
		SubjectID:   "7b0c6a52-3d57-4c1e-9a55-3f7f0b5f4d11",
		Email:       "a@b.com",
		DisplayName: "Ada Byron",
		Role:        "user",
	}
}

func TestNewCodec_RequiresSecret(t *testing.T) {
	_, err := NewCodec(nil)
	assert.Error(t, err)
}

func TestCodec_RoundTrip(t *testing.T) {
	codec, clock := newTestCodec(t)
	identity := testIdentity()

	for _, kind := range []Kind{KindAccess, KindRefresh} {
		t.Run(kind.String(), func(t *testing.T) {
			token, err := codec.Issue(identity, kind, 15*time.Minute)
			require.NoError(t, err)

			claims, err := codec.Verify(token)
			require.NoError(t, err)
			assert.Equal(t, identity, claims.Identity)
			assert.Equal(t, kind, claims.Kind)
			assert.Equal(t, DefaultIssuer, claims.Issuer)
			assert.Equal(t, clock.now.Unix(), claims.IssuedAt.Unix())
			assert.Equal(t, clock.now.Unix()+900, claims.ExpiresAt.Unix())
		})
	}
}

func TestCodec_ExpiryIsStrict(t *testing.T) {
	codec, clock := newTestCodec(t)

	token, err := codec.Issue(testIdentity(), KindAccess, 900*time.Second)
	require.NoError(t, err)

	clock.Advance(900 * time.Second)
	_, err = codec.Verify(token)
	assert.NoError(t, err, "token must be valid at the instant equal to its expiry")

	clock.Advance(time.Second)
	claims, err := codec.Verify(token)
	assert.ErrorIs(t, err, ErrExpired)
	require.NotNil(t, claims)
	assert.Equal(t, KindAccess, claims.Kind)
}

func TestCodec_ZeroLifetimeIsExpired(t *testing.T) {
	codec, _ := newTestCodec(t)

	token, err := codec.Issue(testIdentity(), KindAccess, 0)
	require.NoError(t, err)

	_, err = codec.Verify(token)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestCodec_IssuerMismatch(t *testing.T) {
	foreign, clock := newTestCodec(t, WithIssuer("someone-else"))
	codec, err := NewCodec(testSecret, WithClock(clock.Now))
	require.NoError(t, err)

	t.Run("valid expiry", func(t *testing.T) {
		token, err := foreign.Issue(testIdentity(), KindAccess, time.Hour)
		require.NoError(t, err)

		_, err = codec.Verify(token)
		assert.ErrorIs(t, err, ErrIssuerMismatch)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("also expired", func(t *testing.T) {
		token, err := foreign.Issue(testIdentity(), KindAccess, 0)
		require.NoError(t, err)

		_, err = codec.Verify(token)
		assert.ErrorIs(t, err, ErrIssuerMismatch)
		assert.NotErrorIs(t, err, ErrExpired)
	})
}

func TestCodec_Malformed(t *testing.T) {
	codec, clock := newTestCodec(t)
	other, err := NewCodec([]byte("other-secret"), WithClock(clock.Now))
	require.NoError(t, err)

	wrongKey, err := other.Issue(testIdentity(), KindAccess, time.Hour)
	require.NoError(t, err)

	good, err := codec.Issue(testIdentity(), KindAccess, time.Hour)
	require.NoError(t, err)
	parts := strings.Split(good, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "x", "iss": DefaultIssuer, "iat": clock.now.Unix(), "exp": clock.now.Unix() + 60,
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-token"},
		{name: "wrong secret", token: wrongKey},
		{name: "tampered payload", token: tampered},
		{name: "none algorithm", token: noneAlg},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Verify(tt.token)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestCodec_IssueRejectsBadInput(t *testing.T) {
	codec, _ := newTestCodec(t)

	_, err := codec.Issue(Identity{Email: "a@b.com"}, KindAccess, time.Minute)
	assert.ErrorIs(t, err, ErrSigning)

	_, err = codec.Issue(testIdentity(), KindAccess, -time.Second)
	assert.ErrorIs(t, err, ErrSigning)
}

func TestReadClaimsUnverified(t *testing.T) {
	codec, _ := newTestCodec(t)
	other, err := NewCodec([]byte("other-secret"), WithIssuer("elsewhere"))
	require.NoError(t, err)

	for _, c := range []*Codec{codec, other} {
		token, err := c.Issue(testIdentity(), KindRefresh, 0)
		require.NoError(t, err)

		claims, err := ReadClaimsUnverified(token)
		require.NoError(t, err)
		assert.Equal(t, testIdentity(), claims.Identity)
		assert.Equal(t, KindRefresh, claims.Kind)
	}

	_, err = ReadClaimsUnverified("garbage")
	assert.ErrorIs(t, err, ErrMalformed)
}
