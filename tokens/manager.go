package tokens

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// Pair is an access token and the refresh token minted with it
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Manager is the server-side entry point: it mints pairs and verifies
// tokens against the category they are presented for.
type Manager struct {
	codec      *Codec
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewManager creates a Manager. Zero lifetimes fall back to the defaults.
func NewManager(codec *Codec, accessTTL, refreshTTL time.Duration) *Manager {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &Manager{
		codec:      codec,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssuePair mints both tokens for the same identity. The refresh token
// carries only the subject and email.
func (m *Manager) IssuePair(identity Identity) (*Pair, error) {
	access, err := m.codec.Issue(identity, KindAccess, m.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	refresh, err := m.codec.Issue(Identity{
		SubjectID: identity.SubjectID,
		Email:     identity.Email,
	}, KindRefresh, m.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	return &Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyAccess verifies a token presented as an access token
func (m *Manager) VerifyAccess(token string) (*Claims, error) {
	return m.verify(token, KindAccess)
}

// VerifyRefresh verifies a token presented as a refresh token
func (m *Manager) VerifyRefresh(token string) (*Claims, error) {
	return m.verify(token, KindRefresh)
}

// verify reports a kind mismatch even for expired tokens.
func (m *Manager) verify(token string, want Kind) (*Claims, error) {
	claims, err := m.codec.Verify(token)
	if err != nil && !errors.Is(err, ErrExpired) {
		return nil, err
	}
	if claims.Kind != want {
		return nil, fmt.Errorf("%w: want %s, got %s", ErrKindMismatch, want, claims.Kind)
	}
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Verify checks a token of either kind
func (m *Manager) Verify(token string) (*Claims, error) {
	claims, err := m.codec.Verify(token)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
