package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/upb/book-tracker/tokens"
)

// CredentialPair is the access and refresh token held by one session
type CredentialPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// IsZero reports whether the pair is empty (logged out)
func (p CredentialPair) IsZero() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// Validate checks that both tokens are present or both absent, and that
// they name the same subject when they can be decoded.
func (p CredentialPair) Validate() error {
	if p.IsZero() {
		return nil
	}
	if p.AccessToken == "" || p.RefreshToken == "" {
		return fmt.Errorf("%w: both tokens are required", ErrInconsistentPair)
	}

	access, aerr := tokens.ReadClaimsUnverified(p.AccessToken)
	refresh, rerr := tokens.ReadClaimsUnverified(p.RefreshToken)
	if aerr != nil || rerr != nil {
		return nil
	}
	if access.SubjectID != refresh.SubjectID {
		return fmt.Errorf("%w: subject %q != %q", ErrInconsistentPair, access.SubjectID, refresh.SubjectID)
	}
	return nil
}

// CredentialStore persists the current pair of one client session.
// Save replaces both tokens at once; Clear removes both.
type CredentialStore interface {
	Load(ctx context.Context) (CredentialPair, error)
	Save(ctx context.Context, pair CredentialPair) error
	Clear(ctx context.Context) error
}

// MemoryStore is a process-local CredentialStore
type MemoryStore struct {
	mu   sync.RWMutex
	pair CredentialPair
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(context.Context) (CredentialPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair, nil
}

func (s *MemoryStore) Save(_ context.Context, pair CredentialPair) error {
	if err := pair.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.pair = pair
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	s.pair = CredentialPair{}
	s.mu.Unlock()
	return nil
}
