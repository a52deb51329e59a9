package client

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/upb/book-tracker/tokens"
)

var pairSeq atomic.Int64

func newTestManager(t *testing.T) *tokens.Manager {
	t.Helper()
	codec, err := tokens.NewCodec([]byte("client-test-secret"))
	require.NoError(t, err)
	return tokens.NewManager(codec, 15*time.Minute, 7*24*time.Hour)
}

// issuePair mints a pair for subject; every call yields a distinct access token.
func issuePair(t *testing.T, m *tokens.Manager, subject string) CredentialPair {
	t.Helper()
	pair, err := m.IssuePair(tokens.Identity{
		SubjectID:   subject,
		Email:       subject + "@example.com",
		DisplayName: fmt.Sprintf("%s #%d", subject, pairSeq.Add(1)),
	})
	require.NoError(t, err)
	return CredentialPair{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}
}
