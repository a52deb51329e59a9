package tokens

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind distinguishes access tokens from refresh tokens.
// Access tokens carry no marker at all.
type Kind string

const (
	KindAccess  Kind = ""
	KindRefresh Kind = "refresh"
)

// String returns a printable name for the kind
func (k Kind) String() string {
	if k == KindAccess {
		return "access"
	}
	return string(k)
}

// Identity is the subject data a token is minted for
type Identity struct {
	SubjectID   string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"full_name,omitempty"`
	Role        string `json:"role,omitempty"`
}

// Claims is the decoded content of a token
type Claims struct {
	Identity
	Kind      Kind
	IssuedAt  time.Time
	ExpiresAt time.Time
	Issuer    string
}

// wireClaims is the signed JSON payload
type wireClaims struct {
	jwt.RegisteredClaims
	Email       string `json:"email"`
	DisplayName string `json:"full_name,omitempty"`
	Role        string `json:"role,omitempty"`
	Type        Kind   `json:"type,omitempty"`
}

func newWireClaims(identity Identity, kind Kind, issuer string, iat, exp int64) *wireClaims {
	return &wireClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   identity.SubjectID,
			IssuedAt:  jwt.NewNumericDate(time.Unix(iat, 0)),
			ExpiresAt: jwt.NewNumericDate(time.Unix(exp, 0)),
		},
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		Role:        identity.Role,
		Type:        kind,
	}
}

func (w *wireClaims) claims() (*Claims, error) {
	if w.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrMalformed)
	}
	if w.IssuedAt == nil || w.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing timestamps", ErrMalformed)
	}
	return &Claims{
		Identity: Identity{
			SubjectID:   w.Subject,
			Email:       w.Email,
			DisplayName: w.DisplayName,
			Role:        w.Role,
		},
		Kind:      w.Type,
		IssuedAt:  w.IssuedAt.Time,
		ExpiresAt: w.ExpiresAt.Time,
		Issuer:    w.Issuer,
	}, nil
}

// ReadClaimsUnverified decodes a token WITHOUT checking its signature,
// issuer or expiry. Use it for display only, never for authorization.
func ReadClaimsUnverified(token string) (*Claims, error) {
	wire := &wireClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return wire.claims()
}
