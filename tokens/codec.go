package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultIssuer is the issuer stamped on every token unless overridden
const DefaultIssuer = "my-books-app"

// Codec signs and verifies HS256 tokens with a shared secret.
// It is stateless and safe for concurrent use.
type Codec struct {
	secret []byte
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

// Option configures a Codec
type Option func(*Codec)

// WithIssuer overrides the issuer written and expected by the codec
func WithIssuer(issuer string) Option {
	return func(c *Codec) {
		c.issuer = issuer
	}
}

// WithClock overrides the time source, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

// NewCodec creates a codec for the given secret
func NewCodec(secret []byte, opts ...Option) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret is required")
	}

	c := &Codec{
		secret: secret,
		issuer: DefaultIssuer,
		now:    time.Now,
		// Expiry and issuer are checked by Verify itself so that the
		// comparison stays strict and the failures stay distinguishable.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue signs a token for identity. Timestamps are whole seconds.
func (c *Codec) Issue(identity Identity, kind Kind, lifetime time.Duration) (string, error) {
	if identity.SubjectID == "" {
		return "", fmt.Errorf("%w: subject is required", ErrSigning)
	}
	if lifetime < 0 {
		return "", fmt.Errorf("%w: negative lifetime", ErrSigning)
	}

	iat := c.now().Unix()
	exp := iat + int64(lifetime/time.Second)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, newWireClaims(identity, kind, c.issuer, iat, exp))
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return signed, nil
}

// Verify checks signature, issuer and expiry, in that order.
//
// A token is valid through the second equal to its expiry. A token whose
// expiry is not after its issue time (zero lifetime) is always expired.
// When ErrExpired is returned the decoded claims are returned with it so
// callers can still inspect the kind.
func (c *Codec) Verify(token string) (*Claims, error) {
	wire := &wireClaims{}
	_, err := c.parser.ParseWithClaims(token, wire, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if wire.Issuer != c.issuer {
		return nil, ErrIssuerMismatch
	}

	claims, err := wire.claims()
	if err != nil {
		return nil, err
	}

	iat, exp := claims.IssuedAt.Unix(), claims.ExpiresAt.Unix()
	if c.now().Unix() > exp || exp <= iat {
		return claims, ErrExpired
	}
	return claims, nil
}
