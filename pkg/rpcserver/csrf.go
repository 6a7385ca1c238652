package rpcserver

import (
	"errors"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

const (
	csrfIssuer  = "bindsync"
	csrfSubject = "csrf"
)

// ErrMissingToken is returned by CSRF.Verify for an empty token.
var ErrMissingToken = errors.New("rpcserver: missing CSRF token")

// CSRF issues and verifies HS256-signed CSRF tokens.
type CSRF struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCSRF creates a token authority. A zero ttl issues tokens that never
// expire.
func NewCSRF(secret []byte, ttl time.Duration) *CSRF {
	return &CSRF{secret: secret, ttl: ttl, now: time.Now}
}

// Issue returns a new signed token.
func (c *CSRF) Issue() (string, error) {
	now := c.now()
	claims := gojwt.RegisteredClaims{
		Issuer:   csrfIssuer,
		Subject:  csrfSubject,
		ID:       ulid.Make().String(),
		IssuedAt: gojwt.NewNumericDate(now),
	}
	if c.ttl > 0 {
		claims.ExpiresAt = gojwt.NewNumericDate(now.Add(c.ttl))
	}
	return gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Verify checks the signature, issuer, subject and expiry of token.
func (c *CSRF) Verify(token string) error {
	if token == "" {
		return ErrMissingToken
	}
	claims := &gojwt.RegisteredClaims{}
	_, err := gojwt.ParseWithClaims(token, claims,
		func(*gojwt.Token) (any, error) { return c.secret, nil },
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithIssuer(csrfIssuer),
		gojwt.WithSubject(csrfSubject),
		gojwt.WithTimeFunc(c.now),
	)
	return err
}
