// Package jwttoken verifies hosted-auth session tokens without a network
// round trip, and mints HS256 tokens for local development.
package jwttoken

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	id "zeropass/pkg/domain"
	dErrors "zeropass/pkg/domain-errors"
	"zeropass/pkg/platform/middleware/auth"
	"zeropass/pkg/requestcontext"
)

// SessionClaims are the claims the hosted auth provider puts in a session
// token. Subject is the user ID.
type SessionClaims struct {
	SessionID       string `json:"sid,omitempty"`
	AuthorizedParty string `json:"azp,omitempty"`
	jwt.RegisteredClaims
}

type Option func(*Verifier)

// WithIssuer requires the iss claim to equal issuer.
func WithIssuer(issuer string) Option {
	return func(v *Verifier) {
		v.issuer = issuer
	}
}

// WithLeeway tolerates clock skew on exp, nbf and iat.
func WithLeeway(d time.Duration) Option {
	return func(v *Verifier) {
		v.leeway = d
	}
}

func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

// Verifier checks session token signatures and standard claims. It accepts
// exactly one signing algorithm.
type Verifier struct {
	method jwt.SigningMethod
	key    any
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// NewRS256Verifier verifies tokens against the provider's PEM encoded
// public key.
func NewRS256Verifier(publicKeyPEM string, opts ...Option) (*Verifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("parse session token public key: %w", err)
	}
	return newVerifier(jwt.SigningMethodRS256, key, opts...), nil
}

// NewHS256Verifier verifies tokens signed with a shared secret. Intended for
// development only.
func NewHS256Verifier(secret string, opts ...Option) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("session token secret is required")
	}
	return newVerifier(jwt.SigningMethodHS256, []byte(secret), opts...), nil
}

func newVerifier(method jwt.SigningMethod, key any, opts ...Option) *Verifier {
	v := &Verifier{method: method, key: key, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Parse validates tokenString and returns its claims.
func (v *Verifier) Parse(tokenString string) (*SessionClaims, error) {
	if tokenString == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "empty token")
	}
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{v.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}

	claims := new(SessionClaims)
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	}, parserOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if claims.Subject == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has no subject")
	}
	return claims, nil
}

// ValidateToken satisfies the auth middleware.
func (v *Verifier) ValidateToken(tokenString string) (*auth.Claims, error) {
	claims, err := v.Parse(tokenString)
	if err != nil {
		return nil, err
	}
	return &auth.Claims{Subject: claims.Subject, SessionID: claims.SessionID}, nil
}

// DevSigner mints HS256 session tokens that a Verifier built with the same
// secret accepts.
type DevSigner struct {
	secret []byte
	issuer string
}

func NewDevSigner(secret, issuer string) *DevSigner {
	return &DevSigner{secret: []byte(secret), issuer: issuer}
}

func (s *DevSigner) Sign(ctx context.Context, userID id.UserID, sessionID string, ttl time.Duration) (string, error) {
	if userID.IsNil() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	now := requestcontext.Now(ctx)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(s.secret)
}

var _ auth.TokenValidator = (*Verifier)(nil)
