// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package denuncia

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User is an authenticated person.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// DisplayName is the name shown as reporter.
func (u *User) DisplayName() string {
	switch {
	case strings.TrimSpace(u.Name) != "":
		return strings.TrimSpace(u.Name)
	case u.Email != "":
		name, _, _ := strings.Cut(u.Email, "@")

		return name
	default:
		return UnknownReporter
	}
}

// Auth tells who is using the service.
type Auth interface {
	// CurrentUser returns the signed in user, if any.
	CurrentUser(ctx context.Context) (*User, bool)
	SignOut(ctx context.Context) error
}

// StaticAuth is signed in as a fixed user until SignOut. A nil User means
// nobody is signed in.
type StaticAuth struct {
	mu   sync.Mutex
	user *User
}

// NewStaticAuth returns an Auth signed in as user.
func NewStaticAuth(user *User) *StaticAuth {
	return &StaticAuth{user: user}
}

// CurrentUser implements Auth.
func (a *StaticAuth) CurrentUser(context.Context) (*User, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.user, a.user != nil
}

// SignOut implements Auth.
func (a *StaticAuth) SignOut(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.user = nil

	return nil
}

type userKey struct{}

// WithUser returns a context carrying user.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// ContextAuth reads the user from the request context (see WithUser).
type ContextAuth struct{}

// CurrentUser implements Auth.
func (ContextAuth) CurrentUser(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(userKey{}).(*User)

	return u, ok && u != nil
}

// SignOut implements Auth. Bearer tokens are stateless, the client drops
// its token.
func (ContextAuth) SignOut(context.Context) error {
	return nil
}

// ErrInvalidToken is returned for malformed, expired or badly signed tokens.
var ErrInvalidToken = errors.New("token inválido")

// TokenIssuer signs and verifies HS256 bearer tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer returns an issuer using secret. Tokens live for ttl.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue returns a signed token for user.
func (t *TokenIssuer) Issue(user *User) (string, error) {
	now := time.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   user.ID,
		"name":  user.Name,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(t.ttl).Unix(),
	})

	s, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}

	return s, nil
}

// Verify parses tokenString and returns its user.
func (t *TokenIssuer) Verify(tokenString string) (*User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return t.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	user := &User{ID: sub}
	user.Name, _ = claims["name"].(string)
	user.Email, _ = claims["email"].(string)

	return user, nil
}
