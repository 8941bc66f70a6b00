// Package auth resolves the signed-in user for feed operations.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrUnauthenticated means no user is signed in.
var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is the signed-in user.
type Identity struct {
	UserID string
}

// Provider answers "who is the current user". A nil identity with a nil
// error means anonymous.
type Provider interface {
	CurrentUser(ctx context.Context) (*Identity, error)
}

type identityKey struct{}

// WithUser attaches id to ctx.
func WithUser(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity attached by WithUser, if any.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}

// ContextProvider reads the identity that request middleware put on ctx.
type ContextProvider struct{}

func (ContextProvider) CurrentUser(ctx context.Context) (*Identity, error) {
	id, _ := FromContext(ctx)
	return id, nil
}

// StaticProvider always reports the same user. An empty UserID is anonymous.
type StaticProvider struct {
	UserID string
}

func (p StaticProvider) CurrentUser(context.Context) (*Identity, error) {
	if p.UserID == "" {
		return nil, nil
	}
	return &Identity{UserID: p.UserID}, nil
}

// Require returns the current user or ErrUnauthenticated.
func Require(ctx context.Context, p Provider) (*Identity, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}
	id, err := p.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if id == nil || id.UserID == "" {
		return nil, ErrUnauthenticated
	}
	return id, nil
}

// Optional returns the current user or nil for anonymous viewers. Provider
// errors degrade to anonymous.
func Optional(ctx context.Context, p Provider) *Identity {
	if p == nil {
		return nil
	}
	id, err := p.CurrentUser(ctx)
	if err != nil || id == nil || id.UserID == "" {
		return nil
	}
	return id
}

// Verifier validates HS256 bearer tokens whose "sub" claim is a user UUID.
type Verifier struct {
	secret []byte
}

// NewVerifier builds a verifier for secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Parse validates token and returns its identity.
func (v *Verifier) Parse(token string) (*Identity, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(sub); err != nil {
		return nil, fmt.Errorf("invalid subject: %w", err)
	}
	return &Identity{UserID: sub}, nil
}

// ParseHeader validates an "Authorization: Bearer <token>" header value.
func (v *Verifier) ParseHeader(header string) (*Identity, error) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || token == "" {
		return nil, errors.New("invalid authorization header format")
	}
	return v.Parse(token)
}

// Issue signs a token for userID valid for ttl.
func (v *Verifier) Issue(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
