package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ariefcatur/go-shop-api/internal/model"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the identity carried by access and refresh tokens.
type Claims struct {
	ID    string     `json:"id"`
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Tokens issues and verifies HS256 tokens. Refresh tokens use their own secret
// so an access token can never be replayed as a refresh token.
type Tokens struct {
	Secret        []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Now           func() time.Time
}

func (t *Tokens) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t *Tokens) sign(u model.User, secret []byte, ttl time.Duration) (string, error) {
	now := t.now()
	claims := &Claims{
		ID:    u.ID,
		Email: u.Email,
		Role:  u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

func (t *Tokens) Issue(u model.User) (TokenPair, error) {
	access, err := t.sign(u, t.Secret, t.AccessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := t.sign(u, t.RefreshSecret, t.RefreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (t *Tokens) IssueAccess(u model.User) (string, error) {
	return t.sign(u, t.Secret, t.AccessTTL)
}

func (t *Tokens) parse(raw string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Verify checks signature and expiry of an access token before any claim is read.
func (t *Tokens) Verify(raw string) (*Claims, error) { return t.parse(raw, t.Secret) }

func (t *Tokens) VerifyRefresh(raw string) (*Claims, error) { return t.parse(raw, t.RefreshSecret) }
