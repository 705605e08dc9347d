// Package session issues and verifies the signed tokens handed out after a login.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/GoPowerDNS-Admin/ldapauth/internal/auth"
)

// ErrInvalidToken is returned when a token is malformed, expired or signed with another key.
var ErrInvalidToken = errors.New("invalid token")

// Claims are carried by login tokens.
type Claims struct {
	jwt.RegisteredClaims

	Wiki     string      `json:"wiki"`
	LocalUID string      `json:"uid"`
	DN       string      `json:"dn,omitempty"`
	Source   auth.Source `json:"src"`
}

// Issuer signs tokens with HS256.
type Issuer struct {
	secret []byte
	expiry time.Duration
	issuer string
	now    func() time.Time
}

// NewIssuer returns an Issuer. An empty secret is replaced by a random one,
// so tokens do not survive a restart.
func NewIssuer(secret string, expiry time.Duration, issuer string) (*Issuer, error) {
	if secret == "" {
		var err error
		if secret, err = GenerateSecret(); err != nil {
			return nil, err
		}
	}

	return &Issuer{
		secret: []byte(secret),
		expiry: expiry,
		issuer: issuer,
		now:    time.Now,
	}, nil
}

// Issue returns a token for the principal and its expiry time.
func (i *Issuer) Issue(p *auth.Principal) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(i.expiry)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    i.issuer,
			Subject:   p.Name,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Wiki:     p.Wiki,
		LocalUID: p.LocalUID,
		DN:       p.DN,
		Source:   p.Source,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return token, expiresAt, nil
}

// Parse verifies a token and returns its claims.
func (i *Issuer) Parse(token string) (*Claims, error) {
	claims := new(Claims)

	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	return claims, nil
}

// GenerateSecret generates a new secure random signing secret.
func GenerateSecret() (string, error) {
	// 32 bytes = 256 bits
	b := make([]byte, 32) //nolint:mnd
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
