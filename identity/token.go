// Package identity turns identity-provider bearer tokens into access.User
// values and keeps the admin-managed role overrides.
package identity

import (
	"errors"
	"fmt"
	"time"

	"barbershop/access"
	"barbershop/apperr"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = fmt.Errorf("token has expired: %w", apperr.ErrUnauthenticated)
	ErrTokenInvalid = fmt.Errorf("token is invalid: %w", apperr.ErrUnauthenticated)
)

type claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Verifier validates HS256 tokens signed with a shared secret.
type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

func (v *Verifier) Verify(tokenString string) (access.User, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return access.User{}, ErrTokenExpired
		}
		return access.User{}, ErrTokenInvalid
	}
	if !token.Valid || c.Subject == "" {
		return access.User{}, ErrTokenInvalid
	}

	return access.User{
		AccountID:   c.Subject,
		Email:       c.Email,
		DisplayName: c.Name,
		Role:        access.NormalizeRole(c.Role),
	}, nil
}

// Issuer signs tokens the Verifier accepts. Used by local tooling and tests;
// production tokens come from the identity provider.
type Issuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewIssuer(secret, issuer string) *Issuer {
	return &Issuer{secret: []byte(secret), issuer: issuer, now: time.Now}
}

func (i *Issuer) Issue(u access.User, ttl time.Duration) (string, error) {
	now := i.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   u.AccountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: u.Email,
		Name:  u.DisplayName,
		Role:  u.Role.String(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
