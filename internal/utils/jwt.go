// Package utils holds token helpers shared by the server, its tests and
// the devtoken command.
package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles carried in the "role" claim.
const (
	RoleCustomer = "CUSTOMER"
	RoleStaff    = "STAFF"
	RoleAdmin    = "ADMIN"
)

// AccessToken is a signed JWT and its expiry.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// Claims is the token body understood by the API.  BarbershopID is only
// set on staff tokens.
type Claims struct {
	Role         string `json:"role"`
	BarbershopID string `json:"barbershop_id,omitempty"`
	jwt.RegisteredClaims
}

// NewAccessToken signs an HS256 token for subject.
func NewAccessToken(secret, subject, role, barbershopID string, ttl time.Duration) (AccessToken, error) {
	if secret == "" {
		return AccessToken{}, errors.New("empty signing secret")
	}
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		Role:         role,
		BarbershopID: barbershopID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies raw with secret and returns its claims.
func ParseAccessToken(secret, raw string) (*Claims, error) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !tok.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return &claims, nil
}
