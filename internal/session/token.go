package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors. Callers treat all of them as "invalid token".
var (
	ErrTokenMalformed = errors.New("token is not decodable")
	ErrTokenExpired   = errors.New("token is expired")
)

// Claims is the decoded backend token: {sub, role, iat, exp}.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// TokenDecoder decodes backend access tokens. With a secret it verifies the
// HS256 signature; without one it only decodes and checks expiry, leaving
// signature checks to the backend.
type TokenDecoder struct {
	secret    []byte
	demoToken string
	now       func() time.Time
}

// NewTokenDecoder creates a decoder. demoToken is the sentinel accepted without
// decoding; pass "" to disable it.
func NewTokenDecoder(secret, demoToken string) *TokenDecoder {
	d := &TokenDecoder{demoToken: demoToken, now: time.Now}
	if secret != "" {
		d.secret = []byte(secret)
	}
	return d
}

// IsDemo reports whether token is the demo sentinel.
func (d *TokenDecoder) IsDemo(token string) bool {
	return d.demoToken != "" && token == d.demoToken
}

// Decode parses token and requires exp to be strictly in the future.
func (d *TokenDecoder) Decode(token string) (*Claims, error) {
	claims := &Claims{}

	if d.secret != nil {
		_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			return d.secret, nil
		},
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(d.now),
		)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return nil, ErrTokenExpired
			}
			return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
		}
		return claims, nil
	}

	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(d.now()) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}
