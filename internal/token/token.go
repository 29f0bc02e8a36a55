// Package token issues and validates the signed session credential minted on
// a successful authentication. Verification is stateless: any node holding
// the shared secret can validate a token on its own, traded against instant
// revocation.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"membercore/internal/config"
)

var ErrInvalidToken = errors.New("token: invalid token")

// Claims is the decoded payload of a session token: the user name plus the
// role set the user held at issue time.
type Claims struct {
	Name  string   `json:"name"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type Issuer struct {
	issuer   string
	audience string
	secret   []byte
	ttl      time.Duration
}

func NewIssuer(cfg *config.Config) *Issuer {
	return &Issuer{
		issuer:   cfg.JWTIssuer,
		audience: cfg.JWTAudience,
		secret:   []byte(cfg.JWTSecret),
		ttl:      cfg.JWTTTL,
	}
}

// Issue signs an HS256 token for userName carrying one role claim per role,
// not-before now and expiry now+TTL.
func (i *Issuer) Issue(userName string, roles []string) (string, error) {
	now := time.Now()
	claims := Claims{
		Name:  userName,
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userName,
			Issuer:    i.issuer,
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	if i.audience != "" {
		claims.Audience = jwt.ClaimStrings{i.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Validate reports whether tokenStr carries a valid signature and lifetime.
// Structural and cryptographic failures all collapse to (nil, false); callers
// needing the underlying cause use ValidateStrict.
func (i *Issuer) Validate(tokenStr string) (*Claims, bool) {
	claims, err := i.ValidateStrict(tokenStr)
	return claims, err == nil
}

// ValidateStrict behaves like Validate but propagates the parse error, for
// diagnostic tooling.
func (i *Issuer) ValidateStrict(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if i.audience != "" {
		opts = append(opts, jwt.WithAudience(i.audience))
	}
	tok, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
