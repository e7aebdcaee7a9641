package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"chatroomgo/internal/core"
)

var ErrInvalidCredential = errors.New("invalid_credential")

// Verifier turns the opaque credential presented at handshake time into a
// verified identity.
type Verifier interface {
	Verify(credential string) (core.Identity, error)
}

// Issuer mints credentials; used by the login endpoint.
type Issuer interface {
	Issue(identity core.Identity) (string, error)
}

type claims struct {
	DisplayName string `json:"display_name,omitempty"`
	jwt.RegisteredClaims
}

// JWT signs and verifies HS256 tokens. Subject carries the user id.
type JWT struct {
	secret []byte
	ttl    time.Duration
}

func NewJWT(secret string, ttl time.Duration) *JWT {
	return &JWT{secret: []byte(secret), ttl: ttl}
}

func (j *JWT) Issue(identity core.Identity) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{
		DisplayName: identity.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
			Issuer:    "chatroomgo",
		},
	})
	return token.SignedString(j.secret)
}

func (j *JWT) Verify(credential string) (core.Identity, error) {
	token, err := jwt.ParseWithClaims(credential, &claims{},
		func(*jwt.Token) (interface{}, error) { return j.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return core.Identity{}, ErrInvalidCredential
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid || c.Subject == "" {
		return core.Identity{}, ErrInvalidCredential
	}
	return core.Identity{ID: c.Subject, Name: c.DisplayName}, nil
}
