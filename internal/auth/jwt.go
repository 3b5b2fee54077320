package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"marketplace-chat/internal/models"
)

var ErrInvalidToken = errors.New("invalid token")

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Claims is the identity asserted by the marketplace session layer.
type Claims struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
	jwt.RegisteredClaims
}

// Actor converts the claims into the domain principal.
func (c *Claims) Actor() models.Actor {
	return models.NewActor(c.UserID, c.Name, c.Role, c.Active)
}

// TokenParser validates bearer tokens.
type TokenParser interface {
	Parse(tokenString string) (*Claims, error)
}

// JWTManager signs and verifies HS256 tokens.
type JWTManager struct {
	secret []byte
	issuer string
}

func NewJWTManager(secret, issuer string) *JWTManager {
	return &JWTManager{secret: []byte(secret), issuer: issuer}
}

// Generate signs a token for the identity. Used by tests and local tooling;
// production tokens are minted by the marketplace session layer.
func (m *JWTManager) Generate(userID int64, name, role string, active bool, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Name:   name,
		Role:   role,
		Active: active,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *JWTManager) Parse(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
