// Package auth issues and validates the JWT access tokens that identify a
// feed viewer.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTypeAccess is the typ claim of viewer access tokens.
const TokenTypeAccess = "access"

// Defaults for issued tokens.
const (
	DefaultAccessTokenExpiry = 15 * time.Minute
	DefaultLeeway            = 30 * time.Second
	DefaultIssuer            = "chirpfeed"
)

var (
	// ErrInvalidToken is returned when token validation fails.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("token has expired")

	// ErrEmptyViewerID is returned when a token is requested without a subject.
	ErrEmptyViewerID = errors.New("viewer ID cannot be empty")
)

// Claims are the claims of a viewer access token. The subject is the viewer ID.
type Claims struct {
	jwt.RegisteredClaims
	Handle string `json:"handle,omitempty"`
	Type   string `json:"typ"`
}

// ViewerID returns the token subject.
func (c *Claims) ViewerID() string {
	return c.Subject
}

// Option configures a JWTService.
type Option func(*JWTService)

// WithPreviousSecret accepts tokens signed with secret during key rotation.
// An empty secret is ignored.
func WithPreviousSecret(secret string) Option {
	return func(s *JWTService) {
		if secret != "" {
			s.previousSecret = []byte(secret)
		}
	}
}

// WithLeeway sets the clock-skew allowance for exp/nbf/iat checks.
func WithLeeway(leeway time.Duration) Option {
	return func(s *JWTService) { s.leeway = leeway }
}

// WithExpiry sets the lifetime of issued access tokens.
func WithExpiry(expiry time.Duration) Option {
	return func(s *JWTService) { s.expiry = expiry }
}

// JWTService signs tokens with the current secret and validates with the
// current secret first, then the previous one, so keys can be rotated
// without logging viewers out.
type JWTService struct {
	currentSecret  []byte
	previousSecret []byte
	leeway         time.Duration
	expiry         time.Duration
	now            func() time.Time
}

// NewJWTService creates a JWTService signing with secret.
func NewJWTService(secret string, opts ...Option) *JWTService {
	s := &JWTService{
		currentSecret: []byte(secret),
		leeway:        DefaultLeeway,
		expiry:        DefaultAccessTokenExpiry,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateAccessToken issues an access token for viewerID.
func (s *JWTService) GenerateAccessToken(viewerID, handle string) (string, error) {
	if viewerID == "" {
		return "", ErrEmptyViewerID
	}

	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    DefaultIssuer,
			Subject:   viewerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
		Handle: handle,
		Type:   TokenTypeAccess,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.currentSecret)
}

// ValidateToken parses an access token and returns its claims.
// Expired tokens yield ErrExpiredToken; anything else that fails yields ErrInvalidToken.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	secrets := [][]byte{s.currentSecret}
	if s.previousSecret != nil {
		secrets = append(secrets, s.previousSecret)
	}

	var lastErr error
	for _, secret := range secrets {
		claims, err := s.parse(tokenString, secret)
		if err == nil {
			return claims, nil
		}
		lastErr = err
	}

	if errors.Is(lastErr, jwt.ErrTokenExpired) {
		return nil, ErrExpiredToken
	}
	return nil, ErrInvalidToken
}

func (s *JWTService) parse(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrInvalidToken
		}
		return secret, nil
	},
		jwt.WithLeeway(s.leeway),
		jwt.WithTimeFunc(s.now),
		jwt.WithIssuer(DefaultIssuer),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Type != TokenTypeAccess || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
