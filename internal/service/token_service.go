package service

import (
	"errors"
	"fmt"
	"time"

	"catalog-api/internal/config"
	"catalog-api/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for every token that fails verification
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenService issues and verifies stateless access tokens
type TokenService interface {
	Issue(userID uuid.UUID, email string) (string, error)
	Verify(tokenString string) (*domain.Identity, error)
}

// Claims represents the JWT claims
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type tokenService struct {
	signingKey []byte
	expiry     time.Duration
	now        func() time.Time
}

// NewTokenService creates an HS256 TokenService from the JWT configuration
func NewTokenService(cfg config.JWTConfig) (TokenService, error) {
	return newTokenService(cfg, time.Now)
}

func newTokenService(cfg config.JWTConfig, now func() time.Time) (*tokenService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	if cfg.AccessExpiry <= 0 {
		return nil, fmt.Errorf("jwt access expiry must be positive, got %s", cfg.AccessExpiry)
	}

	return &tokenService{
		signingKey: []byte(cfg.Secret),
		expiry:     cfg.AccessExpiry,
		now:        now,
	}, nil
}

// Issue creates a signed token for the user valid for the configured expiry
func (s *tokenService) Issue(userID uuid.UUID, email string) (string, error) {
	now := s.now()
	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Verify checks the signature, algorithm and expiry of a token and returns the
// identity it was issued for
func (s *tokenService) Verify(tokenString string) (*domain.Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a valid id", ErrInvalidToken)
	}

	return &domain.Identity{ID: userID, Email: claims.Email}, nil
}
