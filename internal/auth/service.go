package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/abduss/pinstore/internal/config"
)

const (
	audience         = "pinstore-api"
	maxAddressLength = 128
)

// Service issues and validates the bearer tokens that carry a sender address.
type Service struct {
	cfg     config.AuthConfig
	nowFunc func() time.Time
	parser  *jwt.Parser
}

// NewService creates a Service.
func NewService(cfg config.AuthConfig) *Service {
	s := &Service{cfg: cfg, nowFunc: time.Now}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return s.nowFunc() }),
	)
	return s
}

// Claims describes the validated identity extracted from a token.
type Claims struct {
	Address   string
	TokenID   string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// ValidAddress checks that address is usable as a sender identity.
func ValidAddress(address string) error {
	if address == "" || len(address) > maxAddressLength {
		return fmt.Errorf("%w: length must be between 1 and %d", ErrInvalidAddress, maxAddressLength)
	}
	if strings.ContainsFunc(address, func(r rune) bool { return unicode.IsSpace(r) || !unicode.IsPrint(r) }) {
		return fmt.Errorf("%w: %q contains whitespace or control characters", ErrInvalidAddress, address)
	}
	return nil
}

// IssueToken signs a token for address. A non-positive ttl uses the
// configured default.
func (s *Service) IssueToken(address string, ttl time.Duration) (string, time.Time, error) {
	if err := ValidAddress(address); err != nil {
		return "", time.Time{}, err
	}
	if ttl <= 0 {
		ttl = s.cfg.TokenTTL
	}

	now := s.nowFunc()
	expiresAt := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   address,
		Issuer:    s.cfg.Issuer,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateAccessToken verifies the token signature and extracts the sender.
func (s *Service) ValidateAccessToken(tokenString string) (Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return Claims{}, ErrUnauthorized
	}

	var claims jwt.RegisteredClaims
	parsed, err := s.parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil || !parsed.Valid {
		return Claims{}, errors.Join(ErrUnauthorized, err)
	}
	if ValidAddress(claims.Subject) != nil {
		return Claims{}, ErrUnauthorized
	}

	out := Claims{Address: claims.Subject, TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}
