// Package token issues and validates the access/refresh token pairs
// used for stateless authentication. Validity is proven by signature
// and expiry alone; no session state is kept server-side.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pollwise/pollwise/config"
	"github.com/pollwise/pollwise/model"
)

type Pair struct {
	Access        string    `json:"access_token"`
	AccessExpires time.Time `json:"access_expires"`
	Refresh       string    `json:"-"`
}

type Service struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewService(cfg config.Config) *Service {
	return &Service{
		secret:     []byte(cfg.TokenSecret),
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		now:        time.Now,
	}
}

// IssuePair mints an access/refresh pair sharing subject, token id and
// issue time. Only the expiry windows differ.
func (s *Service) IssuePair(userID string) (Pair, error) {
	now := s.now()
	base := jwt.RegisteredClaims{
		Subject:  userID,
		ID:       uuid.NewString(),
		IssuedAt: jwt.NewNumericDate(now),
	}

	accessExpires := now.Add(s.accessTTL)
	access, err := s.sign(base, accessExpires)
	if err != nil {
		return Pair{}, err
	}

	refresh, err := s.sign(base, now.Add(s.refreshTTL))
	if err != nil {
		return Pair{}, err
	}

	return Pair{Access: access, AccessExpires: accessExpires, Refresh: refresh}, nil
}

// Authenticate verifies an access token and returns its subject, the
// user id. Expired tokens fail with model.ErrTokenExpired, anything
// else wrong with model.ErrTokenInvalid.
func (s *Service) Authenticate(tokenString string) (string, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Refresh validates a refresh token and mints a new access token
// reusing its subject, token id and issue time with a fresh expiry.
// The refresh token itself stays valid until its natural expiry.
func (s *Service) Refresh(refreshToken string) (Pair, error) {
	claims, err := s.parse(refreshToken)
	if err != nil {
		return Pair{}, err
	}

	accessExpires := s.now().Add(s.accessTTL)
	access, err := s.sign(*claims, accessExpires)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Access: access, AccessExpires: accessExpires, Refresh: refreshToken}, nil
}

func (s *Service) sign(claims jwt.RegisteredClaims, expires time.Time) (string, error) {
	claims.ExpiresAt = jwt.NewNumericDate(expires)
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Service) parse(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, model.ErrTokenExpired
		}
		return nil, model.ErrTokenInvalid
	}
	if !parsed.Valid {
		return nil, model.ErrTokenInvalid
	}
	return claims, nil
}
