// Package auth issues and validates the two session artifacts: short-lived
// signed access tokens and long-lived opaque refresh tokens.
//
// Access tokens are stateless HS256 JWTs so protected requests need no store
// lookup; there is no revocation list, the short TTL is the only mitigation.
// Refresh tokens are random opaque strings held server-side with a TTL and
// consumed on first use, which bounds the blast radius of token theft.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/inkpress/inkpress/backend/internal/apperrors"
	"github.com/inkpress/inkpress/backend/internal/kvstore"
)

const (
	// DefaultAccessTokenTTL bounds how long a signed access token stays valid.
	DefaultAccessTokenTTL = time.Hour
	// DefaultRefreshTokenTTL bounds how long an unused refresh token survives.
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour

	refreshTokenSize      = 64
	refreshTokenKeyFormat = "refresh_token:%s:user_id"
)

var (
	errMissingSigningSecret = errors.New("auth: signing secret must be provided")
	errMissingIssuer        = errors.New("auth: issuer must be provided")
	errMissingAudience      = errors.New("auth: audience must be provided")
	errMissingKVStore       = errors.New("auth: key-value store must be provided")
)

// TokenServiceConfig configures token issuance and validation.
type TokenServiceConfig struct {
	SigningSecret   []byte
	Issuer          string
	Audience        string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	KVStore         kvstore.Store
	Clock           func() time.Time
}

// TokenService issues and validates access and refresh tokens.
type TokenService struct {
	signingSecret []byte
	issuer        string
	audience      string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	kv            kvstore.Store
	clock         func() time.Time
}

// NewTokenService constructs a TokenService with sane defaults.
func NewTokenService(cfg TokenServiceConfig) (*TokenService, error) {
	if len(cfg.SigningSecret) == 0 {
		return nil, errMissingSigningSecret
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		return nil, errMissingIssuer
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		return nil, errMissingAudience
	}
	if cfg.KVStore == nil {
		return nil, errMissingKVStore
	}
	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	refreshTTL := cfg.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TokenService{
		signingSecret: append([]byte(nil), cfg.SigningSecret...),
		issuer:        issuer,
		audience:      audience,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		kv:            cfg.KVStore,
		clock:         clock,
	}, nil
}

// TokenPair bundles the two artifacts returned by the token endpoint.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// IssueAccess produces a signed access token for the given user.
func (s *TokenService) IssueAccess(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("auth: user id must not be empty")
	}

	now := s.clock().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    s.issuer,
		Audience:  []string{s.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingSecret)
	if err != nil {
		return "", fmt.Errorf("auth: signing access token: %w", err)
	}
	return signed, nil
}

// ValidateAccess verifies signature, expiry, issuer, audience, and the
// subject claim, and returns the subject user id. Expired tokens report
// ErrExpiredToken so clients can attempt a refresh instead of re-login;
// every other failure reports ErrInvalidToken.
func (s *TokenService) ValidateAccess(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("auth: unexpected signing algorithm %s", t.Method.Alg())
			}
			return s.signingSecret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", apperrors.ErrExpiredToken
		}
		return "", apperrors.ErrInvalidToken.WithDetails("Invalid access token")
	}
	if parsed == nil || !parsed.Valid {
		return "", apperrors.ErrInvalidToken.WithDetails("Invalid access token")
	}
	if claims.Subject == "" {
		return "", apperrors.ErrInvalidToken.WithDetails("Invalid access token")
	}
	return claims.Subject, nil
}

// IssueRefresh generates an opaque refresh token and stores its user mapping
// with the configured TTL. The store is the only holder of the mapping.
func (s *TokenService) IssueRefresh(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("auth: user id must not be empty")
	}

	raw := make([]byte, refreshTokenSize)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("auth: generating refresh token: %w", err)
	}
	token := base64.URLEncoding.EncodeToString(raw)

	key := fmt.Sprintf(refreshTokenKeyFormat, token)
	if err := s.kv.Set(ctx, key, userID, s.refreshTTL); err != nil {
		return "", fmt.Errorf("auth: storing refresh token: %w", err)
	}
	return token, nil
}

// ValidateRefresh looks the token up in the store and returns the mapped
// user id. Absent, expired, and already-consumed tokens are all
// ErrInvalidToken; the token itself carries no trusted claims.
func (s *TokenService) ValidateRefresh(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", apperrors.ErrInvalidToken.WithDetails("Invalid refresh token")
	}

	key := fmt.Sprintf(refreshTokenKeyFormat, token)
	userID, present, err := s.kv.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("auth: looking up refresh token: %w", err)
	}
	if !present || userID == "" {
		return "", apperrors.ErrInvalidToken.WithDetails("Invalid refresh token")
	}
	return userID, nil
}

// InvalidateRefresh consumes a refresh token. Deleting an absent key is a
// deliberate no-op, which keeps concurrent double-invalidation harmless.
func (s *TokenService) InvalidateRefresh(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	key := fmt.Sprintf(refreshTokenKeyFormat, token)
	if err := s.kv.Delete(ctx, key); err != nil {
		return fmt.Errorf("auth: invalidating refresh token: %w", err)
	}
	return nil
}

// IssuePair issues a fresh access+refresh pair for the user. Used on both
// the credential and the rotation paths of the token endpoint.
func (s *TokenService) IssuePair(ctx context.Context, userID string) (TokenPair, error) {
	access, err := s.IssueAccess(userID)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.IssueRefresh(ctx, userID)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
