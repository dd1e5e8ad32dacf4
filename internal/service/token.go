package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Strob0t/tenantdash/internal/config"
	"github.com/Strob0t/tenantdash/internal/domain/user"
)

// TokenConfig carries the immutable signing parameters for Tokens.
type TokenConfig struct {
	Secret   []byte
	Lifetime time.Duration
	Issuer   string

	// Now is the clock used for issuing and expiry checks. Defaults to time.Now.
	Now func() time.Time
}

// Tokens issues and validates HS256 identity tokens.
type Tokens struct {
	secret   []byte
	lifetime time.Duration
	issuer   string
	now      func() time.Time
	parser   *jwt.Parser
}

// tokenClaims is the JWT body. Registered claims carry sub, iss, iat, exp, jti.
type tokenClaims struct {
	Email    string    `json:"email"`
	Role     user.Role `json:"role"`
	TenantID string    `json:"tid"`
	jwt.RegisteredClaims
}

// NewTokens validates cfg and returns a Tokens. The secret is copied.
func NewTokens(cfg TokenConfig) (*Tokens, error) {
	if len(cfg.Secret) < config.MinJWTSecretLength {
		return nil, fmt.Errorf("token secret must be at least %d bytes", config.MinJWTSecretLength)
	}
	if cfg.Lifetime <= 0 {
		return nil, errors.New("token lifetime must be > 0")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	return &Tokens{
		secret:   secret,
		lifetime: cfg.Lifetime,
		issuer:   cfg.Issuer,
		now:      now,
		// Time-based claims are checked in Validate against the injected clock.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// Lifetime returns the configured token lifetime.
func (t *Tokens) Lifetime() time.Duration { return t.lifetime }

// Issue signs a token for u. Timestamps are truncated to whole seconds so the
// returned claims match what Validate later decodes.
func (t *Tokens) Issue(u *user.User) (string, *user.TokenClaims, error) {
	iat := t.now().UTC().Truncate(time.Second)
	exp := iat.Add(t.lifetime)
	jti := uuid.NewString()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Email:    u.Email,
		Role:     u.Role,
		TenantID: u.TenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        jti,
		},
	})
	signed, err := tok.SignedString(t.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}

	return signed, &user.TokenClaims{
		Subject:   u.ID,
		Email:     u.Email,
		Role:      u.Role,
		TenantID:  u.TenantID,
		IssuedAt:  iat,
		ExpiresAt: exp,
		ID:        jti,
	}, nil
}

// Validate verifies raw and returns its claims. It performs no tenant or
// role reasoning. The expiry instant itself counts as expired.
func (t *Tokens) Validate(raw string) (*user.TokenClaims, error) {
	if raw == "" {
		return nil, user.ErrMissingToken
	}

	var c tokenClaims
	_, err := t.parser.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return t.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", user.ErrInvalidToken, err)
	}

	switch {
	case c.Issuer != t.issuer:
		return nil, fmt.Errorf("%w: unexpected issuer", user.ErrInvalidToken)
	case c.Subject == "" || c.TenantID == "":
		return nil, fmt.Errorf("%w: missing subject or tenant", user.ErrInvalidToken)
	case !user.ValidRoles[c.Role]:
		return nil, fmt.Errorf("%w: unknown role", user.ErrInvalidToken)
	case c.ExpiresAt == nil || c.IssuedAt == nil:
		return nil, fmt.Errorf("%w: missing iat or exp", user.ErrInvalidToken)
	}

	if !t.now().Before(c.ExpiresAt.Time) {
		return nil, user.ErrExpiredToken
	}

	return &user.TokenClaims{
		Subject:   c.Subject,
		Email:     c.Email,
		Role:      c.Role,
		TenantID:  c.TenantID,
		IssuedAt:  c.IssuedAt.UTC(),
		ExpiresAt: c.ExpiresAt.UTC(),
		ID:        c.ID,
	}, nil
}

// ValidateHeader extracts the bearer token from an Authorization header value
// and validates it.
func (t *Tokens) ValidateHeader(header string) (*user.TokenClaims, error) {
	raw, err := BearerToken(header)
	if err != nil {
		return nil, err
	}
	return t.Validate(raw)
}

// BearerToken returns the token from an "Authorization: Bearer <token>"
// value. A missing header or any other scheme yields user.ErrMissingToken.
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", user.ErrMissingToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", user.ErrMissingToken
	}
	return token, nil
}
