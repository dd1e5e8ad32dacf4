package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	cfotel "github.com/Strob0t/tenantdash/internal/adapter/otel"
	"github.com/Strob0t/tenantdash/internal/config"
	"github.com/Strob0t/tenantdash/internal/domain"
	"github.com/Strob0t/tenantdash/internal/domain/user"
	"github.com/Strob0t/tenantdash/internal/logger"
	"github.com/Strob0t/tenantdash/internal/port/database"
	"github.com/Strob0t/tenantdash/internal/port/messagequeue"
	"github.com/Strob0t/tenantdash/internal/resilience"
)

// AuthService handles credential verification, token issuance and accounts.
type AuthService struct {
	store   database.Store
	cfg     *config.Auth
	tokens  *Tokens
	events  *EventPublisher
	metrics *cfotel.Metrics
	hashers *resilience.Bulkhead

	// dummyHash is compared against when no account matches, so a missing
	// account costs the same bcrypt work as a wrong password.
	dummyHash []byte
}

// NewAuthService creates a new authentication service.
func NewAuthService(store database.Store, cfg *config.Auth, tokens *Tokens, events *EventPublisher) (*AuthService, error) {
	filler := make([]byte, 32)
	if _, err := rand.Read(filler); err != nil {
		return nil, fmt.Errorf("dummy password: %w", err)
	}
	// bcrypt rejects inputs over 72 bytes; 32 random bytes fit.
	hash, err := bcrypt.GenerateFromPassword(filler, cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}
	return &AuthService{
		store:     store,
		cfg:       cfg,
		tokens:    tokens,
		events:    events,
		hashers:   resilience.NewBulkhead(cfg.MaxConcurrentHashes),
		dummyHash: hash,
	}, nil
}

// SetMetrics attaches metric instruments. nil disables recording.
func (s *AuthService) SetMetrics(m *cfotel.Metrics) { s.metrics = m }

// Tokens returns the token issuer and validator used by this service.
func (s *AuthService) Tokens() *Tokens { return s.tokens }

// VerifyCredentials checks email and password against the account store and
// requires the account to belong to tenantID. Every failure returns
// user.ErrInvalidCredentials; storage outages are returned as-is.
func (s *AuthService) VerifyCredentials(ctx context.Context, tenantID, email, password string) (*user.User, error) {
	u, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			_, _ = s.comparePassword(ctx, s.dummyHash, password)
			return nil, user.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	ok, err := s.comparePassword(ctx, []byte(u.PasswordHash), password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, user.ErrInvalidCredentials
	}
	if u.TenantID != tenantID {
		return nil, user.ErrInvalidCredentials
	}
	return u, nil
}

// Login verifies credentials for tenantID and issues a token.
func (s *AuthService) Login(ctx context.Context, tenantID string, req user.LoginRequest) (*user.LoginResponse, error) {
	ctx, span := cfotel.StartLoginSpan(ctx, tenantID)
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	u, err := s.VerifyCredentials(ctx, tenantID, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			s.recordLogin(ctx, tenantID, "", false)
		}
		return nil, err
	}

	token, claims, err := s.tokens.Issue(u)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.recordLogin(ctx, tenantID, u.ID, true)
	slog.InfoContext(ctx, "login succeeded", "tenant_id", tenantID, "subject", u.ID)

	return &user.LoginResponse{
		Token:     token,
		ExpiresIn: int(claims.ExpiresAt.Sub(claims.IssuedAt).Seconds()),
		User:      u.Public(),
	}, nil
}

func (s *AuthService) recordLogin(ctx context.Context, tenantID, subject string, success bool) {
	s.metrics.RecordLogin(ctx, success)
	if !success {
		slog.InfoContext(ctx, "login failed", "tenant_id", tenantID)
	}
	s.events.publishBestEffort(ctx, messagequeue.SubjectLoginAttempt, messagequeue.LoginAttemptPayload{
		TenantID:   tenantID,
		Subject:    subject,
		Success:    success,
		RequestID:  logger.RequestID(ctx),
		OccurredAt: time.Now().UTC(),
	})
}

// Register creates a new account with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, req *user.CreateRequest) (*user.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	var hash []byte
	err := s.hashers.Run(ctx, func() error {
		var herr error
		hash, herr = bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BcryptCost)
		return herr
	})
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &user.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
		Role:         req.Role,
		TenantID:     req.TenantID,
	}

	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// comparePassword runs a bcrypt comparison inside the hashing bulkhead.
// The error is non-nil only when ctx ends while waiting for a slot.
func (s *AuthService) comparePassword(ctx context.Context, hash []byte, password string) (bool, error) {
	var match bool
	err := s.hashers.Run(ctx, func() error {
		match = bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
		return nil
	})
	return match, err
}

// ListUsers returns all accounts of a tenant.
func (s *AuthService) ListUsers(ctx context.Context, tenantID string) ([]user.User, error) {
	return s.store.ListUsers(ctx, tenantID)
}
