package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/employee-service/internal/auth"
	"github.com/spec-kit/employee-service/internal/config"
	"github.com/spec-kit/employee-service/internal/domain"
	"github.com/spec-kit/employee-service/internal/identity"
	apperrors "github.com/spec-kit/employee-service/pkg/util/errorutil"
)

// AuthService coordinates registration and login against the identity store.
type AuthService struct {
	identities identity.Store
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, identities identity.Store) *AuthService {
	return &AuthService{
		identities: identities,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// Register creates a new identity. Its metadata starts with role setup pending.
func (s *AuthService) Register(ctx context.Context, email, password string) (*domain.Identity, string, time.Time, error) {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return nil, "", time.Time{}, apperrors.NewValidationError("invalid request", map[string]any{"password": err.Error()})
	}
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}

	now := time.Now().UTC()
	ident := &domain.Identity{
		ExternalID:   uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		Metadata:     domain.IdentityMetadata{RoleSetupComplete: false, UpdatedAt: now},
		CreatedAt:    now,
	}
	if err := s.identities.Create(ctx, ident); err != nil {
		if errors.Is(err, identity.ErrEmailTaken) {
			return nil, "", time.Time{}, apperrors.NewConflict("email already registered", map[string]any{"email": ident.Email})
		}
		return nil, "", time.Time{}, apperrors.NewInfrastructureError(err)
	}

	token, exp, err := s.tokenMgr.GenerateToken(ident.ExternalID, ident.Email)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return ident, token, exp, nil
}

// Login authenticates an identity by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Identity, string, time.Time, error) {
	ident, err := s.identities.GetByEmail(ctx, email)
	if errors.Is(err, identity.ErrNotFound) {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInfrastructureError(err)
	}
	if err := auth.ComparePassword(ident.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(ident.ExternalID, ident.Email)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return ident, token, exp, nil
}

// Metadata returns the identity's mirrored metadata.
func (s *AuthService) Metadata(ctx context.Context, externalID string) (domain.IdentityMetadata, error) {
	meta, err := s.identities.GetMetadata(ctx, externalID)
	if errors.Is(err, identity.ErrNotFound) {
		return meta, apperrors.NewNotFound("identity", map[string]any{"external_id": externalID})
	}
	if err != nil {
		return meta, apperrors.NewInfrastructureError(err)
	}
	return meta, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
