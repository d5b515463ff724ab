package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/spec-kit/employee-service/internal/domain"
	"github.com/spec-kit/employee-service/internal/messaging"
	"github.com/spec-kit/employee-service/internal/repository"
	apperrors "github.com/spec-kit/employee-service/pkg/util/errorutil"
)

// SetupInput carries the profile fields chosen at role setup.
type SetupInput struct {
	ExternalID   string
	Email        string
	Name         string
	Position     string
	DepartmentID *string
}

// SetupResult is the profile created (or found) at setup.
type SetupResult struct {
	Employee    *domain.EmployeeProfile
	IsFirstUser bool
	Created     bool
	Warnings    []domain.TransitionWarning
}

// SetupService creates the employee profile for a freshly registered identity.
type SetupService struct {
	employees repository.EmployeeRepository
	mirror    advisoryMirror
	logger    *zap.Logger
	now       func() time.Time
}

// NewSetupService builds the service. retries may be nil.
func NewSetupService(employees repository.EmployeeRepository, mirror MetadataMirror, retries messaging.MirrorRetryQueue, logger *zap.Logger) *SetupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SetupService{
		employees: employees,
		mirror:    advisoryMirror{mirror: mirror, retries: retries, logger: logger},
		logger:    logger,
		now:       time.Now,
	}
}

// CompleteSetup creates the caller's profile. The very first profile becomes
// the super administrator; every later one starts as an employee. Calling it
// again returns the existing profile unchanged.
func (s *SetupService) CompleteSetup(ctx context.Context, in SetupInput) (*SetupResult, error) {
	if strings.TrimSpace(in.ExternalID) == "" {
		return nil, apperrors.NewUnauthorized("missing identity")
	}

	existing, err := s.employees.GetByExternalID(ctx, in.ExternalID)
	switch {
	case err == nil:
		return &SetupResult{Employee: existing}, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, apperrors.NewInfrastructureError(err)
	}

	emp := &domain.EmployeeProfile{
		ExternalID:   in.ExternalID,
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.TrimSpace(in.Email),
		Position:     strings.TrimSpace(in.Position),
		DepartmentID: in.DepartmentID,
	}
	first, err := s.employees.CreateBootstrapped(ctx, emp, domain.RoleSuperAdministrator, domain.RoleEmployee)
	if isUniqueViolation(err) {
		// A concurrent setup for the same identity won.
		existing, gerr := s.employees.GetByExternalID(ctx, in.ExternalID)
		if gerr != nil {
			return nil, apperrors.NewInfrastructureError(gerr)
		}
		return &SetupResult{Employee: existing}, nil
	}
	if err != nil {
		return nil, apperrors.NewInfrastructureError(err)
	}

	s.logger.Info("employee profile created",
		zap.String("employee_id", emp.ID),
		zap.String("role", emp.Role.String()),
		zap.Bool("first_user", first))

	role := emp.Role
	now := s.now().UTC()
	result := &SetupResult{Employee: emp, IsFirstUser: first, Created: true}
	if w := s.mirror.write(ctx, emp, domain.IdentityMetadata{
		Role:              &role,
		RoleSetupComplete: true,
		IsFirstUser:       &first,
		CreatedAt:         &now,
		UpdatedAt:         now,
	}); w != nil {
		result.Warnings = append(result.Warnings, *w)
	}
	return result, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
