package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/employee-service/internal/domain"
	"github.com/spec-kit/employee-service/internal/repository"
	apperrors "github.com/spec-kit/employee-service/pkg/util/errorutil"
)

// OrgDependencies encapsulates repositories required for org management.
type OrgDependencies struct {
	EmployeeRepo   repository.EmployeeRepository
	DepartmentRepo repository.DepartmentRepository
}

// EmployeeService reads and edits employee profiles and departments. Role
// changes go through TransitionService only.
type EmployeeService struct {
	employees   repository.EmployeeRepository
	departments repository.DepartmentRepository
}

// EmployeeListFilters define listing parameters.
type EmployeeListFilters struct {
	Role         *domain.Role
	DepartmentID *string
	Limit        int
	Offset       int
}

// EmployeeUpdate lists editable profile fields; nil leaves a field unchanged.
type EmployeeUpdate struct {
	Name         *string
	Email        *string
	Position     *string
	DepartmentID *string
}

// NewEmployeeService constructs the service.
func NewEmployeeService(deps OrgDependencies) *EmployeeService {
	return &EmployeeService{
		employees:   deps.EmployeeRepo,
		departments: deps.DepartmentRepo,
	}
}

func requireMinRole(actor *domain.EmployeeProfile, min domain.Role) error {
	if actor == nil {
		return apperrors.NewForbidden("role setup required")
	}
	if actor.Role < min {
		return apperrors.NewForbidden(min.DisplayName() + " role required")
	}
	return nil
}

// ListEmployees lists profiles; managers and above only.
func (s *EmployeeService) ListEmployees(ctx context.Context, actor *domain.EmployeeProfile, filters EmployeeListFilters) ([]domain.EmployeeProfile, error) {
	if err := requireMinRole(actor, domain.RoleManager); err != nil {
		return nil, err
	}
	list, err := s.employees.List(ctx, repository.EmployeeFilter{
		Role:         filters.Role,
		DepartmentID: filters.DepartmentID,
		Limit:        filters.Limit,
		Offset:       filters.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if list == nil {
		list = []domain.EmployeeProfile{}
	}
	return list, nil
}

// GetEmployee returns a profile to its owner or to a manager and above.
func (s *EmployeeService) GetEmployee(ctx context.Context, actor *domain.EmployeeProfile, id string) (*domain.EmployeeProfile, error) {
	if actor == nil {
		return nil, apperrors.NewForbidden("role setup required")
	}
	if actor.ID != id {
		if err := requireMinRole(actor, domain.RoleManager); err != nil {
			return nil, err
		}
	}
	emp, err := s.employees.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("employee", map[string]any{"employee_id": id})
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return emp, nil
}

// UpdateEmployee edits profile details; administrators and above only.
func (s *EmployeeService) UpdateEmployee(ctx context.Context, actor *domain.EmployeeProfile, id string, in EmployeeUpdate) (*domain.EmployeeProfile, error) {
	if err := requireMinRole(actor, domain.RoleAdministrator); err != nil {
		return nil, err
	}
	emp, err := s.employees.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("employee", map[string]any{"employee_id": id})
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	if in.DepartmentID != nil {
		if *in.DepartmentID == "" {
			emp.DepartmentID = nil
		} else {
			dept, err := s.departments.GetByID(ctx, *in.DepartmentID)
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("department", map[string]any{"department_id": *in.DepartmentID})
			}
			if err != nil {
				return nil, apperrors.MapError(err)
			}
			if !dept.IsActive {
				return nil, apperrors.NewConflict("department inactive", map[string]any{"department_id": dept.ID})
			}
			emp.DepartmentID = &dept.ID
		}
	}
	if in.Name != nil {
		emp.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		emp.Email = strings.TrimSpace(*in.Email)
	}
	if in.Position != nil {
		emp.Position = strings.TrimSpace(*in.Position)
	}

	if err := s.employees.Update(ctx, emp); err != nil {
		return nil, apperrors.MapError(err)
	}
	return emp, nil
}

// CreateDepartment creates a new department.
func (s *EmployeeService) CreateDepartment(ctx context.Context, actor *domain.EmployeeProfile, name, description string) (*domain.Department, error) {
	if err := requireMinRole(actor, domain.RoleAdministrator); err != nil {
		return nil, err
	}
	dept := &domain.Department{
		Name:        name,
		Description: description,
		IsActive:    true,
	}
	if err := s.departments.Create(ctx, dept); err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.NewConflict("department name already exists", map[string]any{"name": name})
		}
		return nil, apperrors.MapError(err)
	}
	return dept, nil
}

// ListDepartments returns departments; inactive ones only for administrators.
func (s *EmployeeService) ListDepartments(ctx context.Context, actor *domain.EmployeeProfile, includeInactive bool) ([]domain.Department, error) {
	if err := requireMinRole(actor, domain.RoleIntern); err != nil {
		return nil, err
	}
	if includeInactive && actor.Role < domain.RoleAdministrator {
		includeInactive = false
	}
	list, err := s.departments.List(ctx, includeInactive)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if list == nil {
		list = []domain.Department{}
	}
	return list, nil
}

// DepartmentUpdate lists editable department fields; nil leaves a field unchanged.
type DepartmentUpdate struct {
	Name        *string
	Description *string
	IsActive    *bool
}

// UpdateDepartment modifies department metadata.
func (s *EmployeeService) UpdateDepartment(ctx context.Context, actor *domain.EmployeeProfile, id string, in DepartmentUpdate) (*domain.Department, error) {
	if err := requireMinRole(actor, domain.RoleAdministrator); err != nil {
		return nil, err
	}
	dept, err := s.departments.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("department", map[string]any{"department_id": id})
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if in.Name != nil {
		dept.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		dept.Description = *in.Description
	}
	if in.IsActive != nil {
		dept.IsActive = *in.IsActive
	}
	if err := s.departments.Update(ctx, dept); err != nil {
		return nil, apperrors.MapError(err)
	}
	return dept, nil
}
