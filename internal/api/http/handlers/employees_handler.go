package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/employee-service/internal/api/dto"
	"github.com/spec-kit/employee-service/internal/domain"
	"github.com/spec-kit/employee-service/internal/service"
	"github.com/spec-kit/employee-service/pkg/validator"
	apperrors "github.com/spec-kit/employee-service/pkg/util/errorutil"
)

// EmployeesHandler exposes setup, profile and department endpoints.
type EmployeesHandler struct {
	setup     *service.SetupService
	employees *service.EmployeeService
	validator *validator.CustomValidator
}

// NewEmployeesHandler constructs handler.
func NewEmployeesHandler(setup *service.SetupService, employees *service.EmployeeService, v *validator.CustomValidator) *EmployeesHandler {
	return &EmployeesHandler{setup: setup, employees: employees, validator: v}
}

// Setup handles POST /api/setup.
func (h *EmployeesHandler) Setup(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.SetupRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	result, err := h.setup.CompleteSetup(c.UserContext(), service.SetupInput{
		ExternalID:   p.ExternalID,
		Email:        p.Email,
		Name:         req.Name,
		Position:     req.Position,
		DepartmentID: req.DepartmentID,
	})
	if err != nil {
		return err
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	warnings := result.Warnings
	if warnings == nil {
		warnings = []domain.TransitionWarning{}
	}
	return c.Status(status).JSON(fiber.Map{
		"data": dto.SetupResponse{
			Employee:    dto.NewEmployeeResponse(result.Employee),
			IsFirstUser: result.IsFirstUser,
			Created:     result.Created,
			Warnings:    warnings,
		},
	})
}

// Me handles GET /api/employees/me.
func (h *EmployeesHandler) Me(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if p.Profile == nil {
		return apperrors.NewNotFound("employee profile", map[string]any{"external_id": p.ExternalID})
	}
	return c.JSON(fiber.Map{"data": dto.NewEmployeeResponse(p.Profile)})
}

// List handles GET /api/employees.
func (h *EmployeesHandler) List(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	filters := service.EmployeeListFilters{}
	if raw := strings.TrimSpace(c.Query("role")); raw != "" {
		role, err := domain.ParseRole(raw)
		if err != nil {
			return apperrors.NewValidationError("invalid role filter", map[string]any{"role": raw})
		}
		filters.Role = &role
	}
	if dept := strings.TrimSpace(c.Query("department_id")); dept != "" {
		filters.DepartmentID = &dept
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filters.Offset = (page - 1) * pageSize
	filters.Limit = pageSize

	list, err := h.employees.ListEmployees(c.UserContext(), p.Profile, filters)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewEmployeeListResponse(list)})
}

// Get handles GET /api/employees/:id.
func (h *EmployeesHandler) Get(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	emp, err := h.employees.GetEmployee(c.UserContext(), p.Profile, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewEmployeeResponse(emp)})
}

// Update handles PUT /api/employees/:id.
func (h *EmployeesHandler) Update(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateEmployeeRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}
	emp, err := h.employees.UpdateEmployee(c.UserContext(), p.Profile, c.Params("id"), service.EmployeeUpdate{
		Name:         req.Name,
		Email:        req.Email,
		Position:     req.Position,
		DepartmentID: req.DepartmentID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewEmployeeResponse(emp)})
}

// ListDepartments handles GET /api/departments.
func (h *EmployeesHandler) ListDepartments(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	list, err := h.employees.ListDepartments(c.UserContext(), p.Profile, c.QueryBool("include_inactive", false))
	if err != nil {
		return err
	}
	out := make([]dto.DepartmentResponse, 0, len(list))
	for i := range list {
		out = append(out, dto.NewDepartmentResponse(&list[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// CreateDepartment handles POST /api/departments.
func (h *EmployeesHandler) CreateDepartment(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.CreateDepartmentRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}
	dept, err := h.employees.CreateDepartment(c.UserContext(), p.Profile, strings.TrimSpace(req.Name), req.Description)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewDepartmentResponse(dept)})
}

// UpdateDepartment handles PUT /api/departments/:id.
func (h *EmployeesHandler) UpdateDepartment(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateDepartmentRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}
	dept, err := h.employees.UpdateDepartment(c.UserContext(), p.Profile, c.Params("id"), service.DepartmentUpdate{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDepartmentResponse(dept)})
}
