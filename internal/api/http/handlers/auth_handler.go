package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/employee-service/internal/api/dto"
	"github.com/spec-kit/employee-service/internal/service"
	"github.com/spec-kit/employee-service/pkg/validator"
)

// AuthHandler exposes identity registration and login.
type AuthHandler struct {
	auth      *service.AuthService
	validator *validator.CustomValidator
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, v *validator.CustomValidator) *AuthHandler {
	return &AuthHandler{auth: authService, validator: v}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	ident, token, exp, err := h.auth.Register(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.AuthResponse{
			Token:       token,
			ExpiresAt:   exp,
			ExternalID:  ident.ExternalID,
			SetupNeeded: !ident.Metadata.RoleSetupComplete,
		},
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, h.validator, &req); err != nil {
		return err
	}

	ident, token, exp, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": dto.AuthResponse{
			Token:       token,
			ExpiresAt:   exp,
			ExternalID:  ident.ExternalID,
			SetupNeeded: !ident.Metadata.RoleSetupComplete,
		},
	})
}
