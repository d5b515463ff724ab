package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/employee-service/internal/api/dto"
	"github.com/spec-kit/employee-service/internal/domain"
	"github.com/spec-kit/employee-service/pkg/validator"
	apperrors "github.com/spec-kit/employee-service/pkg/util/errorutil"
)

// RoleTransitioner applies role changes.
type RoleTransitioner interface {
	ApplyTransition(ctx context.Context, actingExternalID, targetID string, action domain.TransitionAction, explicitNewRole *domain.Role) (*domain.TransitionResult, error)
}

// TransitionsHandler exposes promote, demote and super administrator transfer.
type TransitionsHandler struct {
	transitions RoleTransitioner
	validator   *validator.CustomValidator
}

// NewTransitionsHandler constructs handler.
func NewTransitionsHandler(transitions RoleTransitioner, v *validator.CustomValidator) *TransitionsHandler {
	return &TransitionsHandler{transitions: transitions, validator: v}
}

// Promote handles POST /api/employees/:id/promote.
func (h *TransitionsHandler) Promote(c *fiber.Ctx) error {
	return h.apply(c, domain.ActionPromote, true)
}

// Demote handles POST /api/employees/:id/demote.
func (h *TransitionsHandler) Demote(c *fiber.Ctx) error {
	return h.apply(c, domain.ActionDemote, true)
}

// TransferSuperAdmin handles POST /api/employees/:id/transfer-super-admin.
func (h *TransitionsHandler) TransferSuperAdmin(c *fiber.Ctx) error {
	return h.apply(c, domain.ActionTransferSuperAdmin, false)
}

func (h *TransitionsHandler) apply(c *fiber.Ctx, action domain.TransitionAction, acceptsRole bool) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	var explicit *domain.Role
	if acceptsRole {
		var req dto.TransitionRequest
		if err := parseBody(c, h.validator, &req); err != nil {
			return err
		}
		if raw := strings.TrimSpace(req.Role); raw != "" {
			role, err := domain.ParseRole(raw)
			if err != nil {
				return apperrors.Wrap(domain.ErrUnknownRole, "UNKNOWN_ROLE", fiber.StatusBadRequest, map[string]any{"role": raw})
			}
			explicit = &role
		}
	}

	result, err := h.transitions.ApplyTransition(c.UserContext(), p.ExternalID, c.Params("id"), action, explicit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTransitionResponse(result)})
}
