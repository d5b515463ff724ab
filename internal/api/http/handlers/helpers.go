package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/employee-service/internal/auth"
	"github.com/spec-kit/employee-service/pkg/validator"
	apperrors "github.com/spec-kit/employee-service/pkg/util/errorutil"
)

// parseBody decodes the JSON body into req and validates it. An empty body
// leaves req at its zero value.
func parseBody(c *fiber.Ctx, v *validator.CustomValidator, req interface{}) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(req); err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid payload")
		}
	}
	if v == nil {
		return nil
	}
	if err := v.Validate(req); err != nil {
		return apperrors.NewValidationError("invalid request", v.ToDetails(err))
	}
	return nil
}

func principal(c *fiber.Ctx) (*auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return p, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
