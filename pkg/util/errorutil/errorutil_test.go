package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

var errSentinel = errors.New("sentinel")

func TestWrapKeepsSentinel(t *testing.T) {
	err := Wrap(errSentinel, "SENTINEL", http.StatusTeapot, map[string]any{"k": "v"})
	assert.True(t, errors.Is(err, errSentinel))

	de := ToDomainError(fmt.Errorf("outer: %w", err))
	assert.Equal(t, "SENTINEL", de.Code)
	assert.Equal(t, http.StatusTeapot, de.HTTPStatus)
	assert.Equal(t, "v", de.Details["k"])
}

func TestToDomainErrorMapping(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))
	assert.Nil(t, MapError(nil))

	assert.Equal(t, http.StatusNotFound, ToDomainError(pgx.ErrNoRows).HTTPStatus)

	de := ToDomainError(fmt.Errorf("query: %w", context.DeadlineExceeded))
	assert.Equal(t, "INFRASTRUCTURE_TIMEOUT", de.Code)
	assert.Equal(t, http.StatusGatewayTimeout, de.HTTPStatus)

	de = ToDomainError(errors.New("boom"))
	assert.Equal(t, "INTERNAL_ERROR", de.Code)
	assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)

	de = ToDomainError(fiber.NewError(http.StatusForbidden, "insufficient role"))
	assert.Equal(t, "FORBIDDEN", de.Code)
	assert.Equal(t, "insufficient role", de.Message)
}

func TestConstructors(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{NewValidationError("bad", nil), "VALIDATION_FAILED", http.StatusBadRequest},
		{NewNotFound("employee", nil), "NOT_FOUND", http.StatusNotFound},
		{NewUnauthorized("no"), "UNAUTHORIZED", http.StatusUnauthorized},
		{NewForbidden("no"), "FORBIDDEN", http.StatusForbidden},
		{NewConflict("dup", nil), "CONFLICT", http.StatusConflict},
		{NewInternalError(errors.New("x")), "INTERNAL_ERROR", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		de := ToDomainError(tc.err)
		assert.Equal(t, tc.code, de.Code)
		assert.Equal(t, tc.status, de.HTTPStatus)
	}
	assert.Equal(t, "employee not found", NewNotFound("employee", nil).Error())
}
