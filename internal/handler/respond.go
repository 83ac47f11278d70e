// Package handler wires the HTTP surface. Handlers are methods on structs
// that receive their services at construction, no package-level state.
package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"license-admin/internal/errs"
)

var validate = validator.New()

// httpError maps a domain sentinel to its status and user-facing message.
// Anything unmatched is an internal failure: logged in full, surfaced as a
// generic 500.
func httpError(c *fiber.Ctx, log *zap.Logger, err error) error {
	type mapping struct {
		sentinel error
		status   int
		message  string
	}
	mappings := []mapping{
		{errs.ErrInvalidCredentials, fiber.StatusUnauthorized, "invalid username or password"},
		{errs.ErrAccountDisabled, fiber.StatusForbidden, "account disabled"},
		{errs.ErrInvalidToken, fiber.StatusUnauthorized, "invalid token"},
		{errs.ErrTokenRevoked, fiber.StatusUnauthorized, "token revoked or expired"},
		{errs.ErrKeyNotFound, fiber.StatusNotFound, "license key not found"},
		{errs.ErrKeyBlocked, fiber.StatusForbidden, "license key is blocked"},
		{errs.ErrKeyExpired, fiber.StatusForbidden, "license key has expired"},
		{errs.ErrHwidMismatch, fiber.StatusForbidden, "hwid does not match"},
		{errs.ErrInvalidDays, fiber.StatusBadRequest, "days must be a positive number"},
		{errs.ErrDuplicateKey, fiber.StatusConflict, "license key already exists"},
		{errs.ErrDuplicateUsername, fiber.StatusConflict, "username already taken"},
		{errs.ErrNotFound, fiber.StatusNotFound, "not found"},
	}

	for _, m := range mappings {
		if errors.Is(err, m.sentinel) {
			return c.Status(m.status).JSON(fiber.Map{"message": m.message})
		}
	}

	log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "internal server error",
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": message})
}

// parseBody decodes and validates a JSON request body.
func parseBody(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return err
	}
	return validate.Struct(dst)
}
