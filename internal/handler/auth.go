package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"license-admin/internal/middleware"
	"license-admin/internal/service"
)

type AuthHandler struct {
	auth *service.AuthService
	log  *zap.Logger
}

func NewAuthHandler(auth *service.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, log: log}
}

type loginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	input := new(loginInput)
	if err := parseBody(c, input); err != nil {
		return badRequest(c, "username and password are required")
	}

	result, err := h.auth.Login(input.Username, input.Password)
	if err != nil {
		return httpError(c, h.log, err)
	}

	return c.JSON(fiber.Map{
		"accessToken":  result.AccessToken,
		"refreshToken": result.RefreshToken,
		"user":         result.User,
	})
}

type refreshInput struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	input := new(refreshInput)
	if err := parseBody(c, input); err != nil {
		return badRequest(c, "refresh token is required")
	}

	pair, err := h.auth.Refresh(input.RefreshToken)
	if err != nil {
		return httpError(c, h.log, err)
	}

	return c.JSON(fiber.Map{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

// Logout always reports success so the response leaks nothing about whether
// the presented token was valid.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	input := new(refreshInput)
	if err := parseBody(c, input); err != nil {
		return badRequest(c, "refresh token is required")
	}

	h.auth.Logout(input.RefreshToken)
	return c.JSON(fiber.Map{"message": "logged out"})
}

func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	user, ok := middleware.UserFromCtx(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "authorization required"})
	}

	account, err := h.auth.Profile(user.ID)
	if err != nil {
		return httpError(c, h.log, err)
	}

	return c.JSON(fiber.Map{
		"id":         account.ID,
		"username":   account.Username,
		"role":       account.Role,
		"created_at": account.CreatedAt,
	})
}
