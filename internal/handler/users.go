package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"license-admin/internal/model"
	"license-admin/internal/service"
)

// UserHandler serves the admin user-management routes.
type UserHandler struct {
	auth   *service.AuthService
	engine *service.ActivationEngine
	log    *zap.Logger
}

func NewUserHandler(auth *service.AuthService, engine *service.ActivationEngine, log *zap.Logger) *UserHandler {
	return &UserHandler{auth: auth, engine: engine, log: log}
}

func (h *UserHandler) List(c *fiber.Ctx) error {
	users, err := h.auth.ListUsers()
	if err != nil {
		return httpError(c, h.log, err)
	}
	return c.JSON(users)
}

type createUserInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=admin user"`
	IsActive *bool  `json:"is_active"`
}

func (h *UserHandler) Create(c *fiber.Ctx) error {
	input := new(createUserInput)
	if err := parseBody(c, input); err != nil {
		return badRequest(c, "username, password and a valid role are required")
	}

	role := input.Role
	if role == "" {
		role = model.RoleUser
	}
	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	user, err := h.auth.CreateUser(input.Username, input.Password, role, isActive)
	if err != nil {
		return httpError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":        user.ID,
		"username":  user.Username,
		"role":      user.Role,
		"is_active": user.IsActive,
	})
}

type setStatusInput struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

func (h *UserHandler) SetStatus(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid user id")
	}

	input := new(setStatusInput)
	if err := parseBody(c, input); err != nil {
		return badRequest(c, "pass is_active = true/false")
	}

	if err := h.auth.SetUserActive(uint(id), *input.IsActive); err != nil {
		return httpError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"id": id, "is_active": *input.IsActive})
}

// Keys lists license keys created by the given user.
func (h *UserHandler) Keys(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid user id")
	}

	keys, err := h.engine.ListKeysCreatedBy(uint(id))
	if err != nil {
		return httpError(c, h.log, err)
	}
	return c.JSON(keys)
}
