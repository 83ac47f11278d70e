package handler

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"license-admin/internal/middleware"
	"license-admin/internal/service"
)

const latestActivityLimit = 15

// KeyHandler serves both the admin key CRUD and the public client API.
type KeyHandler struct {
	engine *service.ActivationEngine
	export *service.SheetExportService
	log    *zap.Logger
}

func NewKeyHandler(engine *service.ActivationEngine, export *service.SheetExportService, log *zap.Logger) *KeyHandler {
	return &KeyHandler{engine: engine, export: export, log: log}
}

// List filters keys by status and a substring search over key value and hwid.
func (h *KeyHandler) List(c *fiber.Ctx) error {
	keys, err := h.engine.ListKeys(c.Query("status"), c.Query("search"))
	if err != nil {
		return httpError(c, h.log, err)
	}
	return c.JSON(keys)
}

func (h *KeyHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.engine.Stats()
	if err != nil {
		return httpError(c, h.log, err)
	}
	return c.JSON(stats)
}

func (h *KeyHandler) LatestActivity(c *fiber.Ctx) error {
	entries, err := h.engine.LatestActivity(latestActivityLimit)
	if err != nil {
		return httpError(c, h.log, err)
	}
	return c.JSON(entries)
}

type createKeyInput struct {
	KeyValue  string     `json:"key_value"`
	Status    string     `json:"status" validate:"omitempty,oneof=new active blocked"`
	Hwid      *string    `json:"hwid"`
	ExpiresAt *time.Time `json:"expires_at"`
	ValidDays int        `json:"valid_days" validate:"omitempty,min=1"`
	Comment   string     `json:"comment"`
}

func (h *KeyHandler) Create(c *fiber.Ctx) error {
	input := new(createKeyInput)
	if err := parseBody(c, input); err != nil {
		return badRequest(c, "invalid key fields")
	}

	user, _ := middleware.UserFromCtx(c)
	key, err := h.engine.CreateKey(service.CreateKeyInput{
		KeyValue:  input.KeyValue,
		Status:    input.Status,
		Hwid:      input.Hwid,
		ExpiresAt: input.ExpiresAt,
		ValidDays: input.ValidDays,
		Comment:   input.Comment,
		CreatedBy: user.ID,
	})
	if err != nil {
		return httpError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":         key.ID,
		"key_value":  key.KeyValue,
		"status":     key.Status,
		"expires_at": key.ExpiresAt,
	})
}

type blockInput struct {
	IsBlocked *bool `json:"is_blocked" validate:"required"`
}

func (h *KeyHandler) Block(c *fiber.Ctx) error {
	id, err := keyID(c)
	if err != nil {
		return badRequest(c, "invalid key id")
	}

	input := new(blockInput)
	if err := parseBody(c, input); err != nil {
		return badRequest(c, "pass is_blocked = true/false")
	}

	if err := h.engine.SetBlocked(id, *input.IsBlocked); err != nil {
		return httpError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"id": id, "is_blocked": *input.IsBlocked})
}

type hwidInput struct {
	Hwid *string `json:"hwid"`
}

func (h *KeyHandler) SetHwid(c *fiber.Ctx) error {
	id, err := keyID(c)
	if err != nil {
		return badRequest(c, "invalid key id")
	}

	input := new(hwidInput)
	if err := c.BodyParser(input); err != nil {
		return badRequest(c, "invalid request body")
	}

	hwid := input.Hwid
	if hwid != nil && *hwid == "" {
		hwid = nil
	}
	if err := h.engine.SetHwid(id, hwid); err != nil {
		return httpError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"id": id, "hwid": hwid})
}

type extendInput struct {
	Days int `json:"days" validate:"required"`
}

func (h *KeyHandler) Extend(c *fiber.Ctx) error {
	id, err := keyID(c)
	if err != nil {
		return badRequest(c, "invalid key id")
	}

	input := new(extendInput)
	if err := parseBody(c, input); err != nil {
		return badRequest(c, "pass the number of days")
	}

	expiresAt, err := h.engine.Extend(id, input.Days)
	if err != nil {
		return httpError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"id": id, "expires_at": expiresAt})
}

func (h *KeyHandler) History(c *fiber.Ctx) error {
	id, err := keyID(c)
	if err != nil {
		return badRequest(c, "invalid key id")
	}

	entries, err := h.engine.History(id)
	if err != nil {
		return httpError(c, h.log, err)
	}
	return c.JSON(entries)
}

// Export pushes the whole key table to the configured Google Sheet.
func (h *KeyHandler) Export(c *fiber.Ctx) error {
	if h.export == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"message": "sheet export is not configured",
		})
	}

	count, err := h.export.ExportAll()
	if err != nil {
		return httpError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"exported": count})
}

type activateInput struct {
	Key     string `json:"key" validate:"required"`
	Hwid    string `json:"hwid" validate:"required"`
	Comment string `json:"comment"`
}

// Activate is the public client endpoint that binds a key to a hwid.
func (h *KeyHandler) Activate(c *fiber.Ctx) error {
	input := new(activateInput)
	if err := parseBody(c, input); err != nil {
		return badRequest(c, "key and hwid are required for activation")
	}

	result, err := h.engine.Activate(input.Key, input.Hwid, service.RequestMeta{
		Comment:   input.Comment,
		IP:        c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	})
	if err != nil {
		return httpError(c, h.log, err)
	}

	return c.JSON(fiber.Map{
		"message":    "activation successful",
		"expires_at": result.ExpiresAt,
		"hwid":       result.Hwid,
	})
}

type checkInput struct {
	Key  string `json:"key" validate:"required"`
	Hwid string `json:"hwid"`
}

func (h *KeyHandler) Check(c *fiber.Ctx) error {
	input := new(checkInput)
	if err := parseBody(c, input); err != nil {
		return badRequest(c, "key is required")
	}

	check, err := h.engine.Check(input.Key, input.Hwid)
	if err != nil {
		return httpError(c, h.log, err)
	}
	return c.JSON(check)
}

func (h *KeyHandler) RemainingDays(c *fiber.Ctx) error {
	key := c.Query("key")
	if key == "" {
		return badRequest(c, "pass the key parameter")
	}

	days, err := h.engine.RemainingDays(key)
	if err != nil {
		return httpError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"remaining_days": days})
}

func keyID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	return uint(id), err
}
