package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"license-admin/internal/middleware"
	"license-admin/internal/model"
	"license-admin/internal/token"
)

// Register mounts the full route map onto the app.
func Register(app *fiber.App, tokens *token.Service, auth *AuthHandler, users *UserHandler, keys *KeyHandler) {
	api := app.Group("/api")
	requireAuth := middleware.Authenticate(tokens)
	adminOnly := middleware.RequireRoles(model.RoleAdmin)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "timestamp": time.Now().UTC()})
	})

	authGroup := api.Group("/auth")
	authGroup.Post("/login", auth.Login)
	authGroup.Post("/refresh", auth.Refresh)
	authGroup.Post("/logout", auth.Logout)
	authGroup.Get("/profile", requireAuth, auth.Profile)

	userGroup := api.Group("/users", requireAuth, adminOnly)
	userGroup.Get("/", users.List)
	userGroup.Post("/", users.Create)
	userGroup.Put("/:id/status", users.SetStatus)
	userGroup.Get("/:id/keys", users.Keys)

	keyGroup := api.Group("/keys", requireAuth, adminOnly)
	keyGroup.Get("/activity/latest", keys.LatestActivity)
	keyGroup.Get("/stats", keys.Stats)
	keyGroup.Get("/", keys.List)
	keyGroup.Post("/", keys.Create)
	keyGroup.Post("/export", keys.Export)
	keyGroup.Put("/:id/block", keys.Block)
	keyGroup.Put("/:id/hwid", keys.SetHwid)
	keyGroup.Put("/:id/extend", keys.Extend)
	keyGroup.Get("/:id/history", keys.History)

	// client API, no JWT: the license key itself is the credential
	api.Post("/activate_key", keys.Activate)
	api.Post("/check_key", keys.Check)
	api.Get("/get_remaining_days", keys.RemainingDays)
}
