package main

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"

	"license-admin/internal/config"
	"license-admin/internal/database"
	"license-admin/internal/handler"
	"license-admin/internal/service"
	"license-admin/internal/store"
	"license-admin/internal/token"
)

func main() {
	log, _ := zap.NewProduction()
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}

	db, err := database.Open(cfg, log)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}

	users := store.NewUserStore(db)
	refresh := store.NewRefreshTokenStore(db)
	keys := store.NewKeyStore(db)

	tokens := token.NewService(
		cfg.JWTAccessSecret,
		cfg.JWTRefreshSecret,
		time.Duration(cfg.AccessTokenMinutes)*time.Minute,
		time.Duration(cfg.RefreshTokenDays)*24*time.Hour,
	)

	authService := service.NewAuthService(users, refresh, tokens, cfg.BcryptCost, log)
	engine := service.NewActivationEngine(keys, log)
	export, err := service.NewSheetExportService(cfg, keys, log)
	if err != nil {
		log.Fatal("init sheet export", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "internal server error",
			})
		},
	})
	app.Use(logger.New())
	app.Use(cors.New())

	handler.Register(app,
		tokens,
		handler.NewAuthHandler(authService, log),
		handler.NewUserHandler(authService, engine, log),
		handler.NewKeyHandler(engine, export, log),
	)

	log.Info("license server listening", zap.String("addr", cfg.Addr()))
	if err := app.Listen(cfg.Addr()); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
