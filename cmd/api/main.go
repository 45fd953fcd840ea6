package main

import (
	"github.com/corex/corex-api/internal/cache"
	"github.com/corex/corex-api/internal/config"
	"github.com/corex/corex-api/internal/database"
	"github.com/corex/corex-api/internal/handlers"
	"github.com/corex/corex-api/internal/logger"
	"github.com/corex/corex-api/internal/mailer"
	"github.com/corex/corex-api/internal/metrics"
	"github.com/corex/corex-api/internal/routes"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	godotenv.Load()
	cfg := config.Load()

	log := logger.New()
	defer log.Sync()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("database migration failed", zap.Error(err))
	}

	metrics.Register()

	mail := mailer.New(mailer.Config{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
		From: cfg.SMTPFrom,
	}, log)

	cacheClient := cache.New(cfg.RedisAddr, log)
	defer cacheClient.Close()

	app := fiber.New()
	app.Use(recover.New())
	app.Use(cors.New())

	h := handlers.New(db, log, mail, cacheClient)
	routes.Setup(app, h)

	log.Info("server starting", zap.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
