package router

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"evidence-stamp/internal/config"
	"evidence-stamp/internal/delivery/http/handler"
	"evidence-stamp/internal/domain/entity"
)

type Router struct {
	app           *fiber.App
	config        *config.Config
	healthHandler *handler.HealthHandler
	configHandler *handler.ConfigHandler
	labelHandler  *handler.LabelHandler
	batchHandler  *handler.BatchHandler
}

func NewRouter(
	cfg *config.Config,
	healthHandler *handler.HealthHandler,
	configHandler *handler.ConfigHandler,
	labelHandler *handler.LabelHandler,
	batchHandler *handler.BatchHandler,
) *Router {
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: customErrorHandler,
	})

	return &Router{
		app:           app,
		config:        cfg,
		healthHandler: healthHandler,
		configHandler: configHandler,
		labelHandler:  labelHandler,
		batchHandler:  batchHandler,
	}
}

// Setup registers middleware and routes. Handlers see base as their user
// context, so cancelling it stops a running batch between jobs.
func (r *Router) Setup(base context.Context) *fiber.App {
	// Middleware
	r.app.Use(recover.New())
	r.app.Use(func(c *fiber.Ctx) error {
		c.SetUserContext(base)
		return c.Next()
	})
	r.app.Use(requestid.New())
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	if r.config.IsDevelopment() {
		r.app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		}))
	}

	// Health check route
	r.app.Get("/health", r.healthHandler.Health)

	// API v1 routes
	api := r.app.Group("/api/v1")
	{
		cfg := api.Group("/config")
		{
			cfg.Get("", r.configHandler.GetConfig)
			cfg.Put("", r.configHandler.UpdateConfig)
			cfg.Post("/reset", r.configHandler.ResetConfig)
		}

		labels := api.Group("/labels")
		{
			labels.Post("/preview", r.labelHandler.Preview)
			labels.Post("/image", r.labelHandler.Image)
		}
		api.Post("/numbering", r.labelHandler.Number)

		batches := api.Group("/batches")
		{
			batches.Get("", r.batchHandler.List)
			batches.Post("", r.batchHandler.Run)
			batches.Post("/validate", r.batchHandler.Validate)
		}
	}

	return r.app
}

func (r *Router) GetApp() *fiber.App {
	return r.app
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	errCode := entity.ErrCodeInternal
	if code < fiber.StatusInternalServerError {
		errCode = entity.ErrCodeInvalidRequest
	}

	return c.Status(code).JSON(entity.NewErrorResponse(errCode, err.Error()))
}
