package main

import (
	"log/slog"
	"strconv"

	"github.com/dukex/eca/pkg/cmd"
	"github.com/dukex/eca/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger   *slog.Logger
	engine   *cmd.Engine
	store    web.HealthChecker
	validate *validator.Validate
	app      *fiber.App
}

func NewAPI(logger *slog.Logger, engine *cmd.Engine, store web.HealthChecker) *API {
	return &API{
		logger:   logger,
		engine:   engine,
		store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(
		a.logger,
		a.engine.Loader,
		a.engine.Repository,
		a.engine.Executor,
		a.engine.Queue,
		a.engine.Registry,
		a.validate,
		a.store,
	)

	app := fiber.New(fiber.Config{
		Immutable: true,
	})
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("ECA engine")
	})

	handlers.Register(app)

	return app
}

// Start blocks serving the API on port until Shutdown is called.
func (a *API) Start(port int) error {
	a.app = a.App()

	return a.app.Listen(":" + strconv.Itoa(port))
}

func (a *API) Shutdown() error {
	if a.app == nil {
		return nil
	}

	return a.app.Shutdown()
}
