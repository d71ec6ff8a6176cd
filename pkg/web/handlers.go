// Package web provides HTTP handlers and REST API endpoints for the engine.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/dukex/eca/pkg/models"
	"github.com/dukex/eca/pkg/queue"
	"github.com/dukex/eca/pkg/registry"
	"github.com/dukex/eca/pkg/triggers/webhook"
	"github.com/dukex/eca/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/utils/v2"
)

// HealthChecker is implemented by stores that can report their health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type APIHandlers struct {
	logger     *slog.Logger
	loader     *workflow.Loader
	repository *workflow.Repository
	dispatcher queue.Dispatcher
	tasks      *queue.Queue
	registry   *registry.Registry
	validator  *validator.Validate
	store      HealthChecker
}

func NewAPIHandlers(
	logger *slog.Logger,
	loader *workflow.Loader,
	repository *workflow.Repository,
	dispatcher queue.Dispatcher,
	tasks *queue.Queue,
	registry *registry.Registry,
	validator *validator.Validate,
	store HealthChecker,
) *APIHandlers {
	return &APIHandlers{
		logger:     logger.With("module", "api"),
		loader:     loader,
		repository: repository,
		dispatcher: dispatcher,
		tasks:      tasks,
		registry:   registry,
		validator:  validator,
		store:      store,
	}
}

// Register mounts every endpoint on router.
func (h *APIHandlers) Register(router fiber.Router) {
	m := router.Group("/models")
	m.Get("/", h.GetModels)
	m.Post("/", h.CreateModel)
	m.Get("/:id", h.GetModel)
	m.Delete("/:id", h.DeleteModel)

	router.Post("/events/:name", h.DispatchEvent)
	router.All("/webhooks/*", h.Webhook)
	router.Get("/plugins", h.GetPlugins)

	q := router.Group("/queue")
	q.Get("/", h.GetQueue)
	q.Post("/process", h.ProcessQueue)

	router.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) GetModels(c fiber.Ctx) error {
	registered := h.repository.Models()

	response := make([]ModelResponse, 0, len(registered))
	for _, model := range registered {
		response = append(response, TransformModelResponse(model))
	}

	return c.JSON(response)
}

func (h *APIHandlers) GetModel(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Model ID is required")
	}

	model, err := h.repository.Get(id)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(ModelDetailResponse{
		ModelResponse: TransformModelResponse(model),
		Definition:    model.Raw(),
	})
}

// CreateModel compiles, stores and registers a model, replacing any model with the same id.
func (h *APIHandlers) CreateModel(c fiber.Ctx) error {
	var raw models.RawModel
	if err := c.Bind().JSON(&raw); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(raw); err != nil {
		return badRequest(c, err.Error())
	}

	model, err := h.loader.Apply(c.Context(), raw)
	if err != nil {
		return handleEngineError(c, err)
	}

	h.logger.InfoContext(c.Context(), "Model registered", "model_id", model.ID, "nodes", len(model.Nodes))

	return c.Status(fiber.StatusCreated).JSON(TransformModelResponse(model))
}

func (h *APIHandlers) DeleteModel(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Model ID is required")
	}

	if err := h.loader.Remove(c.Context(), id); err != nil {
		return handleEngineError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// DispatchEvent dispatches the event named in the path. The optional JSON object body is
// the event instance.
func (h *APIHandlers) DispatchEvent(c fiber.Ctx) error {
	name := utils.CopyString(c.Params("name"))
	if name == "" {
		return badRequest(c, "Event name is required")
	}

	payload := map[string]any{}

	if body := c.Body(); len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			return badRequest(c, "Event payload must be a JSON object")
		}
	}

	report := h.dispatcher.Dispatch(c.Context(), name, payload)

	return c.JSON(report)
}

// Webhook dispatches webhook:<path> with the received request as instance.
func (h *APIHandlers) Webhook(c fiber.Ctx) error {
	path := utils.CopyString(c.Params("*"))
	if path == "" {
		return badRequest(c, "Webhook path is required")
	}

	query, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		return badRequest(c, "Invalid query string")
	}

	req := webhook.NewRequest(
		utils.CopyString(c.Method()),
		path,
		query,
		copyHeaders(c.GetReqHeaders()),
		c.Body(),
		utils.CopyString(c.IP()),
		time.Now(),
	)

	report := h.dispatcher.Dispatch(c.Context(), webhook.EventName(path), req)

	return c.JSON(report)
}

// copyHeaders detaches header names and values from the request buffer, which fasthttp
// reuses once the handler returns. Tasks may snapshot them long after that.
func copyHeaders(headers map[string][]string) map[string][]string {
	out := make(map[string][]string, len(headers))
	for name, values := range headers {
		copied := make([]string, len(values))
		for i, value := range values {
			copied[i] = utils.CopyString(value)
		}

		out[utils.CopyString(name)] = copied
	}

	return out
}

func (h *APIHandlers) GetPlugins(c fiber.Ctx) error {
	response := fiber.Map{}
	for _, kind := range models.PluginKinds {
		response[string(kind)] = h.registry.Plugins(kind)
	}

	return c.JSON(response)
}

func (h *APIHandlers) GetQueue(c fiber.Ctx) error {
	pending, err := h.tasks.Len(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(QueueResponse{Pending: pending})
}

// ProcessQueue takes one task off the queue. A task that is not yet due goes back with its
// remaining delay.
func (h *APIHandlers) ProcessQueue(c fiber.Ctx) error {
	outcome, err := h.tasks.ProcessNext(c.Context(), h.dispatcher)
	if err != nil {
		return internalError(c, err)
	}

	if outcome.Kind == queue.OutcomeNotYetDue {
		if err := h.tasks.Resubmit(c.Context(), outcome.Task, outcome.Delay); err != nil {
			return internalError(c, err)
		}
	}

	return c.JSON(outcome)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, healthy := h.repository.HealthCheck()

	storeCheck := "ok"

	if h.store != nil {
		if err := h.store.HealthCheck(c.Context()); err != nil {
			storeCheck = err.Error()
			healthy = false
		}
	}

	status := "unhealthy"
	message := "ECA engine is unhealthy"
	httpStatus := http.StatusInternalServerError

	if healthy {
		status = "healthy"
		message = "ECA engine is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"models": repositoryCheck,
			"store":  storeCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
