package web

import (
	"github.com/dukex/eca/pkg/workflow"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// CompileExtensions carries the compiler findings of a rejected model.
type CompileExtensions struct {
	Errors workflow.CompileErrors `json:"errors"`
}

// CompileProblem is the body returned for a model rejected by the compiler.
type CompileProblem = problems.ExtendedProblem[CompileExtensions]

// handleEngineError maps engine errors to problem responses.
func handleEngineError(c fiber.Ctx, err error) error {
	if compileErrors, ok := workflow.AsCompileErrors(err); ok {
		problem := problems.Extend(
			problems.NewStatusProblem(422).
				WithInstance(c.Path()).
				WithType("compile_error").
				WithDetail("model failed to compile"),
			CompileExtensions{Errors: compileErrors},
		)

		return c.Status(fiber.StatusUnprocessableEntity).JSON(problem)
	}

	if workflow.IsModelNotFound(err) {
		return notFound(c, "model not found")
	}

	return internalError(c, err)
}
