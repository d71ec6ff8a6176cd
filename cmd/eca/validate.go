package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/dukex/eca/pkg/cmd"
	"github.com/dukex/eca/pkg/log"
	"github.com/dukex/eca/pkg/models"
	"github.com/dukex/eca/pkg/persistence/file"
	"github.com/dukex/eca/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

// ValidateCommand compiles model files without registering them. Without arguments it
// compiles every model in the model store.
func ValidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Aliases:   []string{"v"},
		Usage:     "Compile models and report errors",
		ArgsUsage: "[model files...]",
		Flags: []cli.Flag{
			logLevelFlag(),
			modelsPathFlag(),
			pluginsPathFlag(),
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("eca-validate")

			reg, err := cmd.NewRegistry(ctx, logger, command.String("plugins-path"))
			if err != nil {
				return err
			}

			raws, err := readModels(ctx, logger, command)
			if err != nil {
				return err
			}

			failed := validateModels(command.Root().Writer, workflow.NewCompiler(logger, reg), raws)
			if failed > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d models failed to compile", failed, len(raws)), 1)
			}

			return nil
		},
	}
}

func readModels(ctx context.Context, logger *slog.Logger, command *cli.Command) ([]models.RawModel, error) {
	if command.NArg() == 0 {
		store, err := cmd.NewModelStore(ctx, logger, command.String("models-path"))
		if err != nil {
			return nil, err
		}

		defer func() {
			_ = store.Close(ctx)
		}()

		return store.RawModels(ctx)
	}

	raws := make([]models.RawModel, 0, command.NArg())

	for _, path := range command.Args().Slice() {
		raw, err := file.ReadModel(path)
		if err != nil {
			return nil, err
		}

		raws = append(raws, raw)
	}

	return raws, nil
}

// validateModels prints one line per model and one indented line per compile error, and
// returns how many models were rejected.
func validateModels(out io.Writer, compiler *workflow.Compiler, raws []models.RawModel) int {
	failed := 0

	for _, raw := range raws {
		model, err := compiler.Compile(raw)
		if err == nil {
			_, _ = fmt.Fprintf(out, "ok      %s (%d nodes, %d entry points)\n", model.ID, len(model.Nodes), len(model.EntryPoints))

			continue
		}

		failed++

		_, _ = fmt.Fprintf(out, "FAIL    %s\n", raw.ID)

		compileErrors, ok := workflow.AsCompileErrors(err)
		if !ok {
			_, _ = fmt.Fprintf(out, "        %v\n", err)

			continue
		}

		for _, ce := range compileErrors {
			_, _ = fmt.Fprintf(out, "        %s\n", ce.Error())
		}
	}

	return failed
}
