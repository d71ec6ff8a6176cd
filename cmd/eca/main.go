// Package main provides the eca command: the engine API, the deferred task worker and the
// model validator.
package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:                  "eca",
		Usage:                 "Run the event-condition-action process engine",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			RunCommand(),
			WorkerCommand(),
			ValidateCommand(),
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
