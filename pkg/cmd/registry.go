// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/eca/pkg/registry"
)

// NewRegistry returns a registry holding the built-in plugins plus any shared-object
// plugins found under pluginsPath. Plugins loaded from disk replace built-ins with the same id.
func NewRegistry(ctx context.Context, log *slog.Logger, pluginsPath string) (*registry.Registry, error) {
	reg := registry.NewRegistry(log)
	reg.RegisterDefaults()

	if pluginsPath == "" {
		return reg, nil
	}

	err := reg.LoadPlugins(ctx, pluginsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load plugins from %s: %w", pluginsPath, err)
	}

	return reg, nil
}
