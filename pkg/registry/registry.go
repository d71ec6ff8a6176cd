// Package registry resolves plugin identifiers to ECA capabilities.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"plugin"
	"slices"
	"strings"
	"sync"

	"github.com/dukex/eca/pkg/models"
	"github.com/dukex/eca/pkg/protocol"
)

// ErrPluginNotFound indicates no plugin is registered for a kind and identifier.
var ErrPluginNotFound = errors.New("plugin not found")

// PluginInfo describes a registered plugin.
type PluginInfo struct {
	Kind        models.PluginKind `json:"kind"`
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Schema      map[string]any    `json:"schema,omitempty"`
}

// Registry is populated once at startup and read during compilation. It performs no I/O
// per dispatch.
type Registry struct {
	logger  *slog.Logger
	mu      sync.RWMutex
	plugins map[models.PluginKind]map[string]protocol.Plugin
}

func NewRegistry(log *slog.Logger) *Registry {
	r := &Registry{
		logger:  log.With("module", "registry"),
		plugins: make(map[models.PluginKind]map[string]protocol.Plugin),
	}
	for _, kind := range models.PluginKinds {
		r.plugins[kind] = make(map[string]protocol.Plugin)
	}

	r.RegisterGateway(ParallelGateway{})

	return r
}

func (r *Registry) RegisterEvent(event protocol.Event) {
	r.register(models.PluginKindEvent, event)
}

func (r *Registry) RegisterCondition(condition protocol.Condition) {
	r.register(models.PluginKindCondition, condition)
}

func (r *Registry) RegisterAction(action protocol.Action) {
	r.register(models.PluginKindAction, action)
}

func (r *Registry) RegisterGateway(gateway protocol.Gateway) {
	r.register(models.PluginKindGateway, gateway)
}

func (r *Registry) register(kind models.PluginKind, p protocol.Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[kind][p.ID()]; exists {
		r.logger.Warn("Replacing registered plugin", "kind", kind, "plugin", p.ID())
	}

	r.plugins[kind][p.ID()] = p
}

// Resolve returns the capability registered for kind and id.
func (r *Registry) Resolve(kind models.PluginKind, id string) (protocol.Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.plugins[kind][id]
	if !ok {
		return nil, fmt.Errorf("%s plugin '%s': %w", kind, id, ErrPluginNotFound)
	}

	return p, nil
}

// WildcardGeneratorFor returns the wildcard generator of an event plugin, if it has one.
func (r *Registry) WildcardGeneratorFor(kind models.PluginKind, id string) (func(config map[string]string) string, bool) {
	p, err := r.Resolve(kind, id)
	if err != nil {
		return nil, false
	}

	generator, ok := p.(protocol.WildcardGenerator)
	if !ok {
		return nil, false
	}

	return generator.Wildcard, true
}

// Plugins lists the registered plugins of kind, sorted by id.
func (r *Registry) Plugins(kind models.PluginKind) []PluginInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]PluginInfo, 0, len(r.plugins[kind]))
	for _, p := range r.plugins[kind] {
		infos = append(infos, PluginInfo{
			Kind:        kind,
			ID:          p.ID(),
			Name:        p.Name(),
			Description: p.Description(),
			Schema:      p.Schema(),
		})
	}

	slices.SortFunc(infos, func(a, b PluginInfo) int {
		return strings.Compare(a.ID, b.ID)
	})

	return infos
}

// LoadPlugins opens every shared object below pluginsPath/{actions,conditions,events} and
// registers the Action, Condition and Event symbols it exports.
func (r *Registry) LoadPlugins(ctx context.Context, pluginsPath string) error {
	actions, err := loadPlugin[protocol.Action](ctx, r.logger, pluginsPath, "Action")
	if err != nil {
		return err
	}

	for _, a := range actions {
		r.RegisterAction(a)
	}

	conditions, err := loadPlugin[protocol.Condition](ctx, r.logger, pluginsPath, "Condition")
	if err != nil {
		return err
	}

	for _, c := range conditions {
		r.RegisterCondition(c)
	}

	events, err := loadPlugin[protocol.Event](ctx, r.logger, pluginsPath, "Event")
	if err != nil {
		return err
	}

	for _, e := range events {
		r.RegisterEvent(e)
	}

	return nil
}

func loadPlugin[T any](ctx context.Context, logger *slog.Logger, pluginsPath string, symbolName string) ([]T, error) {
	rootPath := pluginsPath + "/" + strings.ToLower(symbolName) + "s"

	if _, err := os.Stat(rootPath); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	root := os.DirFS(rootPath)

	pluginPathList, err := fs.Glob(root, "*/*.so")
	if err != nil {
		return nil, err
	}

	l := logger.With(slog.String("path", rootPath), slog.String("type", symbolName))
	l.InfoContext(ctx, "Loading plugins", "count", len(pluginPathList))

	pluginList := make([]T, 0, len(pluginPathList))
	for _, p := range pluginPathList {
		plg, err := plugin.Open(rootPath + "/" + p)
		if err != nil {
			return nil, fmt.Errorf("failed to open plugin %s: %w", p, err)
		}

		v, err := plg.Lookup(symbolName)
		if err != nil {
			return nil, fmt.Errorf("plugin %s does not export %s: %w", p, symbolName, err)
		}

		castV, ok := v.(T)
		if !ok {
			// Exported variables are looked up as pointers.
			ptr, isPtr := v.(*T)
			if !isPtr {
				return nil, fmt.Errorf("plugin %s: symbol %s has unexpected type %T", p, symbolName, v)
			}

			castV = *ptr
		}

		pluginList = append(pluginList, castV)

		l.InfoContext(ctx, "Loaded plugin", slog.String("plugin", p))
	}

	return pluginList, nil
}
