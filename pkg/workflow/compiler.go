package workflow

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/dukex/eca/pkg/models"
	"github.com/dukex/eca/pkg/protocol"
	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
)

// PluginResolver is the part of the plugin registry the compiler depends on.
type PluginResolver interface {
	Resolve(kind models.PluginKind, id string) (protocol.Plugin, error)
	WildcardGeneratorFor(kind models.PluginKind, id string) (func(config map[string]string) string, bool)
}

// Compiler turns raw models into validated ProcessModels.
type Compiler struct {
	logger   *slog.Logger
	resolver PluginResolver
	validate *validator.Validate
}

func NewCompiler(logger *slog.Logger, resolver PluginResolver) *Compiler {
	return &Compiler{
		logger:   logger.With("module", "compiler"),
		resolver: resolver,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

type compilation struct {
	raw    models.RawModel
	model  *ProcessModel
	errors CompileErrors

	// arena index of each raw node, -1 for rejected duplicates
	owners []int
}

func (c *compilation) fail(code CompileErrorCode, nodeID string, format string, args ...any) {
	c.errors = append(c.errors, &CompileError{
		Code:    code,
		ModelID: c.raw.ID,
		NodeID:  nodeID,
		Message: fmt.Sprintf(format, args...),
	})
}

// Compile validates raw and builds its ProcessModel. On failure the returned error is a
// CompileErrors value listing every problem found.
func (c *Compiler) Compile(raw models.RawModel) (*ProcessModel, error) {
	comp := &compilation{raw: raw}

	// Structural problems make every later check meaningless.
	if err := c.validate.Struct(raw); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			comp.fail(CodeInvalidModel, "", "%v", err)

			return nil, comp.errors
		}

		for _, fe := range validationErrors {
			comp.fail(CodeInvalidModel, "", "field %s failed on the '%s' rule", fe.Namespace(), fe.Tag())
		}

		return nil, comp.errors
	}

	comp.model = &ProcessModel{
		ID:      raw.ID,
		Label:   raw.Label,
		Version: raw.Version,
		Enabled: raw.Enabled,
		Weight:  raw.Weight,
		Nodes:   make([]Node, 0, len(raw.Nodes)),
		index:   make(map[string]int, len(raw.Nodes)),
		raw:     raw,
	}

	c.buildNodes(comp)
	c.linkSuccessors(comp)
	c.collectEntryPoints(comp)

	if len(comp.errors) == 0 {
		c.detectUnconditionalCycles(comp)
	}

	if len(comp.errors) > 0 {
		c.logger.Debug("Model rejected", "model_id", raw.ID, "errors", len(comp.errors))

		return nil, comp.errors
	}

	c.computeWildcards(comp)

	return comp.model, nil
}

func (c *Compiler) buildNodes(comp *compilation) {
	for _, rawNode := range comp.raw.Nodes {
		if _, exists := comp.model.index[rawNode.ID]; exists {
			comp.fail(CodeDuplicateNode, rawNode.ID, "node id is used more than once")
			comp.owners = append(comp.owners, -1)

			continue
		}

		node := Node{
			ID:     rawNode.ID,
			Label:  rawNode.Label,
			Plugin: rawNode.Ref(),
		}

		plugin, err := c.resolver.Resolve(rawNode.Kind, rawNode.Plugin)
		if err != nil {
			comp.fail(CodeDanglingPluginReference, rawNode.ID, "%v", err)
		} else if c.bind(comp, &node, plugin) {
			c.validateConfig(comp, &node, plugin)
		}

		comp.owners = append(comp.owners, len(comp.model.Nodes))
		comp.model.index[node.ID] = len(comp.model.Nodes)
		comp.model.Nodes = append(comp.model.Nodes, node)
	}
}

// bind stores the capability on the node so that dispatch never looks plugins up by name.
func (c *Compiler) bind(comp *compilation, node *Node, plugin protocol.Plugin) bool {
	var ok bool

	switch node.Kind() {
	case models.PluginKindEvent:
		node.event, ok = plugin.(protocol.Event)
	case models.PluginKindCondition:
		node.condition, ok = plugin.(protocol.Condition)
	case models.PluginKindAction:
		node.action, ok = plugin.(protocol.Action)
	case models.PluginKindGateway:
		_, ok = plugin.(protocol.Gateway)
	}

	if !ok {
		comp.fail(CodeDanglingPluginReference, node.ID,
			"plugin '%s' does not implement the %s capability", plugin.ID(), node.Kind())
	}

	return ok
}

func (c *Compiler) validateConfig(comp *compilation, node *Node, plugin protocol.Plugin) {
	schema := plugin.Schema()
	if schema == nil {
		return
	}

	config := make(map[string]any, len(node.Plugin.Config))
	for k, v := range node.Plugin.Config {
		config[k] = v
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(config))
	if err != nil {
		comp.fail(CodeInvalidConfig, node.ID, "schema of plugin '%s' is unusable: %v", plugin.ID(), err)

		return
	}

	if !result.Valid() {
		var descriptions []string
		for _, desc := range result.Errors() {
			descriptions = append(descriptions, desc.String())
		}

		comp.fail(CodeInvalidConfig, node.ID, "%s", strings.Join(descriptions, "; "))
	}
}

func (c *Compiler) linkSuccessors(comp *compilation) {
	for i, rawNode := range comp.raw.Nodes {
		owner := comp.owners[i]
		if owner < 0 {
			continue
		}

		node := &comp.model.Nodes[owner]
		for _, rawSuccessor := range rawNode.Successors {
			successor := Successor{Guard: NoGuard, Negate: rawSuccessor.Negate}

			target, found := comp.model.index[rawSuccessor.Target]
			switch {
			case !found:
				comp.fail(CodeDanglingReference, rawNode.ID, "successor target '%s' does not exist", rawSuccessor.Target)
			case comp.model.Nodes[target].Kind() == models.PluginKindEvent:
				comp.fail(CodeEventTarget, rawNode.ID, "successor target '%s' is an event node", rawSuccessor.Target)
			}

			successor.Target = target

			if rawSuccessor.Condition != "" {
				guard, found := comp.model.index[rawSuccessor.Condition]
				switch {
				case !found:
					comp.fail(CodeDanglingGuard, rawNode.ID, "guard condition '%s' does not exist", rawSuccessor.Condition)
				case comp.model.Nodes[guard].Kind() != models.PluginKindCondition:
					comp.fail(CodeGuardNotCondition, rawNode.ID, "guard '%s' is a %s node",
						rawSuccessor.Condition, comp.model.Nodes[guard].Kind())
				}

				successor.Guard = guard
			}

			node.Successors = append(node.Successors, successor)
		}
	}
}

func (c *Compiler) collectEntryPoints(comp *compilation) {
	if len(comp.raw.EntryPoints) == 0 {
		for i := range comp.model.Nodes {
			if comp.model.Nodes[i].Kind() == models.PluginKindEvent {
				comp.model.EntryPoints = append(comp.model.EntryPoints, i)
			}
		}
	} else {
		listed := map[string]bool{}

		for _, id := range comp.raw.EntryPoints {
			if listed[id] {
				comp.fail(CodeDuplicateEntryPoint, id, "entry point listed more than once")

				continue
			}

			listed[id] = true

			i, found := comp.model.index[id]
			if !found {
				comp.fail(CodeDanglingReference, id, "entry point does not exist")

				continue
			}

			if comp.model.Nodes[i].Kind() != models.PluginKindEvent {
				comp.fail(CodeWrongEntryKind, id, "entry point is a %s node", comp.model.Nodes[i].Kind())

				continue
			}

			comp.model.EntryPoints = append(comp.model.EntryPoints, i)
		}
	}

	if len(comp.model.EntryPoints) == 0 && len(comp.raw.EntryPoints) == 0 {
		comp.fail(CodeNoEntryPoints, "", "model has no event node")
	}
}

// unconditional reports whether traversing s from node never depends on a condition.
// Edges leaving a Condition node only run when that condition held.
func unconditional(node *Node, s Successor) bool {
	return !s.Guarded() && node.Kind() != models.PluginKindCondition
}

func (c *Compiler) detectUnconditionalCycles(comp *compilation) {
	const (
		white = iota
		gray
		black
	)

	nodes := comp.model.Nodes
	colors := make([]int, len(nodes))

	var visit func(i int, path []int) bool
	visit = func(i int, path []int) bool {
		colors[i] = gray
		path = append(path, i)

		for _, s := range nodes[i].Successors {
			if !unconditional(&nodes[i], s) {
				continue
			}

			switch colors[s.Target] {
			case gray:
				ids := []string{}
				started := false
				for _, p := range path {
					if p == s.Target {
						started = true
					}
					if started {
						ids = append(ids, nodes[p].ID)
					}
				}
				ids = append(ids, nodes[s.Target].ID)

				comp.fail(CodeUnconditionalCycle, nodes[s.Target].ID,
					"cycle without any guard: %s", strings.Join(ids, " -> "))

				return true
			case white:
				if visit(s.Target, path) {
					return true
				}
			}
		}

		colors[i] = black

		return false
	}

	for i := range nodes {
		if colors[i] == white {
			visit(i, nil)
		}
	}
}

func (c *Compiler) computeWildcards(comp *compilation) {
	for _, i := range comp.model.EntryPoints {
		node := &comp.model.Nodes[i]
		config := maps.Clone(node.Plugin.Config)

		wildcard := protocol.AnyWildcard
		if generate, ok := c.resolver.WildcardGeneratorFor(node.Kind(), node.Plugin.PluginID); ok {
			if w := generate(config); w != "" {
				wildcard = w
			}
		}

		comp.model.Wildcards = append(comp.model.Wildcards, models.WildcardIndexEntry{
			EventName:   node.event.EventName(config),
			ModelID:     comp.model.ID,
			EventNodeID: node.ID,
			Wildcard:    wildcard,
		})
	}
}
