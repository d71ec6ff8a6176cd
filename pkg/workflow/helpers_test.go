package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/dukex/eca/pkg/models"
	"github.com/dukex/eca/pkg/protocol"
	"github.com/dukex/eca/pkg/registry"
	"github.com/dukex/eca/pkg/token"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recorder collects the "name" config of every action executed, in order.
type recorder struct {
	calls []string
}

type testPlugin struct {
	id string
}

func (p testPlugin) ID() string             { return p.id }
func (p testPlugin) Name() string           { return p.id }
func (p testPlugin) Description() string    { return "test plugin " + p.id }
func (p testPlugin) Schema() map[string]any { return nil }

// testEvent reacts to "test:<name>" and reads key/value from map instances.
type testEvent struct {
	testPlugin
}

func (testEvent) EventName(config map[string]string) string {
	return "test:" + config["name"]
}

func (testEvent) ExtractContextFields(instance any) map[string]any {
	fields, _ := instance.(map[string]any)

	return fields
}

func (testEvent) Wildcard(config map[string]string) string {
	if config["key"] == "" && config["value"] == "" {
		return protocol.AnyWildcard
	}

	return protocol.JoinWildcard(config["key"], config["value"])
}

func (testEvent) WildcardOf(instance any) (string, bool) {
	fields, ok := instance.(map[string]any)
	if !ok {
		return "", false
	}

	key, _ := fields["key"].(string)
	value, _ := fields["value"].(string)

	return protocol.JoinWildcard(key, value), true
}

// testAction records its call and fails as configured by "fail".
type testAction struct {
	testPlugin
	rec *recorder
}

func (a testAction) Execute(ctx context.Context, env protocol.Env, config map[string]string, tokens *token.Context) error {
	a.rec.calls = append(a.rec.calls, config["name"])

	switch config["fail"] {
	case "fatal":
		return errors.New("boom")
	case "retry":
		return protocol.NewRetryableValidationError("not ready", "try again later")
	case "panic":
		panic("unexpected")
	}

	if name := config["set"]; name != "" {
		tokens.Set(name, config["name"])
	}

	if name := config["raise"]; name != "" {
		_, err := env.Dispatch(ctx, name, map[string]any{})

		return err
	}

	if name := config["enqueue"]; name != "" {
		return env.EnqueueTask(ctx, models.Task{Name: name, Data: tokens.Snapshot()})
	}

	return nil
}

// testCondition returns the "result" config, or whether the token named by "token" is set.
type testCondition struct {
	testPlugin
}

func (testCondition) Evaluate(_ context.Context, _ protocol.Env, config map[string]string, tokens *token.Context) (bool, error) {
	if config["result"] == "error" {
		return false, errors.New("cannot evaluate")
	}

	if name := config["token"]; name != "" {
		return tokens.Has(name), nil
	}

	return config["result"] == "true", nil
}

type schemaAction struct {
	testAction
}

func (schemaAction) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"message"},
		"properties": map[string]any{
			"message": map[string]any{"type": "string", "minLength": 1},
		},
	}
}

type fixture struct {
	rec        *recorder
	registry   *registry.Registry
	compiler   *Compiler
	repository *Repository
	executor   *Executor
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	logger := discardLogger()
	rec := &recorder{}

	reg := registry.NewRegistry(logger)
	reg.RegisterEvent(testEvent{testPlugin{"test"}})
	reg.RegisterAction(testAction{testPlugin{"record"}, rec})
	reg.RegisterAction(schemaAction{testAction{testPlugin{"strict"}, rec}})
	reg.RegisterCondition(testCondition{testPlugin{"flag"}})

	repository := NewRepository(logger)

	return &fixture{
		rec:        rec,
		registry:   reg,
		compiler:   NewCompiler(logger, reg),
		repository: repository,
		executor:   NewExecutor(logger, repository, opts...),
	}
}

func (f *fixture) register(t *testing.T, raw models.RawModel) *ProcessModel {
	t.Helper()

	model, err := f.compiler.Compile(raw)
	require.NoError(t, err)

	f.repository.Register(model)

	return model
}

func eventNode(id, name string, successors ...models.RawSuccessor) models.RawNode {
	return models.RawNode{
		ID:         id,
		Kind:       models.PluginKindEvent,
		Plugin:     "test",
		Config:     map[string]string{"name": name},
		Successors: successors,
	}
}

func actionNode(id string, config map[string]string, successors ...models.RawSuccessor) models.RawNode {
	if config == nil {
		config = map[string]string{}
	}

	if _, ok := config["name"]; !ok {
		config["name"] = id
	}

	return models.RawNode{
		ID:         id,
		Kind:       models.PluginKindAction,
		Plugin:     "record",
		Config:     config,
		Successors: successors,
	}
}

func conditionNode(id string, config map[string]string, successors ...models.RawSuccessor) models.RawNode {
	return models.RawNode{
		ID:         id,
		Kind:       models.PluginKindCondition,
		Plugin:     "flag",
		Config:     config,
		Successors: successors,
	}
}

func gatewayNode(id string, successors ...models.RawSuccessor) models.RawNode {
	return models.RawNode{
		ID:         id,
		Kind:       models.PluginKindGateway,
		Plugin:     "parallel",
		Successors: successors,
	}
}

func to(target string) models.RawSuccessor {
	return models.RawSuccessor{Target: target}
}

func guarded(target, guard string, negate bool) models.RawSuccessor {
	return models.RawSuccessor{Target: target, Condition: guard, Negate: negate}
}

func rawModel(id string, nodes ...models.RawNode) models.RawModel {
	return models.RawModel{ID: id, Label: id, Version: "1", Enabled: true, Nodes: nodes}
}
