package models

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestPluginKind_Valid(t *testing.T) {
	for _, kind := range PluginKinds {
		assert.True(t, kind.Valid(), kind)
	}

	assert.False(t, PluginKind("sensor").Valid())
}

func TestPluginRef(t *testing.T) {
	ref := RawNode{ID: "n", Kind: PluginKindAction, Plugin: "log", Config: map[string]string{"message": "hi", "level": ""}}.Ref()

	assert.Equal(t, "action:log", ref.String())
	assert.Equal(t, "hi", ref.ConfigValue("message", "default"))
	assert.Equal(t, "info", ref.ConfigValue("level", "info"))
	assert.Equal(t, "x", ref.ConfigValue("missing", "x"))
}

func TestRawNode_RefCopiesConfig(t *testing.T) {
	node := RawNode{Kind: PluginKindAction, Plugin: "log", Config: map[string]string{"message": "hi"}}

	ref := node.Ref()
	node.Config["message"] = "changed"

	assert.Equal(t, "hi", ref.Config["message"])
}

func TestRawModel_Validation(t *testing.T) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	valid := RawModel{
		ID: "m",
		Nodes: []RawNode{
			{ID: "e", Kind: PluginKindEvent, Plugin: "custom", Successors: []RawSuccessor{{Target: "a"}}},
			{ID: "a", Kind: PluginKindAction, Plugin: "log"},
		},
	}
	require.NoError(t, validate.Struct(valid))

	tests := []struct {
		name   string
		mutate func(*RawModel)
	}{
		{"missing id", func(m *RawModel) { m.ID = "" }},
		{"no nodes", func(m *RawModel) { m.Nodes = nil }},
		{"unknown kind", func(m *RawModel) { m.Nodes[1].Kind = "sensor" }},
		{"missing plugin", func(m *RawModel) { m.Nodes[1].Plugin = "" }},
		{"successor without target", func(m *RawModel) { m.Nodes[0].Successors[0].Target = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := valid
			raw.Nodes = []RawNode{valid.Nodes[0], valid.Nodes[1]}
			raw.Nodes[0].Successors = []RawSuccessor{{Target: "a"}}

			tt.mutate(&raw)
			assert.Error(t, validate.Struct(raw))
		})
	}
}

func TestRawModel_YAML(t *testing.T) {
	doc := `
id: orders
enabled: true
nodes:
  - id: created
    kind: event
    plugin: custom
    config:
      event_id: order_created
    successors:
      - target: notify
        condition: is-big
        negate: true
  - id: notify
    kind: action
    plugin: log
`

	var raw RawModel
	require.NoError(t, yaml.Unmarshal([]byte(doc), &raw))

	assert.Equal(t, "orders", raw.ID)
	assert.True(t, raw.Enabled)
	require.Len(t, raw.Nodes, 2)
	assert.Equal(t, map[string]string{"event_id": "order_created"}, raw.Nodes[0].Config)
	assert.Equal(t, []RawSuccessor{{Target: "notify", Condition: "is-big", Negate: true}}, raw.Nodes[0].Successors)
}

func TestTask(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	value := "42"

	task := Task{Name: "reminder", NotBefore: now.Add(time.Minute)}
	assert.Empty(t, task.ValueOrEmpty())
	assert.Equal(t, time.Minute, task.DueIn(now))

	task.Value = &value
	assert.Equal(t, "42", task.ValueOrEmpty())
	assert.LessOrEqual(t, task.DueIn(now.Add(time.Hour)), time.Duration(0))
}

func TestExecutionReport(t *testing.T) {
	report := &ExecutionReport{
		Models: []*ModelReport{
			{ModelID: "a", Status: ModelStatusSuccess, Executed: []string{"x", "y"}},
			{ModelID: "b", Status: ModelStatusFailed, Executed: []string{"z"}, Failures: []BranchFailure{
				{ModelID: "b", NodeID: "w", Outcome: BranchOutcomeFatal, Message: "boom"},
			}},
		},
	}

	assert.True(t, report.Failed())
	assert.Equal(t, []string{"a/x", "a/y", "b/z"}, report.Executed())
	require.Len(t, report.Failures(), 1)
	assert.Equal(t, BranchOutcomeFatal, report.Failures()[0].Outcome)

	assert.False(t, (&ExecutionReport{}).Failed())
	assert.Empty(t, (&ExecutionReport{}).Failures())
}
