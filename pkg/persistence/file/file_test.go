package file_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dukex/eca/pkg/models"
	"github.com/dukex/eca/pkg/persistence"
	"github.com/dukex/eca/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleModel(id string) models.RawModel {
	return models.RawModel{
		ID:      id,
		Label:   "Ping",
		Enabled: true,
		Nodes: []models.RawNode{
			{
				ID:         "ping",
				Kind:       models.PluginKindEvent,
				Plugin:     "custom",
				Successors: []models.RawSuccessor{{Target: "pong"}},
			},
			{
				ID:     "pong",
				Kind:   models.PluginKindAction,
				Plugin: "log",
				Config: map[string]string{"message": "Pong!"},
			},
		},
	}
}

func TestPersistence_SaveAndLoad(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := file.NewPersistence("file://" + root)

	raws, err := store.RawModels(t.Context())
	require.NoError(t, err)
	assert.Empty(t, raws)

	require.NoError(t, store.SaveRawModel(t.Context(), sampleModel("ping")))
	require.NoError(t, store.SaveRawModel(t.Context(), sampleModel("other")))

	raws, err = store.RawModels(t.Context())
	require.NoError(t, err)
	require.Len(t, raws, 2)
	assert.Equal(t, "other", raws[0].ID)
	assert.Equal(t, "ping", raws[1].ID)

	got, err := store.RawModelByID(t.Context(), "ping")
	require.NoError(t, err)
	assert.Equal(t, sampleModel("ping"), got)

	require.NoError(t, store.DeleteRawModel(t.Context(), "ping"))

	_, err = store.RawModelByID(t.Context(), "ping")
	assert.True(t, persistence.IsModelNotFound(err))

	err = store.DeleteRawModel(t.Context(), "ping")
	assert.True(t, persistence.IsModelNotFound(err))
}

func TestPersistence_ReadsYAML(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "models"), 0o750))

	document := `
id: yaml-model
enabled: true
weight: 3
nodes:
  - id: start
    kind: event
    plugin: custom
    successors:
      - target: check
  - id: check
    kind: condition
    plugin: compare
    config:
      left: "{{ .flag }}"
      operator: equal
      right: "on"
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "models", "yaml-model.yaml"), []byte(document), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "models", "README.md"), []byte("ignored"), 0o600))

	store := file.NewPersistence(root)

	raws, err := store.RawModels(t.Context())
	require.NoError(t, err)
	require.Len(t, raws, 1)

	raw := raws[0]
	assert.Equal(t, "yaml-model", raw.ID)
	assert.Equal(t, 3, raw.Weight)
	require.Len(t, raw.Nodes, 2)
	assert.Equal(t, models.PluginKindCondition, raw.Nodes[1].Kind)
	assert.Equal(t, "equal", raw.Nodes[1].Config["operator"])
	assert.Equal(t, "check", raw.Nodes[0].Successors[0].Target)
}

func TestPersistence_InvalidDocument(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "models"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "models", "broken.json"), []byte("{"), 0o600))

	_, err := file.NewPersistence(root).RawModels(t.Context())
	assert.True(t, persistence.IsInvalidModel(err))
}

func TestPersistence_RejectsPathLikeIDs(t *testing.T) {
	t.Parallel()

	store := file.NewPersistence(t.TempDir())

	err := store.SaveRawModel(t.Context(), sampleModel("../escape"))
	assert.True(t, persistence.IsInvalidModel(err))
}

func TestPersistence_HealthCheck(t *testing.T) {
	t.Parallel()

	assert.NoError(t, file.NewPersistence(t.TempDir()).HealthCheck(t.Context()))
	assert.Error(t, file.NewPersistence(filepath.Join(t.TempDir(), "missing")).HealthCheck(t.Context()))
}
